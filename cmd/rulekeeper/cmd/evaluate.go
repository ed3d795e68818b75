package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/solatis/rulekeeper/internal/core/api"
	"github.com/solatis/rulekeeper/internal/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <document.json|->",
	Short: "Evaluate a document against rules on a running server over gRPC",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("addr", "localhost:50051", "gRPC server address")
	evaluateCmd.Flags().String("rules", "", "comma-separated rule ids")
	evaluateCmd.Flags().Duration("timeout", 10*time.Second, "request timeout")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	ids, _ := cmd.Flags().GetString("rules")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if _, err := types.DecodeDocument(data); err != nil {
		return err
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out, err := api.NewClient(conn).Evaluate(ctx, api.ParseRuleIDs(ids), json.RawMessage(data))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !out.Passed() {
		return fmt.Errorf("evaluation failed")
	}
	return nil
}
