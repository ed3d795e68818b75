package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/bootstrap"
	"github.com/solatis/rulekeeper/internal/core/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed <rules-file>",
	Short: "Replace the seed database contents with the rules in a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := requireDBURL(); err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rs, err := bootstrap.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := bootstrap.Check(rs); err != nil {
		return err
	}

	ctx := cmd.Context()
	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	pending, err := db.Pending(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending {
		return fmt.Errorf("seed database has pending migrations - run 'rulekeeper migrate' first")
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return err
	}
	if err := queries.ReplaceSeedRules(ctx, rs); err != nil {
		return fmt.Errorf("failed to write seed rules: %w", err)
	}
	logger.Info("seed database replaced", zap.String("file", args[0]), zap.Int("rules", len(rs)))
	return nil
}
