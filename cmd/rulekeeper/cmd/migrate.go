package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending seed database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func requireDBURL() error {
	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := requireDBURL(); err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(ctx, database); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("migrations applied", zap.String("driver", database.DriverName()))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	if err := requireDBURL(); err != nil {
		return err
	}
	ctx := cmd.Context()
	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		state, appliedAt := "pending", "-"
		if s.Applied {
			state = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, state, appliedAt)
	}
	return w.Flush()
}
