package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/rulekeeper/internal/bootstrap"
)

var validateCmd = &cobra.Command{
	Use:   "validate <rules-file>",
	Short: "Check a rules file without starting the service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := bootstrap.LoadFile(args[0])
		if err != nil {
			return err
		}
		if err := bootstrap.Check(rs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", args[0], len(rs))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rulekeeper %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
