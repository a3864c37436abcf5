package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vrwarp/locus/internal/health/models"
)

var (
	auditJSON     bool
	confirmGhosts bool
	auditVerbose  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run analyzers and print findings",
	Long: `Run data health analyzers against the current roster.

Examples:
  # Run every analyzer
  locus audit

  # Only family order and contact checks
  locus audit -a family_order,contact

  # Confirm ghost findings with live check-in counts
  locus audit -a ghost --confirm-ghosts

  # Machine readable output
  locus audit --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := models.ParseTags(analyzerNames)
		if err != nil {
			return err
		}
		a, ctx, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Health.Audit(ctx, tags, a.AuditConfig())
		if err != nil && report == nil {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s audit interrupted, showing partial report: %v\n", yellow("!"), err)
		}

		if confirmGhosts && len(report.Findings[models.TagGhost]) > 0 {
			confirmed, cerr := a.Health.ConfirmGhosts(ctx, report.Findings[models.TagGhost])
			report.Findings[models.TagGhost] = confirmed
			if cerr != nil {
				fmt.Fprintf(os.Stderr, "%s some ghosts could not be confirmed: %v\n", yellow("!"), cerr)
			}
		}

		if auditJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(cmd.OutOrStdout(), report, auditVerbose)
		if report.Partial() {
			return errors.New("report is partial")
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the report as JSON")
	auditCmd.Flags().BoolVar(&confirmGhosts, "confirm-ghosts", false, "look up check-in counts for ghost findings")
	auditCmd.Flags().BoolVarP(&auditVerbose, "verbose", "v", false, "include explanations and suggestions")
	rootCmd.AddCommand(auditCmd)
}
