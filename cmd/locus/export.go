package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vrwarp/locus/internal/health/export"
	"github.com/vrwarp/locus/internal/health/models"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an audit report to an Excel workbook",
	Long: `Run analyzers and save the report as an .xlsx workbook with summary,
findings, velocity and candidate sheets.

Examples:
  locus export
  locus export -a recruitment --out candidates.xlsx`,
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
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = report.GeneratedAt.Format("locus-audit-20060102-150405.xlsx")
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := export.Write(f, report); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s (%d findings)\n", green("✓"), path, report.FindingCount())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default locus-audit-<timestamp>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
