package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/vrwarp/locus/internal/health/models"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func severityMark(s models.Severity) string {
	if s == models.SeverityWarning {
		return yellow("⚠")
	}
	return cyan("ℹ")
}

// reportTags orders categories the way analyzers are listed, followed by
// derived categories.
func reportTags(r *models.Report) []models.Tag {
	tags := append(models.AnalyzerTags(), models.DerivedTags()...)
	out := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		if _, ok := r.Findings[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func printReport(w io.Writer, r *models.Report, verbose bool) {
	fmt.Fprintf(w, "\n%s Report %s\n", cyan("⚕"), r.ID)
	fmt.Fprintf(w, "  generated %s, %d people scanned\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"), r.TotalScanned)

	for _, tag := range reportTags(r) {
		findings := r.Findings[tag]
		fmt.Fprintf(w, "%s %s (%d)\n", cyan("▶"), bold(string(tag)), len(findings))
		if len(findings) == 0 {
			fmt.Fprintf(w, "  %s No issues found\n", green("✓"))
		}
		for _, f := range findings {
			fmt.Fprintf(w, "  %s %s\n", severityMark(f.Severity), f.Title)
			if f.CheckInCount != nil {
				fmt.Fprintf(w, "      check-ins: %d\n", *f.CheckInCount)
			}
			if !verbose {
				continue
			}
			if f.Explanation != "" {
				fmt.Fprintf(w, "      %s\n", f.Explanation)
			}
			if f.Suggestion != nil {
				fmt.Fprintf(w, "      suggestion: %s\n", *f.Suggestion)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Candidates) > 0 {
		fmt.Fprintf(w, "%s %s\n", cyan("▶"), bold("recruitment candidates"))
		for i, c := range r.Candidates {
			fmt.Fprintf(w, "  %2d. %s  score %.2f  teams: %s\n", i+1, c.Name, c.Score, strings.Join(c.RecommendedTeams, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		tags := make([]models.Tag, 0, len(r.Errors))
		for t := range r.Errors {
			tags = append(tags, t)
		}
		slices.Sort(tags)
		for _, t := range tags {
			fmt.Fprintf(w, "%s %s failed: %s\n", red("✗"), t, r.Errors[t])
		}
		fmt.Fprintln(w)
	}

	summary := fmt.Sprintf("%d findings from %d/%d analyzers", r.FindingCount(), len(r.Completed), len(r.Requested))
	if r.Partial() {
		fmt.Fprintf(w, "%s %s (partial)\n", yellow("!"), summary)
		return
	}
	fmt.Fprintf(w, "%s %s\n", green("✓"), summary)
}
