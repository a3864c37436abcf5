// Package export renders audit reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vrwarp/locus/internal/health/models"
)

const (
	SheetSummary    = "Summary"
	SheetFindings   = "Findings"
	SheetVelocity   = "Velocity"
	SheetCandidates = "Candidates"

	// ContentType is the MIME type of the rendered workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var findingHeader = []any{"Tag", "Severity", "Title", "Subjects", "Explanation", "Suggestion", "Check-ins"}

// Workbook builds a workbook with a summary sheet, one row per finding and,
// when present, velocity and recruitment sheets. Callers must Close it.
func Workbook(report *models.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := &sheetWriter{f: f, bold: bold}
	w.summary(report)
	w.findings(report)
	if len(report.Velocity) > 0 {
		w.velocity(report.Velocity)
	}
	if len(report.Candidates) > 0 {
		w.candidates(report.Candidates)
	}
	if w.err != nil {
		_ = f.Close()
		return nil, w.err
	}
	return f, nil
}

// Write renders report straight to out.
func Write(out io.Writer, report *models.Report) error {
	f, err := Workbook(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// sheetWriter keeps the first error so the sheet builders read top to bottom.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) sheet(name string, header []any) {
	if w.err != nil {
		return
	}
	if name != SheetSummary {
		if _, err := w.f.NewSheet(name); err != nil {
			w.err = fmt.Errorf("create sheet %s: %w", name, err)
			return
		}
	}
	if header != nil {
		w.row(name, 1, header)
		if w.err == nil {
			if err := w.f.SetRowStyle(name, 1, 1, w.bold); err != nil {
				w.err = fmt.Errorf("style header %s: %w", name, err)
			}
		}
	}
}

func (w *sheetWriter) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) summary(r *models.Report) {
	w.sheet(SheetSummary, nil)
	rows := [][]any{
		{"Report", r.ID.String()},
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{"People scanned", r.TotalScanned},
		{"Completed", joinTags(r.Completed)},
		{"Partial", strconv.FormatBool(r.Partial())},
		{},
		{"Category", "Findings"},
	}
	for _, tag := range reportTags(r) {
		rows = append(rows, []any{string(tag), len(r.Findings[tag])})
	}
	if len(r.Errors) > 0 {
		rows = append(rows, []any{}, []any{"Analyzer", "Error"})
		for _, tag := range sortedKeys(r.Errors) {
			rows = append(rows, []any{string(tag), r.Errors[tag]})
		}
	}
	for i, values := range rows {
		w.row(SheetSummary, i+1, values)
	}
}

func (w *sheetWriter) findings(r *models.Report) {
	w.sheet(SheetFindings, findingHeader)
	n := 2
	for _, tag := range reportTags(r) {
		for _, f := range r.Findings[tag] {
			suggestion, count := "", ""
			if f.Suggestion != nil {
				suggestion = *f.Suggestion
			}
			if f.CheckInCount != nil {
				count = strconv.Itoa(*f.CheckInCount)
			}
			w.row(SheetFindings, n, []any{
				string(f.Tag),
				string(f.Severity),
				f.Title,
				strings.Join(f.Subjects, ", "),
				f.Explanation,
				suggestion,
				count,
			})
			n++
		}
	}
}

func (w *sheetWriter) velocity(points []models.VelocityPoint) {
	w.sheet(SheetVelocity, []any{"Bucket start", "Check-ins", "Change"})
	for i, p := range points {
		w.row(SheetVelocity, i+2, []any{p.BucketStart.UTC().Format(time.DateOnly), p.Count, p.Delta})
	}
}

func (w *sheetWriter) candidates(cs []models.Candidate) {
	w.sheet(SheetCandidates, []any{"Person", "Name", "Score", "Recommended teams", "Outreach"})
	for i, c := range cs {
		w.row(SheetCandidates, i+2, []any{
			c.PersonID,
			c.Name,
			c.Score,
			strings.Join(c.RecommendedTeams, ", "),
			c.Outreach,
		})
	}
}

// reportTags orders finding categories like the analyzer list, with any
// extra categories after.
func reportTags(r *models.Report) []models.Tag {
	order := append(models.AnalyzerTags(), models.DerivedTags()...)
	var tags []models.Tag
	for _, t := range order {
		if _, ok := r.Findings[t]; ok {
			tags = append(tags, t)
		}
	}
	for _, t := range sortedKeys(r.Findings) {
		if !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags
}

func sortedKeys[V any](m map[models.Tag]V) []models.Tag {
	keys := make([]models.Tag, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func joinTags(tags []models.Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
