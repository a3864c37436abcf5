package analyzers

import (
	"fmt"
	"strconv"

	dirmodels "github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

// FamilyOrder flags households where a child is born in an earlier year than
// an adult. Only birth years are compared. Implausible but ordered gaps, a
// parent fewer than cfg.ParentGapYears older than a child or two spouses more
// than cfg.SpouseGapYears apart, are reported under family_gap.
type FamilyOrder struct{}

func (FamilyOrder) Tag() models.Tag { return models.TagFamilyOrder }

func (FamilyOrder) Analyze(idx *roster.Index, cfg models.Config) (models.Result, error) {
	var findings []models.Finding
	for _, h := range idx.Households() {
		if f, ok := spouseGap(h, cfg.SpouseGapYears); ok {
			findings = append(findings, f)
		}
		if len(h.Adults) == 0 || len(h.Children) == 0 {
			continue
		}
		for _, adult := range h.Adults {
			if !adult.BirthDate.Known() {
				continue
			}
			for _, child := range h.Children {
				if !child.BirthDate.Known() {
					continue
				}
				if child.BirthDate.Year >= adult.BirthDate.Year {
					if f, ok := parentGap(h, adult, child, cfg.ParentGapYears); ok {
						findings = append(findings, f)
					}
					continue
				}
				findings = append(findings, models.Finding{
					Tag:      models.TagFamilyOrder,
					Severity: models.SeverityWarning,
					Title:    "Child older than adult",
					Subjects: []string{adult.ID, child.ID},
					Explanation: fmt.Sprintf("%s (child, born %d) is older than %s (adult, born %d)",
						child.Name, child.BirthDate.Year, adult.Name, adult.BirthDate.Year),
					Values: map[string]string{
						"household_id":     h.ID,
						"adult_birth_year": strconv.Itoa(adult.BirthDate.Year),
						"child_birth_year": strconv.Itoa(child.BirthDate.Year),
						"adult_name":       adult.Name,
						"child_name":       child.Name,
					},
				})
			}
		}
	}
	return models.Result{Findings: findings}, nil
}

func parentGap(h roster.Household, adult, child dirmodels.Person, minYears int) (models.Finding, bool) {
	gap := child.BirthDate.Year - adult.BirthDate.Year
	if minYears <= 0 || gap >= minYears {
		return models.Finding{}, false
	}
	return models.Finding{
		Tag:      models.TagFamilyGap,
		Severity: models.SeverityInformational,
		Title:    "Small parent/child age gap",
		Subjects: []string{adult.ID, child.ID},
		Explanation: fmt.Sprintf("%s (adult, born %d) is only %d years older than %s (child, born %d)",
			adult.Name, adult.BirthDate.Year, gap, child.Name, child.BirthDate.Year),
		Values: map[string]string{
			"household_id":     h.ID,
			"kind":             "parent_child",
			"gap_years":        strconv.Itoa(gap),
			"adult_birth_year": strconv.Itoa(adult.BirthDate.Year),
			"child_birth_year": strconv.Itoa(child.BirthDate.Year),
		},
	}, true
}

// spouseGap only applies to households with exactly two adults.
func spouseGap(h roster.Household, maxYears int) (models.Finding, bool) {
	if maxYears <= 0 || len(h.Adults) != 2 {
		return models.Finding{}, false
	}
	a, b := h.Adults[0], h.Adults[1]
	if !a.BirthDate.Known() || !b.BirthDate.Known() {
		return models.Finding{}, false
	}
	gap := a.BirthDate.Year - b.BirthDate.Year
	if gap < 0 {
		gap = -gap
	}
	if gap <= maxYears {
		return models.Finding{}, false
	}
	return models.Finding{
		Tag:      models.TagFamilyGap,
		Severity: models.SeverityWarning,
		Title:    "Large spouse age gap",
		Subjects: []string{a.ID, b.ID},
		Explanation: fmt.Sprintf("%s (born %d) and %s (born %d) are %d years apart",
			a.Name, a.BirthDate.Year, b.Name, b.BirthDate.Year, gap),
		Values: map[string]string{
			"household_id": h.ID,
			"kind":         "spouse",
			"gap_years":    strconv.Itoa(gap),
		},
	}, true
}
