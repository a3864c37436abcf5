package analyzers

import (
	"fmt"
	"time"

	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

// Ghost reports people who have never checked in, and optionally people whose
// last check-in is older than cfg.GhostStaleBefore. It never reads the clock.
type Ghost struct{}

func (Ghost) Tag() models.Tag { return models.TagGhost }

func (Ghost) Analyze(idx *roster.Index, cfg models.Config) (models.Result, error) {
	var findings []models.Finding
	for _, p := range idx.People() {
		switch {
		case p.LastCheckIn == nil:
			findings = append(findings, models.Finding{
				Tag:         models.TagGhost,
				Severity:    models.SeverityWarning,
				Title:       "Never checked in",
				Subjects:    []string{p.ID},
				Explanation: fmt.Sprintf("%s has no recorded check-in", p.Name),
				Values: map[string]string{
					"name":   p.Name,
					"reason": "never_checked_in",
				},
			})
		case cfg.GhostStaleBefore != nil && p.LastCheckIn.Before(*cfg.GhostStaleBefore):
			last := p.LastCheckIn.UTC().Format(time.DateOnly)
			findings = append(findings, models.Finding{
				Tag:         models.TagGhost,
				Severity:    models.SeverityInformational,
				Title:       "Inactive",
				Subjects:    []string{p.ID},
				Explanation: fmt.Sprintf("%s last checked in on %s", p.Name, last),
				Values: map[string]string{
					"name":          p.Name,
					"reason":        "stale",
					"last_check_in": last,
				},
			})
		}
	}
	return models.Result{Findings: findings}, nil
}
