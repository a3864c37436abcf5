package analyzers

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

// BusFactor flags teams served by fewer than cfg.BusFactorThreshold people.
// Empty catalogue teams are staffing gaps, reported under their own tag when
// cfg.ReportStaffingGaps is set.
type BusFactor struct{}

func (BusFactor) Tag() models.Tag { return models.TagBusFactor }

func (BusFactor) Analyze(idx *roster.Index, cfg models.Config) (models.Result, error) {
	servers := teamServers(idx)

	type risk struct {
		team    string
		members []string
	}
	var risks []risk
	for team, members := range servers {
		if n := len(members); n > 0 && n < cfg.BusFactorThreshold {
			risks = append(risks, risk{team: team, members: members})
		}
	}
	slices.SortFunc(risks, func(a, b risk) int {
		if c := cmp.Compare(len(a.members), len(b.members)); c != 0 {
			return c
		}
		return cmp.Compare(a.team, b.team)
	})

	findings := make([]models.Finding, 0, len(risks))
	for _, r := range risks {
		name := cfg.TeamName(r.team)
		findings = append(findings, models.Finding{
			Tag:         models.TagBusFactor,
			Severity:    models.SeverityWarning,
			Title:       "Bus Factor Risk",
			Subjects:    r.members,
			Explanation: fmt.Sprintf("%s relies on %d of a required %d volunteers", name, len(r.members), cfg.BusFactorThreshold),
			Values: map[string]string{
				"team_id":       r.team,
				"team_name":     name,
				"serving_count": strconv.Itoa(len(r.members)),
				"threshold":     strconv.Itoa(cfg.BusFactorThreshold),
			},
		})
	}

	if cfg.ReportStaffingGaps {
		gaps := slices.Clone(cfg.Teams)
		slices.SortFunc(gaps, func(a, b models.TeamInfo) int { return cmp.Compare(a.ID, b.ID) })
		for _, t := range gaps {
			if len(servers[t.ID]) > 0 {
				continue
			}
			name := cfg.TeamName(t.ID)
			findings = append(findings, models.Finding{
				Tag:         models.TagStaffingGap,
				Severity:    models.SeverityInformational,
				Title:       "Staffing Gap",
				Subjects:    []string{},
				Explanation: fmt.Sprintf("%s has no volunteers", name),
				Values: map[string]string{
					"team_id":   t.ID,
					"team_name": name,
				},
			})
		}
	}
	return models.Result{Findings: findings}, nil
}

// teamServers maps each team to its distinct members, ids ascending.
func teamServers(idx *roster.Index) map[string][]string {
	servers := make(map[string][]string)
	for _, p := range idx.People() {
		for _, t := range p.Teams {
			if m := servers[t]; len(m) > 0 && m[len(m)-1] == p.ID {
				continue
			}
			servers[t] = append(servers[t], p.ID)
		}
	}
	return servers
}
