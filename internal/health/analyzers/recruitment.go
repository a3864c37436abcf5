package analyzers

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/vrwarp/locus/internal/directory/models"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
	"github.com/vrwarp/locus/pkg/platform/text"
)

// Recruitment ranks people who serve on no team by weighted eligibility
// signals and drafts an outreach message for each.
type Recruitment struct{}

func (Recruitment) Tag() healthmodels.Tag { return healthmodels.TagRecruitment }

type outreachData struct {
	Name      string
	FirstName string
	Teams     []string
	TeamList  string
	Keywords  string
}

func (Recruitment) Analyze(idx *roster.Index, cfg healthmodels.Config) (healthmodels.Result, error) {
	tmpl, err := template.New("outreach").Option("missingkey=error").Parse(cfg.OutreachTemplate)
	if err != nil {
		return healthmodels.Result{}, fmt.Errorf("parse outreach template: %w", err)
	}

	rules, w := cfg.Eligibility, cfg.Weights
	candidates := []healthmodels.Candidate{}
	for _, p := range idx.People() {
		if p.Serving() || !eligible(p, rules) {
			continue
		}
		household, _ := idx.Household(p.HouseholdID)
		servingHousehold := hasServingAdult(household)
		if rules.RequireServingHousehold && !servingHousehold {
			continue
		}

		var score float64
		var signals []string
		if !p.IsChild {
			score += w.Adult
			signals = append(signals, "adult")
		}
		if servingHousehold {
			score += w.ServingHousehold
			signals = append(signals, "serving_household")
		}
		if p.LastCheckIn != nil {
			score += w.RecentCheckIn
			signals = append(signals, "checked_in")
		}
		if p.IsChild && p.Grade != nil {
			base := 0
			if rules.MinGrade != nil {
				base = *rules.MinGrade
			}
			score += w.Grade * float64(*p.Grade-base)
			signals = append(signals, "grade")
		}

		teams := recommendTeams(p, household, cfg)
		outreach, err := renderOutreach(tmpl, p, teams, cfg)
		if err != nil {
			return healthmodels.Result{}, err
		}
		candidates = append(candidates, healthmodels.Candidate{
			PersonID:         p.ID,
			Name:             p.Name,
			Score:            score,
			Signals:          signals,
			RecommendedTeams: teams,
			Outreach:         outreach,
		})
	}

	slices.SortStableFunc(candidates, func(a, b healthmodels.Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.PersonID, b.PersonID)
	})
	return healthmodels.Result{Candidates: candidates}, nil
}

func eligible(p models.Person, rules healthmodels.EligibilityRules) bool {
	if rules.AdultsOnly && p.IsChild {
		return false
	}
	if p.IsChild && rules.MinGrade != nil && (p.Grade == nil || *p.Grade < *rules.MinGrade) {
		return false
	}
	if rules.ExcludeGhosts && p.LastCheckIn == nil {
		return false
	}
	return true
}

func hasServingAdult(h roster.Household) bool {
	for _, a := range h.Adults {
		if a.Serving() {
			return true
		}
	}
	return false
}

// recommendTeams orders the teams served inside the household by member
// count, then id, dropping teams the person is too young for.
func recommendTeams(p models.Person, h roster.Household, cfg healthmodels.Config) []string {
	counts := make(map[string]int)
	for _, m := range h.Members() {
		if m.ID == p.ID {
			continue
		}
		for _, t := range m.Teams {
			counts[t]++
		}
	}
	teams := make([]string, 0, len(counts))
	for t := range counts {
		if allowedOn(p, t, cfg) {
			teams = append(teams, t)
		}
	}
	slices.SortFunc(teams, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(teams) == 0 {
		for _, t := range cfg.DefaultTeams {
			if allowedOn(p, t, cfg) {
				teams = append(teams, t)
			}
		}
	}
	if len(teams) > cfg.MaxRecommendedTeams {
		teams = teams[:cfg.MaxRecommendedTeams]
	}
	return teams
}

func allowedOn(p models.Person, teamID string, cfg healthmodels.Config) bool {
	t, ok := cfg.Team(teamID)
	if !ok || t.MinGrade == nil || !p.IsChild {
		return true
	}
	return p.Grade != nil && *p.Grade >= *t.MinGrade
}

func renderOutreach(tmpl *template.Template, p models.Person, teams []string, cfg healthmodels.Config) (string, error) {
	names := make([]string, len(teams))
	var keywords []string
	for i, t := range teams {
		names[i] = cfg.TeamName(t)
		if info, ok := cfg.Team(t); ok {
			keywords = append(keywords, info.Keywords...)
		}
	}
	data := outreachData{
		Name:      p.Name,
		FirstName: text.FirstWord(p.Name),
		Teams:     names,
		TeamList:  joinList(names),
		Keywords:  joinList(text.DedupeSorted(keywords)),
	}
	if data.TeamList == "" {
		data.TeamList = "one of our serving teams"
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render outreach for %s: %w", p.ID, err)
	}
	return b.String(), nil
}

// joinList renders "a", "a and b", "a, b and c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
