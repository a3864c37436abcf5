package analyzers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrwarp/locus/internal/directory/models"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

func runRecruitment(t *testing.T, cfg healthmodels.Config, people ...models.Person) []healthmodels.Candidate {
	t.Helper()
	res, err := Recruitment{}.Analyze(roster.Build(people), cfg)
	require.NoError(t, err)
	return res.Candidates
}

func candidateIDs(cs []healthmodels.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.PersonID
	}
	return out
}

func TestRecruitment(t *testing.T) {
	family := []models.Person{
		person("dad", named("Dan Smith"), household("h1"), seen(), teams("tech", "sound")),
		person("mom", named("Mia Smith"), household("h1"), seen()),
		person("kid", named("Kai Smith"), household("h1"), child(), seen(), grade(8)),
		person("loner", named("Lee Jones"), seen()),
		person("ghost", named("Gus Ghost")),
		person("vol", named("Val Vol"), seen(), teams("tech")),
	}

	t.Run("ranks by score then id and skips servers and ghosts", func(t *testing.T) {
		cfg := healthmodels.DefaultConfig()
		cs := runRecruitment(t, cfg, family...)

		assert.Equal(t, []string{"mom", "kid", "loner"}, candidateIDs(cs))
		assert.Equal(t, 35.0, cs[0].Score)
		assert.Equal(t, []string{"adult", "serving_household", "checked_in"}, cs[0].Signals)
		assert.Equal(t, 33.0, cs[1].Score)
		assert.Equal(t, 15.0, cs[2].Score)
	})

	t.Run("household teams are recommended and rendered", func(t *testing.T) {
		cfg := healthmodels.DefaultConfig()
		cfg.Teams = []healthmodels.TeamInfo{
			{ID: "sound", Name: "Sound Crew", Keywords: []string{"music"}},
			{ID: "tech", Name: "Tech Team", Keywords: []string{"computers"}},
		}
		cs := runRecruitment(t, cfg, family...)

		require.NotEmpty(t, cs)
		mom := cs[0]
		assert.Equal(t, []string{"sound", "tech"}, mom.RecommendedTeams)
		assert.Equal(t,
			"Hi Mia, we'd love to have you serve with Sound Crew and Tech Team. If you enjoy computers and music, it's a great fit. Can we grab a few minutes this week?",
			mom.Outreach)
	})

	t.Run("default teams fill in and are capped", func(t *testing.T) {
		cfg := healthmodels.DefaultConfig()
		cfg.DefaultTeams = []string{"greeters", "parking", "cafe"}
		cs := runRecruitment(t, cfg, person("solo", seen()))

		require.Len(t, cs, 1)
		assert.Equal(t, []string{"greeters", "parking"}, cs[0].RecommendedTeams)
	})

	t.Run("no teams at all still renders", func(t *testing.T) {
		cs := runRecruitment(t, healthmodels.DefaultConfig(), person("solo", named("Sam"), seen()))
		require.Len(t, cs, 1)
		assert.Contains(t, cs[0].Outreach, "one of our serving teams")
	})

	t.Run("eligibility rules", func(t *testing.T) {
		cfg := healthmodels.DefaultConfig()
		cfg.Eligibility = healthmodels.EligibilityRules{
			MinGrade:                intPtr(9),
			RequireServingHousehold: true,
		}
		cs := runRecruitment(t, cfg, append(family,
			person("teen", household("h1"), child(), grade(10)),
			person("nograde", household("h1"), child()),
		)...)

		assert.Equal(t, []string{"mom", "teen"}, candidateIDs(cs))
		assert.Equal(t, 21.0, cs[1].Score, "serving household plus one grade over the minimum")

		cfg.Eligibility = healthmodels.EligibilityRules{AdultsOnly: true}
		assert.Equal(t, []string{"mom", "loner", "ghost"}, candidateIDs(runRecruitment(t, cfg, family...)))
	})

	t.Run("team minimum grade filters recommendations for children", func(t *testing.T) {
		cfg := healthmodels.DefaultConfig()
		cfg.Teams = []healthmodels.TeamInfo{{ID: "tech", Name: "Tech", MinGrade: intPtr(10)}}
		cs := runRecruitment(t, cfg, family...)

		for _, c := range cs {
			if c.PersonID == "kid" {
				assert.Equal(t, []string{"sound"}, c.RecommendedTeams)
			}
		}
	})

	t.Run("bad template fails the analyzer", func(t *testing.T) {
		cfg := healthmodels.DefaultConfig()
		cfg.OutreachTemplate = "{{.Nope"
		_, err := Recruitment{}.Analyze(roster.Build(family), cfg)
		assert.Error(t, err)

		cfg.OutreachTemplate = "{{.Missing}}"
		_, err = Recruitment{}.Analyze(roster.Build(family), cfg)
		assert.Error(t, err)
	})
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", joinList(nil))
	assert.Equal(t, "a", joinList([]string{"a"}))
	assert.Equal(t, "a and b", joinList([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", joinList([]string{"a", "b", "c"}))
}
