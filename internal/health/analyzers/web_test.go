package analyzers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrwarp/locus/internal/directory/models"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

func runWeb(t *testing.T, people ...models.Person) *healthmodels.VolunteerGraph {
	t.Helper()
	res, err := VolunteerWeb{}.Analyze(roster.Build(people), healthmodels.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, res.Graph)
	return res.Graph
}

func TestVolunteerWeb(t *testing.T) {
	t.Run("two shared teams make one edge of weight two", func(t *testing.T) {
		g := runWeb(t,
			person("b", teams("sound", "tech")),
			person("a", teams("sound", "tech")),
		)

		require.Len(t, g.Edges, 1)
		assert.Equal(t, healthmodels.GraphEdge{
			Source:      "a",
			Target:      "b",
			Weight:      2,
			SharedTeams: []string{"sound", "tech"},
		}, g.Edges[0])
	})

	t.Run("nodes are serving people only, ordered by id", func(t *testing.T) {
		g := runWeb(t,
			person("c", teams("tech")),
			person("idle"),
			person("a", teams("tech", "greeters")),
			person("b", teams("greeters")),
		)

		ids := make([]string, len(g.Nodes))
		for i, n := range g.Nodes {
			ids[i] = n.ID
		}
		assert.Equal(t, []string{"a", "b", "c"}, ids)

		assert.Equal(t, 2, g.Nodes[0].Degree)
		assert.Equal(t, "greeters", g.Nodes[0].PrimaryTeam, "tie on co-servers breaks by team id")

		require.Len(t, g.Edges, 2)
		assert.Equal(t, "a", g.Edges[0].Source)
		assert.Equal(t, "b", g.Edges[0].Target)
		assert.Equal(t, "a", g.Edges[1].Source)
		assert.Equal(t, "c", g.Edges[1].Target)
	})

	t.Run("primary team is the one with the most co-servers", func(t *testing.T) {
		g := runWeb(t,
			person("a", teams("alpha", "zulu")),
			person("b", teams("zulu")),
			person("c", teams("zulu")),
		)
		assert.Equal(t, "zulu", g.Nodes[0].PrimaryTeam)
	})

	t.Run("raw team ids never produce self-loops and tie on the lowest id", func(t *testing.T) {
		g := runWeb(t,
			person("p1", rawTeams("choir", "choir")),
			person("p2", rawTeams("zeta", "alpha")),
			person("p3", rawTeams("alpha")),
			person("p4", rawTeams(" zeta")),
		)

		for _, e := range g.Edges {
			assert.NotEqual(t, e.Source, e.Target)
		}
		require.Len(t, g.Nodes, 4)
		assert.Equal(t, "p1", g.Nodes[0].ID)
		assert.Zero(t, g.Nodes[0].Degree)
		assert.Equal(t, []string{"choir"}, g.Nodes[0].Teams)
		assert.Equal(t, "p2", g.Nodes[1].ID)
		assert.Equal(t, "alpha", g.Nodes[1].PrimaryTeam)
		assert.Equal(t, 2, g.Nodes[1].Degree)
	})

	t.Run("lone server has no edges and no self-loop", func(t *testing.T) {
		g := runWeb(t, person("a", teams("tech")))
		require.Len(t, g.Nodes, 1)
		assert.Empty(t, g.Edges)
		assert.Zero(t, g.Nodes[0].Degree)
	})

	t.Run("output is byte-identical across runs", func(t *testing.T) {
		people := []models.Person{
			person("d", teams("a", "b", "c")),
			person("b", teams("b", "c")),
			person("a", teams("a", "c")),
			person("c", teams("a", "b")),
		}
		first, err := json.Marshal(runWeb(t, people...))
		require.NoError(t, err)
		for range 5 {
			again, err := json.Marshal(runWeb(t, people...))
			require.NoError(t, err)
			assert.Equal(t, string(first), string(again))
		}
	})
}
