package analyzers

import (
	"cmp"
	"slices"

	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

// VolunteerWeb builds the co-serving graph. Nodes are ordered by id and edges
// by (source, target) so equal snapshots give identical graphs.
type VolunteerWeb struct{}

func (VolunteerWeb) Tag() models.Tag { return models.TagVolunteerWeb }

func (VolunteerWeb) Analyze(idx *roster.Index, _ models.Config) (models.Result, error) {
	servers := teamServers(idx)

	teams := make([]string, 0, len(servers))
	for t := range servers {
		teams = append(teams, t)
	}
	slices.Sort(teams)

	type pair struct{ lo, hi string }
	edges := make(map[pair]*models.GraphEdge)
	degree := make(map[string]int)
	for _, team := range teams {
		members := servers[team]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if members[i] == members[j] {
					continue
				}
				key := pair{members[i], members[j]}
				e, ok := edges[key]
				if !ok {
					e = &models.GraphEdge{Source: key.lo, Target: key.hi}
					edges[key] = e
				}
				e.Weight++
				e.SharedTeams = append(e.SharedTeams, team)
				degree[key.lo]++
				degree[key.hi]++
			}
		}
	}

	graph := &models.VolunteerGraph{
		Nodes: []models.GraphNode{},
		Edges: make([]models.GraphEdge, 0, len(edges)),
	}
	for _, p := range idx.People() {
		if !p.Serving() {
			continue
		}
		// Most co-servers wins; ties go to the lowest team id.
		primary, best := "", -1
		for _, t := range p.Teams {
			co := len(servers[t]) - 1
			if co > best || (co == best && t < primary) {
				primary, best = t, co
			}
		}
		graph.Nodes = append(graph.Nodes, models.GraphNode{
			ID:          p.ID,
			Name:        p.Name,
			PrimaryTeam: primary,
			Teams:       slices.Clone(p.Teams),
			Degree:      degree[p.ID],
		})
	}
	for _, e := range edges {
		graph.Edges = append(graph.Edges, *e)
	}
	slices.SortFunc(graph.Edges, func(a, b models.GraphEdge) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})
	return models.Result{Graph: graph}, nil
}
