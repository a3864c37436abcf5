// Package roster indexes a directory snapshot by person and household.
package roster

import (
	"sort"

	"github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/pkg/platform/text"
)

// Household groups people sharing a household id. Adults and Children keep
// input order and partition the members exactly.
type Household struct {
	ID       string
	Adults   []models.Person
	Children []models.Person
}

// Members returns adults followed by children.
func (h Household) Members() []models.Person {
	out := make([]models.Person, 0, len(h.Adults)+len(h.Children))
	out = append(out, h.Adults...)
	return append(out, h.Children...)
}

// Index is an immutable lookup structure over one roster snapshot. It is safe
// for concurrent reads.
type Index struct {
	people       map[string]models.Person
	ids          []string
	households   map[string]*Household
	householdIDs []string
	unaffiliated []models.Person
}

// Build indexes people in one pass. When an id repeats, the later record
// replaces the earlier one everywhere. Team ids are trimmed, deduplicated and
// sorted.
func Build(people []models.Person) *Index {
	last := make(map[string]int, len(people))
	for i, p := range people {
		last[p.ID] = i
	}

	idx := &Index{
		people:     make(map[string]models.Person, len(last)),
		ids:        make([]string, 0, len(last)),
		households: make(map[string]*Household),
	}
	for i, p := range people {
		if last[p.ID] != i {
			continue
		}
		p.Teams = text.DedupeSorted(p.Teams)
		idx.people[p.ID] = p
		idx.ids = append(idx.ids, p.ID)

		if p.HouseholdID == "" {
			idx.unaffiliated = append(idx.unaffiliated, p)
			continue
		}
		h, ok := idx.households[p.HouseholdID]
		if !ok {
			h = &Household{ID: p.HouseholdID}
			idx.households[p.HouseholdID] = h
			idx.householdIDs = append(idx.householdIDs, p.HouseholdID)
		}
		if p.IsChild {
			h.Children = append(h.Children, p)
		} else {
			h.Adults = append(h.Adults, p)
		}
	}
	sort.Strings(idx.ids)
	sort.Strings(idx.householdIDs)
	return idx
}

func (i *Index) Len() int { return len(i.ids) }

// Person looks up a person by id.
func (i *Index) Person(id string) (models.Person, bool) {
	p, ok := i.people[id]
	return p, ok
}

// People returns every person ordered by id.
func (i *Index) People() []models.Person {
	out := make([]models.Person, len(i.ids))
	for n, id := range i.ids {
		out[n] = i.people[id]
	}
	return out
}

// Households returns every household ordered by id.
func (i *Index) Households() []Household {
	out := make([]Household, len(i.householdIDs))
	for n, id := range i.householdIDs {
		out[n] = *i.households[id]
	}
	return out
}

func (i *Index) Household(id string) (Household, bool) {
	h, ok := i.households[id]
	if !ok {
		return Household{}, false
	}
	return *h, true
}

// Unaffiliated returns people without a household, in input order.
func (i *Index) Unaffiliated() []models.Person {
	return append([]models.Person(nil), i.unaffiliated...)
}
