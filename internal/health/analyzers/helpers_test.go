package analyzers

import (
	"time"

	"github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/pkg/platform/text"
)

type personOpt func(*models.Person)

func person(id string, opts ...personOpt) models.Person {
	p := models.Person{ID: id, Name: "Person " + id}
	for _, o := range opts {
		o(&p)
	}
	return p
}

func named(n string) personOpt { return func(p *models.Person) { p.Name = n } }
func household(h string) personOpt { return func(p *models.Person) { p.HouseholdID = h } }
func child() personOpt { return func(p *models.Person) { p.IsChild = true } }
func born(y int) personOpt { return func(p *models.Person) { p.BirthDate = models.BirthDate{Year: y} } }
func teams(ts ...string) personOpt {
	return func(p *models.Person) { p.Teams = text.DedupeSorted(ts) }
}

// rawTeams sets team ids exactly as given, duplicates and order included.
func rawTeams(ts ...string) personOpt {
	return func(p *models.Person) { p.Teams = append([]string(nil), ts...) }
}
func phone(s string) personOpt { return func(p *models.Person) { p.Phone = &s } }
func grade(g int) personOpt { return func(p *models.Person) { p.Grade = &g } }
func checkedIn(t time.Time) personOpt { return func(p *models.Person) { p.LastCheckIn = &t } }
func seen() personOpt { return checkedIn(time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)) }
func intPtr(n int) *int { return &n }
func timePtr(t time.Time) *time.Time { return &t }
