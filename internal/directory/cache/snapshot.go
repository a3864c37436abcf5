package cache

import (
	"time"

	"github.com/vrwarp/locus/internal/directory/models"
)

type snapshot struct {
	StoredAt time.Time      `json:"stored_at"`
	People   []cachedPerson `json:"people"`
}

type cachedPerson struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	BirthYear   int        `json:"birth_year,omitempty"`
	BirthMonth  int        `json:"birth_month,omitempty"`
	BirthDay    int        `json:"birth_day,omitempty"`
	HouseholdID string     `json:"household_id,omitempty"`
	IsChild     bool       `json:"is_child"`
	LastCheckIn *time.Time `json:"last_check_in,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Grade       *int       `json:"grade,omitempty"`
	Teams       []string   `json:"teams,omitempty"`
}

func newSnapshot(people []models.Person, at time.Time) snapshot {
	s := snapshot{StoredAt: at.UTC(), People: make([]cachedPerson, len(people))}
	for i, p := range people {
		s.People[i] = cachedPerson{
			ID:          p.ID,
			Name:        p.Name,
			BirthYear:   p.BirthDate.Year,
			BirthMonth:  p.BirthDate.Month,
			BirthDay:    p.BirthDate.Day,
			HouseholdID: p.HouseholdID,
			IsChild:     p.IsChild,
			LastCheckIn: p.LastCheckIn,
			Phone:       p.Phone,
			Grade:       p.Grade,
			Teams:       p.Teams,
		}
	}
	return s
}

func (s snapshot) people() []models.Person {
	out := make([]models.Person, len(s.People))
	for i, c := range s.People {
		out[i] = models.Person{
			ID:          c.ID,
			Name:        c.Name,
			BirthDate:   models.BirthDate{Year: c.BirthYear, Month: c.BirthMonth, Day: c.BirthDay},
			HouseholdID: c.HouseholdID,
			IsChild:     c.IsChild,
			LastCheckIn: c.LastCheckIn,
			Phone:       c.Phone,
			Grade:       c.Grade,
			Teams:       c.Teams,
		}
	}
	return out
}
