// Package models holds the person records read from the people directory.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fields that the review workflow may write back.
const (
	FieldPhone = "phone"
	FieldName  = "name"
)

// BirthDate is a possibly partial calendar date. The zero value means the
// birthdate is missing; Month and Day are zero when unknown.
type BirthDate struct {
	Year  int
	Month int
	Day   int
}

func (b BirthDate) Known() bool { return b.Year > 0 }

func (b BirthDate) String() string {
	switch {
	case !b.Known():
		return ""
	case b.Month == 0:
		return fmt.Sprintf("%04d", b.Year)
	case b.Day == 0:
		return fmt.Sprintf("%04d-%02d", b.Year, b.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", b.Year, b.Month, b.Day)
	}
}

// ParseBirthDate accepts "YYYY", "YYYY-MM", "YYYY-MM-DD" and RFC 3339
// timestamps. An empty string is a missing birthdate, not an error.
func ParseBirthDate(s string) (BirthDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BirthDate{}, nil
	}
	if len(s) > 10 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return BirthDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
		}
		s = s[:10]
	}
	parts := strings.Split(s, "-")
	if len(parts) > 3 {
		return BirthDate{}, fmt.Errorf("invalid birthdate %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return BirthDate{}, fmt.Errorf("invalid birthdate %q", s)
		}
		nums[i] = n
	}
	b := BirthDate{Year: nums[0], Month: nums[1], Day: nums[2]}
	if b.Year < 1 || b.Month > 12 || b.Day > 31 || (b.Month == 0 && b.Day != 0) {
		return BirthDate{}, fmt.Errorf("invalid birthdate %q", s)
	}
	return b, nil
}

// Person is an immutable snapshot of one directory record.
type Person struct {
	ID          string
	Name        string
	BirthDate   BirthDate
	HouseholdID string
	IsChild     bool
	LastCheckIn *time.Time
	Phone       *string
	Grade       *int
	Teams       []string
}

// Serving reports whether the person belongs to at least one team.
func (p Person) Serving() bool { return len(p.Teams) > 0 }

// ServesOn reports team membership. Teams is sorted.
func (p Person) ServesOn(teamID string) bool {
	for _, t := range p.Teams {
		if t == teamID {
			return true
		}
	}
	return false
}

// Page is one page of a roster listing.
type Page struct {
	People  []Person
	HasMore bool
}
