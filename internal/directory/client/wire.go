package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vrwarp/locus/internal/directory/models"
	"github.com/vrwarp/locus/pkg/platform/text"
)

const (
	contentTypeJSONAPI = "application/vnd.api+json"
	personType         = "Person"
)

type personResource struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	Attributes personAttributes `json:"attributes"`
}

type personAttributes struct {
	Name            string     `json:"name"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Birthdate       *string    `json:"birthdate"`
	HouseholdID     *string    `json:"household_id"`
	Child           bool       `json:"child"`
	LastCheckedInAt *time.Time `json:"last_checked_in_at"`
	PhoneNumber     *string    `json:"phone_number"`
	Grade           *int       `json:"grade"`
	TeamIDs         []string   `json:"team_ids"`
}

type listResponse struct {
	Data  []personResource `json:"data"`
	Links struct {
		Self string `json:"self"`
		Next string `json:"next"`
	} `json:"links"`
	Meta struct {
		TotalCount int `json:"total_count"`
		Count      int `json:"count"`
	} `json:"meta"`
}

type personResponse struct {
	Data personResource `json:"data"`
}

type checkInResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CheckInCount *int `json:"check_in_count"`
		} `json:"attributes"`
	} `json:"data"`
}

type updateRequest struct {
	Data updateResource `json:"data"`
}

type updateResource struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
}

type errorResponse struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e errorResponse) message() string {
	var parts []string
	for _, item := range e.Errors {
		msg := item.Title
		if item.Detail != "" {
			msg += ": " + item.Detail
		}
		if msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}

// wireAttribute maps a person field to its directory attribute name.
func wireAttribute(field string) (string, error) {
	switch field {
	case models.FieldPhone:
		return "phone_number", nil
	case models.FieldName:
		return "name", nil
	default:
		return "", fmt.Errorf("field %q is not writable", field)
	}
}

// toPerson decodes one resource. A birthdate in an unrecognised form is
// treated as missing so the person only drops out of age checks.
func (c *Client) toPerson(ctx context.Context, r personResource) (models.Person, error) {
	if strings.TrimSpace(r.ID) == "" {
		return models.Person{}, fmt.Errorf("person resource without id")
	}
	a := r.Attributes
	p := models.Person{
		ID:          r.ID,
		Name:        strings.TrimSpace(a.Name),
		IsChild:     a.Child,
		LastCheckIn: a.LastCheckedInAt,
		Phone:       a.PhoneNumber,
		Grade:       a.Grade,
		Teams:       text.DedupeSorted(a.TeamIDs),
	}
	if p.Name == "" {
		p.Name = strings.TrimSpace(a.FirstName + " " + a.LastName)
	}
	if a.HouseholdID != nil {
		p.HouseholdID = strings.TrimSpace(*a.HouseholdID)
	}
	if a.Birthdate != nil {
		bd, err := models.ParseBirthDate(*a.Birthdate)
		if err != nil {
			c.logger.WarnContext(ctx, "ignoring malformed birthdate",
				"person_id", r.ID,
				"error", err,
			)
		} else {
			p.BirthDate = bd
		}
	}
	if p.LastCheckIn != nil {
		t := p.LastCheckIn.UTC()
		p.LastCheckIn = &t
	}
	return p, nil
}
