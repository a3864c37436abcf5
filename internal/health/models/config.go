package models

import (
	"time"
)

// VelocityEpoch is a Monday, so weekly buckets start on Mondays.
var VelocityEpoch = time.Date(1970, time.January, 5, 0, 0, 0, 0, time.UTC)

const DefaultOutreachTemplate = `Hi {{.FirstName}}, we'd love to have you serve with {{.TeamList}}.` +
	`{{if .Keywords}} If you enjoy {{.Keywords}}, it's a great fit.{{end}} Can we grab a few minutes this week?`

// TeamInfo describes a catalogue team.
type TeamInfo struct {
	ID       string
	Name     string
	Keywords []string
	MinGrade *int
}

type EligibilityRules struct {
	// MinGrade applies to children only; children without a grade are
	// ineligible when it is set.
	MinGrade                *int
	AdultsOnly              bool
	RequireServingHousehold bool
	ExcludeGhosts           bool
}

type ScoreWeights struct {
	Adult            float64
	ServingHousehold float64
	RecentCheckIn    float64
	Grade            float64
}

// Config is caller-supplied analyzer configuration.
type Config struct {
	BusFactorThreshold int
	ReportStaffingGaps bool

	// ParentGapYears flags adult/child pairs born fewer years apart; zero
	// disables the check. SpouseGapYears flags two-adult households born
	// more than that many years apart; zero disables it.
	ParentGapYears int
	SpouseGapYears int

	Teams              []TeamInfo

	VelocityBucket time.Duration
	VelocityOrigin time.Time

	// GhostStaleBefore additionally reports people whose last check-in is
	// strictly earlier.
	GhostStaleBefore *time.Time

	MinPhoneDigits  int
	CheckNameCasing bool

	Eligibility         EligibilityRules
	Weights             ScoreWeights
	DefaultTeams        []string
	MaxRecommendedTeams int
	OutreachTemplate    string
}

func DefaultConfig() Config {
	return Config{
		BusFactorThreshold:  2,
		ParentGapYears:      15,
		SpouseGapYears:      40,
		VelocityBucket:      7 * 24 * time.Hour,
		VelocityOrigin:      VelocityEpoch,
		MinPhoneDigits:      10,
		CheckNameCasing:     true,
		Eligibility:         EligibilityRules{ExcludeGhosts: true},
		Weights:             ScoreWeights{Adult: 10, ServingHousehold: 20, RecentCheckIn: 5, Grade: 1},
		MaxRecommendedTeams: 2,
		OutreachTemplate:    DefaultOutreachTemplate,
	}
}

// Normalize fills zero values that have no meaningful zero.
func (c Config) Normalize() Config {
	if c.VelocityBucket <= 0 {
		c.VelocityBucket = 7 * 24 * time.Hour
	}
	if c.VelocityOrigin.IsZero() {
		c.VelocityOrigin = VelocityEpoch
	}
	if c.MinPhoneDigits <= 0 {
		c.MinPhoneDigits = 10
	}
	if c.MaxRecommendedTeams <= 0 {
		c.MaxRecommendedTeams = 2
	}
	if c.OutreachTemplate == "" {
		c.OutreachTemplate = DefaultOutreachTemplate
	}
	return c
}

// TeamName resolves a team id through the catalogue, falling back to the id.
func (c Config) TeamName(teamID string) string {
	if t, ok := c.Team(teamID); ok && t.Name != "" {
		return t.Name
	}
	return teamID
}

func (c Config) Team(teamID string) (TeamInfo, bool) {
	for _, t := range c.Teams {
		if t.ID == teamID {
			return t, true
		}
	}
	return TeamInfo{}, false
}
