package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/vrwarp/locus/internal/health/models"
	dErrors "github.com/vrwarp/locus/pkg/domain-errors"
)

// RunAuditRequest selects analyzers and overrides server defaults. Omitted
// fields keep the default.
type RunAuditRequest struct {
	Analyzers []string         `json:"analyzers"`
	Config    *ConfigOverrides `json:"config,omitempty"`

	tags []models.Tag
}

type ConfigOverrides struct {
	BusFactorThreshold  *int                  `json:"bus_factor_threshold,omitempty"`
	ReportStaffingGaps  *bool                 `json:"report_staffing_gaps,omitempty"`
	ParentGapYears      *int                  `json:"parent_gap_years,omitempty"`
	SpouseGapYears      *int                  `json:"spouse_gap_years,omitempty"`
	VelocityBucket      *string               `json:"velocity_bucket,omitempty"`
	VelocityOrigin      *time.Time            `json:"velocity_origin,omitempty"`
	GhostStaleBefore    *time.Time            `json:"ghost_stale_before,omitempty"`
	MinPhoneDigits      *int                  `json:"min_phone_digits,omitempty"`
	CheckNameCasing     *bool                 `json:"check_name_casing,omitempty"`
	DefaultTeams        []string              `json:"default_teams,omitempty"`
	MaxRecommendedTeams *int                  `json:"max_recommended_teams,omitempty"`
	Eligibility         *EligibilityOverrides `json:"eligibility,omitempty"`
	Weights             *WeightOverrides      `json:"weights,omitempty"`

	bucket time.Duration
}

type WeightOverrides struct {
	Adult            *float64 `json:"adult,omitempty"`
	ServingHousehold *float64 `json:"serving_household,omitempty"`
	RecentCheckIn    *float64 `json:"recent_check_in,omitempty"`
	Grade            *float64 `json:"grade,omitempty"`
}

type EligibilityOverrides struct {
	MinGrade                *int  `json:"min_grade,omitempty"`
	AdultsOnly              *bool `json:"adults_only,omitempty"`
	RequireServingHousehold *bool `json:"require_serving_household,omitempty"`
	ExcludeGhosts           *bool `json:"exclude_ghosts,omitempty"`
}

func (r *RunAuditRequest) Normalize() {
	for i, a := range r.Analyzers {
		r.Analyzers[i] = strings.TrimSpace(a)
	}
}

func (r *RunAuditRequest) Validate() error {
	tags, err := models.ParseTags(r.Analyzers)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	r.tags = tags

	c := r.Config
	if c == nil {
		return nil
	}
	if c.BusFactorThreshold != nil && *c.BusFactorThreshold < 0 {
		return dErrors.New(dErrors.CodeValidation, "bus_factor_threshold must not be negative")
	}
	if c.ParentGapYears != nil && *c.ParentGapYears < 0 {
		return dErrors.New(dErrors.CodeValidation, "parent_gap_years must not be negative")
	}
	if c.SpouseGapYears != nil && *c.SpouseGapYears < 0 {
		return dErrors.New(dErrors.CodeValidation, "spouse_gap_years must not be negative")
	}
	if c.VelocityBucket != nil {
		d, err := time.ParseDuration(*c.VelocityBucket)
		if err != nil || d <= 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid velocity_bucket %q", *c.VelocityBucket))
		}
		c.bucket = d
	}
	if c.MinPhoneDigits != nil && *c.MinPhoneDigits <= 0 {
		return dErrors.New(dErrors.CodeValidation, "min_phone_digits must be positive")
	}
	if c.MaxRecommendedTeams != nil && *c.MaxRecommendedTeams < 0 {
		return dErrors.New(dErrors.CodeValidation, "max_recommended_teams must not be negative")
	}
	if c.Eligibility != nil && c.Eligibility.MinGrade != nil && *c.Eligibility.MinGrade < 0 {
		return dErrors.New(dErrors.CodeValidation, "eligibility.min_grade must not be negative")
	}
	return nil
}

// Tags returns the parsed analyzer selection. Valid after Validate.
func (r *RunAuditRequest) Tags() []models.Tag { return r.tags }

// Apply layers the overrides onto base.
func (r *RunAuditRequest) Apply(base models.Config) models.Config {
	c := r.Config
	if c == nil {
		return base
	}
	if c.BusFactorThreshold != nil {
		base.BusFactorThreshold = *c.BusFactorThreshold
	}
	if c.ReportStaffingGaps != nil {
		base.ReportStaffingGaps = *c.ReportStaffingGaps
	}
	if c.ParentGapYears != nil {
		base.ParentGapYears = *c.ParentGapYears
	}
	if c.SpouseGapYears != nil {
		base.SpouseGapYears = *c.SpouseGapYears
	}
	if c.bucket > 0 {
		base.VelocityBucket = c.bucket
	}
	if c.VelocityOrigin != nil {
		base.VelocityOrigin = c.VelocityOrigin.UTC()
	}
	if c.GhostStaleBefore != nil {
		t := c.GhostStaleBefore.UTC()
		base.GhostStaleBefore = &t
	}
	if c.MinPhoneDigits != nil {
		base.MinPhoneDigits = *c.MinPhoneDigits
	}
	if c.CheckNameCasing != nil {
		base.CheckNameCasing = *c.CheckNameCasing
	}
	if c.DefaultTeams != nil {
		base.DefaultTeams = c.DefaultTeams
	}
	if c.MaxRecommendedTeams != nil {
		base.MaxRecommendedTeams = *c.MaxRecommendedTeams
	}
	if wt := c.Weights; wt != nil {
		setFloat(&base.Weights.Adult, wt.Adult)
		setFloat(&base.Weights.ServingHousehold, wt.ServingHousehold)
		setFloat(&base.Weights.RecentCheckIn, wt.RecentCheckIn)
		setFloat(&base.Weights.Grade, wt.Grade)
	}
	if e := c.Eligibility; e != nil {
		if e.MinGrade != nil {
			g := *e.MinGrade
			base.Eligibility.MinGrade = &g
		}
		if e.AdultsOnly != nil {
			base.Eligibility.AdultsOnly = *e.AdultsOnly
		}
		if e.RequireServingHousehold != nil {
			base.Eligibility.RequireServingHousehold = *e.RequireServingHousehold
		}
		if e.ExcludeGhosts != nil {
			base.Eligibility.ExcludeGhosts = *e.ExcludeGhosts
		}
	}
	return base
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// AuditResponse is the report plus a partial marker for clients that don't
// compare requested and completed analyzers themselves.
type AuditResponse struct {
	*models.Report
	Partial bool `json:"partial"`
}

type ConfirmGhostResponse struct {
	PersonID     string `json:"person_id"`
	CheckInCount int    `json:"check_in_count"`
}
