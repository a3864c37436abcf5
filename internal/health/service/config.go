package service

import (
	"time"

	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/platform/config"
)

// ConfigFrom maps loaded settings onto analyzer config. A GhostStaleAfter of
// zero disables stale reporting; otherwise the cutoff is fixed relative to now
// so the run stays reproducible for that instant.
func ConfigFrom(a config.Audit, teams []config.Team, now time.Time) models.Config {
	cfg := models.DefaultConfig()
	cfg.BusFactorThreshold = a.BusFactorThreshold
	cfg.ReportStaffingGaps = a.ReportStaffingGaps
	cfg.ParentGapYears = a.ParentGapYears
	cfg.SpouseGapYears = a.SpouseGapYears
	if a.VelocityBucket > 0 {
		cfg.VelocityBucket = a.VelocityBucket
	}
	if a.GhostStaleAfter > 0 {
		cutoff := now.UTC().Add(-a.GhostStaleAfter)
		cfg.GhostStaleBefore = &cutoff
	}
	if a.MinPhoneDigits > 0 {
		cfg.MinPhoneDigits = a.MinPhoneDigits
	}
	cfg.CheckNameCasing = a.CheckNameCasing
	cfg.DefaultTeams = append([]string(nil), a.DefaultTeams...)
	if a.MaxRecommendedTeams > 0 {
		cfg.MaxRecommendedTeams = a.MaxRecommendedTeams
	}
	if a.OutreachTemplate != "" {
		cfg.OutreachTemplate = a.OutreachTemplate
	}

	cfg.Eligibility = models.EligibilityRules{
		AdultsOnly:              a.Eligibility.AdultsOnly,
		RequireServingHousehold: a.Eligibility.RequireServingHousehold,
		ExcludeGhosts:           a.Eligibility.ExcludeGhosts,
	}
	if a.Eligibility.MinGrade > 0 {
		g := a.Eligibility.MinGrade
		cfg.Eligibility.MinGrade = &g
	}
	cfg.Weights = models.ScoreWeights{
		Adult:            a.Weights.Adult,
		ServingHousehold: a.Weights.ServingHousehold,
		RecentCheckIn:    a.Weights.RecentCheckIn,
		Grade:            a.Weights.Grade,
	}

	cfg.Teams = make([]models.TeamInfo, 0, len(teams))
	for _, t := range teams {
		cfg.Teams = append(cfg.Teams, models.TeamInfo{
			ID:       t.ID,
			Name:     t.Name,
			Keywords: append([]string(nil), t.Keywords...),
			MinGrade: t.MinGrade,
		})
	}
	return cfg
}
