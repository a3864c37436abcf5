package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Audit holds analyzer defaults. Requests may override any of them.
type Audit struct {
	BusFactorThreshold  int           `mapstructure:"bus_factor_threshold"`
	ReportStaffingGaps  bool          `mapstructure:"report_staffing_gaps"`
	ParentGapYears      int           `mapstructure:"parent_gap_years"`
	SpouseGapYears      int           `mapstructure:"spouse_gap_years"`
	VelocityBucket      time.Duration `mapstructure:"velocity_bucket"`
	GhostStaleAfter     time.Duration `mapstructure:"ghost_stale_after"`
	MinPhoneDigits      int           `mapstructure:"min_phone_digits"`
	CheckNameCasing     bool          `mapstructure:"check_name_casing"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	ConfirmConcurrency  int           `mapstructure:"confirm_concurrency"`
	DefaultTeams        []string      `mapstructure:"default_teams"`
	MaxRecommendedTeams int           `mapstructure:"max_recommended_teams"`
	OutreachTemplate    string        `mapstructure:"outreach_template"`

	Eligibility Eligibility `mapstructure:"eligibility"`
	Weights     Weights     `mapstructure:"weights"`
}

type Eligibility struct {
	MinGrade                int  `mapstructure:"min_grade"`
	AdultsOnly              bool `mapstructure:"adults_only"`
	RequireServingHousehold bool `mapstructure:"require_serving_household"`
	ExcludeGhosts           bool `mapstructure:"exclude_ghosts"`
}

type Weights struct {
	Adult            float64 `mapstructure:"adult"`
	ServingHousehold float64 `mapstructure:"serving_household"`
	RecentCheckIn    float64 `mapstructure:"recent_check_in"`
	Grade            float64 `mapstructure:"grade"`
}

// LoadAudit reads analyzer defaults from path (optional) and LOCUS_AUDIT_*
// environment variables, e.g. LOCUS_AUDIT_BUS_FACTOR_THRESHOLD=3 or
// LOCUS_AUDIT_ELIGIBILITY_MIN_GRADE=9.
func LoadAudit(path string) (Audit, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LOCUS_AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bus_factor_threshold", 2)
	v.SetDefault("report_staffing_gaps", false)
	v.SetDefault("parent_gap_years", 15)
	v.SetDefault("spouse_gap_years", 40)
	v.SetDefault("velocity_bucket", 7*24*time.Hour)
	v.SetDefault("ghost_stale_after", time.Duration(0))
	v.SetDefault("min_phone_digits", 10)
	v.SetDefault("check_name_casing", true)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("confirm_concurrency", 4)
	v.SetDefault("default_teams", []string{})
	v.SetDefault("max_recommended_teams", 2)
	v.SetDefault("outreach_template", "")
	v.SetDefault("eligibility.min_grade", 0)
	v.SetDefault("eligibility.adults_only", false)
	v.SetDefault("eligibility.require_serving_household", false)
	v.SetDefault("eligibility.exclude_ghosts", true)
	v.SetDefault("weights.adult", 10)
	v.SetDefault("weights.serving_household", 20)
	v.SetDefault("weights.recent_check_in", 5)
	v.SetDefault("weights.grade", 1)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Audit{}, fmt.Errorf("read audit config: %w", err)
			}
		}
	}

	var cfg Audit
	if err := v.Unmarshal(&cfg); err != nil {
		return Audit{}, fmt.Errorf("decode audit config: %w", err)
	}
	if cfg.BusFactorThreshold < 0 {
		return Audit{}, fmt.Errorf("bus_factor_threshold must not be negative")
	}
	if cfg.VelocityBucket <= 0 {
		return Audit{}, fmt.Errorf("velocity_bucket must be positive")
	}
	return cfg, nil
}
