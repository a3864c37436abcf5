package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("LOCUS_ADDR", "")
	t.Setenv("LOCUS_KAFKA_BROKERS", "")
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 100, cfg.Directory.PerPage)
	assert.Equal(t, 5*time.Minute, cfg.Directory.CacheTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.NotEmpty(t, cfg.JWTSigningKey)
	assert.Equal(t, 10, cfg.AuditRateLimit)
	assert.Equal(t, time.Minute, cfg.AuditRateWindow)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("LOCUS_ADDR", ":9090")
	t.Setenv("LOCUS_DIRECTORY_RPS", "2.5")
	t.Setenv("LOCUS_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("LOCUS_ROSTER_CACHE_TTL", "90s")
	t.Setenv("LOCUS_AUDIT_RATE_LIMIT", "0")
	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2.5, cfg.Directory.RPS)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Directory.CacheTTL)
	assert.Zero(t, cfg.AuditRateLimit)
}

func TestLoadAudit(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := LoadAudit("")
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.BusFactorThreshold)
		assert.Equal(t, 7*24*time.Hour, cfg.VelocityBucket)
		assert.Equal(t, 10, cfg.MinPhoneDigits)
		assert.True(t, cfg.Eligibility.ExcludeGhosts)
		assert.Equal(t, 15, cfg.ParentGapYears)
		assert.Equal(t, 40, cfg.SpouseGapYears)
	})

	t.Run("file and env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
bus_factor_threshold: 4
spouse_gap_years: 0
velocity_bucket: 24h
default_teams: [greeters]
eligibility:
  min_grade: 9
weights:
  serving_household: 30
`), 0o600))
		t.Setenv("LOCUS_AUDIT_MIN_PHONE_DIGITS", "11")

		cfg, err := LoadAudit(path)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.BusFactorThreshold)
		assert.Equal(t, 24*time.Hour, cfg.VelocityBucket)
		assert.Equal(t, []string{"greeters"}, cfg.DefaultTeams)
		assert.Equal(t, 9, cfg.Eligibility.MinGrade)
		assert.Equal(t, 30.0, cfg.Weights.ServingHousehold)
		assert.Equal(t, 11, cfg.MinPhoneDigits)
		assert.Zero(t, cfg.SpouseGapYears)
		assert.Equal(t, 15, cfg.ParentGapYears)
	})
}

func TestParseTeams(t *testing.T) {
	t.Run("valid catalogue", func(t *testing.T) {
		teams, err := ParseTeams([]byte(`
teams:
  - id: worship
    name: Worship Band
    keywords: [music, singing]
  - id: kids
    min_grade: 9
`))
		require.NoError(t, err)
		require.Len(t, teams, 2)
		assert.Equal(t, "Worship Band", teams[0].Name)
		assert.Equal(t, "kids", teams[1].Name, "name defaults to id")
		require.NotNil(t, teams[1].MinGrade)
		assert.Equal(t, 9, *teams[1].MinGrade)
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		_, err := ParseTeams([]byte("teams:\n  - id: a\n  - id: a\n"))
		assert.Error(t, err)
	})

	t.Run("missing id rejected", func(t *testing.T) {
		_, err := ParseTeams([]byte("teams:\n  - name: x\n"))
		assert.Error(t, err)
	})
}
