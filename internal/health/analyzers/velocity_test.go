package analyzers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrwarp/locus/internal/directory/models"
	healthmodels "github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

func TestVelocity(t *testing.T) {
	cfg := healthmodels.DefaultConfig()
	mon := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, mon.Weekday())

	t.Run("weekly buckets are contiguous with deltas", func(t *testing.T) {
		idx := roster.Build([]models.Person{
			person("a", checkedIn(mon.Add(time.Hour))),
			person("b", checkedIn(mon.Add(6*24*time.Hour))),
			person("c", checkedIn(mon.Add(14*24*time.Hour))),
			person("d", checkedIn(mon.Add(15*24*time.Hour))),
			person("e", checkedIn(mon.Add(16*24*time.Hour))),
			person("ghost"),
		})

		res, err := Velocity{}.Analyze(idx, cfg)
		require.NoError(t, err)

		assert.Equal(t, []healthmodels.VelocityPoint{
			{BucketStart: mon, Count: 2, Delta: 0},
			{BucketStart: mon.AddDate(0, 0, 7), Count: 0, Delta: -2},
			{BucketStart: mon.AddDate(0, 0, 14), Count: 3, Delta: 3},
		}, res.Velocity)
	})

	t.Run("daily buckets", func(t *testing.T) {
		daily := cfg
		daily.VelocityBucket = 24 * time.Hour
		idx := roster.Build([]models.Person{
			person("a", checkedIn(mon.Add(23*time.Hour))),
			person("b", checkedIn(mon.Add(25*time.Hour))),
		})

		res, err := Velocity{}.Analyze(idx, daily)
		require.NoError(t, err)
		require.Len(t, res.Velocity, 2)
		assert.Equal(t, mon.AddDate(0, 0, 1), res.Velocity[1].BucketStart)
	})

	t.Run("times before the origin floor correctly", func(t *testing.T) {
		origin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, int64(-1), bucketOf(origin.Add(-time.Minute), origin, time.Hour))
		assert.Equal(t, int64(0), bucketOf(origin, origin, time.Hour))
		assert.Equal(t, int64(-1), bucketOf(origin.Add(-time.Hour), origin, time.Hour))
	})

	t.Run("no check-ins gives an empty series", func(t *testing.T) {
		res, err := Velocity{}.Analyze(roster.Build([]models.Person{person("a")}), cfg)
		require.NoError(t, err)
		assert.NotNil(t, res.Velocity)
		assert.Empty(t, res.Velocity)
	})

	t.Run("non-positive bucket is an error", func(t *testing.T) {
		bad := cfg
		bad.VelocityBucket = 0
		_, err := Velocity{}.Analyze(roster.Build(nil), bad)
		assert.Error(t, err)
	})
}
