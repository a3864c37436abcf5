package analyzers

import (
	"fmt"
	"time"

	"github.com/vrwarp/locus/internal/health/models"
	"github.com/vrwarp/locus/internal/roster"
)

// maxVelocityBuckets bounds the series length for sparse, long-lived rosters.
const maxVelocityBuckets = 100_000

// Velocity buckets last check-in times and reports counts with deltas. The
// series is contiguous from the first to the last non-empty bucket.
type Velocity struct{}

func (Velocity) Tag() models.Tag { return models.TagVelocity }

func (Velocity) Analyze(idx *roster.Index, cfg models.Config) (models.Result, error) {
	bucket := cfg.VelocityBucket
	if bucket <= 0 {
		return models.Result{}, fmt.Errorf("velocity bucket must be positive, got %s", bucket)
	}
	origin := cfg.VelocityOrigin

	counts := make(map[int64]int)
	var lo, hi int64
	first := true
	for _, p := range idx.People() {
		if p.LastCheckIn == nil {
			continue
		}
		k := bucketOf(*p.LastCheckIn, origin, bucket)
		counts[k]++
		if first || k < lo {
			lo = k
		}
		if first || k > hi {
			hi = k
		}
		first = false
	}

	series := []models.VelocityPoint{}
	if first {
		return models.Result{Velocity: series}, nil
	}
	if hi-lo >= maxVelocityBuckets {
		return models.Result{}, fmt.Errorf("velocity span of %d buckets exceeds %d", hi-lo+1, maxVelocityBuckets)
	}

	prev := 0
	for k := lo; k <= hi; k++ {
		n := counts[k]
		delta := n - prev
		if k == lo {
			delta = 0
		}
		series = append(series, models.VelocityPoint{
			BucketStart: origin.Add(time.Duration(k) * bucket).UTC(),
			Count:       n,
			Delta:       delta,
		})
		prev = n
	}
	return models.Result{Velocity: series}, nil
}

// bucketOf floors (t - origin) / bucket, including times before origin.
func bucketOf(t, origin time.Time, bucket time.Duration) int64 {
	d := t.Sub(origin)
	k := int64(d / bucket)
	if d%bucket < 0 {
		k--
	}
	return k
}
