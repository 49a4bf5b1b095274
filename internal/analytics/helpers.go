package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// yieldEvery is how many records a pass processes between ctx checks.
const yieldEvery = 1024

// checkpoint returns ctx.Err() at bucket boundaries so canceled requests
// stop burning CPU.
func checkpoint(ctx context.Context, i int) error {
	if i%yieldEvery == 0 {
		return ctx.Err()
	}

	return nil
}

// truncateMessage caps a message for report payloads.
func truncateMessage(msg string, n int) string {
	if len(msg) <= n {
		return msg
	}

	return msg[:n]
}

// hourOf buckets an event time to its UTC hour.
func hourOf(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// dayOf buckets an event time to its UTC day.
func dayOf(t time.Time) time.Time {
	u := t.UTC()

	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// isQualifying reports whether a level participates in anomaly and pattern
// analysis.
func isQualifying(l models.Level) bool {
	return l == models.LevelError || l == models.LevelCritical || l == models.LevelWarn
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}

	var sum float64
	for _, x := range xs {
		sum += x
	}

	mean := sum / float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}

	variance /= float64(len(xs))

	return mean, math.Sqrt(variance)
}

// percentile returns the nearest-rank percentile of a sorted sample.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}

	return sorted[rank-1]
}

// median returns the median of a sorted sample.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// topMessageCounts returns the n most frequent entries of a count map,
// breaking ties by message for determinism.
func topMessageCounts(counts map[string]int64, n int) []models.MessageCount {
	out := make([]models.MessageCount, 0, len(counts))
	for msg, c := range counts {
		out = append(out, models.MessageCount{Message: msg, Count: c})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Message < out[j].Message
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}

// sortedHours returns a count map's keys in time order.
func sortedHours(counts map[time.Time]int64) []time.Time {
	hours := make([]time.Time, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}

	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	return hours
}
