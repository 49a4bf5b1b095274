package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// minQualifying is the floor below which every anomaly sub-check is skipped.
const minQualifying = 10

// statThreshold is the z-score cutoff for statistical anomalies.
const statThreshold = 2.0

// Night hours carry the base anomaly-score weight.
const (
	nightStart = 2
	nightEnd   = 6
)

// computeAnomalies flags unusual hours in the ERROR/CRITICAL/WARN stream:
// statistical outliers, volume swings, temporal clustering, rare messages,
// and a composite per-hour score.
func computeAnomalies(ctx context.Context, records []models.LogRecord) (*models.Anomalies, error) {
	out := &models.Anomalies{
		Statistical: []models.StatAnomaly{},
		Volume:      []models.VolumeAnomaly{},
		Temporal:    []models.TemporalAnomaly{},
		Pattern:     []models.PatternAnomaly{},
		Scores:      []models.HourScore{},
	}

	hourly := make(map[time.Time]int64)       // qualifying per hour
	hourlyAll := make(map[time.Time]int64)    // all records per hour
	hourOfDay := make(map[int]int64)          // qualifying per hour-of-day
	errMsgCounts := make(map[string]int64)    // ERROR|CRITICAL messages
	var totalErrors int64

	for i, rec := range records {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}

		hourlyAll[hourOf(rec.EventTime)]++

		if !isQualifying(rec.Level) {
			continue
		}

		out.Qualifying++
		h := hourOf(rec.EventTime)
		hourly[h]++
		hourOfDay[h.Hour()]++

		if rec.Level == models.LevelError || rec.Level == models.LevelCritical {
			errMsgCounts[truncateMessage(rec.Message, 100)]++
			totalErrors++
		}
	}

	if out.Qualifying < minQualifying {
		return out, nil
	}

	hours := sortedHours(hourly)

	statFlagged := statisticalAnomalies(out, hours, hourly)
	volFlagged := volumeAnomalies(out, hours, hourly)
	temporalAnomalies(out, hourOfDay, out.Qualifying)
	patternAnomalies(out, errMsgCounts, totalErrors)
	hourScores(out, hours, hourly, hourlyAll, statFlagged, volFlagged)

	return out, nil
}

// statisticalAnomalies flags hours whose count deviates from the hourly mean
// by more than the z threshold. Returns the flagged hours.
func statisticalAnomalies(out *models.Anomalies, hours []time.Time, hourly map[time.Time]int64) map[time.Time]bool {
	flagged := make(map[time.Time]bool)

	counts := make([]float64, 0, len(hours))
	for _, h := range hours {
		counts = append(counts, float64(hourly[h]))
	}

	mean, stddev := meanStddev(counts)
	if stddev == 0 {
		return flagged
	}

	for _, h := range hours {
		z := (float64(hourly[h]) - mean) / stddev
		if math.Abs(z) <= statThreshold {
			continue
		}

		typ := "spike"
		if z < 0 {
			typ = "drop"
		}

		severity := "medium"
		if math.Abs(z) >= 3 {
			severity = "high"
		}

		flagged[h] = true
		out.Statistical = append(out.Statistical, models.StatAnomaly{
			Hour: h, Count: hourly[h], Z: z, Type: typ, Severity: severity,
		})
	}

	sort.Slice(out.Statistical, func(i, j int) bool {
		return math.Abs(out.Statistical[i].Z) > math.Abs(out.Statistical[j].Z)
	})

	if len(out.Statistical) > 10 {
		out.Statistical = out.Statistical[:10]
	}

	return flagged
}

// volumeAnomalies flags consecutive non-empty hours whose count swings by
// more than 100%. Returns the flagged hours.
func volumeAnomalies(out *models.Anomalies, hours []time.Time, hourly map[time.Time]int64) map[time.Time]bool {
	flagged := make(map[time.Time]bool)

	for i := 1; i < len(hours); i++ {
		prev := hourly[hours[i-1]]
		cur := hourly[hours[i]]

		if prev == 0 {
			continue
		}

		changePct := math.Abs(float64(cur-prev)) / float64(prev) * 100
		if changePct <= 100 {
			continue
		}

		severity := "medium"
		if changePct > 200 {
			severity = "high"
		}

		flagged[hours[i]] = true
		out.Volume = append(out.Volume, models.VolumeAnomaly{
			Hour: hours[i], Prev: prev, Count: cur, ChangePct: changePct, Severity: severity,
		})
	}

	return flagged
}

// temporalAnomalies flags hours of day holding more than three times their
// uniform share of errors.
func temporalAnomalies(out *models.Anomalies, hourOfDay map[int]int64, total int64) {
	expected := float64(total) / 24

	for hod := 0; hod < 24; hod++ {
		c := hourOfDay[hod]
		if float64(c) > 3*expected && c > 0 {
			out.Temporal = append(out.Temporal, models.TemporalAnomaly{
				HourOfDay: hod, Count: c, Expected: expected,
			})
		}
	}
}

// patternAnomalies flags error messages holding less than 5% of the error
// volume.
func patternAnomalies(out *models.Anomalies, msgCounts map[string]int64, totalErrors int64) {
	if totalErrors == 0 {
		return
	}

	for msg, c := range msgCounts {
		share := float64(c) / float64(totalErrors) * 100
		if share < 5 {
			out.Pattern = append(out.Pattern, models.PatternAnomaly{
				Message: msg, Count: c, SharePct: share,
			})
		}
	}

	sort.Slice(out.Pattern, func(i, j int) bool {
		if out.Pattern[i].Count != out.Pattern[j].Count {
			return out.Pattern[i].Count > out.Pattern[j].Count
		}

		return out.Pattern[i].Message < out.Pattern[j].Message
	})

	if len(out.Pattern) > 20 {
		out.Pattern = out.Pattern[:20]
	}
}

// hourScores computes the composite anomaly score per hour, capped at 1.
func hourScores(
	out *models.Anomalies,
	hours []time.Time,
	hourly, hourlyAll map[time.Time]int64,
	statFlagged, volFlagged map[time.Time]bool,
) {
	counts := make([]float64, 0, len(hours))
	for _, h := range hours {
		counts = append(counts, float64(hourly[h]))
	}
	sort.Float64s(counts)
	p90 := percentile(counts, 90)

	for _, h := range hours {
		var score float64

		if hod := h.Hour(); hod >= nightStart && hod <= nightEnd {
			score += 0.5
		}

		if total := hourlyAll[h]; total > 0 {
			errorRate := float64(hourly[h]) / float64(total)
			score += 0.3 * math.Min(errorRate*10, 1)
		}

		if float64(hourly[h]) > p90 {
			score += 0.2
		}
		if statFlagged[h] {
			score += 0.2
		}
		if volFlagged[h] {
			score += 0.1
		}

		if score > 1 {
			score = 1
		}

		out.Scores = append(out.Scores, models.HourScore{Hour: h, Score: score})
	}

	sort.Slice(out.Scores, func(i, j int) bool {
		if out.Scores[i].Score != out.Scores[j].Score {
			return out.Scores[i].Score > out.Scores[j].Score
		}

		return out.Scores[i].Hour.Before(out.Scores[j].Hour)
	})

	if len(out.Scores) > 24 {
		out.Scores = out.Scores[:24]
	}
}
