package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// overviewMessageCap truncates top messages for the payload.
const overviewMessageCap = 100

// hourlySpanLimit switches the timeline to daily buckets beyond this span.
const hourlySpanLimit = 7 * 24 * time.Hour

// computeOverview summarizes a record snapshot: totals, level distribution,
// a level timeline, top error and warning messages, distinct sources.
func computeOverview(ctx context.Context, records []models.LogRecord) (*models.Overview, error) {
	out := &models.Overview{
		LevelCounts: make(map[models.Level]int64),
		Timeline:    []models.TimelineBucket{},
		TopErrors:   []models.MessageCount{},
		TopWarnings: []models.MessageCount{},
		Granularity: "hourly",
	}

	if len(records) == 0 {
		return out, nil
	}

	earliest := records[0].EventTime
	latest := records[0].EventTime

	for i, rec := range records {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}

		out.Total++
		out.LevelCounts[rec.Level]++

		if rec.EventTime.Before(earliest) {
			earliest = rec.EventTime
		}
		if rec.EventTime.After(latest) {
			latest = rec.EventTime
		}
	}

	earliest = earliest.UTC()
	latest = latest.UTC()
	out.EarliestEvent = &earliest
	out.LatestEvent = &latest

	bucketOf := hourOf
	if latest.Sub(earliest) >= hourlySpanLimit {
		out.Granularity = "daily"
		bucketOf = dayOf
	}

	buckets := make(map[time.Time]map[models.Level]int64)
	errCounts := make(map[string]int64)
	warnCounts := make(map[string]int64)
	sources := make(map[string]struct{})

	for i, rec := range records {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}

		b := bucketOf(rec.EventTime)
		if buckets[b] == nil {
			buckets[b] = make(map[models.Level]int64)
		}
		buckets[b][rec.Level]++

		switch rec.Level {
		case models.LevelError:
			errCounts[truncateMessage(rec.Message, overviewMessageCap)]++
		case models.LevelWarn:
			warnCounts[truncateMessage(rec.Message, overviewMessageCap)]++
		}

		if rec.Source != "" {
			sources[rec.Source] = struct{}{}
		}
	}

	starts := make([]time.Time, 0, len(buckets))
	for b := range buckets {
		starts = append(starts, b)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	for _, start := range starts {
		bucket := models.TimelineBucket{Start: start, Counts: buckets[start]}
		for _, c := range buckets[start] {
			bucket.Total += c
		}

		out.Timeline = append(out.Timeline, bucket)
	}

	out.TopErrors = topMessageCounts(errCounts, 10)
	out.TopWarnings = topMessageCounts(warnCounts, 10)
	out.DistinctSources = len(sources)

	return out, nil
}
