package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// errorCategory pairs a category name with the substrings that claim a
// message. A message contributes to the first matching category only.
type errorCategory struct {
	name     string
	keywords []string
}

var errorCategories = []errorCategory{
	{"timeout", []string{"timeout", "timed out", "deadline exceeded"}},
	{"connection", []string{"connection", "connect", "refused", "reset by peer"}},
	{"permission", []string{"permission", "denied", "unauthorized", "forbidden", "access"}},
	{"resource-exhaustion", []string{"out of memory", "oom", "no space", "disk full", "too many open", "exhausted", "quota"}},
	{"configuration", []string{"config", "misconfigur", "environment variable", "invalid option"}},
	{"database", []string{"database", "sql", "query", "deadlock", "constraint"}},
	{"network", []string{"network", "dns", "unreachable", "socket", "route"}},
	{"null-reference", []string{"null", "nil pointer", "nullpointer", "undefined"}},
}

const otherCategory = "other"

// categorize returns the first matching category for an error message.
func categorize(message string) string {
	lower := strings.ToLower(message)

	for _, cat := range errorCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}

	return otherCategory
}

// computeErrorAnalysis reports on the ERROR/CRITICAL/FATAL stream: hourly
// timeline, per-service totals, MTBF, hotspots, categories, recurrence.
func computeErrorAnalysis(ctx context.Context, records []models.LogRecord) (*models.ErrorAnalysis, error) {
	out := &models.ErrorAnalysis{
		Timeline:   []models.HourCount{},
		ByService:  []models.ServiceErrors{},
		Hotspots:   []models.ErrorHotspot{},
		Categories: []models.CategoryCount{},
		Recurring:  []models.MessageCount{},
		FirstTime:  []models.MessageCount{},
	}

	hourly := make(map[time.Time]int64)
	byService := make(map[string]int64)
	bySource := make(map[string]int64)
	sourceMessages := make(map[string]map[string]struct{})
	byCategory := make(map[string]int64)
	msgCounts := make(map[string]int64)

	var errorTimes []time.Time

	for i, rec := range records {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}

		if !rec.Level.IsErrorLevel() {
			continue
		}

		out.Total++
		hourly[hourOf(rec.EventTime)]++
		errorTimes = append(errorTimes, rec.EventTime)

		service := rec.Service
		if service == "" {
			service = "unknown"
		}
		byService[service]++

		source := rec.Source
		if source == "" {
			source = "unknown"
		}
		bySource[source]++
		if sourceMessages[source] == nil {
			sourceMessages[source] = make(map[string]struct{})
		}
		sourceMessages[source][rec.Message] = struct{}{}

		byCategory[categorize(rec.Message)]++
		msgCounts[truncateMessage(rec.Message, 100)]++
	}

	for _, h := range sortedHours(hourly) {
		out.Timeline = append(out.Timeline, models.HourCount{Hour: h, Count: hourly[h]})
	}

	out.ByService = topServices(byService, 20)
	out.MTBFHours = mtbfHours(errorTimes)
	out.Hotspots = topHotspots(bySource, sourceMessages, 10)

	for cat, c := range byCategory {
		out.Categories = append(out.Categories, models.CategoryCount{Category: cat, Count: c})
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		if out.Categories[i].Count != out.Categories[j].Count {
			return out.Categories[i].Count > out.Categories[j].Count
		}

		return out.Categories[i].Category < out.Categories[j].Category
	})

	recurring := make(map[string]int64)
	firstTime := make(map[string]int64)

	for msg, c := range msgCounts {
		if c > 1 {
			recurring[msg] = c
		} else {
			firstTime[msg] = c
		}
	}

	out.Recurring = topMessageCounts(recurring, 20)
	out.FirstTime = topMessageCounts(firstTime, 20)

	return out, nil
}

// mtbfHours is the mean interval between consecutive errors, in hours.
// Fewer than two errors yield 0.
func mtbfHours(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	var total time.Duration
	for i := 1; i < len(times); i++ {
		total += times[i].Sub(times[i-1])
	}

	mean := total / time.Duration(len(times)-1)

	return mean.Hours()
}

func topServices(counts map[string]int64, n int) []models.ServiceErrors {
	out := make([]models.ServiceErrors, 0, len(counts))
	for svc, c := range counts {
		out = append(out, models.ServiceErrors{Service: svc, Count: c})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Service < out[j].Service
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}

func topHotspots(counts map[string]int64, messages map[string]map[string]struct{}, n int) []models.ErrorHotspot {
	out := make([]models.ErrorHotspot, 0, len(counts))
	for src, c := range counts {
		out = append(out, models.ErrorHotspot{
			Source:           src,
			Count:            c,
			DistinctMessages: len(messages[src]),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Source < out[j].Source
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}
