package analytics

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// Extracted durations must fall in (0, maxDurationMS] to count.
const maxDurationMS = 300000

// Slow-operation thresholds in milliseconds.
const (
	slowThresholdMS     = 1000
	slowHighThresholdMS = 5000
	slowCritThresholdMS = 10000
)

// Duration extraction patterns, tried in order. First match wins.
var durationRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:took|duration|response(?:[ _]?time)?)[:=\s]+(\d+(?:\.\d+)?)\s*ms\b`),
	regexp.MustCompile(`(?i)completed in (\d+(?:\.\d+)?)\s*ms\b`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ms\s*$`),
}

// slowOpRe marks lines that describe a slow query or operation.
var slowOpRe = regexp.MustCompile(`(?i)slow\s+(?:query|operation|request)`)

// endpointRe extracts METHOD, path, and optional status from access-log-shaped
// messages.
var endpointRe = regexp.MustCompile(`"?(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+(/\S*)(?:[^"]*"?\s+(\d{3}))?`)

// Resource usage extraction, bounded to [0,100].
var (
	cpuRe = regexp.MustCompile(`(?i)\bcpu[:=\s]+(\d+(?:\.\d+)?)\s*%`)
	memRe = regexp.MustCompile(`(?i)\b(?:memory|mem)[:=\s]+(\d+(?:\.\d+)?)\s*%`)
)

// extractDuration returns the first bounded duration in a message.
func extractDuration(message string) (float64, bool) {
	for _, re := range durationRes {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}

		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v <= 0 || v > maxDurationMS {
			continue
		}

		return v, true
	}

	return 0, false
}

// extractPct returns a bounded percentage match.
func extractPct(re *regexp.Regexp, message string) (float64, bool) {
	m := re.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}

	return v, true
}

// endpointAgg accumulates per-endpoint latency and errors.
type endpointAgg struct {
	method   string
	path     string
	requests int64
	totalMS  float64
	samples  int64
	errors   int64
}

// computePerformance extracts latency, throughput, slow operations, endpoint
// scores, and resource usage from message text. Empty extractions leave their
// slots empty without failing the report.
func computePerformance(ctx context.Context, records []models.LogRecord) (*models.Performance, error) {
	out := &models.Performance{
		SlowOps:   []models.SlowOperation{},
		Endpoints: []models.EndpointPerf{},
	}

	var durations, cpus, mems []float64

	perMinute := make(map[time.Time]int64)
	endpoints := make(map[string]*endpointAgg)

	for i, rec := range records {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}

		perMinute[rec.EventTime.UTC().Truncate(time.Minute)]++

		dur, hasDur := extractDuration(rec.Message)
		if hasDur {
			durations = append(durations, dur)

			if dur > slowThresholdMS || slowOpRe.MatchString(rec.Message) {
				out.SlowOps = append(out.SlowOps, models.SlowOperation{
					Message:    truncateMessage(rec.Message, 200),
					DurationMS: dur,
					Severity:   slowSeverity(dur),
					At:         rec.EventTime.UTC(),
				})
			}
		}

		if m := endpointRe.FindStringSubmatch(rec.Message); m != nil {
			key := m[1] + " " + m[2]

			agg := endpoints[key]
			if agg == nil {
				agg = &endpointAgg{method: m[1], path: m[2]}
				endpoints[key] = agg
			}

			agg.requests++

			if hasDur {
				agg.totalMS += dur
				agg.samples++
			}

			failed := rec.Level.IsErrorLevel()
			if m[3] != "" {
				if status, err := strconv.Atoi(m[3]); err == nil && status >= 500 {
					failed = true
				}
			}
			if failed {
				agg.errors++
			}
		}

		if v, ok := extractPct(cpuRe, rec.Message); ok {
			cpus = append(cpus, v)
		}
		if v, ok := extractPct(memRe, rec.Message); ok {
			mems = append(mems, v)
		}
	}

	if len(durations) > 0 {
		out.ResponseTimes = durationStats(durations, true)
		out.Histogram = histogram(durations, 10)
	}

	out.Throughput = throughput(perMinute)
	out.CPU = statsOrNil(cpus)
	out.Memory = statsOrNil(mems)

	sort.Slice(out.SlowOps, func(i, j int) bool { return out.SlowOps[i].DurationMS > out.SlowOps[j].DurationMS })
	if len(out.SlowOps) > 20 {
		out.SlowOps = out.SlowOps[:20]
	}

	out.Endpoints = rankEndpoints(endpoints, 15)

	return out, nil
}

func slowSeverity(ms float64) string {
	switch {
	case ms > slowCritThresholdMS:
		return "critical"
	case ms > slowHighThresholdMS:
		return "high"
	default:
		return "medium"
	}
}

// durationStats summarizes a sample; percentiles only when wanted.
func durationStats(xs []float64, withPercentiles bool) *models.DurationStats {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mean, _ := meanStddev(sorted)

	st := &models.DurationStats{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Median: median(sorted),
	}

	if withPercentiles {
		st.P95 = percentile(sorted, 95)
		st.P99 = percentile(sorted, 99)
	}

	return st
}

func statsOrNil(xs []float64) *models.DurationStats {
	if len(xs) == 0 {
		return nil
	}

	return durationStats(xs, false)
}

// histogram builds n equal-width buckets over [min, max].
func histogram(xs []float64, n int) []models.HistogramBucket {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	lo := sorted[0]
	hi := sorted[len(sorted)-1]

	width := (hi - lo) / float64(n)
	if width == 0 {
		return []models.HistogramBucket{{Low: lo, High: hi, Count: len(sorted)}}
	}

	buckets := make([]models.HistogramBucket, n)
	for i := range buckets {
		buckets[i].Low = lo + float64(i)*width
		buckets[i].High = lo + float64(i+1)*width
	}

	for _, x := range sorted {
		idx := int((x - lo) / width)
		if idx >= n {
			idx = n - 1
		}

		buckets[idx].Count++
	}

	return buckets
}

// throughput summarizes per-minute volume over the non-empty minutes.
func throughput(perMinute map[time.Time]int64) *models.Throughput {
	if len(perMinute) == 0 {
		return nil
	}

	tp := &models.Throughput{MinPerMinute: -1}

	var total int64

	for minute, c := range perMinute {
		total += c

		if tp.MinPerMinute == -1 || c < tp.MinPerMinute {
			tp.MinPerMinute = c
		}
		if c > tp.MaxPerMinute || (c == tp.MaxPerMinute && minute.Before(tp.PeakMinute)) {
			tp.MaxPerMinute = c
			tp.PeakMinute = minute
			tp.PeakCount = c
		}
	}

	tp.AvgPerMinute = float64(total) / float64(len(perMinute))
	tp.EstPerSecond = tp.AvgPerMinute / 60

	return tp
}

// rankEndpoints scores endpoints and returns the busiest n.
func rankEndpoints(endpoints map[string]*endpointAgg, n int) []models.EndpointPerf {
	out := make([]models.EndpointPerf, 0, len(endpoints))

	for _, agg := range endpoints {
		var avgMS float64
		if agg.samples > 0 {
			avgMS = agg.totalMS / float64(agg.samples)
		}

		errorRate := float64(agg.errors) / float64(agg.requests)

		out = append(out, models.EndpointPerf{
			Method:    agg.method,
			Path:      agg.path,
			Requests:  agg.requests,
			AvgMS:     avgMS,
			ErrorRate: errorRate,
			Score:     (1 - errorRate) * 1000 / (avgMS + 1),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}

		return out[i].Path < out[j].Path
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}
