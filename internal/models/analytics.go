package models

import "time"

// AnalyticsType identifies one report family.
type AnalyticsType string

// Supported analytics report types.
const (
	AnalyticsOverview    AnalyticsType = "overview"
	AnalyticsErrors      AnalyticsType = "errors"
	AnalyticsAnomalies   AnalyticsType = "anomalies"
	AnalyticsPerformance AnalyticsType = "performance"
	AnalyticsPatterns    AnalyticsType = "patterns"
	AnalyticsInsights    AnalyticsType = "insights"
)

// ValidAnalyticsType reports whether s names a known report type.
func ValidAnalyticsType(s string) bool {
	switch AnalyticsType(s) {
	case AnalyticsOverview, AnalyticsErrors, AnalyticsAnomalies,
		AnalyticsPerformance, AnalyticsPatterns, AnalyticsInsights:
		return true
	}
	return false
}

// TimelineBucket is one time bucket of per-level counts.
type TimelineBucket struct {
	Start  time.Time       `json:"start"`
	Counts map[Level]int64 `json:"counts"`
	Total  int64           `json:"total"`
}

// MessageCount pairs a (possibly truncated) message with its occurrence count.
type MessageCount struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// Overview is the payload of the "overview" report.
type Overview struct {
	Total           int64            `json:"total"`
	EarliestEvent   *time.Time       `json:"earliest_event,omitempty"`
	LatestEvent     *time.Time       `json:"latest_event,omitempty"`
	LevelCounts     map[Level]int64  `json:"level_counts"`
	Granularity     string           `json:"granularity"` // "hourly" or "daily"
	Timeline        []TimelineBucket `json:"timeline"`
	TopErrors       []MessageCount   `json:"top_errors"`
	TopWarnings     []MessageCount   `json:"top_warnings"`
	DistinctSources int              `json:"distinct_sources"`
}

// HourCount is a count attached to an hour bucket.
type HourCount struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}

// ServiceErrors is an error count attributed to one service.
type ServiceErrors struct {
	Service string `json:"service"`
	Count   int64  `json:"count"`
}

// ErrorHotspot is a source ranked by its error volume.
type ErrorHotspot struct {
	Source           string `json:"source"`
	Count            int64  `json:"count"`
	DistinctMessages int    `json:"distinct_messages"`
}

// CategoryCount is an error keyword category with its count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ErrorAnalysis is the payload of the "errors" report.
type ErrorAnalysis struct {
	Total       int64           `json:"total"`
	Timeline    []HourCount     `json:"timeline"`
	ByService   []ServiceErrors `json:"by_service"`
	MTBFHours   float64         `json:"mtbf_hours"`
	Hotspots    []ErrorHotspot  `json:"hotspots"`
	Categories  []CategoryCount `json:"categories"`
	Recurring   []MessageCount  `json:"recurring"`
	FirstTime   []MessageCount  `json:"first_time"`
}

// StatAnomaly is a statistically unusual hour.
type StatAnomaly struct {
	Hour     time.Time `json:"hour"`
	Count    int64     `json:"count"`
	Z        float64   `json:"z"`
	Type     string    `json:"type"` // "spike" or "drop"
	Severity string    `json:"severity"`
}

// VolumeAnomaly is a large hour-over-hour swing.
type VolumeAnomaly struct {
	Hour      time.Time `json:"hour"`
	Prev      int64     `json:"prev"`
	Count     int64     `json:"count"`
	ChangePct float64   `json:"change_pct"`
	Severity  string    `json:"severity"`
}

// TemporalAnomaly flags an hour-of-day with disproportionate errors.
type TemporalAnomaly struct {
	HourOfDay int     `json:"hour_of_day"`
	Count     int64   `json:"count"`
	Expected  float64 `json:"expected"`
}

// PatternAnomaly flags a rarely seen error message.
type PatternAnomaly struct {
	Message  string  `json:"message"`
	Count    int64   `json:"count"`
	SharePct float64 `json:"share_pct"`
}

// HourScore is the composite anomaly score for one hour.
type HourScore struct {
	Hour  time.Time `json:"hour"`
	Score float64   `json:"score"`
}

// Anomalies is the payload of the "anomalies" report.
type Anomalies struct {
	Qualifying  int64             `json:"qualifying"`
	Statistical []StatAnomaly     `json:"statistical"`
	Volume      []VolumeAnomaly   `json:"volume"`
	Temporal    []TemporalAnomaly `json:"temporal"`
	Pattern     []PatternAnomaly  `json:"pattern"`
	Scores      []HourScore       `json:"scores"`
}

// DurationStats summarizes a sample of extracted durations or percentages.
type DurationStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95,omitempty"`
	P99    float64 `json:"p99,omitempty"`
}

// HistogramBucket is one equal-width histogram bucket.
type HistogramBucket struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// Throughput summarizes log volume over time.
type Throughput struct {
	MinPerMinute  int64     `json:"min_per_minute"`
	MaxPerMinute  int64     `json:"max_per_minute"`
	AvgPerMinute  float64   `json:"avg_per_minute"`
	EstPerSecond  float64   `json:"est_per_second"`
	PeakMinute    time.Time `json:"peak_minute"`
	PeakCount     int64     `json:"peak_count"`
}

// SlowOperation is one flagged slow operation line.
type SlowOperation struct {
	Message    string    `json:"message"`
	DurationMS float64   `json:"duration_ms"`
	Severity   string    `json:"severity"`
	At         time.Time `json:"at"`
}

// EndpointPerf aggregates access-log-shaped lines per (method, path).
type EndpointPerf struct {
	Method    string  `json:"method"`
	Path      string  `json:"path"`
	Requests  int64   `json:"requests"`
	AvgMS     float64 `json:"avg_ms"`
	ErrorRate float64 `json:"error_rate"`
	Score     float64 `json:"score"`
}

// Performance is the payload of the "performance" report.
type Performance struct {
	ResponseTimes *DurationStats    `json:"response_times,omitempty"`
	Histogram     []HistogramBucket `json:"histogram,omitempty"`
	Throughput    *Throughput       `json:"throughput,omitempty"`
	SlowOps       []SlowOperation   `json:"slow_ops"`
	Endpoints     []EndpointPerf    `json:"endpoints"`
	CPU           *DurationStats    `json:"cpu,omitempty"`
	Memory        *DurationStats    `json:"memory,omitempty"`
}

// NgramCount is one token n-gram with its count.
type NgramCount struct {
	Ngram string `json:"ngram"`
	Count int64  `json:"count"`
}

// RootCause groups errors under a keyword category with samples.
type RootCause struct {
	Category string   `json:"category"`
	Count    int64    `json:"count"`
	Samples  []string `json:"samples"`
}

// Correlation is a pair of error categories that co-occur in a window.
type Correlation struct {
	Window     time.Time `json:"window"`
	Categories []string  `json:"categories"`
	Score      float64   `json:"score"`
}

// MessageCluster groups near-identical messages.
type MessageCluster struct {
	Key     string `json:"key"`
	Count   int64  `json:"count"`
	Example string `json:"example"`
}

// Patterns is the payload of the "patterns" report.
type Patterns struct {
	Common       []NgramCount     `json:"common"`
	RootCauses   []RootCause      `json:"root_causes"`
	Correlations []Correlation    `json:"correlations"`
	Clusters     []MessageCluster `json:"clusters"`
}

// Insight is one severity-tagged derived finding.
type Insight struct {
	Severity string `json:"severity"` // critical, high, medium, info
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// Insights is the payload of the "insights" report.
type Insights struct {
	HealthScore int       `json:"health_score"`
	Items       []Insight `json:"items"`
}
