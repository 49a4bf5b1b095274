package analytics

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/loglens/loglens/internal/models"
)

// correlationWindow buckets errors for co-occurrence analysis.
const correlationWindow = 5 * time.Minute

// rootCauseCategory mirrors the error categorization with pattern-analysis
// naming. First match claims the message.
type rootCauseCategory struct {
	name     string
	keywords []string
}

var rootCauseCategories = []rootCauseCategory{
	{"connection_issues", []string{"connection", "connect", "refused", "reset by peer"}},
	{"permission_issues", []string{"permission", "denied", "unauthorized", "forbidden"}},
	{"resource_exhaustion", []string{"out of memory", "oom", "no space", "disk full", "too many open", "exhausted", "quota"}},
	{"configuration_errors", []string{"config", "misconfigur", "environment variable", "invalid option"}},
	{"database_issues", []string{"database", "sql", "query", "deadlock", "constraint"}},
	{"network_issues", []string{"network", "dns", "unreachable", "socket", "route"}},
	{"timeout_issues", []string{"timeout", "timed out", "deadline exceeded"}},
	{"null_reference", []string{"null", "nil pointer", "nullpointer", "undefined"}},
}

// rootCauseFor returns the first matching category, or "" for none.
func rootCauseFor(message string) string {
	lower := strings.ToLower(message)

	for _, cat := range rootCauseCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}

	return ""
}

var (
	tokenRe   = regexp.MustCompile(`[a-zA-Z0-9_]{3,}`)
	digitRe   = regexp.MustCompile(`\d+`)
	nonWordRe = regexp.MustCompile(`\W+`)
	multiWSRe = regexp.MustCompile(`\s+`)
)

// clusterKey folds a message into its shape: digits become N, punctuation
// becomes space, whitespace collapses, lowercased, first 50 chars.
func clusterKey(message string) string {
	key := digitRe.ReplaceAllString(message, "N")
	key = nonWordRe.ReplaceAllString(key, " ")
	key = multiWSRe.ReplaceAllString(key, " ")
	key = strings.ToLower(strings.TrimSpace(key))

	if len(key) > 50 {
		key = key[:50]
	}

	return key
}

// computePatterns mines the ERROR/CRITICAL/WARN stream for recurring n-grams,
// root-cause categories, correlated windows, and message clusters.
func computePatterns(ctx context.Context, records []models.LogRecord) (*models.Patterns, error) {
	out := &models.Patterns{
		Common:       []models.NgramCount{},
		RootCauses:   []models.RootCause{},
		Correlations: []models.Correlation{},
		Clusters:     []models.MessageCluster{},
	}

	ngrams := make(map[string]int64)
	causeCounts := make(map[string]int64)
	causeSamples := make(map[string][]string)
	windows := make(map[time.Time]*windowAgg)
	clusters := make(map[string]*clusterAgg)

	for i, rec := range records {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}

		if !isQualifying(rec.Level) {
			continue
		}

		countNgrams(ngrams, rec.Message)

		cause := rootCauseFor(rec.Message)
		if cause != "" {
			causeCounts[cause]++
			if len(causeSamples[cause]) < 3 {
				causeSamples[cause] = append(causeSamples[cause], truncateMessage(rec.Message, 200))
			}
		}

		w := rec.EventTime.UTC().Truncate(correlationWindow)
		agg := windows[w]
		if agg == nil {
			agg = &windowAgg{categories: make(map[string]struct{})}
			windows[w] = agg
		}
		agg.total++
		if cause != "" {
			agg.categories[cause] = struct{}{}
		}

		key := clusterKey(rec.Message)
		if key != "" {
			cl := clusters[key]
			if cl == nil {
				cl = &clusterAgg{example: truncateMessage(rec.Message, 200)}
				clusters[key] = cl
			}
			cl.count++
		}
	}

	out.Common = topNgrams(ngrams, 15)
	out.RootCauses = rankRootCauses(causeCounts, causeSamples)
	out.Correlations = rankCorrelations(windows, 10)
	out.Clusters = rankClusters(clusters, 20)

	return out, nil
}

// countNgrams adds a message's 2-grams and 3-grams to the counts.
func countNgrams(counts map[string]int64, message string) {
	tokens := tokenRe.FindAllString(strings.ToLower(message), -1)

	for i := 0; i+1 < len(tokens); i++ {
		counts[tokens[i]+" "+tokens[i+1]]++

		if i+2 < len(tokens) {
			counts[tokens[i]+" "+tokens[i+1]+" "+tokens[i+2]]++
		}
	}
}

type windowAgg struct {
	total      int64
	categories map[string]struct{}
}

type clusterAgg struct {
	count   int64
	example string
}

func topNgrams(counts map[string]int64, n int) []models.NgramCount {
	out := make([]models.NgramCount, 0, len(counts))
	for g, c := range counts {
		if c <= 2 {
			continue
		}

		out = append(out, models.NgramCount{Ngram: g, Count: c})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Ngram < out[j].Ngram
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}

func rankRootCauses(counts map[string]int64, samples map[string][]string) []models.RootCause {
	out := make([]models.RootCause, 0, len(counts))
	for cat, c := range counts {
		out = append(out, models.RootCause{Category: cat, Count: c, Samples: samples[cat]})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Category < out[j].Category
	})

	return out
}

func rankCorrelations(windows map[time.Time]*windowAgg, n int) []models.Correlation {
	out := make([]models.Correlation, 0, len(windows))

	for w, agg := range windows {
		if len(agg.categories) < 2 {
			continue
		}

		cats := make([]string, 0, len(agg.categories))
		for cat := range agg.categories {
			cats = append(cats, cat)
		}
		sort.Strings(cats)

		out = append(out, models.Correlation{
			Window:     w,
			Categories: cats,
			Score:      float64(len(cats)) / float64(agg.total),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}

		return out[i].Window.Before(out[j].Window)
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}

func rankClusters(clusters map[string]*clusterAgg, n int) []models.MessageCluster {
	out := make([]models.MessageCluster, 0, len(clusters))

	for key, cl := range clusters {
		if cl.count <= 1 {
			continue
		}

		out = append(out, models.MessageCluster{Key: key, Count: cl.count, Example: cl.example})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Key < out[j].Key
	})

	if len(out) > n {
		out = out[:n]
	}

	return out
}
