package analytics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/loglens/loglens/internal/models"
)

// Health score deductions per insight severity.
var severityPenalty = map[string]int{
	"critical": 25,
	"high":     15,
	"medium":   10,
	"info":     0,
}

// computeInsights aggregates the five base reports into severity-tagged
// findings and a health score. The base reports run over the same snapshot
// on a bounded group.
func computeInsights(ctx context.Context, records []models.LogRecord) (*models.Insights, error) {
	var (
		overview *models.Overview
		errRep   *models.ErrorAnalysis
		anomRep  *models.Anomalies
		perfRep  *models.Performance
		patRep   *models.Patterns
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	g.Go(func() (err error) { overview, err = computeOverview(gctx, records); return err })
	g.Go(func() (err error) { errRep, err = computeErrorAnalysis(gctx, records); return err })
	g.Go(func() (err error) { anomRep, err = computeAnomalies(gctx, records); return err })
	g.Go(func() (err error) { perfRep, err = computePerformance(gctx, records); return err })
	g.Go(func() (err error) { patRep, err = computePatterns(gctx, records); return err })

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &models.Insights{Items: []models.Insight{}}

	addErrorRateInsight(out, overview, errRep)
	addMTBFInsight(out, errRep)
	addAnomalyInsight(out, anomRep)
	addSlowOpInsight(out, perfRep)
	addRootCauseInsight(out, patRep)
	addTemporalInsight(out, anomRep)
	addHotspotInsight(out, errRep)

	score := 100
	for _, item := range out.Items {
		score -= severityPenalty[item.Severity]
	}
	if score < 0 {
		score = 0
	}
	out.HealthScore = score

	return out, nil
}

// addErrorRateInsight grades the overall error share.
func addErrorRateInsight(out *models.Insights, ov *models.Overview, er *models.ErrorAnalysis) {
	if ov.Total == 0 {
		return
	}

	rate := float64(er.Total) / float64(ov.Total)

	severity := "info"
	switch {
	case rate > 0.25:
		severity = "critical"
	case rate > 0.10:
		severity = "high"
	case rate > 0.05:
		severity = "medium"
	}

	out.Items = append(out.Items, models.Insight{
		Severity: severity,
		Kind:     "error_rate",
		Message:  fmt.Sprintf("%.1f%% of records are errors (%d of %d)", rate*100, er.Total, ov.Total),
	})
}

// addMTBFInsight flags short mean time between failures.
func addMTBFInsight(out *models.Insights, er *models.ErrorAnalysis) {
	if er.MTBFHours == 0 {
		return
	}

	severity := "info"
	switch {
	case er.MTBFHours < 0.1:
		severity = "high"
	case er.MTBFHours < 1:
		severity = "medium"
	}

	out.Items = append(out.Items, models.Insight{
		Severity: severity,
		Kind:     "mtbf",
		Message:  fmt.Sprintf("mean time between failures is %.2f hours", er.MTBFHours),
	})
}

// addAnomalyInsight counts high-severity anomalies.
func addAnomalyInsight(out *models.Insights, an *models.Anomalies) {
	highRisk := 0

	for _, a := range an.Statistical {
		if a.Severity == "high" {
			highRisk++
		}
	}
	for _, a := range an.Volume {
		if a.Severity == "high" {
			highRisk++
		}
	}

	if highRisk == 0 {
		return
	}

	out.Items = append(out.Items, models.Insight{
		Severity: "high",
		Kind:     "anomalies",
		Message:  fmt.Sprintf("%d high-risk anomalies detected in error volume", highRisk),
	})
}

// addSlowOpInsight grades the slow operation count.
func addSlowOpInsight(out *models.Insights, perf *models.Performance) {
	n := len(perf.SlowOps)
	if n == 0 {
		return
	}

	severity := "medium"
	if n > 10 {
		severity = "high"
	}

	out.Items = append(out.Items, models.Insight{
		Severity: severity,
		Kind:     "slow_operations",
		Message:  fmt.Sprintf("%d operations exceeded the slow threshold", n),
	})
}

// addRootCauseInsight names the dominant root-cause category.
func addRootCauseInsight(out *models.Insights, pat *models.Patterns) {
	if len(pat.RootCauses) == 0 {
		return
	}

	top := pat.RootCauses[0]

	out.Items = append(out.Items, models.Insight{
		Severity: "info",
		Kind:     "root_cause",
		Message:  fmt.Sprintf("most common error category is %s (%d occurrences)", top.Category, top.Count),
	})
}

// addTemporalInsight flags unusual hours of day.
func addTemporalInsight(out *models.Insights, an *models.Anomalies) {
	if len(an.Temporal) == 0 {
		return
	}

	out.Items = append(out.Items, models.Insight{
		Severity: "medium",
		Kind:     "temporal",
		Message:  fmt.Sprintf("errors cluster in %d unusual hours of the day", len(an.Temporal)),
	})
}

// addHotspotInsight names the noisiest error source.
func addHotspotInsight(out *models.Insights, er *models.ErrorAnalysis) {
	if len(er.Hotspots) == 0 {
		return
	}

	top := er.Hotspots[0]

	out.Items = append(out.Items, models.Insight{
		Severity: "info",
		Kind:     "hotspot",
		Message:  fmt.Sprintf("source %s produced %d errors across %d distinct messages", top.Source, top.Count, top.DistinctMessages),
	})
}
