package services

import (
	"fmt"
	"io"
	"math"
	"strings"

	"report-tables/models"
	"report-tables/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarizes every metric of a long table. Series follow the
// metric order of the result.
func (s *InsightService) Generate(source string, page int, res *models.LongTableResult) *models.InsightReport {
	report := &models.InsightReport{Source: source, Page: page}
	if res.Empty() {
		return report
	}

	report.Orientation = res.Orientation
	report.TimeColumn = res.TimeColumn
	report.Records = len(res.Records)
	report.TimeFrom, report.TimeTo, _ = res.TimeRange()

	byMetric := make(map[string][]models.LongRecord, len(res.Metrics))
	for _, r := range res.Records {
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}

	for _, m := range res.Metrics {
		recs := byMetric[m]
		if len(recs) == 0 {
			continue
		}
		sum := models.SeriesSummary{
			Metric:     m,
			IsPercent:  res.PercentMetrics[m],
			Points:     len(recs),
			FirstTime:  recs[0].Time,
			LastTime:   recs[len(recs)-1].Time,
			FirstValue: recs[0].Value,
			LastValue:  recs[len(recs)-1].Value,
			Min:        recs[0].Value,
			Max:        recs[0].Value,
		}
		for _, r := range recs {
			sum.Min = math.Min(sum.Min, r.Value)
			sum.Max = math.Max(sum.Max, r.Value)
		}
		sum.Change = sum.LastValue - sum.FirstValue
		report.Series = append(report.Series, sum)
	}

	for i := range report.Series {
		if report.Biggest == nil || math.Abs(report.Series[i].Change) > math.Abs(report.Biggest.Change) {
			report.Biggest = &report.Series[i]
		}
	}

	s.logger.Debug("[insights] %d series over %s %g–%g", len(report.Series), report.TimeColumn, report.TimeFrom, report.TimeTo)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 TABLE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Source      : %s (p.%d)\n", r.Source, r.Page)
	if len(r.Series) == 0 {
		fmt.Fprintf(w, "  No visualizable series. Try a different table.\n")
		fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}
	fmt.Fprintf(w, "  Layout      : %s\n", r.Orientation)
	fmt.Fprintf(w, "  Time range  : \033[1m%s %s–%s\033[0m\n", r.TimeColumn, formatTime(r.TimeFrom), formatTime(r.TimeTo))
	fmt.Fprintf(w, "  Records     : %d\n", r.Records)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Series\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for i, sr := range r.Series {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-28s %s → %s (min %s, max %s)\n",
			i+1, truncate(sr.Metric, 26),
			formatValue(sr.FirstValue, sr.IsPercent), formatValue(sr.LastValue, sr.IsPercent),
			formatValue(sr.Min, sr.IsPercent), formatValue(sr.Max, sr.IsPercent))
	}
	fmt.Fprintln(w)

	if r.Biggest != nil {
		fmt.Fprintf(w, "\033[1;33m  Largest Change\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s: %s over %s–%s\n", r.Biggest.Metric,
			formatValue(r.Biggest.Change, r.Biggest.IsPercent),
			formatTime(r.Biggest.FirstTime), formatTime(r.Biggest.LastTime))
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func formatTime(t float64) string {
	if t == math.Trunc(t) {
		return fmt.Sprintf("%d", int64(t))
	}
	return fmt.Sprintf("%g", t)
}

func formatValue(v float64, pct bool) string {
	if pct {
		return fmt.Sprintf("%.2f%%", v*100)
	}
	return fmt.Sprintf("%.2f", v)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
