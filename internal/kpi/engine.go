package kpi

import (
	"math"

	"github.com/pulsedash/pulsedash/internal/models"
	"github.com/pulsedash/pulsedash/internal/tabular"
)

// Filter returns the rows whose parsed date falls inside bounds. With open
// bounds or no resolved date column every row passes. A row whose date cell
// does not parse is excluded from any bounded subset but still participates
// in full-period aggregation.
func Filter(rows [][]string, idx models.IndexMapping, bounds models.DateBounds) [][]string {
	di, hasDate := idx[models.MetricDate]
	if bounds.Open() || !hasDate {
		return rows
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		d, ok := tabular.ParseDate(cellAt(row, di))
		if !ok {
			continue
		}
		if bounds.Contains(d) {
			out = append(out, row)
		}
	}
	return out
}

// Aggregate reduces cleaned rows into one KpiResult. Sums feed the derived
// ratios, so results compose across disjoint date partitions. Metrics absent
// from idx contribute zero. An empty subset yields the all-zero result.
// Deterministic: identical inputs always produce an identical result.
func Aggregate(rows [][]string, idx models.IndexMapping, bounds models.DateBounds) models.KpiResult {
	var impressions, clicks, spend, leads, revenue float64
	for _, row := range Filter(rows, idx, bounds) {
		impressions += metricValue(row, idx, models.MetricImpressions)
		clicks += metricValue(row, idx, models.MetricClicks)
		spend += metricValue(row, idx, models.MetricSpend)
		leads += metricValue(row, idx, models.MetricLeads)
		revenue += metricValue(row, idx, models.MetricRevenue)
	}

	r := models.KpiResult{
		Impressions: math.Round(impressions),
		Clicks:      math.Round(clicks),
		Spend:       round2(spend),
		Leads:       math.Round(leads),
		Revenue:     round2(revenue),
	}
	r.CTR = round2(clamp(safeDiv(clicks, impressions) * 100))
	r.CPC = round2(clamp(safeDiv(spend, clicks)))
	r.CPL = round2(clamp(safeDiv(spend, leads)))
	r.ROAS = round2(clamp(safeDiv(revenue, spend)))
	return r
}

func metricValue(row []string, idx models.IndexMapping, m models.Metric) float64 {
	i, ok := idx[m]
	if !ok {
		return 0
	}
	return tabular.ParseNumber(cellAt(row, i))
}

// cellAt tolerates short rows.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// clamp forces any non-finite or negative ratio to zero.
func clamp(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
