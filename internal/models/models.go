package models

import "time"

// Metric names a column the classifier can identify in an ads table.
type Metric string

const (
	MetricImpressions Metric = "impressions"
	MetricClicks      Metric = "clicks"
	MetricCTR         Metric = "ctr"
	MetricSpend       Metric = "spend"
	MetricCPC         Metric = "cost_per_click"
	MetricLeads       Metric = "leads"
	MetricCPL         Metric = "cpl"
	MetricRevenue     Metric = "revenue"
	MetricROAS        Metric = "roas"
	MetricDate        Metric = "date"
	MetricCampaign    Metric = "campaign"
)

// Metrics lists every key a ColumnMapping carries, in stable order.
var Metrics = []Metric{
	MetricImpressions, MetricClicks, MetricCTR, MetricSpend, MetricCPC,
	MetricLeads, MetricCPL, MetricRevenue, MetricROAS, MetricDate, MetricCampaign,
}

// RawTable is the shape the sheet acquisition collaborator hands to the pipeline.
// Rows are not guaranteed to match the header width.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ColumnMapping maps each metric key to a header name. An empty string means
// the classifier found no column for that metric. Every key in Metrics is
// present after boundary validation.
type ColumnMapping map[Metric]string

// IndexMapping maps metric keys to zero-based column indices. A metric the
// table never reports is simply absent.
type IndexMapping map[Metric]int

// KpiResult is one full aggregation over a row subset. Counts are whole
// numbers, money fields carry two decimals, ratios are finite and non-negative.
type KpiResult struct {
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Spend       float64 `json:"spend"`
	CPC         float64 `json:"cpc"`
	Leads       float64 `json:"leads"`
	CPL         float64 `json:"cpl"`
	Revenue     float64 `json:"revenue"`
	ROAS        float64 `json:"roas"`
}

// DateBounds restricts an aggregation to an inclusive calendar range.
// Either side may be zero (open).
type DateBounds struct {
	From time.Time
	To   time.Time
}

// Open reports whether no bound is set at all.
func (b DateBounds) Open() bool { return b.From.IsZero() && b.To.IsZero() }

// Contains reports whether d falls inside the bounds, treating From as
// start-of-day and To as end-of-day.
func (b DateBounds) Contains(d time.Time) bool {
	if !b.From.IsZero() {
		from := time.Date(b.From.Year(), b.From.Month(), b.From.Day(), 0, 0, 0, 0, d.Location())
		if d.Before(from) {
			return false
		}
	}
	if !b.To.IsZero() {
		to := time.Date(b.To.Year(), b.To.Month(), b.To.Day(), 23, 59, 59, 999_000_000, d.Location())
		if d.After(to) {
			return false
		}
	}
	return true
}

// Place is the normalized Places lookup result.
type Place struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"totalReviews"`
}

// Review is a single published review attached to a place.
type Review struct {
	Author      string  `json:"author"`
	Rating      float64 `json:"rating"`
	Text        string  `json:"text"`
	Language    string  `json:"language,omitempty"`
	PublishTime string  `json:"publishTime,omitempty"`
}

// PlaceCandidate is one option returned by an ambiguous text search.
type PlaceCandidate struct {
	PlaceID      string  `json:"placeId"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"totalReviews"`
}
