package tabular

import (
	"testing"

	"github.com/pulsedash/pulsedash/internal/models"
)

func TestResolveExactAndCaseInsensitive(t *testing.T) {
	headers := []string{"Date", " Impr ", "Clicks", "Spend"}
	mapping := models.ColumnMapping{
		models.MetricImpressions: "impr",
		models.MetricClicks:      "CLICKS",
		models.MetricSpend:       "Spend",
		models.MetricDate:        "Date",
	}
	idx := Resolve(mapping, headers)

	want := map[models.Metric]int{
		models.MetricImpressions: 1,
		models.MetricClicks:      2,
		models.MetricSpend:       3,
		models.MetricDate:        0,
	}
	for m, w := range want {
		if got, ok := idx[m]; !ok || got != w {
			t.Errorf("%s: got %d ok=%v, want %d", m, got, ok, w)
		}
	}
}

func TestResolveMissingMetricAbsent(t *testing.T) {
	idx := Resolve(models.ColumnMapping{
		models.MetricRevenue: "",
		models.MetricClicks:  "No Such Column",
	}, []string{"A", "B"})
	if _, ok := idx[models.MetricRevenue]; ok {
		t.Fatal("empty-named metric must be absent")
	}
	if _, ok := idx[models.MetricClicks]; ok {
		t.Fatal("unmatched metric must be absent")
	}
}

func TestResolveDateHeuristic(t *testing.T) {
	// classifier returned no date column; fall back to token scan
	idx := Resolve(models.ColumnMapping{
		models.MetricClicks: "Кліки",
	}, []string{"Кліки", "Дата звіту", "Витрати"})
	if got, ok := idx[models.MetricDate]; !ok || got != 1 {
		t.Fatalf("expected heuristic date index 1, got %d ok=%v", got, ok)
	}
}

func TestResolveNoDateAnywhere(t *testing.T) {
	idx := Resolve(models.ColumnMapping{}, []string{"Impr", "Clicks"})
	if _, ok := idx[models.MetricDate]; ok {
		t.Fatal("no date column should resolve")
	}
}

func TestResolveIndexBounds(t *testing.T) {
	headers := []string{"A", "B"}
	idx := Resolve(models.ColumnMapping{
		models.MetricImpressions: "b",
	}, headers)
	for m, i := range idx {
		if i < 0 || i >= len(headers) {
			t.Fatalf("%s resolved out of range: %d", m, i)
		}
	}
}
