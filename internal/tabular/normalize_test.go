package tabular

import (
	"testing"
	"time"

	"github.com/pulsedash/pulsedash/internal/models"
)

func TestCleanDropsBlankAndSummaryRows(t *testing.T) {
	in := models.RawTable{
		Headers: []string{"Date", "Impr"},
		Rows: [][]string{
			{"01.02.24", "1000"},
			{"", "  "},
			{"Загально", "3000"},
			{"Total ", "3000"},
			{"02.02.24", "2000"},
			{},
		},
	}
	got := Clean(in, nil)
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(got.Rows), got.Rows)
	}
	if got.Rows[0][0] != "01.02.24" || got.Rows[1][0] != "02.02.24" {
		t.Fatalf("wrong rows kept: %v", got.Rows)
	}
	if len(got.Headers) != 2 {
		t.Fatal("headers must pass through")
	}
}

func TestCleanCustomMarkers(t *testing.T) {
	in := models.RawTable{
		Headers: []string{"A"},
		Rows:    [][]string{{"subtotal"}, {"x"}},
	}
	got := Clean(in, []string{"subtotal"})
	if len(got.Rows) != 1 || got.Rows[0][0] != "x" {
		t.Fatalf("got %v", got.Rows)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1000", 1000},
		{"10,50", 10.5},
		{"12.00", 12},
		{"грн.0,00", 0},
		{"$1 234.56", 1234.56},
		{"1 000,25 грн", 1000.25},
		{"-5,5", -5.5},
		{"", 0},
		{"n/a", 0},
		{"---", 0},
		{"5%", 5},
	}
	for _, c := range cases {
		if got := ParseNumber(c.in); got != c.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-02-01", "2024-02-01", true},
		{"2024-02-01T10:30:00", "2024-02-01", true},
		{"01.02.24", "2024-02-01", true},
		{"01.02.2024", "2024-02-01", true},
		{"01/02/2024", "2024-02-01", true},
		{"01-02-2024", "2024-02-01", true},
		{"31.12.99", "1999-12-31", true},
		{"15.06.49", "2049-06-15", true},
		{"2024/02/01", "2024-02-01", true},
		{"hello", "", false},
		{"", "", false},
		{"99.99.2024", "", false},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in)
		if ok != c.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", c.in, ok, c.ok)
			continue
		}
		if ok && got.Format("2006-01-02") != c.want {
			t.Errorf("ParseDate(%q) = %s, want %s", c.in, got.Format("2006-01-02"), c.want)
		}
	}
}

func TestParseDateIsLocalMidnight(t *testing.T) {
	d, ok := ParseDate("02.02.2024")
	if !ok {
		t.Fatal("expected parse")
	}
	if d.Hour() != 0 || d.Location() != time.Local {
		t.Fatalf("expected local start of day, got %v", d)
	}
}
