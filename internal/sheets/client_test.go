package sheets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulsedash/pulsedash/internal/models"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExtractID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://docs.google.com/spreadsheets/d/abc123-DEF_456/edit#gid=0", "abc123-DEF_456", true},
		{"https://example.com/open?id=xyz789abc", "xyz789abc", true},
		{"1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", true},
		{"short", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractID(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ExtractID(%q) = %q %v, want %q %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestFetchParsesCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/spreadsheets/d/abc123def456ghi789jkl/export" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("Date,Impr,Clicks,Spend\n01.02.24,1000,50,\"10,50\"\n02.02.24,2000,80,\"12,00\"\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, testLogger())
	table, err := c.Fetch(context.Background(), "abc123def456ghi789jkl")
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 4 || table.Headers[0] != "Date" {
		t.Fatalf("headers = %v", table.Headers)
	}
	if len(table.Rows) != 2 || table.Rows[0][3] != "10,50" {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestFetchEmptySheetIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, testLogger())
	table, err := c.Fetch(context.Background(), "abc123def456ghi789jkl")
	if err != nil {
		t.Fatalf("empty sheet must not error: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestFetchStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		reason models.Reason
	}{
		{http.StatusNotFound, models.ReasonSheetNotFound},
		{http.StatusForbidden, models.ReasonSheetAccessDenied},
		{http.StatusUnauthorized, models.ReasonSheetAccessDenied},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		cl := NewClient(srv.Client(), srv.URL, testLogger())
		_, err := cl.Fetch(context.Background(), "abc123def456ghi789jkl")
		srv.Close()

		var me *models.Error
		if !errors.As(err, &me) || me.Reason != c.reason {
			t.Errorf("status %d: expected %s, got %v", c.status, c.reason, err)
		}
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("A\n1\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, testLogger())
	table, err := c.Fetch(context.Background(), "abc123def456ghi789jkl")
	if err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected retry, hits=%d", hits.Load())
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, testLogger())
	if _, err := c.Fetch(context.Background(), "abc123def456ghi789jkl"); err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Fatalf("terminal status must not retry, hits=%d", hits.Load())
	}
}

func TestFetchInvalidLocator(t *testing.T) {
	c := NewClient(NewHTTPClient(time.Second), "http://unused", testLogger())
	_, err := c.Fetch(context.Background(), "???")
	var me *models.Error
	if !errors.As(err, &me) || me.Reason != models.ReasonInvalidLocator {
		t.Fatalf("expected INVALID_LOCATOR, got %v", err)
	}
}
