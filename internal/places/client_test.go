package places

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pulsedash/pulsedash/internal/cache"
	"github.com/pulsedash/pulsedash/internal/models"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func placesJSON(places ...map[string]any) []byte {
	b, _ := json.Marshal(map[string]any{"places": places})
	return b
}

func TestSearchOutcomes(t *testing.T) {
	var reply []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Api-Key") != "key" {
			t.Error("api key header missing")
		}
		w.Write(reply)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", 100, testLogger())

	reply = placesJSON()
	out, err := c.Search(context.Background(), "nowhere")
	if err != nil || out.Status != StatusNotFound {
		t.Fatalf("got %+v err=%v", out, err)
	}

	reply = placesJSON(map[string]any{"id": "p1", "displayName": map[string]any{"text": "One"}})
	out, err = c.Search(context.Background(), "one place")
	if err != nil || out.Status != StatusResolved || out.PlaceID != "p1" {
		t.Fatalf("got %+v err=%v", out, err)
	}

	reply = placesJSON(
		map[string]any{"id": "p1", "displayName": map[string]any{"text": "One"}, "formattedAddress": "A St", "rating": 4.5, "userRatingCount": 10},
		map[string]any{"id": "p2", "displayName": map[string]any{"text": "Two"}},
	)
	out, err = c.Search(context.Background(), "ambiguous")
	if err != nil || out.Status != StatusSelect || len(out.Places) != 2 {
		t.Fatalf("got %+v err=%v", out, err)
	}
	if out.Places[0].Name != "One" || out.Places[0].Rating != 4.5 {
		t.Fatalf("candidate not normalized: %+v", out.Places[0])
	}
}

func TestReviewsNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-FieldMask") == "" {
			t.Error("field mask missing")
		}
		b, _ := json.Marshal(map[string]any{
			"displayName":     map[string]any{"text": "Cafe"},
			"rating":          4.2,
			"userRatingCount": 37,
			"reviews": []map[string]any{
				{
					"rating":            5,
					"publishTime":       "2024-01-01T00:00:00Z",
					"authorAttribution": map[string]any{"displayName": "Alice"},
					"text":              map[string]any{"text": "great", "languageCode": "en"},
				},
				{"rating": 1, "text": map[string]any{"text": "meh"}},
			},
		})
		w.Write(b)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", 100, testLogger())
	res, err := c.Reviews(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Place.Name != "Cafe" || res.Place.TotalReviews != 37 {
		t.Fatalf("place not normalized: %+v", res.Place)
	}
	if len(res.Reviews) != 2 || res.Reviews[0].Author != "Alice" {
		t.Fatalf("reviews not normalized: %+v", res.Reviews)
	}
	if res.Reviews[1].Author != "Anonymous" {
		t.Fatalf("missing author must default, got %q", res.Reviews[1].Author)
	}
}

func TestReviewsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", 100, testLogger())
	_, err := c.Reviews(context.Background(), "missing")
	var me *models.Error
	if !errors.As(err, &me) || me.Reason != models.ReasonPlaceNotFound {
		t.Fatalf("expected PLACE_NOT_FOUND, got %v", err)
	}
}

func TestExtractCID(t *testing.T) {
	if cid, ok := ExtractCID("https://maps.google.com/?cid=12345"); !ok || cid != "12345" {
		t.Fatalf("got %q %v", cid, ok)
	}
	if _, ok := ExtractCID("https://maps.app.goo.gl/abc"); ok {
		t.Fatal("no cid expected")
	}
}

func TestIsMapsLink(t *testing.T) {
	if !IsMapsLink("https://maps.app.goo.gl/xyz") || !IsMapsLink("http://maps.google.com/?q=a") {
		t.Fatal("links not recognized")
	}
	if IsMapsLink("best pizza berlin") {
		t.Fatal("free text misread as link")
	}
}

func TestServiceReviewsCachedAndRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		b, _ := json.Marshal(map[string]any{"displayName": map[string]any{"text": "Cafe"}})
		w.Write(b)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", 100, testLogger())
	svc := NewService(c, cache.NewFetcher(cache.New()), time.Hour, time.Hour)

	_, cached, err := svc.Reviews(context.Background(), "p1", false)
	if err != nil || cached {
		t.Fatalf("first read: cached=%v err=%v", cached, err)
	}
	_, cached, err = svc.Reviews(context.Background(), "p1", false)
	if err != nil || !cached {
		t.Fatalf("second read must hit cache: cached=%v err=%v", cached, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls.Load())
	}

	_, cached, err = svc.Reviews(context.Background(), "p1", true)
	if err != nil || cached {
		t.Fatalf("refresh must bypass cache: cached=%v err=%v", cached, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected refresh to call upstream, got %d", calls.Load())
	}
}

func TestServiceResolveDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(placesJSON(map[string]any{"id": "p9", "displayName": map[string]any{"text": "X"}}))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "key", 100, testLogger())
	svc := NewService(c, cache.NewFetcher(cache.New()), time.Hour, time.Hour)

	out, _, err := svc.Resolve(context.Background(), "some cafe name")
	if err != nil || out.Status != StatusResolved || out.PlaceID != "p9" {
		t.Fatalf("text resolve failed: %+v err=%v", out, err)
	}
}
