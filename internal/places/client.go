package places

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pulsedash/pulsedash/internal/metrics"
	"github.com/pulsedash/pulsedash/internal/models"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SearchOutcome is the three-way result of a text search: nothing found, a
// single unambiguous place, or a candidate list for the caller to pick from.
type SearchOutcome struct {
	Status  string                  `json:"status"`
	PlaceID string                  `json:"placeId,omitempty"`
	Places  []models.PlaceCandidate `json:"places,omitempty"`
}

const (
	StatusNotFound = "not_found"
	StatusResolved = "resolved"
	StatusSelect   = "select"
)

// ReviewsResult pairs a place with its published reviews.
type ReviewsResult struct {
	Place   models.Place    `json:"place"`
	Reviews []models.Review `json:"reviews"`
}

// Client talks to the Places API. Calls are rate limited client-side and run
// behind a circuit breaker; the pipeline above only ever sees reason-coded
// errors.
type Client struct {
	c       httpDoer
	baseURL string
	apiKey  string
	log     *slog.Logger
	cb      *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

func NewClient(c httpDoer, baseURL, apiKey string, rps float64, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://places.googleapis.com"
	}
	if rps <= 0 {
		rps = 5
	}
	cl := &Client{
		c:       c,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)*2),
	}
	cl.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "places",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("places breaker state change",
				slog.String("from", from.String()), slog.String("to", to.String()))
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
	return cl
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (c *Client) do(ctx context.Context, method, url string, body any, fieldMask string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.WrapError(models.ReasonPlacesUnavailable, err)
	}

	b, err := c.cb.Execute(func() ([]byte, error) {
		var rd io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			rd = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		if fieldMask != "" {
			req.Header.Set("X-Goog-FieldMask", fieldMask)
		}

		resp, err := c.c.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, models.NewError(models.ReasonPlaceNotFound, "place not found")
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, models.NewError(models.ReasonPlacesUnavailable, "places api returned %d: %s", resp.StatusCode, string(msg))
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		metrics.CollaboratorRequests.WithLabelValues("places", "error").Inc()
		var me *models.Error
		if errors.As(err, &me) {
			return nil, me
		}
		return nil, models.WrapError(models.ReasonPlacesUnavailable, err)
	}
	metrics.CollaboratorRequests.WithLabelValues("places", "ok").Inc()
	return b, nil
}

type searchResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string  `json:"formattedAddress"`
		Rating           float64 `json:"rating"`
		UserRatingCount  int     `json:"userRatingCount"`
	} `json:"places"`
}

// Search runs a text search and reports whether it resolved to one place,
// several, or none.
func (c *Client) Search(ctx context.Context, query string) (SearchOutcome, error) {
	body := map[string]any{"textQuery": query, "languageCode": "en"}
	mask := "places.id,places.displayName,places.formattedAddress,places.rating,places.userRatingCount"
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/places:searchText", body, mask)
	if err != nil {
		return SearchOutcome{}, err
	}

	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return SearchOutcome{}, models.WrapError(models.ReasonPlacesUnavailable, err)
	}
	switch {
	case len(sr.Places) == 0:
		return SearchOutcome{Status: StatusNotFound}, nil
	case len(sr.Places) == 1:
		return SearchOutcome{Status: StatusResolved, PlaceID: sr.Places[0].ID}, nil
	}

	out := SearchOutcome{Status: StatusSelect}
	for _, p := range sr.Places {
		out.Places = append(out.Places, models.PlaceCandidate{
			PlaceID:      p.ID,
			Name:         p.DisplayName.Text,
			Address:      p.FormattedAddress,
			Rating:       p.Rating,
			TotalReviews: p.UserRatingCount,
		})
	}
	return out, nil
}

type detailsResponse struct {
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Rating          float64 `json:"rating"`
	UserRatingCount int     `json:"userRatingCount"`
	Reviews         []struct {
		Rating            float64 `json:"rating"`
		PublishTime       string  `json:"publishTime"`
		AuthorAttribution struct {
			DisplayName string `json:"displayName"`
		} `json:"authorAttribution"`
		Text struct {
			Text         string `json:"text"`
			LanguageCode string `json:"languageCode"`
		} `json:"text"`
	} `json:"reviews"`
}

// Reviews fetches one place with its reviews, normalized to our shape.
func (c *Client) Reviews(ctx context.Context, placeID string) (ReviewsResult, error) {
	mask := "displayName,rating,userRatingCount,reviews"
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/places/"+placeID, nil, mask)
	if err != nil {
		return ReviewsResult{}, err
	}

	var dr detailsResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		return ReviewsResult{}, models.WrapError(models.ReasonPlacesUnavailable, err)
	}

	res := ReviewsResult{
		Place: models.Place{
			Name:         dr.DisplayName.Text,
			Rating:       dr.Rating,
			TotalReviews: dr.UserRatingCount,
		},
		Reviews: make([]models.Review, 0, len(dr.Reviews)),
	}
	for _, r := range dr.Reviews {
		author := r.AuthorAttribution.DisplayName
		if author == "" {
			author = "Anonymous"
		}
		res.Reviews = append(res.Reviews, models.Review{
			Author:      author,
			Rating:      r.Rating,
			Text:        r.Text.Text,
			Language:    r.Text.LanguageCode,
			PublishTime: r.PublishTime,
		})
	}
	return res, nil
}

var cidRe = regexp.MustCompile(`cid=(\d+)`)

// ExtractCID pulls the numeric place reference out of an old-style maps URL.
func ExtractCID(url string) (string, bool) {
	if m := cidRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// IsMapsLink reports whether input looks like a maps share link rather than a
// free-text query.
func IsMapsLink(input string) bool {
	return strings.Contains(input, "maps.google") || strings.Contains(input, "maps.app")
}

// ResolveLink turns a maps share link into a place id: short links are
// expanded by following the redirect, then the final URL doubles as a text
// query against the search endpoint.
func (c *Client) ResolveLink(ctx context.Context, link string) (string, error) {
	full := c.expandRedirect(ctx, link)

	query := full
	if cid, ok := ExtractCID(full); ok {
		query = "cid:" + cid
	}

	body := map[string]any{"textQuery": query, "maxResultCount": 1}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/places:searchText", body, "places.id,places.displayName")
	if err != nil {
		return "", err
	}
	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", models.WrapError(models.ReasonPlacesUnavailable, err)
	}
	if len(sr.Places) == 0 {
		return "", models.NewError(models.ReasonPlaceNotFound, "no place found for link")
	}
	return sr.Places[0].ID, nil
}

// expandRedirect follows a short link to its destination. On any failure the
// original link is used as-is.
func (c *Client) expandRedirect(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return link
	}
	resp, err := c.c.Do(req)
	if err != nil {
		return link
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return link
}
