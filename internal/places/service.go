package places

import (
	"context"
	"time"

	"github.com/pulsedash/pulsedash/internal/cache"
)

// Service fronts the Places client with the cache-backed fetch wrapper.
// Published reviews move slowly, so the TTLs run in hours; search results get
// the same treatment keyed by the raw query string.
type Service struct {
	client     *Client
	fetcher    *cache.Fetcher
	reviewsTTL time.Duration
	searchTTL  time.Duration
}

func NewService(client *Client, fetcher *cache.Fetcher, reviewsTTL, searchTTL time.Duration) *Service {
	if reviewsTTL <= 0 {
		reviewsTTL = 3 * time.Hour
	}
	if searchTTL <= 0 {
		searchTTL = time.Hour
	}
	return &Service{client: client, fetcher: fetcher, reviewsTTL: reviewsTTL, searchTTL: searchTTL}
}

// Reviews returns the cached reviews for placeID, fetching on miss. refresh
// drops the entry first so the caller always gets a fresh read.
func (s *Service) Reviews(ctx context.Context, placeID string, refresh bool) (ReviewsResult, bool, error) {
	key := "reviews:" + placeID
	if refresh {
		s.fetcher.Store().Delete(key)
	}
	return cache.Fetch(ctx, s.fetcher, key, s.reviewsTTL, func(ctx context.Context) (ReviewsResult, error) {
		return s.client.Reviews(ctx, placeID)
	})
}

// Search runs a cached text search.
func (s *Service) Search(ctx context.Context, query string) (SearchOutcome, bool, error) {
	return cache.Fetch(ctx, s.fetcher, "placesearch:"+query, s.searchTTL, func(ctx context.Context) (SearchOutcome, error) {
		return s.client.Search(ctx, query)
	})
}

// Resolve dispatches maps links to link resolution and anything else to text
// search, mirroring how callers paste either form into the same field.
func (s *Service) Resolve(ctx context.Context, input string) (SearchOutcome, bool, error) {
	if !IsMapsLink(input) {
		return s.Search(ctx, input)
	}
	id, cached, err := cache.Fetch(ctx, s.fetcher, "placelink:"+input, s.searchTTL, func(ctx context.Context) (string, error) {
		return s.client.ResolveLink(ctx, input)
	})
	if err != nil {
		return SearchOutcome{}, false, err
	}
	return SearchOutcome{Status: StatusResolved, PlaceID: id}, cached, nil
}
