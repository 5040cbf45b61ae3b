package ads

import (
	"context"
	"log/slog"
	"time"

	"github.com/pulsedash/pulsedash/internal/cache"
	"github.com/pulsedash/pulsedash/internal/classify"
	"github.com/pulsedash/pulsedash/internal/kpi"
	"github.com/pulsedash/pulsedash/internal/models"
	"github.com/pulsedash/pulsedash/internal/sheets"
	"github.com/pulsedash/pulsedash/internal/tabular"
)

// Classifier is the column-mapping oracle boundary.
type Classifier interface {
	Classify(ctx context.Context, table models.RawTable) (classify.Result, error)
}

// TableSource is the sheet acquisition boundary.
type TableSource interface {
	Fetch(ctx context.Context, locator string) (models.RawTable, error)
}

// Service runs the full pipeline for one table: fetch, normalize, classify,
// resolve, aggregate. Every expensive step sits behind the cache-backed fetch
// wrapper, so reconnecting a recently seen sheet costs nothing and a date
// range change never re-invokes the classifier.
type Service struct {
	source     TableSource
	classifier Classifier
	fetcher    *cache.Fetcher
	log        *slog.Logger

	markers     []string
	sheetTTL    time.Duration
	classifyTTL time.Duration
	sessionTTL  time.Duration
}

func NewService(source TableSource, classifier Classifier, fetcher *cache.Fetcher, log *slog.Logger, markers []string, sheetTTL, classifyTTL, sessionTTL time.Duration) *Service {
	return &Service{
		source:      source,
		classifier:  classifier,
		fetcher:     fetcher,
		log:         log,
		markers:     markers,
		sheetTTL:    sheetTTL,
		classifyTTL: classifyTTL,
		sessionTTL:  sessionTTL,
	}
}

// ConnectResult is the caller-facing shape of a table session.
type ConnectResult struct {
	Sheet       string               `json:"sheet"`
	Kpi         models.KpiResult     `json:"kpi"`
	ColumnMap   models.ColumnMapping `json:"columnMap"`
	Explanation string               `json:"explanation,omitempty"`
	Cached      bool                 `json:"cached"`
}

// Connect builds (or revives) the session for locator and returns the
// full-period aggregation. refresh drops every cached artifact for the sheet
// first, forcing a fresh read and classification.
func (s *Service) Connect(ctx context.Context, locator string, refresh bool) (ConnectResult, error) {
	id, ok := sheets.ExtractID(locator)
	if !ok {
		return ConnectResult{}, models.NewError(models.ReasonInvalidLocator, "cannot determine sheet id from %q", locator)
	}
	if refresh {
		s.invalidate(id)
	}

	session, cached, err := s.session(ctx, id, locator)
	if err != nil {
		return ConnectResult{}, err
	}
	return ConnectResult{
		Sheet:       id,
		Kpi:         session.Apply(models.DateBounds{}),
		ColumnMap:   session.Mapping,
		Explanation: session.Explanation,
		Cached:      cached,
	}, nil
}

// Kpi recomputes the KPI set for a date sub-range. The session is revived
// from cache when present; on a cold start the classification comes from its
// own longer-lived cache entry, so the oracle is not consulted again.
func (s *Service) Kpi(ctx context.Context, locator string, bounds models.DateBounds) (ConnectResult, error) {
	id, ok := sheets.ExtractID(locator)
	if !ok {
		return ConnectResult{}, models.NewError(models.ReasonInvalidLocator, "cannot determine sheet id from %q", locator)
	}

	session, cached, err := s.session(ctx, id, locator)
	if err != nil {
		return ConnectResult{}, err
	}
	return ConnectResult{
		Sheet:       id,
		Kpi:         session.Apply(bounds),
		ColumnMap:   session.Mapping,
		Explanation: session.Explanation,
		Cached:      cached,
	}, nil
}

// session revives or builds the full pipeline state for one sheet.
func (s *Service) session(ctx context.Context, id, locator string) (*kpi.Session, bool, error) {
	return cache.Fetch(ctx, s.fetcher, "session:"+id, s.sessionTTL, func(ctx context.Context) (*kpi.Session, error) {
		table, tableCached, err := cache.Fetch(ctx, s.fetcher, "sheets:"+id, s.sheetTTL, func(ctx context.Context) (models.RawTable, error) {
			return s.source.Fetch(ctx, locator)
		})
		if err != nil {
			return nil, err
		}

		cleaned := tabular.Clean(table, s.markers)

		classification, clsCached, err := cache.Fetch(ctx, s.fetcher, "classify:"+id, s.classifyTTL, func(ctx context.Context) (classify.Result, error) {
			return s.classifier.Classify(ctx, cleaned)
		})
		if err != nil {
			return nil, err
		}

		idx := tabular.Resolve(classification.Mapping, cleaned.Headers)
		s.log.Info("table session built",
			slog.String("sheet", id),
			slog.Int("rows", len(cleaned.Rows)),
			slog.Int("dropped_rows", len(table.Rows)-len(cleaned.Rows)),
			slog.Int("resolved_columns", len(idx)),
			slog.Bool("table_cached", tableCached),
			slog.Bool("classification_cached", clsCached))
		return kpi.NewSession(id, cleaned, classification.Mapping, classification.Explanation, idx), nil
	})
}

func (s *Service) invalidate(id string) {
	st := s.fetcher.Store()
	st.Delete("session:" + id)
	st.Delete("sheets:" + id)
	st.Delete("classify:" + id)
}
