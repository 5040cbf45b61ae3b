package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsedash/pulsedash/internal/ads"
	"github.com/pulsedash/pulsedash/internal/models"
	"github.com/pulsedash/pulsedash/internal/places"
	"github.com/pulsedash/pulsedash/internal/utils"
)

// Options carries the router-level knobs from config.
type Options struct {
	CORSOrigins []string
	RateLimit   int
}

func NewRouter(log *slog.Logger, adsSvc *ads.Service, placesSvc *places.Service, opts Options) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))
	if opts.RateLimit > 0 {
		mux.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/api/ads", func(r chi.Router) {
		r.Post("/connect", connectHandler(adsSvc))
		r.Get("/kpi", kpiHandler(adsSvc))
	})

	mux.Route("/api/reviews", func(r chi.Router) {
		r.Get("/", reviewsHandler(placesSvc))
		r.Get("/search", searchHandler(placesSvc))
		r.Get("/resolve", resolveHandler(placesSvc))
	})

	return mux
}

func connectHandler(svc *ads.Service) http.HandlerFunc {
	type connectRequest struct {
		URL     string `json:"url"`
		Refresh bool   `json:"refresh"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.NewError(models.ReasonBadRequest, "invalid request body"))
			return
		}
		if req.URL == "" {
			writeError(w, models.NewError(models.ReasonBadRequest, "url is required"))
			return
		}
		res, err := svc.Connect(r.Context(), req.URL, req.Refresh)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func kpiHandler(svc *ads.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sheet := r.URL.Query().Get("sheet")
		if sheet == "" {
			writeError(w, models.NewError(models.ReasonBadRequest, "sheet is required"))
			return
		}
		bounds, err := parseBounds(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, err)
			return
		}
		res, err := svc.Kpi(r.Context(), sheet, bounds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func reviewsHandler(svc *places.Service) http.HandlerFunc {
	type reviewsResponse struct {
		Place   models.Place    `json:"place"`
		Reviews []models.Review `json:"reviews"`
		Cached  bool            `json:"cached"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		placeID := r.URL.Query().Get("placeId")
		if placeID == "" {
			writeError(w, models.NewError(models.ReasonBadRequest, "placeId is required"))
			return
		}
		refresh := r.URL.Query().Get("refresh") != ""
		res, cached, err := svc.Reviews(r.Context(), placeID, refresh)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reviewsResponse{Place: res.Place, Reviews: res.Reviews, Cached: cached})
	}
}

func searchHandler(svc *places.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query == "" {
			writeError(w, models.NewError(models.ReasonBadRequest, "query is required"))
			return
		}
		out, cached, err := svc.Search(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, withCached(out, cached))
	}
}

func resolveHandler(svc *places.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := r.URL.Query().Get("input")
		if input == "" {
			writeError(w, models.NewError(models.ReasonBadRequest, "input is required"))
			return
		}
		out, cached, err := svc.Resolve(r.Context(), input)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, withCached(out, cached))
	}
}

type cachedOutcome struct {
	places.SearchOutcome
	Cached bool `json:"cached"`
}

func withCached(out places.SearchOutcome, cached bool) cachedOutcome {
	return cachedOutcome{SearchOutcome: out, Cached: cached}
}

// parseBounds reads optional from/to query dates. Either side may be absent.
func parseBounds(from, to string) (models.DateBounds, error) {
	var b models.DateBounds
	var err error
	if from != "" {
		b.From, err = time.ParseInLocation("2006-01-02", from, time.Local)
		if err != nil {
			return models.DateBounds{}, models.NewError(models.ReasonBadRequest, "bad from date %q, want YYYY-MM-DD", from)
		}
	}
	if to != "" {
		b.To, err = time.ParseInLocation("2006-01-02", to, time.Local)
		if err != nil {
			return models.DateBounds{}, models.NewError(models.ReasonBadRequest, "bad to date %q, want YYYY-MM-DD", to)
		}
	}
	return b, nil
}

type errorBody struct {
	Error   models.Reason `json:"error"`
	Message string        `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var me *models.Error
	if !errors.As(err, &me) {
		me = models.WrapError(models.ReasonBadRequest, err)
	}
	writeJSON(w, statusFor(me.Reason), errorBody{Error: me.Reason, Message: me.Message})
}

func statusFor(r models.Reason) int {
	switch r {
	case models.ReasonBadRequest, models.ReasonInvalidLocator:
		return http.StatusBadRequest
	case models.ReasonSheetNotFound, models.ReasonPlaceNotFound:
		return http.StatusNotFound
	case models.ReasonSheetAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
