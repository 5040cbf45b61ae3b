package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pulsedash/pulsedash/internal/ads"
	"github.com/pulsedash/pulsedash/internal/cache"
	"github.com/pulsedash/pulsedash/internal/classify"
	"github.com/pulsedash/pulsedash/internal/config"
	"github.com/pulsedash/pulsedash/internal/httpx"
	"github.com/pulsedash/pulsedash/internal/places"
	"github.com/pulsedash/pulsedash/internal/sheets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	// one cache instance for the whole process; every collaborator shares it
	// through the stampede-guarded fetcher
	fetcher := cache.NewFetcher(cache.New())

	httpc := sheets.NewHTTPClient(cfg.Server.HTTPTimeout)
	sheetsClient := sheets.NewClient(httpc, cfg.Sheets.BaseURL, logger)
	classifier := classify.NewClient(httpc, cfg.Classifier.BaseURL, cfg.Classifier.APIKey, cfg.Classifier.Model, logger)
	placesClient := places.NewClient(httpc, cfg.Places.BaseURL, cfg.Places.APIKey, cfg.Places.RPS, logger)

	adsSvc := ads.NewService(sheetsClient, classifier, fetcher, logger, cfg.Sheets.SummaryMarkers,
		cfg.Sheets.TTL, cfg.Classifier.TTL, cfg.Sheets.SessionTTL)
	placesSvc := places.NewService(placesClient, fetcher, cfg.Places.ReviewsTTL, cfg.Places.SearchTTL)

	r := httpx.NewRouter(logger, adsSvc, placesSvc, httpx.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
