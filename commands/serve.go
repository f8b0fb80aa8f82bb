package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/dealflow/diligence"
	"github.com/c360studio/dealflow/embedding"
	"github.com/c360studio/dealflow/enrich"
	"github.com/c360studio/dealflow/extract"
	"github.com/c360studio/dealflow/llm"
	"github.com/c360studio/dealflow/match"
	"github.com/c360studio/dealflow/pipeline"
	"github.com/c360studio/dealflow/profile"
	"github.com/c360studio/dealflow/search"
	"github.com/c360studio/dealflow/store"
	"github.com/c360studio/dealflow/validate"
)

const fetcherUserAgent = "dealflow/1.0"

func newServeCmd(configPath, logLevel *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline consumers and the upload API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath, *logLevel, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Rerun stages whose output documents already exist")
	return cmd
}

func runServe(ctx context.Context, configPath, logLevel string, force bool) error {
	logger := setupLogger(logLevel)
	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if force {
		cfg.Pipeline.Force = true
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(appName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS %s: %w", cfg.NATS.URL, err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create jetstream context: %w", err)
	}

	docs, err := store.NewKV(ctx, js)
	if err != nil {
		return fmt.Errorf("create document store: %w", err)
	}
	artifacts, err := store.NewObjectArtifacts(ctx, js)
	if err != nil {
		return fmt.Errorf("create artifact store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Generator.Timeout}
	generator := llm.NewClient(cfg.Generator.Endpoints,
		llm.WithLogger(logger),
		llm.WithHTTPClient(httpClient),
	)
	searcher := search.NewClient(cfg.Search.URL, cfg.Search.Model,
		search.WithLogger(logger))
	if !searcher.Enabled() {
		logger.Warn("Citation search disabled, generator-only fallbacks in effect",
			"env", search.APIKeyEnv)
	}

	extractor := extract.New(generator,
		extract.NewHTTPTranscriber("", "", extract.WithTranscriberLogger(logger)),
		logger)
	enricher := enrich.New(searcher, generator, logger)
	validator := validate.New(searcher, generator, logger)
	profiles := profile.NewService(
		profile.NewFetcher(30*time.Second, fetcherUserAgent), generator, logger)
	analytics := diligence.NewHTTPAnalytics(cfg.Analytics.URL,
		diligence.WithAnalyticsLogger(logger))
	diligenceEngine := diligence.New(generator, searcher, analytics, profiles, logger)

	catalog := match.NewCatalog(docs, cfg.Pipeline.CatalogTTL, logger)
	matchOpts := []match.Option{
		match.WithLogger(logger),
		match.WithMinScore(cfg.Pipeline.MinScore),
	}
	if cfg.Embedding.Enabled {
		matchOpts = append(matchOpts, match.WithEmbedder(
			embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Model,
				embedding.WithLogger(logger))))
	}
	matcher := match.New(catalog, generator, matchOpts...)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := pipeline.NewMetrics(registry)

	publisher := pipeline.NewJetStreamPublisher(js)
	handlers := pipeline.NewHandlers(docs, artifacts, extractor, enricher,
		validator, diligenceEngine, matcher, publisher, metrics, logger)
	handlers.Force = cfg.Pipeline.Force

	service := pipeline.NewService(js, handlers, logger)
	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline service: %w", err)
	}
	defer service.Stop()

	if cfg.Pipeline.CatalogPath != "" {
		go func() {
			if err := catalog.WatchFile(ctx, cfg.Pipeline.CatalogPath); err != nil && ctx.Err() == nil {
				logger.Error("Catalog watch stopped", "path", cfg.Pipeline.CatalogPath, "error", err)
			}
		}()
	}

	uploadAPI := pipeline.NewUploadAPI(artifacts, publisher, logger)
	uploadAPI.BaseURL = cfg.HTTP.BaseURL

	mux := http.NewServeMux()
	uploadAPI.RegisterHTTPHandlers(cfg.HTTP.Prefix, mux)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("Dealflow running",
		"nats", cfg.NATS.URL,
		"force", cfg.Pipeline.Force,
		"catalog", cfg.Pipeline.CatalogPath)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}

	fmt.Fprintln(os.Stderr, "shutting down")
	return nil
}
