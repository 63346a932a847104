package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/config"
	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"
	"github.com/boddenberg/broker-quote-bfa-go/internal/handler"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/cache"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/client"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/insurer"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/observability"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/schema"
	"github.com/boddenberg/broker-quote-bfa-go/internal/infra/store"
	"github.com/boddenberg/broker-quote-bfa-go/internal/port"
	"github.com/boddenberg/broker-quote-bfa-go/internal/registry"
	"github.com/boddenberg/broker-quote-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "broker-quote-bfa")
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("quote_call_timeout", cfg.QuoteCallTimeout),
		zap.Bool("simulate_failures", cfg.SimulateFailures),
		zap.Int("insurer_endpoints", len(cfg.InsurerEndpoints)),
		zap.Bool("textgen_configured", cfg.TextGenAPIKey != ""),
	)
	for _, entry := range cfg.InsurerEndpointsIgnore {
		logger.Warn("ignoring malformed INSURER_ENDPOINTS entry", zap.String("entry", entry))
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "broker-quote-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	batchCache := cache.New[*domain.QuoteBatch](cfg.CacheTTL)
	defer batchCache.Close()
	insightCache := cache.New[string](cfg.CacheTTL)
	defer insightCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
		CallTimeout:    cfg.QuoteCallTimeout,
	}
	insurerBreakers := resilience.NewBreakers("insurer:")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	reg := registry.Default()

	simulated := insurer.NewSimulatedGateway(insurer.Config{
		BaseDelay:        cfg.QuoteBaseDelay,
		InstabilityScale: cfg.QuoteInstabilityScale,
		Jitter:           cfg.QuoteJitter,
		Validity:         cfg.QuoteValidity,
		FailureInjection: cfg.SimulateFailures,
	})

	remote := make(map[string]port.InsurerGateway, len(cfg.InsurerEndpoints))
	for id, url := range cfg.InsurerEndpoints {
		if _, ok := reg.Get(id); !ok {
			logger.Warn("endpoint configured for unknown insurer", zap.String("insurer", id))
			continue
		}
		remote[id] = client.NewInsurerClient(httpClient, url, insurerBreakers, resilienceCfg)
		logger.Info("insurer routed to HTTP API", zap.String("insurer", id), zap.String("url", url))
	}
	gateway := insurer.NewRouter(simulated, remote)

	textGen := client.NewGeminiClient(httpClient, cfg.TextGenAPIURL, cfg.TextGenAPIKey, resilience.NewCircuitBreaker("textgen"))
	if cfg.TextGenAPIKey == "" {
		logger.Warn("TEXTGEN_API_KEY not set, copilot will serve fallback texts")
	}

	// --- Storage ---
	leadStore := store.NewLeadStore(logger)
	validator := schema.NewValidator(cfg.SchemaCacheSize)

	// --- Services ---
	quotes := service.NewQuoteOrchestrator(reg, gateway, batchCache, bulkhead, resilienceCfg, metrics, logger)
	copilot := service.NewSalesCopilot(
		textGen,
		insightCache,
		service.CopilotConfig{Model: cfg.TextGenModel, FastModel: cfg.TextGenFastModel},
		metrics,
		logger,
	)
	intake := service.NewLeadIntake(quotes, copilot, leadStore, cfg.LeadTopN, metrics, logger)
	pipeline := service.NewLeadPipeline(leadStore, copilot, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Quotes:       quotes,
		Intake:       intake,
		Pipeline:     pipeline,
		Copilot:      copilot,
		Validator:    validator,
		Breakers:     insurerBreakers,
		TextGenReady: cfg.TextGenAPIKey != "",
		Metrics:      metrics,
		Logger:       logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
