package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/agroverse/internal/config"
	"github.com/kailas-cloud/agroverse/internal/db"
	"github.com/kailas-cloud/agroverse/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/agroverse/internal/db/redis"
	"github.com/kailas-cloud/agroverse/internal/domain"
	"github.com/kailas-cloud/agroverse/internal/domain/hazard"
	"github.com/kailas-cloud/agroverse/internal/domain/knowledge"
	logpkg "github.com/kailas-cloud/agroverse/internal/logger"
	"github.com/kailas-cloud/agroverse/internal/metrics"
	budgetrepo "github.com/kailas-cloud/agroverse/internal/repository/budget"
	"github.com/kailas-cloud/agroverse/internal/repository/journal"
	"github.com/kailas-cloud/agroverse/internal/repository/replycache"
	chiTransport "github.com/kailas-cloud/agroverse/internal/transport/chi"
	"github.com/kailas-cloud/agroverse/internal/transport/gigachat"
	"github.com/kailas-cloud/agroverse/internal/transport/kafka"
	openaiGen "github.com/kailas-cloud/agroverse/internal/transport/openai"
	"github.com/kailas-cloud/agroverse/internal/transport/simulated"
	advisoryuc "github.com/kailas-cloud/agroverse/internal/usecase/advisory"
	briefinguc "github.com/kailas-cloud/agroverse/internal/usecase/briefing"
	generationuc "github.com/kailas-cloud/agroverse/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/agroverse/internal/usecase/health"
	riskuc "github.com/kailas-cloud/agroverse/internal/usecase/risk"
	usageuc "github.com/kailas-cloud/agroverse/internal/usecase/usage"
	"github.com/kailas-cloud/agroverse/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting agroverse API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("provider", cfg.Generation.Provider),
		zap.String("model", cfg.Generation.Model),
	)

	ctx := context.Background()

	// Register metrics explicitly (no init())
	metrics.RegisterGenerationMetrics()
	metrics.RegisterRiskMetrics()

	corpus := knowledge.DefaultCorpus()
	logger.Info("Knowledge base loaded",
		zap.String("version", corpus.Version()),
		zap.Int("documents", corpus.Len()),
	)

	// Optional key-value store for the reply cache and budget counters
	var store db.Store
	if cfg.Cache.Enabled {
		store = mustOpenCache(ctx, cfg.Cache, logger)
		defer store.Close()
	}

	// Single BudgetTracker shared by the generator chain and the usage service.
	var budget *generationuc.BudgetTracker
	budgetCfg := cfg.Generation.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		budget = generationuc.NewBudgetTracker(
			cfg.Generation.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit,
			generationuc.ParseBudgetAction(budgetCfg.Action), logger,
		)
		if store != nil {
			budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker generationuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	generator, closeGenerator := buildGenerator(ctx, cfg, store, budgetChecker, logger)
	defer closeGenerator()

	// Risk sinks
	riskSvc := riskuc.New(logger)

	var journalPinger healthuc.Pinger
	if cfg.Journal.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Journal.DSN, logger)
		if err != nil {
			logger.Fatal("Failed to connect to journal database", zap.Error(err))
		}
		defer pool.Close()

		repo := journal.New(pool, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare journal schema", zap.Error(err))
		}
		riskSvc.WithJournal(repo)
		journalPinger = pool
		logger.Info("Assessment journal enabled")
	}

	if cfg.Alerts.Enabled {
		minLevel, _ := hazard.ParseLevel(cfg.Alerts.MinLevel)
		publisher := kafka.NewPublisher(cfg.Alerts.Brokers, cfg.Alerts.Topic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("Failed to close alert publisher", zap.Error(err))
			}
		}()
		riskSvc.WithAlerts(publisher, minLevel)
		logger.Info("Risk alerts enabled",
			zap.Strings("brokers", cfg.Alerts.Brokers),
			zap.String("topic", cfg.Alerts.Topic),
			zap.String("min_level", string(minLevel)),
		)
	}

	// Use case services
	advisorySvc := advisoryuc.New(
		corpus, generator, cfg.Knowledge.DefaultTopK,
		time.Duration(cfg.Generation.TimeoutSec)*time.Second, logger,
	)
	briefingSvc := briefinguc.New(riskSvc, advisorySvc, logger)
	usageSvc := usageuc.New(budgetReader)

	healthSvc := healthuc.New(corpus, generator, cfg.Generation.Model)
	if store != nil {
		healthSvc.WithStore("cache", store)
	}
	healthSvc.WithStore("journal", journalPinger)

	server := chiTransport.NewServer(riskSvc, advisorySvc, briefingSvc, usageSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware("/metrics"))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// mustOpenCache connects to Redis or Valkey and waits until it answers.
func mustOpenCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) db.Store {
	switch cfg.Driver {
	case "redis", "valkey":
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Driver))
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache",
		zap.String("driver", cfg.Driver),
		zap.Strings("addrs", cfg.Addrs),
	)
	return store
}

// buildGenerator assembles the decorator chain: provider -> reply cache -> instrumented (budget + metrics).
// The returned func releases provider resources.
func buildGenerator(
	ctx context.Context,
	cfg config.Config,
	store db.Store,
	budget generationuc.BudgetChecker,
	logger *zap.Logger,
) (*generationuc.InstrumentedGenerator, func()) {
	gc := cfg.Generation
	closeFn := func() {}
	model := gc.Model

	var base domain.Generator
	switch gc.Provider {
	case config.ProviderOpenAI:
		base = openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:      gc.APIKey,
			BaseURL:     gc.BaseURL,
			Model:       gc.Model,
			VisionModel: gc.VisionModel,
			Temperature: gc.Temperature,
			TopP:        gc.TopP,
			MaxTokens:   gc.MaxTokens,
			MaxRetries:  2,
			Logger:      logger,
		})
	case config.ProviderGigaChat:
		g, err := gigachat.NewGenerator(ctx, &gigachat.Config{
			APIKey: gc.APIKey,
			Scope:  gc.Scope,
			Model:  gc.Model,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("Failed to create GigaChat generator", zap.Error(err))
		}
		base, closeFn = g, g.Close
	default:
		base = simulated.New()
		model = simulated.ModelID
		logger.Warn("No generation API key configured, serving simulated replies")
	}

	generator := base
	if store != nil {
		generator = replycache.New(
			base, model, store, time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.GenerationCacheTotal, logger,
		)
	}

	logger.Info("Generator created",
		zap.String("provider", gc.Provider),
		zap.String("model", model),
		zap.Bool("reply_cache", store != nil),
		zap.Bool("budget", budget != nil),
	)
	return generationuc.NewInstrumentedGenerator(generator, gc.Provider, model, budget, logger), closeFn
}
