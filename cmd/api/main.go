package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/betslipai/backend/internal/auth"
	"github.com/betslipai/backend/internal/cache"
	"github.com/betslipai/backend/internal/config"
	"github.com/betslipai/backend/internal/events"
	"github.com/betslipai/backend/internal/execution"
	"github.com/betslipai/backend/internal/handlers"
	"github.com/betslipai/backend/internal/ledger"
	"github.com/betslipai/backend/internal/llm"
	"github.com/betslipai/backend/internal/metrics"
	"github.com/betslipai/backend/internal/middleware"
	"github.com/betslipai/backend/internal/repository"
	"github.com/betslipai/backend/internal/router"
	"github.com/betslipai/backend/internal/services"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var level slog.LevelVar
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level.Set(slog.LevelInfo)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := repository.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Ledger
	accountRepo := repository.NewAccountRepo(pool)
	creditRepo := repository.NewCreditRepo(pool)
	ledgerSvc := ledger.NewService(pool, accountRepo, creditRepo)

	// Refund worker retries refunds the request path could not apply.
	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewRefundWorker(ledgerSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	refundQueue := execution.NewRefundQueue(func(ctx context.Context, args execution.RefundCreditsArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	})

	// Fixtures, read through Redis when it is reachable.
	var fixtures services.FixtureSource = repository.NewFixtureRepo(pool)
	health := map[string]handlers.Pinger{"postgres": pool.Ping}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Warn("Redis unavailable, serving fixtures from PostgreSQL", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer rdb.Close()
			fc := cache.NewFixtureCache(fixtures, rdb, cfg.Redis.TTL, logger)
			if err := fc.Invalidate(ctx); err != nil {
				slog.Warn("Could not drop stale fixture snapshot", "error", err)
			}
			fixtures = fc
			health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	// Metering events
	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kw := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kw.Close()
		publisher = events.NewKafkaPublisher(kw)
		slog.Info("Publishing metering events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	g := cfg.Generation
	policy := services.DefaultPromptPolicy()
	policy.CandidateCount = g.CandidateCount
	policy.MinLegs = g.MinLegs
	policy.MaxLegs = g.MaxLegs
	reconciler := services.DefaultReconciler()
	reconciler.StrictManifest = g.StrictManifest
	reconciler.MinLegs = g.MinLegs
	reconciler.MaxLegs = g.MaxLegs

	generator := &services.Generator{
		Meter:    services.NewCreditMeter(ledgerSvc, refundQueue, logger),
		Fixtures: fixtures,
		LLM:      llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout),
		Model: llm.ModelConfig{
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: &cfg.LLM.Temperature,
		},
		Policy:            policy,
		Reconciler:        reconciler,
		Cost:              g.Cost,
		MaxFixtures:       g.MaxFixtures,
		MaxBetslips:       g.MaxBetslips,
		GenerationTimeout: cfg.LLM.Timeout,
		SettleTimeout:     g.SettleTimeout,
		RefundEmptyResult: g.RefundEmptyResult,
		Events:            publisher,
		Metrics:           m,
		Logger:            logger,
	}

	tokens := auth.NewService(cfg.Auth.JWTSecret)
	api := router.New(router.Deps{
		Auth:      middleware.BearerAuth(tokens, accountRepo),
		TargetOdd: middleware.TargetOddCheck(validator),
		Betslips: &handlers.BetslipHandler{
			Pipeline: generator,
			Balances: ledgerSvc,
			Ledger:   creditRepo,
			Model:    cfg.LLM.Model,
			Cost:     g.Cost,
			Logger:   logger,
		},
		Health:  handlers.Health(health),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(api)

	// Start River client (processes refund jobs)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River shutdown", "error", err)
	}
}
