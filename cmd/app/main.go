package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"discount-code-engine/internal/config"
	"discount-code-engine/internal/domain/ports/adapter"
	"discount-code-engine/internal/infra/api"
	pg "discount-code-engine/internal/infra/db/postgres"
	"discount-code-engine/internal/infra/logging"
	"discount-code-engine/internal/infra/metrics"
	red "discount-code-engine/internal/infra/redis"
	"discount-code-engine/internal/infra/sched"
	"discount-code-engine/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	issueLimiter := red.NewRateLimiter(redisClient, cfg.Limiter.IssueLimit, cfg.Limiter.Window.Std(), logger)
	confirmLimiter := red.NewRateLimiter(redisClient, cfg.Limiter.ConfirmLimit, cfg.Limiter.Window.Std(), logger)

	// ---- Repositories ----
	codeRepo := pg.NewRedemptionCodeRepo(pool)
	venueRepo := pg.NewVenueRepo(pool)
	txManager := pg.NewTxManager(pool)
	clock := adapter.SystemClock()

	// ---- Use cases ----
	issueUC := usecase.NewIssueUseCase(codeRepo, venueRepo, txManager, issueLimiter, clock, logger)
	confirmUC := usecase.NewConfirmUseCase(codeRepo, confirmLimiter, clock, logger)
	statusUC := usecase.NewStatusUseCase(codeRepo, clock, logger)
	sweepUC := usecase.NewSweepUseCase(codeRepo, logger)

	// ---- Sweep worker ----
	worker := sched.NewSweepWorker(cfg.Sweeper.Interval.Std(), sweepUC, clock, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- HTTP API ----
	srv := api.NewServer(issueUC, confirmUC, statusUC, sweepUC, clock, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: srv.Routes()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	_ = server.Shutdown(context.Background())
}
