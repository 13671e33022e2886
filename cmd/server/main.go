package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedstock/internal/config"
	"feedstock/internal/infra"
	"feedstock/internal/repository"
	"feedstock/internal/router"
	"feedstock/internal/service"
	"feedstock/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbound alert delivery goes through a circuit breaker so that a dead
	// webhook endpoint cannot stall the worker pool.
	alertCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	webhook := infra.NewAlertWebhookClient(cfg.AlertWebhookURL)
	mailer := infra.NewMailer(cfg)

	handlers := map[string]worker.Handler{
		worker.QueueAlerts: worker.NewAlertWorker(webhook, alertCB).Process,
		worker.QueueEmail:  worker.NewEmailWorker(mailer).Process,
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)

	// Reconciliation sweep: re-derives any ledger row whose cascade was
	// interrupted mid-flight (marked dirty in redis, never cleared).
	dispatcher := worker.NewDispatcher(rdb)
	ledgerRepo := repository.NewLedgerRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	productionRepo := repository.NewProductionRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	materialRepo := repository.NewRawMaterialRepository(db)
	ledgerSvc := service.NewLedgerService(ledgerRepo, purchaseRepo, productionRepo, worker.NewQueueNotifier(dispatcher, cfg.AlertEmail))
	recipeSvc := service.NewRecipeService(recipeRepo, materialRepo)
	worker.StartReconcileCron(ctx, worker.ReconcileCronConfig{
		RDB:      rdb,
		Ledger:   ledgerSvc,
		Recipes:  recipeSvc,
		Interval: time.Duration(cfg.ReconcileIntervalSec) * time.Second,
	})

	r := router.New(cfg, db, rdb, alertCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("feedstock backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
