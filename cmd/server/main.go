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

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/config"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/metrics"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/repository"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/router"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if cfg.SessionSecret == "" || cfg.ShopifyAPISecret == "" {
		log.Fatal().Msg("SESSION_SECRET and SHOPIFY_API_SECRET must be set")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	cbCfg := infra.DefaultCBConfig()
	// A rejected token is the shop's problem, not Shopify's.
	cbCfg.Ignore = func(err error) bool { return errors.Is(err, infra.ErrShopifyUnauthorized) }
	cbCfg.OnStateChange = func(name string, from, to infra.CBState) {
		metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
	}
	shopifyCB := infra.NewCircuitBreaker(cbCfg)
	shopifyClient := infra.NewShopifyClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, cfg.ShopifyAPIVersion)

	// Worker handlers are wired here (composition root) so that the pool has
	// access to every store a purge touches.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerHandlers := &worker.WorkerHandlers{
		Purge: worker.NewPurgeWorker(repository.NewDraftRepository(db), repository.NewShopTokenRepository(db), rdb),
	}
	workers := worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)
	worker.StartRetryCron(ctx, rdb)

	r := router.New(cfg, router.Deps{
		DB:        db,
		Redis:     rdb,
		Shopify:   shopifyClient,
		ShopifyCB: shopifyCB,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("wizard backend listening on :%d", cfg.Port)
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
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	workers.Wait()
	log.Info().Msg("server exited")
}
