package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/riftarena/rift-backend/internal/catalog"
	"github.com/riftarena/rift-backend/internal/config"
	"github.com/riftarena/rift-backend/internal/draft"
	"github.com/riftarena/rift-backend/internal/httpapi"
	"github.com/riftarena/rift-backend/internal/hub"
	"github.com/riftarena/rift-backend/internal/logger"
	"github.com/riftarena/rift-backend/internal/match"
	"github.com/riftarena/rift-backend/internal/metrics"
	"github.com/riftarena/rift-backend/internal/profile"
	"github.com/riftarena/rift-backend/internal/queue"
	"github.com/riftarena/rift-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseDSN != "" {
		g, err := store.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		st = g
		log.Info("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn("no DATABASE_DSN set, using in-memory store")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	rec := metrics.New(registry)

	profiles := profile.NewClient(cfg.ProfileBaseURL, log)
	selections := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTTL, log)

	h := hub.NewHub(ctx)
	drafts := draft.NewService(st, selections, h, rec, log)
	queues := queue.NewService(st, profiles, rec, log, cfg.PhaseLimit)
	matches := match.NewService(st, profiles, rec, log)

	sweeper, err := drafts.StartSweeper(ctx, cfg.SweepInterval)
	if err != nil {
		log.Fatal("start sweeper", zap.Error(err))
	}
	defer func() { _ = sweeper.Shutdown() }()

	api := &httpapi.API{Queue: queues, Drafts: drafts, Matches: matches, Log: log}
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(api, h, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server stopped")
}
