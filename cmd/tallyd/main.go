package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tallybook.org/internal/config"
	"tallybook.org/internal/httpapi"
	"tallybook.org/internal/ledger"
	"tallybook.org/internal/obs"
	"tallybook.org/internal/store/sqlite"
	"tallybook.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	obs.SetLevel(cfg.LogLevel)
	obs.Init()
	obs.InitBuildInfo(version, commit, ledger.SchemaVersion)

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).WithField("path", cfg.DBPath).Fatal("open database")
	}
	defer store.Close()

	ctx := context.Background()
	if cfg.MigrateOnStart {
		applied, err := store.Migrate(ctx)
		if err != nil {
			log.WithError(err).Fatal("migrate database")
		}
		if len(applied) > 0 {
			log.WithField("applied", applied).Info("migrations applied")
		}
	}

	events := stream.New()
	books, err := ledger.Open(ctx, store,
		ledger.WithListener(events.Publish),
		ledger.WithLowStockThreshold(cfg.LowStock),
	)
	if err != nil {
		log.WithError(err).Fatal("load books")
	}

	api := httpapi.New(httpapi.ReadyProbe{Store: store}, version, books, events,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// the event stream holds responses open, so writes are not bounded
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	log.WithFields(logrus.Fields{"addr": srv.Addr, "version": version, "db": cfg.DBPath}).Info("starting tallyd")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
	log.Info("stopped")
}
