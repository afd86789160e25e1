package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskmanager/api"
	"taskmanager/config"
	"taskmanager/events"
	"taskmanager/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeStore, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}

	var store api.Storage = backend
	if cfg.Cache.Enabled() {
		redisOpts, err := config.RedisOptions(cfg.Cache.RedisConnectionString)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		rc := redis.NewClient(redisOpts)
		defer rc.Close()
		store = storage.NewCache(backend, rc, cfg.Cache.TTL, logger)
		logger.WithField("ttl", cfg.Cache.TTL).Info("redis read cache enabled")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.Events.Enabled() {
		qc, err := events.NewQueueClient(cfg.Events.ConnectionString, cfg.Events.Queue)
		if err != nil {
			logger.Fatalf("event queue: %v", err)
		}
		pub = events.NewQueuePublisher(qc, events.OptionsFrom(cfg.Events), logger)
	}

	e := api.NewServer(store, pub, logger, api.ServerOptions{Debug: cfg.Debug, EnablePprof: cfg.EnablePprof})

	go func() {
		logger.Infof("task api listening on %s", cfg.ListenAddr())
		if err := e.Start(cfg.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("server shutdown: %v", err)
	}
	pub.Close()
	if err := closeStore(shutdownCtx); err != nil {
		logger.Warnf("store close: %v", err)
	}
}
