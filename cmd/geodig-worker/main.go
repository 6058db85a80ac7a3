package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seantiz/geodig/internal/config"
	"github.com/seantiz/geodig/internal/resolver"
	"github.com/seantiz/geodig/internal/stream"
	"github.com/seantiz/geodig/internal/telemetry"
	"github.com/seantiz/geodig/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("geodig-worker: starting",
		"origin", cfg.WorkerOrigin,
		"listen_addr", cfg.WorkerListenAddr,
		"redis_url", cfg.RedisURL,
	)

	shutdownTracing, err := telemetry.Init(context.Background(), "geodig-worker-"+cfg.WorkerOrigin, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("shutdown tracing", "error", err)
		}
	}()

	client, err := stream.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer client.Close()

	res := resolver.New(logger, resolver.Options{
		Server:              cfg.DNSServer,
		Timeout:             cfg.DNSTimeout,
		ChaosSequentialProb: cfg.ChaosSequentialProb,
		ChaosErrorProb:      cfg.ChaosErrorProb,
	})
	logger.Info("resolver configured", "server", res.Server())

	w := worker.New(client, res, logger, worker.Options{
		Origin:       cfg.WorkerOrigin,
		TaskStream:   cfg.TaskStream,
		ResultStream: cfg.ResultStream,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- w.Run(ctx) }()

	srv := worker.NewServer(cfg.WorkerListenAddr, w, client, logger)
	serverDone := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
		close(serverDone)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-loopDone:
		if err != nil {
			log.Fatalf("worker error: %v", err)
		}
	case err := <-serverDone:
		if err != nil {
			log.Fatalf("worker server error: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown worker server", "error", err)
	}

	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		logger.Warn("worker loop did not stop within the shutdown timeout")
	}

	logger.Info("geodig-worker: stopped")
}
