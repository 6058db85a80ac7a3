package main

import (
	"context"
	"log"
	"os"

	"github.com/seantiz/geodig/internal/api"
	"github.com/seantiz/geodig/internal/config"
	"github.com/seantiz/geodig/internal/orchestrator"
	"github.com/seantiz/geodig/internal/stream"
	"github.com/seantiz/geodig/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("geodig: starting",
		"listen_addr", cfg.ListenAddr,
		"redis_url", cfg.RedisURL,
	)

	shutdownTracing, err := telemetry.Init(context.Background(), "geodig-orchestrator", cfg.OTLPEndpoint)
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

	orch := orchestrator.New(client, logger, orchestrator.Options{
		TaskStream:     cfg.TaskStream,
		ResultStream:   cfg.ResultStream,
		PollBlock:      cfg.PollBlock,
		CollectTimeout: cfg.CollectTimeout,
	})

	srv := api.NewServer(cfg.ListenAddr, orch, client, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	// Let detached orchestrations finish before the redis client goes away.
	orch.Wait()
	logger.Info("geodig: stopped")
}
