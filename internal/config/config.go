package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr       = ":8080"
	defaultWorkerListenAddr = ":8081"
	defaultRedisURL         = "redis://localhost:6379"
	defaultCollectTimeout   = 30 * time.Second
	defaultPollBlock        = 1 * time.Second
	defaultWorkerOrigin     = "unknown"
	defaultDNSTimeout       = 5 * time.Second

	defaultTaskStream   = "dns:tasks"
	defaultResultStream = "dns:results"

	envListenAddr       = "GEODIG_LISTEN_ADDR"
	envWorkerListenAddr = "GEODIG_WORKER_LISTEN_ADDR"
	envRedisURL         = "GEODIG_REDIS_URL"
	envLogLevel         = "GEODIG_LOG_LEVEL"
	envCollectTimeout   = "GEODIG_COLLECT_TIMEOUT"
	envPollBlock        = "GEODIG_POLL_BLOCK"
	envWorkerOrigin     = "GEODIG_WORKER_ORIGIN"
	envDNSServer        = "GEODIG_DNS_SERVER"
	envDNSTimeout       = "GEODIG_DNS_TIMEOUT"
	envOTLPEndpoint     = "GEODIG_OTLP_ENDPOINT"
	envChaosSequential  = "GEODIG_CHAOS_SEQUENTIAL_PROB"
	envChaosError       = "GEODIG_CHAOS_ERROR_PROB"
)

// Config holds application configuration loaded from environment variables.
// The orchestrator and the worker share one Config; each binary reads the
// fields it cares about.
type Config struct {
	ListenAddr       string
	WorkerListenAddr string
	RedisURL         string
	LogLevel         slog.Level

	// CollectTimeout bounds how long an orchestration waits for worker
	// results. PollBlock is the block interval of a single result read, so
	// collection ends at most one PollBlock after the deadline.
	CollectTimeout time.Duration
	PollBlock      time.Duration

	// TaskStream and ResultStream name the shared Redis streams. They are
	// fixed by convention; tests override them on the struct directly.
	TaskStream   string
	ResultStream string

	// WorkerOrigin identifies which vantage point a worker answers for,
	// e.g. "us-east-1". Each origin gets its own durable consumer group.
	WorkerOrigin string

	// DNSServer is the "host:port" of the upstream resolver. Empty means
	// use the first nameserver from /etc/resolv.conf.
	DNSServer  string
	DNSTimeout time.Duration

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables
	// trace export entirely.
	OTLPEndpoint string

	// Chaos knobs let deployments exercise partial and timeout outcomes.
	// Both default to zero: no artificial slowness, no artificial failures.
	ChaosSequentialProb float64
	ChaosErrorProb      float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:       defaultListenAddr,
		WorkerListenAddr: defaultWorkerListenAddr,
		RedisURL:         defaultRedisURL,
		LogLevel:         slog.LevelInfo,
		CollectTimeout:   defaultCollectTimeout,
		PollBlock:        defaultPollBlock,
		TaskStream:       defaultTaskStream,
		ResultStream:     defaultResultStream,
		WorkerOrigin:     defaultWorkerOrigin,
		DNSTimeout:       defaultDNSTimeout,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envWorkerListenAddr); v != "" {
		cfg.WorkerListenAddr = v
	}
	if v := os.Getenv(envRedisURL); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envCollectTimeout); v != "" {
		cfg.CollectTimeout = parseDuration(v, defaultCollectTimeout)
	}
	if v := os.Getenv(envPollBlock); v != "" {
		cfg.PollBlock = parseDuration(v, defaultPollBlock)
	}
	if v := os.Getenv(envWorkerOrigin); v != "" {
		cfg.WorkerOrigin = v
	}
	if v := os.Getenv(envDNSServer); v != "" {
		cfg.DNSServer = v
	}
	if v := os.Getenv(envDNSTimeout); v != "" {
		cfg.DNSTimeout = parseDuration(v, defaultDNSTimeout)
	}
	if v := os.Getenv(envOTLPEndpoint); v != "" {
		cfg.OTLPEndpoint = v
	}
	if v := os.Getenv(envChaosSequential); v != "" {
		cfg.ChaosSequentialProb = parseProbability(v, 0)
	}
	if v := os.Getenv(envChaosError); v != "" {
		cfg.ChaosErrorProb = parseProbability(v, 0)
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseProbability(s string, fallback float64) float64 {
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 || p > 1 {
		return fallback
	}
	return p
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
