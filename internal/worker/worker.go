// Package worker consumes DNS lookup tasks from the shared task stream,
// resolves them for one origin, and appends exactly one result per task to
// the shared result stream. Each origin owns a durable consumer group, so
// every origin receives every task and survives restarts without losing
// delivered entries.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/seantiz/geodig/internal/model"
	"github.com/seantiz/geodig/internal/resolver"
	"github.com/seantiz/geodig/internal/stream"
	"github.com/seantiz/geodig/internal/telemetry"
)

var tracer = otel.Tracer("geodig/worker")

const (
	// readBatch and readBlock shape one blocking read for new tasks. The
	// stream client's own read timeout must stay above readBlock.
	readBatch = 10
	readBlock = 60 * time.Second

	// readRetryDelay spaces out retries after a failed stream read.
	readRetryDelay = time.Second

	groupPrefix    = "workers-"
	consumerPrefix = "consumer-"
)

// Resolver answers every requested record type for one domain. *resolver.Resolver
// implements it; tests substitute stubs.
type Resolver interface {
	LookupAll(ctx context.Context, domain string, recordTypes []string) map[string]resolver.Lookup
}

// Options configure a Worker.
type Options struct {
	// Origin names the vantage point this worker answers for. It becomes
	// part of the durable group name and is stamped on every result.
	Origin       string
	TaskStream   string
	ResultStream string

	// ReadBlock bounds one blocking read for new tasks. Zero uses the
	// default; it must stay below the stream client's read timeout.
	ReadBlock time.Duration
}

// Worker runs the consume loop for one origin.
type Worker struct {
	log      stream.Log
	resolver Resolver
	logger   *slog.Logger
	origin   string
	tasks    string
	results  string
	group    string
	consumer string
	block    time.Duration
}

// New creates a Worker reading tasks and publishing results through log.
func New(log stream.Log, res Resolver, logger *slog.Logger, opts Options) *Worker {
	block := opts.ReadBlock
	if block <= 0 {
		block = readBlock
	}
	return &Worker{
		log:      log,
		resolver: res,
		logger:   logger,
		origin:   opts.Origin,
		tasks:    opts.TaskStream,
		results:  opts.ResultStream,
		group:    groupPrefix + opts.Origin,
		consumer: consumerPrefix + opts.Origin,
		block:    block,
	}
}

// Group returns the durable consumer group this worker reads through.
func (w *Worker) Group() string {
	return w.group
}

// Run creates the origin's durable group and consumes tasks until ctx is
// cancelled. Every delivered entry is acknowledged after processing, even
// when it was skipped, so one bad entry cannot wedge the group.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.log.EnsureGroup(ctx, w.tasks, w.group); err != nil {
		return fmt.Errorf("ensure group: %w", err)
	}

	w.logger.Info("worker started",
		"origin", w.origin,
		"group", w.group,
		"tasks_stream", w.tasks,
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping", "origin", w.origin)
			return nil
		default:
		}

		// Entries delivered before a crash or restart are still pending for
		// this consumer. Drain them before asking for new ones.
		pending, err := w.log.ReadGroup(ctx, w.tasks, w.group, w.consumer, "0", readBatch, -1)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("read pending tasks", "error", err)
		}
		w.handleEntries(ctx, pending)

		entries, err := w.log.ReadGroup(ctx, w.tasks, w.group, w.consumer, ">", readBatch, w.block)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("read tasks", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}
		w.handleEntries(ctx, entries)
	}
}

func (w *Worker) handleEntries(ctx context.Context, entries []stream.Entry) {
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, entry)
		if err := w.log.Ack(ctx, w.tasks, w.group, entry.ID); err != nil {
			w.logger.Error("ack task", "entry_id", entry.ID, "error", err)
		}
	}
}

// process resolves one task and appends its result. Undecodable entries are
// logged and skipped; publish failures are logged but never retried, the
// orchestration degrades to partial or timeout on its own.
func (w *Worker) process(ctx context.Context, entry stream.Entry) {
	start := time.Now()

	var task model.Task
	if err := json.Unmarshal(entry.Data, &task); err != nil {
		w.logger.Warn("skipping undecodable task", "entry_id", entry.ID, "error", err)
		workerTasks.WithLabelValues(statusSkipped).Inc()
		return
	}

	ctx = telemetry.Extract(ctx, task.PropagationMetadata)
	ctx, span := tracer.Start(ctx, "worker.process_task",
		trace.WithAttributes(
			attribute.String("correlation_id", task.CorrelationID),
			attribute.String("dns.domain", task.Domain),
			attribute.String("worker.origin", w.origin),
		),
	)
	defer span.End()

	lookups := w.resolver.LookupAll(ctx, task.Domain, task.RecordTypes)
	for _, l := range lookups {
		outcome := "ok"
		if l.Error != "" {
			outcome = "error"
		}
		workerLookups.WithLabelValues(l.RecordType, outcome).Inc()
	}

	record := model.ResultRecord{
		CorrelationID: task.CorrelationID,
		Origin:        w.origin,
		Status:        model.StatusSuccess,
	}

	allFailed := len(lookups) > 0
	for _, l := range lookups {
		if l.Error == "" {
			allFailed = false
			break
		}
	}
	if allFailed {
		record.Status = model.StatusFailed
		record.Error = "all DNS lookups failed"
		err := errors.New("all DNS lookups failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	payload, err := json.Marshal(lookups)
	if err != nil {
		w.logger.Error("marshal lookups", "correlation_id", task.CorrelationID, "error", err)
	} else {
		record.Payload = payload
	}
	record.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000.0

	span.SetAttributes(
		attribute.String("result.status", record.Status),
		attribute.Float64("result.processing_time_ms", record.ProcessingTimeMS),
	)

	body, err := json.Marshal(record)
	if err != nil {
		w.logger.Error("marshal result", "correlation_id", task.CorrelationID, "error", err)
		workerTasks.WithLabelValues(statusSkipped).Inc()
		return
	}
	if _, err := w.log.Append(ctx, w.results, body); err != nil {
		w.logger.Error("publish result",
			"correlation_id", task.CorrelationID,
			"origin", w.origin,
			"error", err,
		)
		span.RecordError(err)
		workerTasks.WithLabelValues(statusError).Inc()
		return
	}

	workerTasks.WithLabelValues(record.Status).Inc()
	workerTaskDuration.Observe(time.Since(start).Seconds())

	w.logger.Info("task processed",
		"correlation_id", task.CorrelationID,
		"domain", task.Domain,
		"origin", w.origin,
		"status", record.Status,
		"duration_ms", record.ProcessingTimeMS,
	)
}
