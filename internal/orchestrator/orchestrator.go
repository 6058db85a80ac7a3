package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/geodig/internal/model"
	"github.com/seantiz/geodig/internal/stream"
)

const (
	defaultTaskStream     = "dns:tasks"
	defaultResultStream   = "dns:results"
	defaultPollBlock      = time.Second
	defaultCollectTimeout = 30 * time.Second
)

// Options configure an Orchestrator. Zero values fall back to the service
// defaults, which keeps test construction terse.
type Options struct {
	TaskStream     string
	ResultStream   string
	PollBlock      time.Duration
	CollectTimeout time.Duration
}

// Request describes one fan-out lookup: the domain to resolve, the origins
// expected to answer, and the record types each origin should resolve.
// CorrelationID is assigned when empty. Metadata is carried opaquely on the
// task for cross-process trace propagation; the core never interprets it.
type Request struct {
	Domain        string
	Origins       []string
	RecordTypes   []string
	CorrelationID string
	Metadata      map[string]string
}

// Result is the caller-visible product of one orchestration.
type Result struct {
	CorrelationID string
	Domain        string
	Outcome       model.AggregateOutcome
}

// Orchestrator runs fan-out lookups over a shared log. It owns no global
// state: the log client is injected, and per-request isolation comes from
// window naming alone, so any number of orchestrations may run concurrently.
type Orchestrator struct {
	log     stream.Log
	logger  *slog.Logger
	tasks   string
	results string
	poll    time.Duration
	timeout time.Duration

	broker *EventBroker
	stats  *statsTracker
	wg     sync.WaitGroup
}

// New creates an Orchestrator reading and writing through log.
func New(log stream.Log, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.TaskStream == "" {
		opts.TaskStream = defaultTaskStream
	}
	if opts.ResultStream == "" {
		opts.ResultStream = defaultResultStream
	}
	if opts.PollBlock <= 0 {
		opts.PollBlock = defaultPollBlock
	}
	if opts.CollectTimeout <= 0 {
		opts.CollectTimeout = defaultCollectTimeout
	}
	return &Orchestrator{
		log:     log,
		logger:  logger,
		tasks:   opts.TaskStream,
		results: opts.ResultStream,
		poll:    opts.PollBlock,
		timeout: opts.CollectTimeout,
		broker:  NewEventBroker(),
		stats:   newStatsTracker(),
	}
}

// Broker returns the orchestrator's event broker for SSE subscription.
func (o *Orchestrator) Broker() *EventBroker {
	return o.broker
}

// Stats returns a snapshot of in-memory orchestration counters.
func (o *Orchestrator) Stats() StatsSnapshot {
	return o.stats.snapshot()
}

// Orchestrate runs one fan-out lookup to completion: publish the task, open
// a correlation window, collect tagged results until one per origin arrives
// or the collect timeout passes, and aggregate. Timeout and partial are
// ordinary outcomes; only log connectivity failures return an error.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (*Result, error) {
	return o.run(ctx, req, nil)
}

// OrchestrateAsync runs the same flow detached from the caller. The assigned
// correlation ID is returned immediately; each matched record and the final
// outcome stream through the event broker under that ID, and the topic is
// closed when the orchestration finishes however it finishes.
func (o *Orchestrator) OrchestrateAsync(req Request) string {
	if req.CorrelationID == "" {
		req.CorrelationID = model.NewID()
	}
	corrID := req.CorrelationID

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.broker.Close(corrID)

		// Detached from the HTTP request: the collect deadline bounds the
		// loop, the context just needs to outlive it.
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout+o.poll+time.Second)
		defer cancel()

		res, err := o.run(ctx, req, func(rec model.ResultRecord) {
			o.broker.Publish(corrID, Event{Type: EventResult, Record: &rec})
		})
		if err != nil {
			o.logger.Error("async orchestration failed", "correlation_id", corrID, "error", err)
			return
		}
		o.broker.Publish(corrID, Event{Type: EventOutcome, Outcome: &res.Outcome})
	}()

	return corrID
}

// Wait blocks until all in-flight async orchestrations complete.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// run is the shared flow behind Orchestrate and OrchestrateAsync. onMatch,
// when non-nil, fires for every matched record as it is collected.
func (o *Orchestrator) run(ctx context.Context, req Request, onMatch func(model.ResultRecord)) (*Result, error) {
	corrID := req.CorrelationID
	if corrID == "" {
		corrID = model.NewID()
	}
	task := model.Task{
		CorrelationID:       corrID,
		Domain:              req.Domain,
		RecordTypes:         req.RecordTypes,
		CreatedAt:           time.Now().UTC(),
		PropagationMetadata: req.Metadata,
	}
	expected := len(req.Origins)

	o.stats.begin()
	start := time.Now()
	status := "error"
	defer func() {
		d := time.Since(start)
		o.stats.finish(status, d)
		orchestrationsTotal.WithLabelValues(status).Inc()
		orchestrationDuration.Observe(d.Seconds())
	}()

	if _, err := o.PublishTask(ctx, task); err != nil {
		return nil, err
	}

	win, err := o.OpenWindow(ctx, corrID)
	if err != nil {
		return nil, err
	}
	defer win.Close()

	deadline := start.Add(o.timeout)
	results, err := o.Collect(ctx, win, expected, deadline, onMatch)
	if err != nil {
		return nil, err
	}

	outcome := Aggregate(results, expected)
	status = outcome.Status
	o.logger.Info("orchestration finished",
		"correlation_id", corrID,
		"domain", req.Domain,
		"status", outcome.Status,
		"received", outcome.Summary.Received,
		"expected", outcome.Summary.Expected,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		CorrelationID: corrID,
		Domain:        req.Domain,
		Outcome:       outcome,
	}, nil
}
