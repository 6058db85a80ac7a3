package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/geodig/internal/stream"
)

// closeTimeout bounds window teardown. Teardown runs on its own background
// context so it completes even after the request's context is cancelled.
const closeTimeout = 5 * time.Second

// Window is an ephemeral, request-scoped subscription over the shared result
// stream. The consumer group is named after the correlation ID and created at
// the stream tail, so each request has an isolated inbox that sees only
// entries appended after it opened. Unbounded concurrent requests share one
// result stream this way without locks or cross-contamination.
type Window struct {
	correlationID string
	group         string
	consumer      string

	log     stream.Log
	stream  string
	logger  *slog.Logger
	closeMu sync.Once
}

// OpenWindow creates the request-scoped consumer group for correlationID on
// the result stream. A group left over from a retried open is reused, not an
// error. The caller must Close the window on every exit path.
func (o *Orchestrator) OpenWindow(ctx context.Context, correlationID string) (*Window, error) {
	group := "orchestrator-" + correlationID
	if err := o.log.EnsureGroup(ctx, o.results, group); err != nil {
		return nil, fmt.Errorf("open window for %s: %w", correlationID, err)
	}
	openWindows.Inc()

	return &Window{
		correlationID: correlationID,
		group:         group,
		consumer:      "consumer-" + correlationID,
		log:           o.log,
		stream:        o.results,
		logger:        o.logger,
	}, nil
}

// Close destroys the window's consumer group. Only the first call acts, so a
// deferred Close is safe alongside an explicit one. Failing to tear down must
// not fail an otherwise-successful collection, so errors are logged and
// swallowed.
func (w *Window) Close() {
	w.closeMu.Do(func() {
		openWindows.Dec()

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := w.log.DestroyGroup(ctx, w.stream, w.group); err != nil {
			w.logger.Warn("window teardown failed",
				"correlation_id", w.correlationID,
				"group", w.group,
				"error", err,
			)
		}
	})
}
