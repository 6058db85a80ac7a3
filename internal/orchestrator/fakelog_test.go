package orchestrator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/seantiz/geodig/internal/model"
	"github.com/seantiz/geodig/internal/orchestrator"
	"github.com/seantiz/geodig/internal/stream"
)

// readStep is one scripted ReadGroup response.
type readStep struct {
	entries []stream.Entry
	err     error
}

// fakeLog is a scripted stream.Log for core tests. Reads are keyed by
// consumer group, the way independent cursors over one shared stream each
// see their own copy of every entry. Exhausted scripts behave like an idle
// stream: ReadGroup waits out its block interval and returns nothing.
type fakeLog struct {
	mu sync.Mutex

	appends   []appendCall
	appendErr error

	groups    []string
	ensureErr error

	reads map[string][]readStep

	acks   []string
	ackErr error

	destroys   []string
	destroyErr error

	pingErr error
}

type appendCall struct {
	stream  string
	payload []byte
}

func newFakeLog() *fakeLog {
	return &fakeLog{reads: make(map[string][]readStep)}
}

// script queues ReadGroup responses for one consumer group.
func (f *fakeLog) script(group string, steps ...readStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[group] = append(f.reads[group], steps...)
}

func (f *fakeLog) Append(_ context.Context, streamName string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appends = append(f.appends, appendCall{stream: streamName, payload: payload})
	return fmt.Sprintf("%d-0", len(f.appends)), nil
}

func (f *fakeLog) EnsureGroup(_ context.Context, _, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.groups = append(f.groups, group)
	return nil
}

func (f *fakeLog) ReadGroup(ctx context.Context, _, group, _, _ string, _ int64, block time.Duration) ([]stream.Entry, error) {
	f.mu.Lock()
	steps := f.reads[group]
	if len(steps) > 0 {
		st := steps[0]
		f.reads[group] = steps[1:]
		f.mu.Unlock()
		return st.entries, st.err
	}
	f.mu.Unlock()

	if block > 0 {
		select {
		case <-time.After(block):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (f *fakeLog) Ack(_ context.Context, _, _ string, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acks = append(f.acks, ids...)
	return nil
}

func (f *fakeLog) DestroyGroup(_ context.Context, _, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroys = append(f.destroys, group)
	if f.destroyErr != nil {
		return f.destroyErr
	}
	return nil
}

func (f *fakeLog) Ping(context.Context) error { return f.pingErr }

func (f *fakeLog) Close() error { return nil }

func (f *fakeLog) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appends)
}

func (f *fakeLog) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acks...)
}

func (f *fakeLog) destroyedGroups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.destroys...)
}

func (f *fakeLog) createdGroups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.groups...)
}

// resultEntry marshals a ResultRecord into a stream entry the way workers
// publish them.
func resultEntry(t *testing.T, id string, rec model.ResultRecord) stream.Entry {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal result record: %v", err)
	}
	return stream.Entry{ID: id, Data: data}
}

func newTestOrchestrator(t *testing.T, log stream.Log, opts orchestrator.Options) *orchestrator.Orchestrator {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return orchestrator.New(log, logger, opts)
}
