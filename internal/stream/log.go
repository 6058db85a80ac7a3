// Package stream wraps Redis Streams as an append-only shared log with
// consumer-group reads. The orchestrator publishes tasks and collects results
// through it; workers consume tasks and publish results through the same
// interface. Entries carry a single opaque JSON payload under the "data"
// field so producers and consumers agree on one envelope.
package stream

import (
	"context"
	"time"
)

// Entry is one record read from a stream: the broker-assigned ID and the
// payload stored under the "data" field. Data is nil when the record has no
// such field; callers treat that as a decode failure and skip the entry.
type Entry struct {
	ID   string
	Data []byte
}

// Log is the shared-log surface the orchestrator and workers depend on.
// *Client implements it against Redis; tests substitute fakes.
type Log interface {
	// Append adds payload to stream and returns the assigned entry ID.
	Append(ctx context.Context, stream string, payload []byte) (string, error)

	// EnsureGroup creates a consumer group positioned at the stream tail,
	// creating the stream if needed. Calling it for an existing group is
	// not an error.
	EnsureGroup(ctx context.Context, stream, group string) error

	// ReadGroup reads up to count entries for consumer in group. from is
	// ">" for new entries or "0" for this consumer's pending entries.
	// block bounds how long a ">" read waits when the stream is idle;
	// negative means do not wait. A read that times out with nothing to
	// deliver returns (nil, nil).
	ReadGroup(ctx context.Context, stream, group, consumer, from string, count int64, block time.Duration) ([]Entry, error)

	// Ack marks entries as processed for group.
	Ack(ctx context.Context, stream, group string, ids ...string) error

	// DestroyGroup removes a consumer group. Destroying a group that does
	// not exist is not an error.
	DestroyGroup(ctx context.Context, stream, group string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	Close() error
}
