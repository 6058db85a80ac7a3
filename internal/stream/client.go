package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// payloadField is the single stream field carrying the JSON payload.
const payloadField = "data"

// Client implements Log against a Redis server.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to the Redis server at redisURL and verifies the
// connection with a ping. The read timeout is raised above the longest
// blocking read a worker issues (60s) so long polls are not cut off by the
// client itself.
func NewClient(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.ReadTimeout = 65 * time.Second

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Append adds payload to stream under the "data" field and returns the
// broker-assigned entry ID.
func (c *Client) Append(ctx context.Context, stream string, payload []byte) (string, error) {
	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{payloadField: payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", stream, err)
	}
	return id, nil
}

// EnsureGroup creates group on stream starting at the tail ("$"), creating
// the stream if it does not exist yet. A group that already exists is left
// untouched.
func (c *Client) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create group %s on %s: %w", group, stream, err)
	}
	return nil
}

// isBusyGroup reports whether err is Redis telling us the group already
// exists, which EnsureGroup treats as success.
func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// ReadGroup reads up to count entries for consumer in group, starting from
// ">" (new entries) or "0" (this consumer's pending entries). An exhausted
// block window returns (nil, nil).
func (c *Client) ReadGroup(ctx context.Context, stream, group, consumer, from string, count int64, block time.Duration) ([]Entry, error) {
	res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, from},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read group %s on %s: %w", group, stream, err)
	}

	var entries []Entry
	for _, str := range res {
		for _, msg := range str.Messages {
			var data []byte
			if v, ok := msg.Values[payloadField].(string); ok {
				data = []byte(v)
			}
			entries = append(entries, Entry{ID: msg.ID, Data: data})
		}
	}
	return entries, nil
}

// Ack marks entries as processed for group.
func (c *Client) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.rdb.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("ack on %s: %w", stream, err)
	}
	return nil
}

// DestroyGroup removes group from stream. Redis reports destroying a missing
// group as a zero count, not an error, so this is safe to call twice.
func (c *Client) DestroyGroup(ctx context.Context, stream, group string) error {
	if err := c.rdb.XGroupDestroy(ctx, stream, group).Err(); err != nil {
		return fmt.Errorf("destroy group %s on %s: %w", group, stream, err)
	}
	return nil
}

// Ping reports whether the Redis server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
