package model

import (
	"encoding/json"
	"time"
)

// Result status markers. Workers may emit other strings; the aggregator
// only interprets StatusSuccess.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Task is the unit of work published once per orchestration request onto the
// shared task stream. Every worker group subscribed to the stream receives
// its own copy, so the task does not name the origins expected to answer.
// Tasks are immutable after publish.
type Task struct {
	CorrelationID       string            `json:"correlation_id"`
	Domain              string            `json:"domain"`
	RecordTypes         []string          `json:"record_types"`
	CreatedAt           time.Time         `json:"created_at"`
	PropagationMetadata map[string]string `json:"propagation_metadata,omitempty"`
}

// ResultRecord is one worker's answer to a Task. CorrelationID is the sole
// join key back to the task. Payload is opaque to the orchestrator and
// carries whatever the worker produced; for DNS workers, the per-record-type
// lookup results.
type ResultRecord struct {
	CorrelationID    string          `json:"correlation_id"`
	Origin           string          `json:"origin"`
	Status           string          `json:"status"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	Error            string          `json:"error,omitempty"`
	ProcessingTimeMS float64         `json:"processing_time_ms"`
}
