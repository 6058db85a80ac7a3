package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/seantiz/geodig/internal/model"
)

// readBatch caps how many entries one poll pulls off the result stream.
const readBatch = 10

// Collect polls the result stream through win until expectedCount records
// tagged with the window's correlation ID have arrived, the deadline passes,
// or ctx is cancelled. Each poll is a single bounded blocking read, so the
// loop re-checks the deadline at least once per poll interval and never
// returns later than deadline plus one interval.
//
// Every entry that decodes is acknowledged whether or not it matches, so
// entries belonging to other in-flight requests never pile up on this
// window's cursor. Entries that fail to decode are logged and skipped.
// Matched records are returned in the order they were observed on the
// stream; duplicate origins are retained. onMatch, when non-nil, fires for
// each matched record and must not block.
//
// Coming back with fewer than expectedCount records is not an error; it is
// the timeout or partial signal the aggregator turns into an outcome. Only
// a failed stream read returns an error, alongside whatever was collected
// before it.
func (o *Orchestrator) Collect(ctx context.Context, win *Window, expectedCount int, deadline time.Time, onMatch func(model.ResultRecord)) ([]model.ResultRecord, error) {
	var results []model.ResultRecord

	for len(results) < expectedCount {
		if !time.Now().Before(deadline) {
			o.logger.Warn("collection deadline reached",
				"correlation_id", win.correlationID,
				"received", len(results),
				"expected", expectedCount,
			)
			break
		}

		entries, err := o.log.ReadGroup(ctx, o.results, win.group, win.consumer, ">", readBatch, o.poll)
		if err != nil {
			if ctx.Err() != nil {
				// Caller gone. Hand back what arrived so the window still
				// resolves to an outcome.
				o.logger.Warn("collection cancelled",
					"correlation_id", win.correlationID,
					"received", len(results),
					"expected", expectedCount,
				)
				return results, nil
			}
			return results, fmt.Errorf("read results: %w", err)
		}

		for _, entry := range entries {
			var rec model.ResultRecord
			if err := json.Unmarshal(entry.Data, &rec); err != nil {
				o.logger.Warn("skipping undecodable result entry",
					"entry_id", entry.ID,
					"error", err,
				)
				continue
			}

			if err := o.log.Ack(ctx, o.results, win.group, entry.ID); err != nil {
				o.logger.Warn("ack failed",
					"entry_id", entry.ID,
					"error", err,
				)
			}

			matched := rec.CorrelationID == win.correlationID
			resultsCollected.WithLabelValues(strconv.FormatBool(matched)).Inc()
			if !matched {
				continue
			}

			results = append(results, rec)
			o.logger.Info("collected result",
				"correlation_id", win.correlationID,
				"origin", rec.Origin,
				"received", len(results),
				"expected", expectedCount,
			)
			if onMatch != nil {
				onMatch(rec)
			}
		}
	}

	return results, nil
}
