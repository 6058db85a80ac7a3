package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seantiz/geodig/internal/model"
)

// PublishTask appends task to the shared task stream and returns the
// log-assigned entry ID. Validation stops at the two fields every consumer
// needs: a correlation ID and a domain. A write failure aborts the whole
// orchestration; retries belong to the log client, not here.
func (o *Orchestrator) PublishTask(ctx context.Context, task model.Task) (string, error) {
	if task.CorrelationID == "" || task.Domain == "" {
		return "", errors.New("task requires a correlation_id and a domain")
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	id, err := o.log.Append(ctx, o.tasks, payload)
	if err != nil {
		return "", fmt.Errorf("publish task: %w", err)
	}
	tasksPublished.Inc()

	o.logger.Info("published task",
		"correlation_id", task.CorrelationID,
		"domain", task.Domain,
		"entry_id", id,
	)
	return id, nil
}
