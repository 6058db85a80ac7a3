package orchestrator

import "github.com/seantiz/geodig/internal/model"

// Aggregate reduces collected records into the final outcome. Pure function,
// no I/O. Nothing arriving (or nothing expected) is a timeout; some but not
// all is partial; the expected count or more is success. The per-origin map
// keys on each record's origin with last write winning for duplicates, while
// the summary counts every record: succeeded for the worker success marker,
// failed for everything else including records carrying an error.
func Aggregate(results []model.ResultRecord, expectedCount int) model.AggregateOutcome {
	byOrigin := make(map[string]model.ResultRecord, len(results))
	summary := model.Summary{
		Expected: expectedCount,
		Received: len(results),
	}

	for _, rec := range results {
		byOrigin[rec.Origin] = rec
		if rec.Status == model.StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	status := model.OutcomeSuccess
	switch {
	case expectedCount == 0 || len(results) == 0:
		status = model.OutcomeTimeout
	case len(results) < expectedCount:
		status = model.OutcomePartial
	}

	return model.AggregateOutcome{
		Status:   status,
		ByOrigin: byOrigin,
		Summary:  summary,
	}
}
