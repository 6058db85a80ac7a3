package orchestrator_test

import (
	"testing"

	"github.com/seantiz/geodig/internal/model"
	"github.com/seantiz/geodig/internal/orchestrator"
)

func rec(origin, status, errMsg string) model.ResultRecord {
	return model.ResultRecord{
		CorrelationID: corrID,
		Origin:        origin,
		Status:        status,
		Error:         errMsg,
	}
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		results  []model.ResultRecord
		expected int
		want     string
	}{
		{"nothing arrived", nil, 3, model.OutcomeTimeout},
		{"nothing expected", nil, 0, model.OutcomeTimeout},
		{"results but zero expected", []model.ResultRecord{rec("a", model.StatusSuccess, "")}, 0, model.OutcomeTimeout},
		{"some arrived", []model.ResultRecord{rec("a", model.StatusSuccess, "")}, 3, model.OutcomePartial},
		{"all arrived", []model.ResultRecord{
			rec("a", model.StatusSuccess, ""),
			rec("b", model.StatusSuccess, ""),
		}, 2, model.OutcomeSuccess},
		{"more than expected", []model.ResultRecord{
			rec("a", model.StatusSuccess, ""),
			rec("a", model.StatusSuccess, ""),
			rec("b", model.StatusSuccess, ""),
		}, 2, model.OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orchestrator.Aggregate(tt.results, tt.expected)
			if got.Status != tt.want {
				t.Errorf("status = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestAggregateTimeoutHasEmptyByOrigin(t *testing.T) {
	out := orchestrator.Aggregate(nil, 3)

	if out.Status != model.OutcomeTimeout {
		t.Errorf("status = %q, want timeout", out.Status)
	}
	if len(out.ByOrigin) != 0 {
		t.Errorf("by_origin has %d entries, want 0", len(out.ByOrigin))
	}
	want := model.Summary{Expected: 3, Received: 0, Succeeded: 0, Failed: 0}
	if out.Summary != want {
		t.Errorf("summary = %+v, want %+v", out.Summary, want)
	}
}

// Two of three origins answer in time: partial outcome, per-origin map holds
// exactly the answering origins, and nothing counts as failed.
func TestAggregatePartialTwoOfThree(t *testing.T) {
	results := []model.ResultRecord{
		rec("us-east-1", model.StatusSuccess, ""),
		rec("eu-west-1", model.StatusSuccess, ""),
	}

	out := orchestrator.Aggregate(results, 3)

	if out.Status != model.OutcomePartial {
		t.Errorf("status = %q, want partial", out.Status)
	}
	if len(out.ByOrigin) != 2 {
		t.Errorf("by_origin has %d entries, want 2", len(out.ByOrigin))
	}
	for _, origin := range []string{"us-east-1", "eu-west-1"} {
		if _, ok := out.ByOrigin[origin]; !ok {
			t.Errorf("by_origin missing %q", origin)
		}
	}
	if _, ok := out.ByOrigin["asia-south-1"]; ok {
		t.Error("by_origin contains an origin that never answered")
	}
	want := model.Summary{Expected: 3, Received: 2, Succeeded: 2, Failed: 0}
	if out.Summary != want {
		t.Errorf("summary = %+v, want %+v", out.Summary, want)
	}
}

// A worker-reported failure still satisfies the count: the request succeeds
// while the summary records the failure.
func TestAggregateWorkerFailureStillSuccess(t *testing.T) {
	results := []model.ResultRecord{
		rec("us-east-1", model.StatusSuccess, ""),
		rec("eu-west-1", model.StatusFailed, "all DNS lookups failed"),
	}

	out := orchestrator.Aggregate(results, 2)

	if out.Status != model.OutcomeSuccess {
		t.Errorf("status = %q, want success", out.Status)
	}
	want := model.Summary{Expected: 2, Received: 2, Succeeded: 1, Failed: 1}
	if out.Summary != want {
		t.Errorf("summary = %+v, want %+v", out.Summary, want)
	}
}

func TestAggregateUnknownStatusCountsFailed(t *testing.T) {
	results := []model.ResultRecord{
		rec("us-east-1", "degraded", ""),
	}

	out := orchestrator.Aggregate(results, 1)

	if out.Summary.Succeeded != 0 {
		t.Errorf("succeeded = %d, want 0 for a worker-defined non-success status", out.Summary.Succeeded)
	}
	if out.Summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", out.Summary.Failed)
	}
}

func TestAggregateDuplicateOriginLastWriteWins(t *testing.T) {
	results := []model.ResultRecord{
		rec("us-east-1", model.StatusSuccess, ""),
		rec("us-east-1", model.StatusFailed, "second answer"),
	}

	out := orchestrator.Aggregate(results, 2)

	if len(out.ByOrigin) != 1 {
		t.Fatalf("by_origin has %d entries, want 1", len(out.ByOrigin))
	}
	if got := out.ByOrigin["us-east-1"].Status; got != model.StatusFailed {
		t.Errorf("by_origin[us-east-1].Status = %q, want the last-observed record", got)
	}

	// The summary still counts every record, duplicates included.
	want := model.Summary{Expected: 2, Received: 2, Succeeded: 1, Failed: 1}
	if out.Summary != want {
		t.Errorf("summary = %+v, want %+v", out.Summary, want)
	}
	if out.Status != model.OutcomeSuccess {
		t.Errorf("status = %q, want success (count satisfied)", out.Status)
	}
}
