package model

// Orchestration outcome statuses.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeTimeout = "timeout"
)

// Summary holds the aggregate counts for one orchestration request.
type Summary struct {
	Expected  int `json:"expected"`
	Received  int `json:"received"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// AggregateOutcome is the reduction of every result collected within one
// correlation window. ByOrigin holds the last record seen per origin;
// origins that never answered are absent from the map.
type AggregateOutcome struct {
	Status   string                  `json:"status"`
	ByOrigin map[string]ResultRecord `json:"by_origin"`
	Summary  Summary                 `json:"summary"`
}
