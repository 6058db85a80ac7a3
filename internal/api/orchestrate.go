package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/seantiz/geodig/internal/model"
	"github.com/seantiz/geodig/internal/orchestrator"
	"github.com/seantiz/geodig/internal/telemetry"
)

const maxBodySize = 1 << 20 // 1 MB

// Fan-out shape applied when the caller leaves origins or record types empty.
var (
	defaultOrigins     = []string{"us-east-1", "eu-west-1", "asia-south-1"}
	defaultRecordTypes = []string{"A", "AAAA", "MX", "TXT", "NS"}
)

// orchestrateRequest is the JSON body for both orchestrate endpoints.
type orchestrateRequest struct {
	Domain      string   `json:"domain"`
	Origins     []string `json:"origins"`
	RecordTypes []string `json:"record_types"`
}

// orchestrateResponse is the 200 response for a synchronous orchestration.
type orchestrateResponse struct {
	CorrelationID string             `json:"correlation_id"`
	Domain        string             `json:"domain"`
	Status        string             `json:"status"`
	Message       string             `json:"message"`
	Results       orchestrateResults `json:"results"`
}

type orchestrateResults struct {
	ByOrigin map[string]model.ResultRecord `json:"by_origin"`
	Summary  model.Summary                 `json:"summary"`
}

// asyncResponse is the 202 response for a detached orchestration.
type asyncResponse struct {
	CorrelationID string   `json:"correlation_id"`
	Domain        string   `json:"domain"`
	Origins       []string `json:"origins"`
	ExpectedCount int      `json:"expected_count"`
	EventsURL     string   `json:"events_url"`
}

func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOrchestrateRequest(w, r)
	if !ok {
		return
	}

	res, err := s.orch.Orchestrate(r.Context(), req)
	if err != nil {
		s.logger.Error("orchestrate", "domain", req.Domain, "error", err)
		s.writeError(w, http.StatusInternalServerError, "orchestration failed")
		return
	}

	s.writeJSON(w, http.StatusOK, orchestrateResponse{
		CorrelationID: res.CorrelationID,
		Domain:        res.Domain,
		Status:        res.Outcome.Status,
		Message:       outcomeMessage(res.Outcome),
		Results: orchestrateResults{
			ByOrigin: res.Outcome.ByOrigin,
			Summary:  res.Outcome.Summary,
		},
	})
}

func (s *Server) handleOrchestrateAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOrchestrateRequest(w, r)
	if !ok {
		return
	}

	corrID := s.orch.OrchestrateAsync(req)

	s.writeJSON(w, http.StatusAccepted, asyncResponse{
		CorrelationID: corrID,
		Domain:        req.Domain,
		Origins:       req.Origins,
		ExpectedCount: len(req.Origins),
		EventsURL:     fmt.Sprintf("/v1/dns/orchestrate/%s/events", corrID),
	})
}

// decodeOrchestrateRequest parses and normalizes the request body shared by
// both orchestrate endpoints. On failure it writes the error response itself
// and returns ok=false.
func (s *Server) decodeOrchestrateRequest(w http.ResponseWriter, r *http.Request) (orchestrator.Request, bool) {
	var body orchestrateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return orchestrator.Request{}, false
	}

	if body.Domain == "" {
		s.writeError(w, http.StatusBadRequest, "domain is required")
		return orchestrator.Request{}, false
	}

	origins := body.Origins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	return orchestrator.Request{
		Domain:      body.Domain,
		Origins:     origins,
		RecordTypes: normalizeRecordTypes(body.RecordTypes),
		Metadata:    telemetry.Inject(r.Context()),
	}, true
}

// normalizeRecordTypes uppercases and deduplicates record types, keeping
// first-seen order. Empty or all-blank input falls back to the default set.
func normalizeRecordTypes(types []string) []string {
	if len(types) == 0 {
		return defaultRecordTypes
	}
	seen := make(map[string]bool, len(types))
	out := make([]string, 0, len(types))
	for _, rt := range types {
		rt = strings.ToUpper(strings.TrimSpace(rt))
		if rt == "" || seen[rt] {
			continue
		}
		seen[rt] = true
		out = append(out, rt)
	}
	if len(out) == 0 {
		return defaultRecordTypes
	}
	return out
}

// outcomeMessage renders the summary line reported alongside an outcome.
func outcomeMessage(o model.AggregateOutcome) string {
	switch o.Status {
	case model.OutcomeTimeout:
		return "No results received from workers"
	case model.OutcomePartial:
		return fmt.Sprintf("Received %d/%d results", o.Summary.Received, o.Summary.Expected)
	default:
		return fmt.Sprintf("Successfully processed %d origin lookups", o.Summary.Received)
	}
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
