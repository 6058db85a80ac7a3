package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/geodig/internal/model"
	"github.com/seantiz/geodig/internal/orchestrator"
)

func TestStatsEmpty(t *testing.T) {
	srv := newTestServer(t, newFakeLog())

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap orchestrator.StatsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.Total != 0 || snap.InFlight != 0 {
		t.Errorf("snapshot = %+v, want zero counters", snap)
	}
}

func TestStatsCountsOrchestrations(t *testing.T) {
	log := newFakeLog(workerAnswer{origin: "us-east-1", status: model.StatusSuccess})
	srv := newTestServer(t, log)

	// One success, then one timeout once the fake has nothing left to serve.
	rec := postOrchestrate(t, srv, "/v1/dns/orchestrate",
		`{"domain":"example.org","origins":["us-east-1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first orchestrate status = %d, want 200", rec.Code)
	}
	log.setResults()
	rec = postOrchestrate(t, srv, "/v1/dns/orchestrate",
		`{"domain":"example.org","origins":["us-east-1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second orchestrate status = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	statsRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(statsRec, req)

	var snap orchestrator.StatsSnapshot
	if err := json.Unmarshal(statsRec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.Total != 2 {
		t.Errorf("total = %d, want 2", snap.Total)
	}
	if snap.ByStatus[model.OutcomeSuccess] != 1 {
		t.Errorf("success count = %d, want 1", snap.ByStatus[model.OutcomeSuccess])
	}
	if snap.ByStatus[model.OutcomeTimeout] != 1 {
		t.Errorf("timeout count = %d, want 1", snap.ByStatus[model.OutcomeTimeout])
	}
	if snap.InFlight != 0 {
		t.Errorf("in_flight = %d, want 0", snap.InFlight)
	}
	if snap.AvgDurationMS <= 0 {
		t.Errorf("avg_duration_ms = %f, want positive", snap.AvgDurationMS)
	}
}
