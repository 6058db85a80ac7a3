package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func getHealthz(t *testing.T, srv *Server) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthzRedisUp(t *testing.T) {
	srv := newTestServer(t, newFakeLog())

	rec := getHealthz(t, srv)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Redis != "up" {
		t.Errorf("body = %+v, want status ok and redis up", body)
	}
}

func TestHealthzRedisDown(t *testing.T) {
	log := newFakeLog()
	log.pingErr = errors.New("connection refused")
	srv := newTestServer(t, log)

	rec := getHealthz(t, srv)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Redis != "down" {
		t.Errorf("redis = %q, want down", body.Redis)
	}
}
