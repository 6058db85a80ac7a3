package api

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// handleHealthz reports liveness plus shared-log reachability. The service
// cannot do anything without Redis, so a failed ping degrades the whole
// check to 503.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	redisStatus := "up"
	code := http.StatusOK
	if err := s.log.Ping(r.Context()); err != nil {
		status = "degraded"
		redisStatus = "down"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, healthResponse{Status: status, Redis: redisStatus})
}
