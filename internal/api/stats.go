package api

import (
	"net/http"
)

// handleGetStats serves the in-memory orchestration counters. The snapshot
// type carries its own JSON tags, so it goes out as-is.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.orch.Stats())
}
