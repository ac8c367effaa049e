package api

import "net/http"

func (s *Server) handlePaginateStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":              s.stats.Snapshot(),
		"sessions":           s.sessions.Len(),
		"export_queue_depth": s.orchestrator.QueueDepth(),
	})
}
