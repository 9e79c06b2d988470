package web

import (
	"encoding/json"
	"net/http"
)

// handleMessages returns the visible transcript for the active session.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session_id": s.session.ID,
		"status":     s.session.Status(),
		"messages":   s.session.Messages(),
	})
}
