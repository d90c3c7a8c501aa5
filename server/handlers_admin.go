package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// announceRequest is the /admin/announce body.
type announceRequest struct {
	Message string `json:"message"`
}

// HandleAdminAnnounce posts a message to the live chat immediately, bypassing
// the announcer's volume and interval gates. Protected by adminAuth upstream.
func (h *Handlers) HandleAdminAnnounce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.announcer == nil {
		http.Error(w, "announcer not running", http.StatusServiceUnavailable)
		return
	}
	var req announceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}
	if err := h.announcer.Fire(r.Context(), req.Message); err != nil {
		http.Error(w, "post failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
}
