package server

import (
	"encoding/json"
	"net/http"
)

// statusResponse is the /status payload.
type statusResponse struct {
	VideoID         string `json:"video_id"`
	StreamLive      *bool  `json:"stream_live,omitempty"`
	RowStoreBackend string `json:"rowstore_backend"`
	CredentialPool  int    `json:"credential_pool"`
	ActivePomodoros int    `json:"active_pomodoros"`
	ChatLinesSince  int    `json:"chat_lines_since_announce"`
	MirrorEnabled   bool   `json:"twitch_mirror_enabled"`
}

// HandleStatus reports a coarse snapshot of the bot for dashboards. Live
// status is omitted rather than guessed when the chat client isn't up.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		VideoID:         h.cfg.VideoID,
		RowStoreBackend: h.cfg.RowStoreBackend,
		CredentialPool:  len(h.cfg.Credentials),
		MirrorEnabled:   h.cfg.MirrorEnabled(),
	}
	if h.live != nil {
		if live, err := h.live.IsLive(r.Context()); err == nil {
			resp.StreamLive = &live
		}
	}
	if h.pomos != nil {
		resp.ActivePomodoros = h.pomos.Active()
	}
	if h.announcer != nil {
		resp.ChatLinesSince = h.announcer.ChatLines()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
