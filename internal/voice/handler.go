package voice

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) SignedURL(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		writeError(w, http.StatusInternalServerError, "missing AGENT_ID or XI_API_KEY environment variables")
		return
	}

	signedURL, err := h.client.SignedURL(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusBadGateway, "failed to get signed url")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"signedUrl": signedURL})
}

// AgentID exposes the public agent id for clients that connect without a
// signed URL.
func (h *Handler) AgentID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"agentId": h.client.AgentID()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
