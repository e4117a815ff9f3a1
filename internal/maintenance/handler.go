package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"voicegate/internal/observability"
)

// CodePurger deletes invitation codes expired before the cutoff.
type CodePurger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// CleanupHandler serves the cron-triggered retention sweep for long-expired
// invitation codes. It is disabled unless a cron secret is configured.
type CleanupHandler struct {
	purger     CodePurger
	logger     *observability.Logger
	cronSecret string
	retention  time.Duration
	batchSize  int
}

func NewCleanupHandler(purger CodePurger, logger *observability.Logger, cronSecret string, retention time.Duration, batchSize int) *CleanupHandler {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &CleanupHandler{
		purger:     purger,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		retention:  retention,
		batchSize:  batchSize,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	cutoff := time.Now().UTC().Add(-h.retention)
	deleted, err := h.purger.DeleteExpiredBefore(r.Context(), cutoff, h.batchSize)
	if err != nil {
		h.logger.Error("invite_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}

	h.logger.Info("invite_cleanup_completed", map[string]any{
		"deleted_invitation_codes": deleted,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                   "ok",
		"deleted_invitation_codes": deleted,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
