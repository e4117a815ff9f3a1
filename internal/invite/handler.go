package invite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
)

const (
	maxJSONBodyBytes = 1 << 20
	maxCodeLength    = 50
	maxNameLength    = 100
)

// Store is the invitation-code persistence the handlers depend on.
type Store interface {
	GetByCode(ctx context.Context, code string) (Code, error)
	List(ctx context.Context) ([]Code, error)
	Create(ctx context.Context, input CodeInput) (Code, error)
	IncrementCallCount(ctx context.Context, code string) (bool, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type codeRequest struct {
	Code string `json:"code"`
}

// ValidateCode is the public redemption check: 404 for unknown codes, 400
// for expired or exhausted ones, and the holder's name on success.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeCodeRequest(w, r)
	if !ok {
		return
	}

	code, err := h.store.GetByCode(r.Context(), body.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "invalid invitation code")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to validate code")
		return
	}

	if !code.IsValid {
		if !time.Now().UTC().Before(code.ExpiresAt) {
			writeError(w, http.StatusBadRequest, "invitation code has expired")
			return
		}
		writeError(w, http.StatusBadRequest, "maximum number of calls reached")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"code":       code.Code,
		"first_name": code.FirstName,
		"last_name":  code.LastName,
	})
}

func (h *Handler) IncrementCode(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeCodeRequest(w, r)
	if !ok {
		return
	}

	found, err := h.store.IncrementCallCount(r.Context(), body.Code)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to increment code")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "invalid invitation code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.store.List(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list codes")
		return
	}

	writeJSON(w, http.StatusOK, codes)
}

func (h *Handler) CreateCode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input CodeInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" || utf8.RuneCountInString(input.Code) > maxCodeLength {
		writeError(w, http.StatusBadRequest, "code is required and must not exceed 50 characters")
		return
	}
	if input.ExpiresIn <= 0 {
		writeError(w, http.StatusBadRequest, "expires_in_days must be positive")
		return
	}
	if input.MaxCalls <= 0 {
		writeError(w, http.StatusBadRequest, "max_calls must be positive")
		return
	}
	if tooLong(input.FirstName) || tooLong(input.LastName) {
		writeError(w, http.StatusBadRequest, "names must not exceed 100 characters")
		return
	}

	if _, err := h.store.GetByCode(r.Context(), input.Code); err == nil {
		writeError(w, http.StatusConflict, "invitation code already exists")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create code")
		return
	}

	code, err := h.store.Create(r.Context(), input)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create code")
		return
	}

	writeJSON(w, http.StatusCreated, code)
}

func decodeCodeRequest(w http.ResponseWriter, r *http.Request) (codeRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body codeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return codeRequest{}, false
	}

	body.Code = strings.TrimSpace(body.Code)
	if body.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return codeRequest{}, false
	}

	return body, true
}

func tooLong(name *string) bool {
	return name != nil && utf8.RuneCountInString(*name) > maxNameLength
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
