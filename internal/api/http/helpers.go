package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/learngate/learngate-lms/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errBody struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeErr maps the engine's error kinds onto HTTP statuses with a
// machine-readable body.
func writeErr(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindAccessDenied, apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindAttemptLimitExceeded, apperr.KindExpiredAttempt:
		status = http.StatusConflict
	case apperr.KindDataIntegrity:
		status = http.StatusUnprocessableEntity
	}
	body := errBody{Error: string(kind), Message: err.Error()}
	if body.Error == "" {
		body.Error = "internal"
		body.Message = "internal error"
	}
	body.Reason = apperr.ReasonOf(err)
	writeJSON(w, status, body)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
