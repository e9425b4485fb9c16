package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/learngate/learngate-lms/internal/gate"
	"github.com/learngate/learngate-lms/internal/rbac"
)

// GET /quizzes/{quizID}/access evaluates the progression rules without
// starting an attempt, so the UI can show or hide the start button.
func CheckAccessHandler(g *gate.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		learnerID := rbac.SubjectFromContext(r.Context())
		d, err := g.CanAccess(r.Context(), learnerID, quizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
