package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/learngate/learngate-lms/internal/rbac"
	"github.com/learngate/learngate-lms/internal/remedial"
)

type remedialView struct {
	remedial.Assignment
	Overdue bool `json:"overdue"`
}

// GET /remedials?quiz_id=...&status=...&learner_id=...
// Overdue is derived at read time, never stored.
func ListRemedialsHandler(store remedial.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID := strings.TrimSpace(r.URL.Query().Get("learner_id"))
		if !rbac.HasPerm(r.Context(), "remedial:view-all") {
			learnerID = rbac.SubjectFromContext(r.Context())
		}
		list, err := store.List(r.Context(), remedial.ListOpts{
			LearnerID: learnerID,
			QuizID:    strings.TrimSpace(r.URL.Query().Get("quiz_id")),
			Status:    strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		now := time.Now().Unix()
		out := make([]remedialView, 0, len(list))
		for _, a := range list {
			out = append(out, remedialView{Assignment: a, Overdue: a.Overdue(now)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
