package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/learngate/learngate-lms/internal/apperr"
	"github.com/learngate/learngate-lms/internal/attempt"
	"github.com/learngate/learngate-lms/internal/rbac"
	"github.com/learngate/learngate-lms/internal/scoring"
)

// POST /attempts  { "quiz_id": "..." }
// The learner id comes from the token, never the body.
func BeginAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuizID string `json:"quiz_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.QuizID == "" {
			http.Error(w, "quiz_id required", 400)
			return
		}
		learnerID := rbac.SubjectFromContext(r.Context())
		a, err := svc.Begin(r.Context(), learnerID, req.QuizID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/responses
func SaveResponsesHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var resp map[string]scoring.Response
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		learnerID := rbac.SubjectFromContext(r.Context())
		a, err := svc.SaveResponses(r.Context(), learnerID, id, resp)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/submit
// { "responses": {...}, "time_spent_sec": 123 }
// time_spent_sec is a hint only; the server clock wins.
func SubmitAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var req struct {
			Responses    map[string]scoring.Response `json:"responses"`
			TimeSpentSec int                         `json:"time_spent_sec"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		learnerID := rbac.SubjectFromContext(r.Context())
		a, err := svc.Submit(r.Context(), learnerID, id, req.Responses, req.TimeSpentSec)
		if err != nil {
			// strict timing still grades the saved answers; hand both the
			// kind and the graded attempt back
			if errors.Is(err, apperr.E(apperr.KindExpiredAttempt, "")) && a.ID != "" {
				writeJSON(w, http.StatusConflict, map[string]interface{}{
					"error":   string(apperr.KindExpiredAttempt),
					"attempt": a,
				})
				return
			}
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		callerID := rbac.SubjectFromContext(r.Context())
		viewAll := rbac.HasPerm(r.Context(), "attempt:view-all")
		a, err := svc.Get(r.Context(), callerID, viewAll, id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts?quiz_id=...&learner_id=...&status=...&limit=50&offset=0
// Callers without attempt:view-all are pinned to their own attempts.
func ListAttemptsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID := strings.TrimSpace(r.URL.Query().Get("learner_id"))
		if !rbac.HasPerm(r.Context(), "attempt:view-all") {
			learnerID = rbac.SubjectFromContext(r.Context())
		}
		list, err := svc.List(r.Context(), attempt.ListOpts{
			QuizID:    strings.TrimSpace(r.URL.Query().Get("quiz_id")),
			LearnerID: learnerID,
			Status:    strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /attempts/{attemptID}/grading
// { "items": { "<question_id>": {"points": 4, "comment": "..."} } }
func ApplyManualGradesHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var req struct {
			Items map[string]attempt.ManualGradeInput `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), 400)
			return
		}
		gradedBy := rbac.SubjectFromContext(r.Context())
		a, err := svc.ApplyManualGrades(r.Context(), id, req.Items, gradedBy)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
