package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/learngate/learngate-lms/internal/lesson"
	"github.com/learngate/learngate-lms/internal/rbac"
)

// POST /lessons is the author surface; validates the prerequisite chain against
// the unit's siblings before storing.
func UpsertLessonHandler(store lesson.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u lesson.Unit
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if u.ID == "" || u.SubjectID == "" {
			http.Error(w, "id and subject_id required", 400)
			return
		}
		siblings, err := store.ListUnits(r.Context(), u.SubjectID)
		if err != nil {
			writeErr(w, err)
			return
		}
		merged := mergeUnit(siblings, u)
		if err := lesson.ValidateChain(merged); err != nil {
			writeErr(w, err)
			return
		}
		if err := store.PutUnit(r.Context(), u); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// GET /lessons?subject_id=...
func ListLessonsHandler(store lesson.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := strings.TrimSpace(r.URL.Query().Get("subject_id"))
		if subjectID == "" {
			http.Error(w, "subject_id required", 400)
			return
		}
		units, err := store.ListUnits(r.Context(), subjectID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, units)
	}
}

// POST /lessons/{lessonID}/complete is idempotent; repeating it returns the
// original completion record.
func CompleteLessonHandler(store lesson.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessonID := chi.URLParam(r, "lessonID")
		learnerID := rbac.SubjectFromContext(r.Context())
		p, err := store.MarkComplete(r.Context(), learnerID, lessonID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// GET /subjects/{subjectID}/progress
func LessonProgressHandler(store lesson.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := chi.URLParam(r, "subjectID")
		learnerID := rbac.SubjectFromContext(r.Context())
		if rbac.HasPerm(r.Context(), "attempt:view-all") {
			if q := strings.TrimSpace(r.URL.Query().Get("learner_id")); q != "" {
				learnerID = q
			}
		}
		c, err := store.CountProgress(r.Context(), learnerID, subjectID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func mergeUnit(units []lesson.Unit, u lesson.Unit) []lesson.Unit {
	out := make([]lesson.Unit, 0, len(units)+1)
	for _, x := range units {
		if x.ID != u.ID {
			out = append(out, x)
		}
	}
	return append(out, u)
}
