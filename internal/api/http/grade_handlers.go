package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/learngate/learngate-lms/internal/grades"
	"github.com/learngate/learngate-lms/internal/rbac"
)

func targetLearner(r *http.Request) string {
	if rbac.HasPerm(r.Context(), "grades:view-all") {
		if q := strings.TrimSpace(r.URL.Query().Get("learner_id")); q != "" {
			return q
		}
	}
	return rbac.SubjectFromContext(r.Context())
}

// GET /grades/subjects/{subjectID}
func SubjectGradeHandler(agg *grades.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID := chi.URLParam(r, "subjectID")
		sg, err := agg.SubjectGrade(r.Context(), targetLearner(r), subjectID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sg)
	}
}

// GET /grades/gwa
func GWAHandler(agg *grades.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gwa, err := agg.OverallWeightedAverage(r.Context(), targetLearner(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]float64{"gwa": gwa})
	}
}
