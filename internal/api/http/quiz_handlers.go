package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/learngate/learngate-lms/internal/quiz"
	"github.com/learngate/learngate-lms/internal/rbac"
)

// POST /quizzes is the author surface. Runs pre-test link resolution before the
// definition is stored, so the gate never re-discovers counterparts.
func UpsertQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if q.ID == "" || q.SubjectID == "" {
			http.Error(w, "id and subject_id required", 400)
			return
		}
		if err := quiz.ResolvePreTestLink(r.Context(), store, &q); err != nil {
			writeErr(w, err)
			return
		}
		if err := store.PutQuiz(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /quizzes/{quizID}. Answers are stripped unless the caller may grade.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !rbac.HasPerm(r.Context(), "attempt:grade") {
			q = quiz.Sanitize(q)
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /quizzes?subject_id=...&kind=...
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := quiz.ListOpts{
			SubjectID: strings.TrimSpace(r.URL.Query().Get("subject_id")),
			Kind:      quiz.Kind(strings.TrimSpace(r.URL.Query().Get("kind"))),
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		// students only see published quizzes
		if !rbac.HasPerm(r.Context(), "quiz:create") {
			opts.Published = true
		}
		list, err := store.ListQuizzes(r.Context(), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		for i := range list {
			list[i] = quiz.Sanitize(list[i])
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /subjects
func UpsertSubjectHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s quiz.Subject
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if s.ID == "" {
			http.Error(w, "id required", 400)
			return
		}
		if s.Units <= 0 {
			s.Units = 1
		}
		if err := store.PutSubject(r.Context(), s); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
