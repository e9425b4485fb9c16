package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/learngate/learngate-lms/internal/attempt"
	"github.com/learngate/learngate-lms/internal/audit"
	"github.com/learngate/learngate-lms/internal/gate"
	"github.com/learngate/learngate-lms/internal/grades"
	"github.com/learngate/learngate-lms/internal/lesson"
	"github.com/learngate/learngate-lms/internal/quiz"
	"github.com/learngate/learngate-lms/internal/rbac"
	"github.com/learngate/learngate-lms/internal/remedial"
	"github.com/learngate/learngate-lms/internal/scoring"
)

type testEnv struct {
	quizzes   quiz.Store
	lessons   lesson.Store
	attempts  attempt.Store
	remedials remedial.Store
	svc       *attempt.Service
	gate      *gate.Gate
	agg       *grades.Aggregator
}

// asUser injects the identity the JWT middleware would have attached.
func asUser(sub, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := rbac.WithSubject(r.Context(), sub)
			ctx = rbac.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		quizzes:   quiz.NewInMemoryStore(),
		lessons:   lesson.NewInMemoryStore(),
		attempts:  attempt.NewInMemoryStore(),
		remedials: remedial.NewInMemoryStore(),
	}
	rec := audit.NewMemoryRecorder()
	e.gate = gate.New(e.quizzes, e.lessons, e.attempts, rec)
	wf := remedial.NewWorkflow(e.remedials, rec, 7*24*time.Hour)
	e.svc = attempt.NewService(e.quizzes, e.attempts, e.gate, scoring.NewEngine(), wf, rec, 120, false)
	e.agg = grades.NewAggregator(e.quizzes, e.attempts)
	return e
}

// mount builds a router seen through one caller's identity.
func (e *testEnv) mount(sub, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(asUser(sub, role))
	r.Get("/quizzes/{quizID}", GetQuizHandler(e.quizzes))
	r.Get("/quizzes", ListQuizzesHandler(e.quizzes))
	r.Get("/quizzes/{quizID}/access", CheckAccessHandler(e.gate))
	r.Post("/attempts", BeginAttemptHandler(e.svc))
	r.Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(e.svc))
	r.Get("/attempts", ListAttemptsHandler(e.svc))
	r.Get("/grades/gwa", GWAHandler(e.agg))
	return r
}

func (e *testEnv) seedQuiz(t *testing.T) quiz.Quiz {
	t.Helper()
	q := quiz.Quiz{
		ID: "q1", SubjectID: "s1", Title: "Algebra", Kind: quiz.KindRegular,
		PassPercent: 75, Published: true,
		Questions: []quiz.Question{{
			ID: "1", Type: quiz.TypeChoice, Points: 10, Position: 1,
			Options: []quiz.Option{{ID: "a", Correct: true}, {ID: "b"}},
		}},
	}
	if err := e.quizzes.PutQuiz(context.Background(), q); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return q
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestQuizSanitizedForStudents(t *testing.T) {
	e := newTestEnv(t)
	e.seedQuiz(t)

	w := do(t, e.mount("lrn", "student"), "GET", "/quizzes/q1", "")
	if w.Code != 200 {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body)
	}
	if strings.Contains(w.Body.String(), `"correct":true`) {
		t.Fatalf("answer key leaked to a student: %s", w.Body)
	}

	w = do(t, e.mount("tch", "teacher"), "GET", "/quizzes/q1", "")
	if !strings.Contains(w.Body.String(), `"correct":true`) {
		t.Fatalf("graders need the answer key: %s", w.Body)
	}
}

func TestListQuizzesHidesDraftsFromStudents(t *testing.T) {
	e := newTestEnv(t)
	e.seedQuiz(t)
	draft := quiz.Quiz{ID: "q2", SubjectID: "s1", Kind: quiz.KindRegular, Published: false}
	if err := e.quizzes.PutQuiz(context.Background(), draft); err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	var asStudent []quiz.Quiz
	w := do(t, e.mount("lrn", "student"), "GET", "/quizzes", "")
	if err := json.Unmarshal(w.Body.Bytes(), &asStudent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(asStudent) != 1 || asStudent[0].ID != "q1" {
		t.Fatalf("students must only see published quizzes, got %v", asStudent)
	}

	var asTeacher []quiz.Quiz
	w = do(t, e.mount("tch", "teacher"), "GET", "/quizzes", "")
	if err := json.Unmarshal(w.Body.Bytes(), &asTeacher); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(asTeacher) != 2 {
		t.Fatalf("teachers see drafts too, got %v", asTeacher)
	}
}

func TestBeginAndSubmitRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	e.seedQuiz(t)
	h := e.mount("lrn", "student")

	w := do(t, h, "POST", "/attempts", `{"quiz_id":"q1"}`)
	if w.Code != 200 {
		t.Fatalf("begin: want 200, got %d: %s", w.Code, w.Body)
	}
	var a attempt.Attempt
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Status != attempt.StatusInProgress || a.LearnerID != "lrn" {
		t.Fatalf("unexpected attempt %+v", a)
	}

	w = do(t, h, "POST", "/attempts/"+a.ID+"/submit",
		`{"responses":{"1":{"option_id":"a"}},"time_spent_sec":30}`)
	if w.Code != 200 {
		t.Fatalf("submit: want 200, got %d: %s", w.Code, w.Body)
	}
	var out attempt.Attempt
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Passed || out.Percentage != 100 {
		t.Fatalf("want 100%% pass, got %+v", out)
	}
}

func TestBeginDeniedMapsTo403WithReason(t *testing.T) {
	e := newTestEnv(t)
	q := e.seedQuiz(t)
	q.Published = false
	if err := e.quizzes.PutQuiz(context.Background(), q); err != nil {
		t.Fatalf("unpublish: %v", err)
	}

	w := do(t, e.mount("lrn", "student"), "POST", "/attempts", `{"quiz_id":"q1"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d: %s", w.Code, w.Body)
	}
	var body errBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "access_denied" || body.Reason != gate.ReasonUnpublished {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestAccessCheckEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.seedQuiz(t)

	w := do(t, e.mount("lrn", "student"), "GET", "/quizzes/q1/access", "")
	if w.Code != 200 {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body)
	}
	var d gate.Decision
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("published regular quiz should be accessible, got %+v", d)
	}

	w = do(t, e.mount("lrn", "student"), "GET", "/quizzes/ghost/access", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown quiz: want 404, got %d", w.Code)
	}
}

func TestListAttemptsPinsStudentsToTheirOwn(t *testing.T) {
	e := newTestEnv(t)
	e.seedQuiz(t)
	ctx := context.Background()

	for _, lrn := range []string{"alice", "bob"} {
		a, err := e.svc.Begin(ctx, lrn, "q1")
		if err != nil {
			t.Fatalf("begin %s: %v", lrn, err)
		}
		if _, err := e.svc.Submit(ctx, lrn, a.ID, map[string]scoring.Response{
			"1": {OptionID: "a"},
		}, 0); err != nil {
			t.Fatalf("submit %s: %v", lrn, err)
		}
	}

	// alice asking for bob's attempts still gets her own
	w := do(t, e.mount("alice", "student"), "GET", "/attempts?learner_id=bob", "")
	var list []attempt.Attempt
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].LearnerID != "alice" {
		t.Fatalf("students are pinned to their own attempts, got %v", list)
	}

	// a teacher can scope to any learner
	w = do(t, e.mount("tch", "teacher"), "GET", "/attempts?learner_id=bob", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].LearnerID != "bob" {
		t.Fatalf("teachers scope freely, got %v", list)
	}
}

func TestGWAEndpoint(t *testing.T) {
	e := newTestEnv(t)
	if err := e.quizzes.PutSubject(context.Background(), quiz.Subject{ID: "s1", Name: "Math", Units: 3}); err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	e.seedQuiz(t)
	ctx := context.Background()

	a, err := e.svc.Begin(ctx, "lrn", "q1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := e.svc.Submit(ctx, "lrn", a.ID, map[string]scoring.Response{
		"1": {OptionID: "a"},
	}, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	w := do(t, e.mount("lrn", "student"), "GET", "/grades/gwa", "")
	if w.Code != 200 {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body)
	}
	var body map[string]float64
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["gwa"] != 1.00 {
		t.Fatalf("100%% in the only subject is a 1.00, got %v", body)
	}
}
