package gate

import (
	"context"
	"testing"

	"github.com/learngate/learngate-lms/internal/audit"
	"github.com/learngate/learngate-lms/internal/lesson"
	"github.com/learngate/learngate-lms/internal/quiz"
)

// fakeAttempts serves canned best-completed results per quiz id.
type fakeAttempts struct {
	best      map[string]struct { // quizID -> outcome
		pct    float64
		passed bool
	}
	completed map[string]int
}

func (f *fakeAttempts) CompletedCount(_ context.Context, _, quizID string) (int, error) {
	return f.completed[quizID], nil
}

func (f *fakeAttempts) BestCompleted(_ context.Context, _, quizID string) (float64, bool, bool, error) {
	b, ok := f.best[quizID]
	return b.pct, b.passed, ok, nil
}

type fixture struct {
	quizzes  quiz.Store
	lessons  lesson.Store
	attempts *fakeAttempts
	rec      *audit.MemoryRecorder
	gate     *Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		quizzes: quiz.NewInMemoryStore(),
		lessons: lesson.NewInMemoryStore(),
		attempts: &fakeAttempts{
			best: map[string]struct {
				pct    float64
				passed bool
			}{},
			completed: map[string]int{},
		},
		rec: audit.NewMemoryRecorder(),
	}
	f.gate = New(f.quizzes, f.lessons, f.attempts, f.rec)
	return f
}

func (f *fixture) putQuiz(t *testing.T, q quiz.Quiz) {
	t.Helper()
	if err := f.quizzes.PutQuiz(context.Background(), q); err != nil {
		t.Fatalf("put quiz: %v", err)
	}
}

func (f *fixture) putLessons(t *testing.T, subjectID string, n int) []lesson.Unit {
	t.Helper()
	units := make([]lesson.Unit, n)
	for i := range units {
		units[i] = lesson.Unit{
			ID:        subjectID + "-l" + string(rune('1'+i)),
			SubjectID: subjectID,
			Position:  i + 1,
			Published: true,
		}
		if err := f.lessons.PutUnit(context.Background(), units[i]); err != nil {
			t.Fatalf("put unit: %v", err)
		}
	}
	return units
}

func TestUnpublishedQuizDenied(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "q1", Kind: quiz.KindRegular, Published: false})

	d, err := f.gate.CanAccess(context.Background(), "lrn", "q1")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if d.Allowed || d.Reason != ReasonUnpublished {
		t.Fatalf("want denied unpublished, got %+v", d)
	}
}

func TestPreTestSingleShot(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "pre", Kind: quiz.KindPreTest, Published: true})

	d, err := f.gate.CanAccess(context.Background(), "lrn", "pre")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("fresh pre-test should be allowed, got %+v", d)
	}

	f.attempts.best["pre"] = struct {
		pct    float64
		passed bool
	}{pct: 62.5, passed: false}

	d, err = f.gate.CanAccess(context.Background(), "lrn", "pre")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if d.Allowed || d.Reason != ReasonAlreadyTaken {
		t.Fatalf("want already_taken, got %+v", d)
	}
	if d.PreTestScore == nil || *d.PreTestScore != 62.5 {
		t.Fatalf("want stored score 62.5, got %v", d.PreTestScore)
	}
}

func TestPostTestOpensOnPassedPreTest(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "post", SubjectID: "s1", Kind: quiz.KindPostTest, PreTestID: "pre", Published: true})
	f.putLessons(t, "s1", 3)
	f.attempts.best["pre"] = struct {
		pct    float64
		passed bool
	}{pct: 90, passed: true}

	d, err := f.gate.CanAccess(context.Background(), "lrn", "post")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("passed pre-test should open the post-test, got %+v", d)
	}
}

func TestPostTestDeniedUntilLessonsDone(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "post", SubjectID: "s1", Kind: quiz.KindPostTest, PreTestID: "pre", Published: true})
	units := f.putLessons(t, "s1", 3)
	// pre-test taken but failed
	f.attempts.best["pre"] = struct {
		pct    float64
		passed bool
	}{pct: 40, passed: false}

	ctx := context.Background()
	for _, u := range units[:2] {
		if _, err := f.lessons.MarkComplete(ctx, "lrn", u.ID); err != nil {
			t.Fatalf("mark complete: %v", err)
		}
	}

	d, err := f.gate.CanAccess(ctx, "lrn", "post")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if d.Allowed || d.Reason != ReasonLessonsRequired {
		t.Fatalf("want lessons_required, got %+v", d)
	}
	if d.LessonsCompleted != 2 || d.LessonsTotal != 3 {
		t.Fatalf("want 2/3 lessons, got %d/%d", d.LessonsCompleted, d.LessonsTotal)
	}

	if _, err := f.lessons.MarkComplete(ctx, "lrn", units[2].ID); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	d, err = f.gate.CanAccess(ctx, "lrn", "post")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("all lessons done should open the post-test, got %+v", d)
	}
}

func TestPostTestRequiresPreTestFirst(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "post", SubjectID: "s1", Kind: quiz.KindPostTest, PreTestID: "pre", Published: true})
	f.putLessons(t, "s1", 2)

	d, err := f.gate.CanAccess(context.Background(), "lrn", "post")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if d.Allowed || d.Reason != ReasonPreTestRequired {
		t.Fatalf("untried pre-test should gate first, got %+v", d)
	}
}

func TestPostTestZeroLessonsNeverVacuouslyDone(t *testing.T) {
	f := newFixture(t)
	// linked pre-test exists and was failed; subject has no published lessons
	f.putQuiz(t, quiz.Quiz{ID: "post", SubjectID: "s1", Kind: quiz.KindPostTest, PreTestID: "pre", Published: true})
	f.attempts.best["pre"] = struct {
		pct    float64
		passed bool
	}{pct: 10, passed: false}

	d, err := f.gate.CanAccess(context.Background(), "lrn", "post")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if d.Allowed {
		t.Fatalf("zero published lessons must not count as completed, got %+v", d)
	}
	if d.Reason != ReasonLessonsRequired {
		t.Fatalf("want lessons_required, got %q", d.Reason)
	}
}

func TestPostTestNoPreTestNoLessonsAllowed(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "post", SubjectID: "s1", Kind: quiz.KindPostTest, Published: true})

	d, err := f.gate.CanAccess(context.Background(), "lrn", "post")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("nothing to gate on should allow, got %+v", d)
	}
}

func TestRegularQuizAttemptCeiling(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "q1", Kind: quiz.KindRegular, MaxAttempts: 2, Published: true})
	f.attempts.completed["q1"] = 2

	d, err := f.gate.CanAccess(context.Background(), "lrn", "q1")
	if err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if d.Allowed || d.Reason != ReasonNoAttemptsLeft {
		t.Fatalf("want no_attempts_left, got %+v", d)
	}
}

func TestEveryEvaluationIsAudited(t *testing.T) {
	f := newFixture(t)
	f.putQuiz(t, quiz.Quiz{ID: "q1", Kind: quiz.KindRegular, Published: true})

	ctx := context.Background()
	if _, err := f.gate.CanAccess(ctx, "lrn", "q1"); err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if _, err := f.gate.CanAccess(ctx, "lrn", "q1"); err != nil {
		t.Fatalf("CanAccess: %v", err)
	}
	if got := len(f.rec.ByType(audit.TypeGateEvaluated)); got != 2 {
		t.Fatalf("want 2 GateEvaluated events, got %d", got)
	}
}
