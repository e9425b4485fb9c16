// Package gate decides whether a learner may enter a quiz right now.
// Post-tests open on a passed pre-test or on full lesson completion; the
// rules live here and nowhere else.
package gate

import (
	"context"

	"github.com/learngate/learngate-lms/internal/audit"
	"github.com/learngate/learngate-lms/internal/lesson"
	"github.com/learngate/learngate-lms/internal/quiz"
)

// Machine-readable denial reasons surfaced to the presentation layer.
const (
	ReasonUnpublished     = "unpublished"
	ReasonAlreadyTaken    = "already_taken"
	ReasonPreTestRequired = "pre_test_required"
	ReasonLessonsRequired = "lessons_required"
	ReasonNoAttemptsLeft  = "no_attempts_left"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	// PreTestScore is the stored pre-test percentage when one exists,
	// exposed for already_taken and post-test denials.
	PreTestScore *float64 `json:"pre_test_score,omitempty"`

	// Lesson completion snapshot, reported for lessons_required so the UI
	// can render "complete N more lessons".
	LessonsCompleted int `json:"lessons_completed,omitempty"`
	LessonsTotal     int `json:"lessons_total,omitempty"`
}

// AttemptSource is the slice of attempt storage the gate reads. Satisfied
// by attempt.Store.
type AttemptSource interface {
	CompletedCount(ctx context.Context, learnerID, quizID string) (int, error)
	BestCompleted(ctx context.Context, learnerID, quizID string) (percentage float64, passed bool, found bool, err error)
}

type Gate struct {
	quizzes  quiz.Store
	lessons  lesson.Store
	attempts AttemptSource
	rec      audit.Recorder
}

func New(quizzes quiz.Store, lessons lesson.Store, attempts AttemptSource, rec audit.Recorder) *Gate {
	return &Gate{quizzes: quizzes, lessons: lessons, attempts: attempts, rec: rec}
}

// CanAccess evaluates the progression rules for (learner, quiz). Every
// evaluation is appended to the audit log; the gate never reads it back.
func (g *Gate) CanAccess(ctx context.Context, learnerID, quizID string) (Decision, error) {
	q, err := g.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Decision{}, err
	}
	d, err := g.evaluate(ctx, learnerID, q)
	if err != nil {
		return Decision{}, err
	}
	_ = g.rec.Append(ctx, audit.TypeGateEvaluated, learnerID+"|"+quizID, map[string]interface{}{
		"learner_id":        learnerID,
		"quiz_id":           quizID,
		"allowed":           d.Allowed,
		"reason":            d.Reason,
		"pre_test_score":    d.PreTestScore,
		"lessons_completed": d.LessonsCompleted,
		"lessons_total":     d.LessonsTotal,
	})
	return d, nil
}

func (g *Gate) evaluate(ctx context.Context, learnerID string, q quiz.Quiz) (Decision, error) {
	if !q.Published {
		return Decision{Reason: ReasonUnpublished}, nil
	}

	switch q.Kind {
	case quiz.KindPreTest:
		// one attempt only: once completed, report the stored score
		pct, _, found, err := g.attempts.BestCompleted(ctx, learnerID, q.ID)
		if err != nil {
			return Decision{}, err
		}
		if found {
			return Decision{Reason: ReasonAlreadyTaken, PreTestScore: &pct}, nil
		}
		return Decision{Allowed: true}, nil

	case quiz.KindPostTest:
		return g.evaluatePostTest(ctx, learnerID, q)

	default: // regular
		if q.MaxAttempts > 0 {
			n, err := g.attempts.CompletedCount(ctx, learnerID, q.ID)
			if err != nil {
				return Decision{}, err
			}
			if n >= q.MaxAttempts {
				return Decision{Reason: ReasonNoAttemptsLeft}, nil
			}
		}
		return Decision{Allowed: true}, nil
	}
}

func (g *Gate) evaluatePostTest(ctx context.Context, learnerID string, q quiz.Quiz) (Decision, error) {
	var (
		preScore  *float64
		prePassed bool
		preTried  bool
	)
	if q.PreTestID != "" {
		pct, passed, found, err := g.attempts.BestCompleted(ctx, learnerID, q.PreTestID)
		if err != nil {
			return Decision{}, err
		}
		if found {
			preScore, prePassed, preTried = &pct, passed, true
		}
	}

	counts, err := g.lessons.CountProgress(ctx, learnerID, q.SubjectID)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		PreTestScore:     preScore,
		LessonsCompleted: counts.Completed,
		LessonsTotal:     counts.Total,
	}

	switch {
	case prePassed:
		d.Allowed = true
	case counts.AllDone():
		// zero published lessons never counts as done; AllDone requires
		// total > 0
		d.Allowed = true
	case q.PreTestID == "" && counts.Total == 0:
		// nothing to gate on: no pre-test in the subject and no lessons
		d.Allowed = true
	case q.PreTestID != "" && !preTried:
		d.Reason = ReasonPreTestRequired
	default:
		d.Reason = ReasonLessonsRequired
	}
	return d, nil
}
