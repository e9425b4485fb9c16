package remedial

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learngate/learngate-lms/internal/apperr"
	"github.com/learngate/learngate-lms/internal/attempt"
	"github.com/learngate/learngate-lms/internal/audit"
)

// Workflow drives the remediation loop: open an assignment on a failing
// attempt, move it along as the learner retakes, close it on a pass.
type Workflow struct {
	store    Store
	rec      audit.Recorder
	dueAfter time.Duration
	now      func() time.Time
}

func NewWorkflow(store Store, rec audit.Recorder, dueAfter time.Duration) *Workflow {
	return &Workflow{store: store, rec: rec, dueAfter: dueAfter, now: time.Now}
}

// WithClock overrides the clock; tests use this.
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// HandleFailure opens a pending assignment for the failed attempt. If one
// is already open for the pair it relinks it to this newer failure.
func (w *Workflow) HandleFailure(ctx context.Context, a attempt.Attempt) (Assignment, error) {
	now := w.now()
	asg := Assignment{
		ID:               uuid.NewString(),
		LearnerID:        a.LearnerID,
		QuizID:           a.QuizID,
		Reason:           fmt.Sprintf("scored %.2f%%, below passing", a.Percentage),
		Status:           StatusPending,
		CreatedAt:        now.Unix(),
		DueAt:            now.Add(w.dueAfter).Unix(),
		TriggerAttemptID: a.ID,
	}
	out, created, err := w.store.CreateOpen(ctx, asg)
	if err != nil {
		return Assignment{}, err
	}
	if created {
		_ = w.rec.Append(ctx, audit.TypeRemedialOpened, out.ID, map[string]interface{}{
			"learner_id": out.LearnerID,
			"quiz_id":    out.QuizID,
			"attempt_id": out.TriggerAttemptID,
			"due_at":     out.DueAt,
		})
	}
	return out, nil
}

// HandleSuccess resolves the open assignment for the pair, if one exists.
func (w *Workflow) HandleSuccess(ctx context.Context, a attempt.Attempt) (Assignment, bool, error) {
	asg, found, err := w.store.GetOpen(ctx, a.LearnerID, a.QuizID)
	if err != nil || !found {
		return Assignment{}, false, err
	}
	resolved, err := w.resolve(ctx, asg, a)
	if err != nil {
		return Assignment{}, false, err
	}
	return resolved, true, nil
}

// HandleRetakeStart moves a pending assignment to in_progress when the
// learner begins a new attempt on the gated quiz.
func (w *Workflow) HandleRetakeStart(ctx context.Context, learnerID, quizID string) error {
	asg, found, err := w.store.GetOpen(ctx, learnerID, quizID)
	if err != nil || !found {
		return err
	}
	if asg.Status != StatusPending {
		return nil
	}
	asg.Status = StatusInProgress
	return w.store.Update(ctx, asg)
}

// Resolve closes a specific assignment with a passing attempt. The normal
// path is HandleSuccess; this exists for explicit resolution by id.
func (w *Workflow) Resolve(ctx context.Context, remedialID string, resolving attempt.Attempt) (Assignment, error) {
	asg, err := w.store.Get(ctx, remedialID)
	if err != nil {
		return Assignment{}, err
	}
	if asg.Status == StatusCompleted {
		return asg, nil
	}
	if resolving.LearnerID != asg.LearnerID || resolving.QuizID != asg.QuizID {
		return Assignment{}, apperr.E(apperr.KindForbidden, "attempt does not match assignment")
	}
	if !resolving.Passed {
		return Assignment{}, apperr.E(apperr.KindForbidden, "resolving attempt did not pass")
	}
	return w.resolve(ctx, asg, resolving)
}

func (w *Workflow) resolve(ctx context.Context, asg Assignment, a attempt.Attempt) (Assignment, error) {
	asg.Status = StatusCompleted
	asg.ResolvedAttemptID = a.ID
	asg.ResolvedAt = w.now().Unix()
	asg.ResolutionScore = a.Percentage
	if err := w.store.Update(ctx, asg); err != nil {
		return Assignment{}, err
	}
	_ = w.rec.Append(ctx, audit.TypeRemedialResolved, asg.ID, map[string]interface{}{
		"learner_id": asg.LearnerID,
		"quiz_id":    asg.QuizID,
		"attempt_id": a.ID,
		"score":      a.Percentage,
	})
	return asg, nil
}

// --- attempt.RemedialHook ---

func (w *Workflow) OnAttemptFailed(ctx context.Context, a attempt.Attempt) error {
	_, err := w.HandleFailure(ctx, a)
	return err
}

func (w *Workflow) OnAttemptPassed(ctx context.Context, a attempt.Attempt) error {
	_, _, err := w.HandleSuccess(ctx, a)
	return err
}

func (w *Workflow) OnRetakeStarted(ctx context.Context, learnerID, quizID string) error {
	return w.HandleRetakeStart(ctx, learnerID, quizID)
}
