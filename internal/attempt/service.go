package attempt

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/learngate/learngate-lms/internal/apperr"
	"github.com/learngate/learngate-lms/internal/audit"
	"github.com/learngate/learngate-lms/internal/gate"
	"github.com/learngate/learngate-lms/internal/quiz"
	"github.com/learngate/learngate-lms/internal/scoring"
)

// AccessGate authorizes entry to a quiz. Satisfied by gate.Gate.
type AccessGate interface {
	CanAccess(ctx context.Context, learnerID, quizID string) (gate.Decision, error)
}

// RemedialHook receives attempt outcomes. Satisfied by remedial.Workflow.
type RemedialHook interface {
	OnAttemptFailed(ctx context.Context, a Attempt) error
	OnAttemptPassed(ctx context.Context, a Attempt) error
	OnRetakeStarted(ctx context.Context, learnerID, quizID string) error
}

type ManualGradeInput struct {
	Points  float64 `json:"points"`
	Comment string  `json:"comment,omitempty"`
}

// Service owns the begin/submit/timeout state machine for quiz attempts.
type Service struct {
	quizzes  quiz.Store
	store    Store
	gate     AccessGate
	engine   *scoring.Engine
	remedial RemedialHook
	rec      audit.Recorder

	// GraceSec is the network tolerance added to the server-side deadline
	// before a submission counts as expired. Strict enables the
	// deadline-enforcing variant; without it expired submissions are still
	// accepted whole (auto-submit semantics).
	graceSec int
	strict   bool

	now func() time.Time
}

func NewService(quizzes quiz.Store, store Store, g AccessGate, engine *scoring.Engine,
	remedialHook RemedialHook, rec audit.Recorder, graceSec int, strict bool) *Service {
	return &Service{
		quizzes:  quizzes,
		store:    store,
		gate:     g,
		engine:   engine,
		remedial: remedialHook,
		rec:      rec,
		graceSec: graceSec,
		strict:   strict,
		now:      time.Now,
	}
}

// WithClock overrides the clock; tests use this.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Begin opens (or resumes) an attempt. A second call while an attempt is
// still in_progress for the same (learner, quiz) returns that attempt
// unchanged, so double-clicks never inflate the attempt count.
func (s *Service) Begin(ctx context.Context, learnerID, quizID string) (Attempt, error) {
	q, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}

	d, err := s.gate.CanAccess(ctx, learnerID, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if !d.Allowed {
		return Attempt{}, apperr.Denied(d.Reason, deniedMsg(d))
	}

	if q.MaxAttempts > 0 {
		n, err := s.store.CompletedCount(ctx, learnerID, quizID)
		if err != nil {
			return Attempt{}, err
		}
		if n >= q.MaxAttempts {
			return Attempt{}, apperr.E(apperr.KindAttemptLimitExceeded,
				fmt.Sprintf("attempt limit %d reached", q.MaxAttempts))
		}
	}

	now := s.now()
	a := Attempt{
		ID:            uuid.NewString(),
		QuizID:        quizID,
		LearnerID:     learnerID,
		StartedAt:     now.Unix(),
		QuestionOrder: questionOrder(q),
		Responses:     map[string]scoring.Response{},
	}
	if q.TimeLimitSec > 0 {
		a.Deadline = now.Unix() + int64(q.TimeLimitSec)
	}

	out, resumed, err := s.store.Start(ctx, a)
	if err != nil {
		return Attempt{}, err
	}
	if !resumed {
		_ = s.rec.Append(ctx, audit.TypeAttemptStarted, out.ID, map[string]interface{}{
			"learner_id": learnerID,
			"quiz_id":    quizID,
			"number":     out.Number,
			"deadline":   out.Deadline,
		})
		if err := s.remedial.OnRetakeStarted(ctx, learnerID, quizID); err != nil {
			return Attempt{}, err
		}
	}
	return out, nil
}

// SaveResponses merges session answers into the learner's open attempt.
func (s *Service) SaveResponses(ctx context.Context, learnerID, attemptID string, resp map[string]scoring.Response) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.LearnerID != learnerID {
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt not owned by caller")
	}
	if s.strict && a.Deadline > 0 && s.now().Unix() > a.Deadline+int64(s.graceSec) {
		return Attempt{}, apperr.E(apperr.KindExpiredAttempt, "time limit exceeded; submit the attempt")
	}
	return s.store.SaveResponses(ctx, attemptID, resp)
}

// Submit grades and closes an attempt. Time spent is computed server-side
// from the recorded start; the caller's figure is accepted only when it is
// smaller than the wall clock says. Under strict timing a submission past
// deadline+grace is graded from the responses saved before the cutoff and
// reported as expired.
func (s *Service) Submit(ctx context.Context, learnerID, attemptID string, responses map[string]scoring.Response, clientTimeSpentSec int) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.LearnerID != learnerID {
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt not owned by caller")
	}
	if a.Status != StatusInProgress {
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt is not in progress")
	}

	q, err := s.quizzes.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}

	now := s.now()
	elapsed := now.Unix() - a.StartedAt
	if elapsed < 0 {
		elapsed = 0
	}
	expired := s.strict && a.Deadline > 0 && now.Unix() > a.Deadline+int64(s.graceSec)

	merged := map[string]scoring.Response{}
	for k, v := range a.Responses {
		merged[k] = v
	}
	if !expired {
		// past-deadline submissions without strict timing are still
		// accepted whole: auto-submit semantics
		for k, v := range responses {
			merged[k] = v
		}
	}

	timeSpent := int(elapsed)
	if clientTimeSpentSec > 0 && int64(clientTimeSpentSec) < elapsed {
		timeSpent = clientTimeSpentSec
	}
	if expired && q.TimeLimitSec > 0 && timeSpent > q.TimeLimitSec {
		timeSpent = q.TimeLimitSec
	}

	result := s.engine.Grade(q, merged)

	a.SubmittedAt = now.Unix()
	a.TimeSpentSec = timeSpent
	a.Expired = expired
	a.Responses = merged
	a.Answers = result.Answers
	a.EarnedPoints = result.EarnedPoints
	a.TotalPoints = result.TotalPoints
	a.Percentage = result.Percentage
	a.Passed = result.Passed

	out, err := s.store.Finalize(ctx, a)
	if err != nil {
		return Attempt{}, err
	}

	if result.Unscoreable {
		_ = s.rec.Append(ctx, audit.TypeQuizUnscoreable, q.ID, map[string]interface{}{
			"quiz_id":    q.ID,
			"attempt_id": out.ID,
		})
	}
	_ = s.rec.Append(ctx, audit.TypeAttemptSubmitted, out.ID, map[string]interface{}{
		"learner_id": out.LearnerID,
		"quiz_id":    out.QuizID,
		"percentage": out.Percentage,
		"passed":     out.Passed,
		"expired":    out.Expired,
	})

	if out.Passed {
		err = s.remedial.OnAttemptPassed(ctx, out)
	} else {
		err = s.remedial.OnAttemptFailed(ctx, out)
	}
	if err != nil {
		return Attempt{}, err
	}

	if expired {
		return out, apperr.E(apperr.KindExpiredAttempt, "time limit exceeded; graded saved answers only")
	}
	return out, nil
}

// Get returns an attempt, enforcing ownership unless the caller may view
// all attempts.
func (s *Service) Get(ctx context.Context, callerID string, viewAll bool, attemptID string) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if !viewAll && a.LearnerID != callerID {
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt not owned by caller")
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	return s.store.List(ctx, opts)
}

// ApplyManualGrades overrides points on answers held for manual review
// (free text), then re-derives the attempt's totals without regrading the
// auto-scored answers. A pass produced by the override resolves any open
// remedial assignment.
func (s *Service) ApplyManualGrades(ctx context.Context, attemptID string, items map[string]ManualGradeInput, gradedBy string) (Attempt, error) {
	a, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusCompleted {
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt is not completed")
	}
	q, err := s.quizzes.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}

	touched := false
	for i := range a.Answers {
		in, ok := items[a.Answers[i].QuestionID]
		if !ok {
			continue
		}
		if !a.Answers[i].NeedsManual {
			return Attempt{}, apperr.E(apperr.KindForbidden,
				"question "+a.Answers[i].QuestionID+" is auto-graded")
		}
		pts := in.Points
		if pts < 0 {
			pts = 0
		}
		if pts > a.Answers[i].MaxPoints {
			pts = a.Answers[i].MaxPoints
		}
		a.Answers[i].Points = pts
		a.Answers[i].NeedsManual = false
		touched = true
	}
	if !touched {
		return a, nil
	}

	wasPassed := a.Passed
	result := s.engine.Rederive(q, a.Answers)
	a.EarnedPoints = result.EarnedPoints
	a.Percentage = result.Percentage
	a.Passed = result.Passed

	if err := s.store.UpdateScore(ctx, a.ID, a.Answers, a.EarnedPoints, a.Percentage, a.Passed); err != nil {
		return Attempt{}, err
	}
	if !wasPassed && a.Passed {
		if err := s.remedial.OnAttemptPassed(ctx, a); err != nil {
			return Attempt{}, err
		}
	}
	return a, nil
}

func questionOrder(q quiz.Quiz) []string {
	qs := make([]quiz.Question, len(q.Questions))
	copy(qs, q.Questions)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })
	order := make([]string, len(qs))
	for i, qt := range qs {
		order[i] = qt.ID
	}
	if q.Randomize {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

func deniedMsg(d gate.Decision) string {
	switch d.Reason {
	case gate.ReasonLessonsRequired:
		return fmt.Sprintf("complete %d more lessons", d.LessonsTotal-d.LessonsCompleted)
	case gate.ReasonPreTestRequired:
		return "take the pre-test first"
	case gate.ReasonAlreadyTaken:
		return "pre-test already taken"
	case gate.ReasonUnpublished:
		return "quiz is not published"
	case gate.ReasonNoAttemptsLeft:
		return "no attempts remaining"
	default:
		return "access denied"
	}
}
