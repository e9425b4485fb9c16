// Package scoring grades one submitted attempt against a quiz definition.
// Grading is pure: identical inputs always produce identical results, and
// nothing here touches storage.
package scoring

import (
	"math"

	"github.com/learngate/learngate-lms/internal/quiz"
)

// Response is one learner answer as submitted: an option id for choice
// types, raw text for free-text questions.
type Response struct {
	OptionID string `json:"option_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// AnswerScore is the graded record for one question. Free-text answers keep
// the raw text so a teacher can award points later without regrading the
// whole attempt.
type AnswerScore struct {
	QuestionID  string  `json:"question_id"`
	OptionID    string  `json:"option_id,omitempty"`
	Text        string  `json:"text,omitempty"`
	Points      float64 `json:"points"`
	MaxPoints   float64 `json:"max_points"`
	NeedsManual bool    `json:"needs_manual,omitempty"`
}

type Result struct {
	EarnedPoints float64       `json:"earned_points"`
	TotalPoints  float64       `json:"total_points"`
	Percentage   float64       `json:"percentage"`
	Passed       bool          `json:"passed"`
	NeedsManual  bool          `json:"needs_manual,omitempty"`
	Unscoreable  bool          `json:"unscoreable,omitempty"` // zero-point quiz
	Answers      []AnswerScore `json:"answers"`
}

// strategy grades a single question response.
type strategy interface {
	grade(q quiz.Question, r Response, answered bool) AnswerScore
}

type Engine struct {
	strategies map[string]strategy
	precision  int
}

type Option func(*Engine)

// WithPrecision sets the number of decimal places kept on percentages.
func WithPrecision(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.precision = n
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		strategies: map[string]strategy{
			quiz.TypeChoice:    choiceStrategy{},
			quiz.TypeTrueFalse: choiceStrategy{},
			quiz.TypeFreeText:  freeTextStrategy{},
		},
		precision: 2,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Grade scores every question in the quiz. Unanswered questions earn zero
// but still count toward the total. A quiz whose questions sum to zero
// points is unscoreable: percentage 0, never passed, flagged for the caller.
func (e *Engine) Grade(q quiz.Quiz, responses map[string]Response) Result {
	res := Result{Answers: make([]AnswerScore, 0, len(q.Questions))}
	for _, qt := range q.Questions {
		r, answered := responses[qt.ID]
		s, ok := e.strategies[qt.Type]
		var as AnswerScore
		if ok {
			as = s.grade(qt, r, answered)
		} else {
			// unknown type: no auto points, hold for review
			as = AnswerScore{QuestionID: qt.ID, MaxPoints: qt.Points, NeedsManual: true}
		}
		res.TotalPoints += qt.Points
		res.EarnedPoints += as.Points
		if as.NeedsManual {
			res.NeedsManual = true
		}
		res.Answers = append(res.Answers, as)
	}
	e.derive(&res, q.PassPercent)
	return res
}

// Rederive recomputes totals from already-graded answers, e.g. after a
// manual override changed one answer's points. Choice answers are not
// regraded.
func (e *Engine) Rederive(q quiz.Quiz, answers []AnswerScore) Result {
	res := Result{Answers: answers, TotalPoints: q.TotalPoints()}
	for _, a := range answers {
		res.EarnedPoints += a.Points
		if a.NeedsManual {
			res.NeedsManual = true
		}
	}
	e.derive(&res, q.PassPercent)
	return res
}

func (e *Engine) derive(res *Result, passPercent float64) {
	if res.TotalPoints <= 0 {
		res.Percentage = 0
		res.Passed = false
		res.Unscoreable = true
		return
	}
	res.Percentage = roundTo(100*res.EarnedPoints/res.TotalPoints, e.precision)
	res.Passed = res.Percentage >= passPercent
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// --- strategies ---

// choiceStrategy awards full points when the selected option is flagged
// correct, zero otherwise. No partial credit.
type choiceStrategy struct{}

func (choiceStrategy) grade(q quiz.Question, r Response, answered bool) AnswerScore {
	as := AnswerScore{QuestionID: q.ID, MaxPoints: q.Points}
	if !answered || r.OptionID == "" {
		return as
	}
	as.OptionID = r.OptionID
	for _, opt := range q.Options {
		if opt.ID == r.OptionID && opt.Correct {
			as.Points = q.Points
			break
		}
	}
	return as
}

// freeTextStrategy never auto-awards; the raw text is preserved for manual
// grading.
type freeTextStrategy struct{}

func (freeTextStrategy) grade(q quiz.Question, r Response, answered bool) AnswerScore {
	as := AnswerScore{QuestionID: q.ID, MaxPoints: q.Points}
	if answered {
		as.Text = r.Text
	}
	as.NeedsManual = true
	return as
}
