// Package grades derives per-subject grades and the overall weighted
// average from best-attempt percentages. Quizzes the learner never
// attempted are excluded from averages, not counted as zero.
package grades

import (
	"context"
	"math"

	"github.com/learngate/learngate-lms/internal/quiz"
)

// AttemptSource is the slice of attempt storage the aggregator reads.
// Satisfied by attempt.Store.
type AttemptSource interface {
	BestCompleted(ctx context.Context, learnerID, quizID string) (percentage float64, passed bool, found bool, err error)
}

type SubjectGrade struct {
	SubjectID         string  `json:"subject_id"`
	QuizzesTaken      int     `json:"quizzes_taken"`
	QuizzesTotal      int     `json:"quizzes_total"`
	PercentageAverage float64 `json:"percentage_average"`
	GradePoint        float64 `json:"grade_point"`
	Status            string  `json:"status"` // passed | failed | no_attempts
}

type Aggregator struct {
	quizzes  quiz.Store
	attempts AttemptSource
}

func NewAggregator(quizzes quiz.Store, attempts AttemptSource) *Aggregator {
	return &Aggregator{quizzes: quizzes, attempts: attempts}
}

// SubjectGrade averages the best completed percentage of every quiz the
// learner attempted in the subject and maps it to a grade point.
func (g *Aggregator) SubjectGrade(ctx context.Context, learnerID, subjectID string) (SubjectGrade, error) {
	if _, err := g.quizzes.GetSubject(ctx, subjectID); err != nil {
		return SubjectGrade{}, err
	}
	quizzes, err := g.quizzes.ListQuizzes(ctx, quiz.ListOpts{SubjectID: subjectID})
	if err != nil {
		return SubjectGrade{}, err
	}

	sg := SubjectGrade{SubjectID: subjectID, QuizzesTotal: len(quizzes), Status: "no_attempts"}
	var sum float64
	for _, q := range quizzes {
		pct, _, found, err := g.attempts.BestCompleted(ctx, learnerID, q.ID)
		if err != nil {
			return SubjectGrade{}, err
		}
		if !found {
			continue
		}
		sum += pct
		sg.QuizzesTaken++
	}
	if sg.QuizzesTaken == 0 {
		return sg, nil
	}
	sg.PercentageAverage = round2(sum / float64(sg.QuizzesTaken))
	sg.GradePoint = GradePoint(sg.PercentageAverage)
	sg.Status = StatusFor(sg.GradePoint)
	return sg, nil
}

// OverallWeightedAverage is the unit-weighted mean of grade points across
// subjects with at least one attempted quiz. Untouched subjects contribute
// to neither numerator nor denominator.
func (g *Aggregator) OverallWeightedAverage(ctx context.Context, learnerID string) (float64, error) {
	subjects, err := g.quizzes.ListSubjects(ctx)
	if err != nil {
		return 0, err
	}
	var num, den float64
	for _, s := range subjects {
		sg, err := g.SubjectGrade(ctx, learnerID, s.ID)
		if err != nil {
			return 0, err
		}
		if sg.QuizzesTaken == 0 {
			continue
		}
		num += sg.GradePoint * s.Units
		den += s.Units
	}
	if den == 0 {
		return 0, nil
	}
	return round2(num / den), nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
