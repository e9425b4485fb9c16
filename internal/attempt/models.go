package attempt

import (
	"github.com/learngate/learngate-lms/internal/scoring"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Attempt is one timed, scored instance of a learner taking a quiz.
// Completed attempts are immutable except for the manual-grading override
// on free-text answers.
type Attempt struct {
	ID        string `json:"id"`
	QuizID    string `json:"quiz_id"`
	LearnerID string `json:"learner_id"`
	Number    int    `json:"number"` // 1-based per (learner, quiz)
	Status    Status `json:"status"`

	StartedAt    int64 `json:"started_at"`
	Deadline     int64 `json:"deadline,omitempty"` // server-side; 0 = untimed
	SubmittedAt  int64 `json:"submitted_at,omitempty"`
	TimeSpentSec int   `json:"time_spent_sec,omitempty"`
	Expired      bool  `json:"expired,omitempty"` // strict timing cut this attempt off

	EarnedPoints float64 `json:"earned_points"`
	TotalPoints  float64 `json:"total_points"`
	Percentage   float64 `json:"percentage"`
	Passed       bool    `json:"passed"`

	// QuestionOrder is the presentation order captured at begin time so the
	// whole session sees one ordering, randomized or not.
	QuestionOrder []string `json:"question_order,omitempty"`

	// Responses are answers saved during the session, before submission.
	Responses map[string]scoring.Response `json:"responses,omitempty"`

	// Answers are the graded records written at submission.
	Answers []scoring.AnswerScore `json:"answers,omitempty"`
}

type ListOpts struct {
	QuizID    string
	LearnerID string
	Status    string
	Limit     int
	Offset    int
}
