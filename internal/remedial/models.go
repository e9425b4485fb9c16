package remedial

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Assignment tracks one remediation task for a (learner, quiz) pair. It is
// never deleted, only transitioned, so history survives for reporting. At
// most one non-completed assignment exists per pair.
type Assignment struct {
	ID        string `json:"id"`
	LearnerID string `json:"learner_id"`
	QuizID    string `json:"quiz_id"`
	Reason    string `json:"reason"`
	Status    Status `json:"status"`

	CreatedAt int64 `json:"created_at"`
	DueAt     int64 `json:"due_at"`

	// TriggerAttemptID points at the newest failing attempt; updated when a
	// learner fails again before resolving.
	TriggerAttemptID string `json:"trigger_attempt_id"`

	ResolvedAttemptID string  `json:"resolved_attempt_id,omitempty"`
	ResolvedAt        int64   `json:"resolved_at,omitempty"`
	ResolutionScore   float64 `json:"resolution_score,omitempty"`
	Remarks           string  `json:"remarks,omitempty"`
}

// Overdue is derived, never stored.
func (a Assignment) Overdue(now int64) bool {
	return a.Status != StatusCompleted && a.DueAt > 0 && a.DueAt < now
}

type ListOpts struct {
	LearnerID string
	QuizID    string
	Status    string
	Limit     int
	Offset    int
}
