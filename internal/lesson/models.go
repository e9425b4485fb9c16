package lesson

// Unit is one piece of lesson material within a subject. Units may chain
// through PrereqID; the chain must stay acyclic (checked at definition time).
type Unit struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Title     string `json:"title"`
	Position  int    `json:"position"`
	PrereqID  string `json:"prereq_id,omitempty"`
	Published bool   `json:"published"`
}

// Progress records a learner's completion of one unit. Rows exist only for
// completed units; absence means not completed.
type Progress struct {
	ID          string `json:"id"`
	LearnerID   string `json:"learner_id"`
	LessonID    string `json:"lesson_id"`
	CompletedAt int64  `json:"completed_at"`
}

// Counts is the per-subject completion snapshot the gate consumes.
type Counts struct {
	Completed int `json:"completed"`
	Total     int `json:"total"` // published units only
}

// AllDone reports whether every published unit is completed. An empty
// subject never counts as done; the gate treats that case separately.
func (c Counts) AllDone() bool { return c.Total > 0 && c.Completed >= c.Total }
