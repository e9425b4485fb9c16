package quiz

// Kind classifies a quiz within the progression flow.
type Kind string

const (
	KindRegular  Kind = "regular"
	KindPreTest  Kind = "pre_test"
	KindPostTest Kind = "post_test"
)

// Question types understood by the scoring engine.
const (
	TypeChoice    = "mcq_single"
	TypeTrueFalse = "true_false"
	TypeFreeText  = "free_text"
)

type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"` // mcq_single, true_false, free_text
	Prompt   string   `json:"prompt"`
	Options  []Option `json:"options,omitempty"`
	Points   float64  `json:"points"`
	Position int      `json:"position"`
}

type Quiz struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Title     string `json:"title"`
	Kind      Kind   `json:"kind"`

	// PreTestID is the resolved counterpart for a post_test. Set explicitly
	// by the author or filled in at definition time by ResolvePreTestLink.
	PreTestID string `json:"pre_test_id,omitempty"`

	PassPercent  float64 `json:"pass_percent"`
	TimeLimitSec int     `json:"time_limit_sec"`
	MaxAttempts  int     `json:"max_attempts"`
	Randomize    bool    `json:"randomize"`
	Published    bool    `json:"published"`

	Questions []Question `json:"questions,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// TotalPoints sums the point values of every question.
func (q Quiz) TotalPoints() float64 {
	var total float64
	for _, qt := range q.Questions {
		total += qt.Points
	}
	return total
}

// Sanitize strips correctness flags so a quiz can be served to a learner.
func Sanitize(q Quiz) Quiz {
	qs := make([]Question, len(q.Questions))
	copy(qs, q.Questions)
	for i := range qs {
		if len(qs[i].Options) == 0 {
			continue
		}
		opts := make([]Option, len(qs[i].Options))
		copy(opts, qs[i].Options)
		for j := range opts {
			opts[j].Correct = false
		}
		qs[i].Options = opts
	}
	q.Questions = qs
	return q
}
