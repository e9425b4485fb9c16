package attempt

import (
	"context"
	"sort"
	"sync"

	"github.com/learngate/learngate-lms/internal/apperr"
	"github.com/learngate/learngate-lms/internal/scoring"
)

// Store persists attempts and their graded answers. Implementations must
// make Start and Finalize race-safe: two concurrent Starts for the same
// (learner, quiz) yield one row, and Finalize only ever moves an attempt
// out of in_progress once.
type Store interface {
	// Start inserts a new in_progress attempt, or returns the existing
	// in_progress attempt for the same (learner, quiz). resumed reports
	// which happened.
	Start(ctx context.Context, a Attempt) (out Attempt, resumed bool, err error)

	Get(ctx context.Context, id string) (Attempt, error)

	// SaveResponses merges session answers into an in_progress attempt.
	SaveResponses(ctx context.Context, id string, resp map[string]scoring.Response) (Attempt, error)

	// Finalize transitions in_progress -> completed, writing score fields
	// and graded answers. Returns Forbidden when the attempt already left
	// in_progress.
	Finalize(ctx context.Context, a Attempt) (Attempt, error)

	// UpdateScore rewrites derived totals after a manual grading pass.
	UpdateScore(ctx context.Context, id string, answers []scoring.AnswerScore, earned, percentage float64, passed bool) error

	CompletedCount(ctx context.Context, learnerID, quizID string) (int, error)

	// BestCompleted reports the highest-percentage completed attempt for
	// (learner, quiz); found is false when none exists.
	BestCompleted(ctx context.Context, learnerID, quizID string) (percentage float64, passed bool, found bool, err error)

	List(ctx context.Context, opts ListOpts) ([]Attempt, error)

	// AbandonStale marks in_progress attempts whose deadline passed more
	// than graceSec ago as abandoned, returning the affected attempts.
	AbandonStale(ctx context.Context, now int64, graceSec int) ([]Attempt, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	attempts map[string]Attempt
	byOwner  map[string]string // learnerID|quizID -> open attempt id
}

func NewInMemoryStore() Store {
	return &memoryStore{
		attempts: map[string]Attempt{},
		byOwner:  map[string]string{},
	}
}

func ownerKey(learnerID, quizID string) string { return learnerID + "|" + quizID }

func (m *memoryStore) Start(_ context.Context, a Attempt) (Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ownerKey(a.LearnerID, a.QuizID)
	if id, ok := m.byOwner[k]; ok {
		if existing, ok := m.attempts[id]; ok && existing.Status == StatusInProgress {
			return existing, true, nil
		}
	}
	n := 1
	for _, x := range m.attempts {
		if x.LearnerID == a.LearnerID && x.QuizID == a.QuizID {
			n++
		}
	}
	a.Number = n
	a.Status = StatusInProgress
	m.attempts[a.ID] = a
	m.byOwner[k] = a.ID
	return a, false, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, apperr.E(apperr.KindNotFound, "attempt not found")
	}
	return a, nil
}

func (m *memoryStore) SaveResponses(_ context.Context, id string, resp map[string]scoring.Response) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, apperr.E(apperr.KindNotFound, "attempt not found")
	}
	if a.Status != StatusInProgress {
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt is not in progress")
	}
	if a.Responses == nil {
		a.Responses = map[string]scoring.Response{}
	}
	for k, v := range resp {
		a.Responses[k] = v
	}
	m.attempts[id] = a
	return a, nil
}

func (m *memoryStore) Finalize(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.attempts[a.ID]
	if !ok {
		return Attempt{}, apperr.E(apperr.KindNotFound, "attempt not found")
	}
	if cur.Status != StatusInProgress {
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt is not in progress")
	}
	a.Status = StatusCompleted
	m.attempts[a.ID] = a
	delete(m.byOwner, ownerKey(a.LearnerID, a.QuizID))
	return a, nil
}

func (m *memoryStore) UpdateScore(_ context.Context, id string, answers []scoring.AnswerScore, earned, percentage float64, passed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return apperr.E(apperr.KindNotFound, "attempt not found")
	}
	a.Answers = answers
	a.EarnedPoints = earned
	a.Percentage = percentage
	a.Passed = passed
	m.attempts[id] = a
	return nil
}

func (m *memoryStore) CompletedCount(_ context.Context, learnerID, quizID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.attempts {
		if a.LearnerID == learnerID && a.QuizID == quizID && a.Status == StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) BestCompleted(_ context.Context, learnerID, quizID string) (float64, bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best Attempt
	found := false
	for _, a := range m.attempts {
		if a.LearnerID != learnerID || a.QuizID != quizID || a.Status != StatusCompleted {
			continue
		}
		if !found || a.Percentage > best.Percentage {
			best = a
			found = true
		}
	}
	return best.Percentage, best.Passed, found, nil
}

func (m *memoryStore) List(_ context.Context, opts ListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.LearnerID != "" && a.LearnerID != opts.LearnerID {
			continue
		}
		if opts.Status != "" && string(a.Status) != opts.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memoryStore) AbandonStale(_ context.Context, now int64, graceSec int) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var swept []Attempt
	for id, a := range m.attempts {
		if a.Status != StatusInProgress || a.Deadline == 0 {
			continue
		}
		if now > a.Deadline+int64(graceSec) {
			a.Status = StatusAbandoned
			m.attempts[id] = a
			delete(m.byOwner, ownerKey(a.LearnerID, a.QuizID))
			swept = append(swept, a)
		}
	}
	return swept, nil
}
