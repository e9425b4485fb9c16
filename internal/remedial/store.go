package remedial

import (
	"context"
	"sort"
	"sync"

	"github.com/learngate/learngate-lms/internal/apperr"
)

type Store interface {
	Get(ctx context.Context, id string) (Assignment, error)

	// GetOpen returns the non-completed assignment for (learner, quiz),
	// if any.
	GetOpen(ctx context.Context, learnerID, quizID string) (Assignment, bool, error)

	// CreateOpen inserts a new open assignment. When an open one already
	// exists for the pair it relinks that one to the new trigger attempt
	// instead. created reports which happened.
	CreateOpen(ctx context.Context, a Assignment) (out Assignment, created bool, err error)

	Update(ctx context.Context, a Assignment) error

	List(ctx context.Context, opts ListOpts) ([]Assignment, error)
}

type memoryStore struct {
	mu          sync.RWMutex
	assignments map[string]Assignment
	open        map[string]string // learnerID|quizID -> open assignment id
}

func NewInMemoryStore() Store {
	return &memoryStore{
		assignments: map[string]Assignment{},
		open:        map[string]string{},
	}
}

func pairKey(learnerID, quizID string) string { return learnerID + "|" + quizID }

func (m *memoryStore) Get(_ context.Context, id string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, apperr.E(apperr.KindNotFound, "remedial assignment not found")
	}
	return a, nil
}

func (m *memoryStore) GetOpen(_ context.Context, learnerID, quizID string) (Assignment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.open[pairKey(learnerID, quizID)]
	if !ok {
		return Assignment{}, false, nil
	}
	return m.assignments[id], true, nil
}

func (m *memoryStore) CreateOpen(_ context.Context, a Assignment) (Assignment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(a.LearnerID, a.QuizID)
	if id, ok := m.open[k]; ok {
		existing := m.assignments[id]
		existing.TriggerAttemptID = a.TriggerAttemptID
		m.assignments[id] = existing
		return existing, false, nil
	}
	m.assignments[a.ID] = a
	m.open[k] = a.ID
	return a, true, nil
}

func (m *memoryStore) Update(_ context.Context, a Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		return apperr.E(apperr.KindNotFound, "remedial assignment not found")
	}
	m.assignments[a.ID] = a
	k := pairKey(a.LearnerID, a.QuizID)
	if a.Status == StatusCompleted {
		if m.open[k] == a.ID {
			delete(m.open, k)
		}
	} else {
		m.open[k] = a.ID
	}
	return nil
}

func (m *memoryStore) List(_ context.Context, opts ListOpts) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Assignment
	for _, a := range m.assignments {
		if opts.LearnerID != "" && a.LearnerID != opts.LearnerID {
			continue
		}
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.Status != "" && string(a.Status) != opts.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
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
