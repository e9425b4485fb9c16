package quiz

import (
	"context"
	"sort"
	"sync"

	"github.com/learngate/learngate-lms/internal/apperr"
)

type ListOpts struct {
	SubjectID string
	Kind      Kind
	Published bool // when true, only published quizzes
	Limit     int
	Offset    int
}

// Store is the content side of the engine: quiz definitions are read-mostly
// and written only through the author surface.
type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error)
	SubjectStore
}

type memoryStore struct {
	mu       sync.RWMutex
	quizzes  map[string]Quiz
	subjects map[string]Subject
}

func NewInMemoryStore() Store {
	return &memoryStore{quizzes: map[string]Quiz{}, subjects: map[string]Subject{}}
}

func (m *memoryStore) PutQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, apperr.E(apperr.KindNotFound, "quiz not found")
	}
	return q, nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, opts ListOpts) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Quiz, 0, len(m.quizzes))
	for _, q := range m.quizzes {
		if opts.SubjectID != "" && q.SubjectID != opts.SubjectID {
			continue
		}
		if opts.Kind != "" && q.Kind != opts.Kind {
			continue
		}
		if opts.Published && !q.Published {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
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
