package lesson

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/learngate/learngate-lms/internal/apperr"
)

type Store interface {
	PutUnit(ctx context.Context, u Unit) error
	GetUnit(ctx context.Context, id string) (Unit, error)
	ListUnits(ctx context.Context, subjectID string) ([]Unit, error)

	// MarkComplete records completion, idempotently: a second call for the
	// same (learner, unit) returns the original row.
	MarkComplete(ctx context.Context, learnerID, lessonID string) (Progress, error)
	IsCompleted(ctx context.Context, learnerID, lessonID string) (bool, error)

	// CountProgress reports completed-vs-total over published units only.
	CountProgress(ctx context.Context, learnerID, subjectID string) (Counts, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	units    map[string]Unit
	progress map[string]Progress // learnerID|lessonID
	now      func() time.Time
}

func NewInMemoryStore() Store {
	return &memoryStore{
		units:    map[string]Unit{},
		progress: map[string]Progress{},
		now:      time.Now,
	}
}

func progressKey(learnerID, lessonID string) string { return learnerID + "|" + lessonID }

func (m *memoryStore) PutUnit(_ context.Context, u Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[u.ID] = u
	return nil
}

func (m *memoryStore) GetUnit(_ context.Context, id string) (Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return Unit{}, apperr.E(apperr.KindNotFound, "lesson not found")
	}
	return u, nil
}

func (m *memoryStore) ListUnits(_ context.Context, subjectID string) ([]Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Unit
	for _, u := range m.units {
		if u.SubjectID == subjectID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memoryStore) MarkComplete(_ context.Context, learnerID, lessonID string) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.units[lessonID]; !ok {
		return Progress{}, apperr.E(apperr.KindNotFound, "lesson not found")
	}
	k := progressKey(learnerID, lessonID)
	if p, ok := m.progress[k]; ok {
		return p, nil
	}
	p := Progress{
		ID:          uuid.NewString(),
		LearnerID:   learnerID,
		LessonID:    lessonID,
		CompletedAt: m.now().Unix(),
	}
	m.progress[k] = p
	return p, nil
}

func (m *memoryStore) IsCompleted(_ context.Context, learnerID, lessonID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.progress[progressKey(learnerID, lessonID)]
	return ok, nil
}

func (m *memoryStore) CountProgress(_ context.Context, learnerID, subjectID string) (Counts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var c Counts
	for _, u := range m.units {
		if u.SubjectID != subjectID || !u.Published {
			continue
		}
		c.Total++
		if _, ok := m.progress[progressKey(learnerID, u.ID)]; ok {
			c.Completed++
		}
	}
	return c, nil
}
