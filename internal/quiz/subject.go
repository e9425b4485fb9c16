package quiz

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/learngate/learngate-lms/internal/apperr"
)

// Subject carries the unit weight used by the grade aggregator.
type Subject struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Units float64 `json:"units"`
}

// SubjectStore is implemented by the same stores that hold quizzes.
type SubjectStore interface {
	PutSubject(ctx context.Context, s Subject) error
	GetSubject(ctx context.Context, id string) (Subject, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
}

func (m *memoryStore) PutSubject(_ context.Context, s Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subjects == nil {
		m.subjects = map[string]Subject{}
	}
	m.subjects[s.ID] = s
	return nil
}

func (m *memoryStore) GetSubject(_ context.Context, id string) (Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, apperr.E(apperr.KindNotFound, "subject not found")
	}
	return s, nil
}

func (m *memoryStore) ListSubjects(_ context.Context) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *SQLStore) PutSubject(ctx context.Context, sub Subject) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO subjects (id,name,units) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, units=EXCLUDED.units`,
		sub.ID, sub.Name, sub.Units)
	return err
}

func (s *SQLStore) GetSubject(ctx context.Context, id string) (Subject, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,units FROM subjects WHERE id=$1`, id)
	var sub Subject
	if err := row.Scan(&sub.ID, &sub.Name, &sub.Units); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subject{}, apperr.E(apperr.KindNotFound, "subject not found")
		}
		return Subject{}, err
	}
	return sub, nil
}

func (s *SQLStore) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,units FROM subjects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Units); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
