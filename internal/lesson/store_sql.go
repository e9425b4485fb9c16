package lesson

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/learngate/learngate-lms/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutUnit(ctx context.Context, u Unit) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lesson_units (id,subject_id,title,position,prereq_id,published)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET subject_id=EXCLUDED.subject_id, title=EXCLUDED.title,
		  position=EXCLUDED.position, prereq_id=EXCLUDED.prereq_id, published=EXCLUDED.published`,
		u.ID, u.SubjectID, u.Title, u.Position, u.PrereqID, u.Published)
	return err
}

func (s *SQLStore) GetUnit(ctx context.Context, id string) (Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,subject_id,title,position,prereq_id,published FROM lesson_units WHERE id=$1`, id)
	var u Unit
	if err := row.Scan(&u.ID, &u.SubjectID, &u.Title, &u.Position, &u.PrereqID, &u.Published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Unit{}, apperr.E(apperr.KindNotFound, "lesson not found")
		}
		return Unit{}, err
	}
	return u, nil
}

func (s *SQLStore) ListUnits(ctx context.Context, subjectID string) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,subject_id,title,position,prereq_id,published FROM lesson_units
		 WHERE subject_id=$1 ORDER BY position`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.SubjectID, &u.Title, &u.Position, &u.PrereqID, &u.Published); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkComplete(ctx context.Context, learnerID, lessonID string) (Progress, error) {
	if _, err := s.GetUnit(ctx, lessonID); err != nil {
		return Progress{}, err
	}
	// ON CONFLICT DO NOTHING keeps the first completion timestamp and makes
	// double-clicks harmless.
	_, err := s.db.ExecContext(ctx, `INSERT INTO lesson_progress (id,learner_id,lesson_id,completed_at)
		VALUES ($1,$2,$3,$4) ON CONFLICT (learner_id,lesson_id) DO NOTHING`,
		uuid.NewString(), learnerID, lessonID, time.Now().Unix())
	if err != nil {
		return Progress{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT id,learner_id,lesson_id,completed_at
		FROM lesson_progress WHERE learner_id=$1 AND lesson_id=$2`, learnerID, lessonID)
	var p Progress
	if err := row.Scan(&p.ID, &p.LearnerID, &p.LessonID, &p.CompletedAt); err != nil {
		return Progress{}, err
	}
	return p, nil
}

func (s *SQLStore) IsCompleted(ctx context.Context, learnerID, lessonID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM lesson_progress WHERE learner_id=$1 AND lesson_id=$2`,
		learnerID, lessonID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) CountProgress(ctx context.Context, learnerID, subjectID string) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		  COUNT(*),
		  COUNT(p.id)
		FROM lesson_units u
		LEFT JOIN lesson_progress p ON p.lesson_id = u.id AND p.learner_id = $1
		WHERE u.subject_id = $2 AND u.published = TRUE`,
		learnerID, subjectID).Scan(&c.Total, &c.Completed)
	return c, err
}
