package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/learngate/learngate-lms/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes
		(id,subject_id,title,kind,pre_test_id,pass_percent,time_limit_sec,max_attempts,randomize,published,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
		  subject_id=EXCLUDED.subject_id, title=EXCLUDED.title, kind=EXCLUDED.kind,
		  pre_test_id=EXCLUDED.pre_test_id, pass_percent=EXCLUDED.pass_percent,
		  time_limit_sec=EXCLUDED.time_limit_sec, max_attempts=EXCLUDED.max_attempts,
		  randomize=EXCLUDED.randomize, published=EXCLUDED.published,
		  questions_json=EXCLUDED.questions_json`,
		q.ID, q.SubjectID, q.Title, string(q.Kind), q.PreTestID, q.PassPercent,
		q.TimeLimitSec, q.MaxAttempts, q.Randomize, q.Published, string(qj), time.Now().Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,subject_id,title,kind,pre_test_id,pass_percent,
		time_limit_sec,max_attempts,randomize,published,questions_json,created_at
		FROM quizzes WHERE id=$1`, id)
	q, err := scanQuiz(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, apperr.E(apperr.KindNotFound, "quiz not found")
	}
	return q, err
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	query := `SELECT id,subject_id,title,kind,pre_test_id,pass_percent,
		time_limit_sec,max_attempts,randomize,published,questions_json,created_at FROM quizzes WHERE 1=1`
	args := []interface{}{}
	if opts.SubjectID != "" {
		args = append(args, opts.SubjectID)
		query += fmt.Sprintf(" AND subject_id=$%d", len(args))
	}
	if opts.Kind != "" {
		args = append(args, string(opts.Kind))
		query += fmt.Sprintf(" AND kind=$%d", len(args))
	}
	if opts.Published {
		query += " AND published=TRUE"
	}
	query += " ORDER BY id"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var q Quiz
	var kind, qjson string
	var created sql.NullInt64
	if err := row.Scan(&q.ID, &q.SubjectID, &q.Title, &kind, &q.PreTestID, &q.PassPercent,
		&q.TimeLimitSec, &q.MaxAttempts, &q.Randomize, &q.Published, &qjson, &created); err != nil {
		return Quiz{}, err
	}
	q.Kind = Kind(kind)
	q.CreatedAt = created.Int64
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, err
	}
	return q, nil
}
