package remedial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/learngate/learngate-lms/internal/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const cols = `id,learner_id,quiz_id,reason,status,created_at,due_at,
	trigger_attempt_id,resolved_attempt_id,resolved_at,resolution_score,remarks`

func (s *SQLStore) Get(ctx context.Context, id string) (Assignment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cols+` FROM remedial_assignments WHERE id=$1`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, apperr.E(apperr.KindNotFound, "remedial assignment not found")
	}
	return a, err
}

func (s *SQLStore) GetOpen(ctx context.Context, learnerID, quizID string) (Assignment, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cols+` FROM remedial_assignments
		WHERE learner_id=$1 AND quiz_id=$2 AND status != 'completed'`, learnerID, quizID)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, false, nil
	}
	if err != nil {
		return Assignment{}, false, err
	}
	return a, true, nil
}

func (s *SQLStore) CreateOpen(ctx context.Context, a Assignment) (Assignment, bool, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO remedial_assignments
		(id,learner_id,quiz_id,reason,status,created_at,due_at,trigger_attempt_id,remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.LearnerID, a.QuizID, a.Reason, string(a.Status), a.CreatedAt, a.DueAt,
		a.TriggerAttemptID, a.Remarks)
	if err == nil {
		return a, true, nil
	}
	// the partial unique index on (learner_id, quiz_id) WHERE status !=
	// 'completed' fired: relink the existing open assignment instead
	existing, found, qerr := s.GetOpen(ctx, a.LearnerID, a.QuizID)
	if qerr != nil {
		return Assignment{}, false, qerr
	}
	if !found {
		return Assignment{}, false, err
	}
	if _, uerr := s.db.ExecContext(ctx,
		`UPDATE remedial_assignments SET trigger_attempt_id=$1 WHERE id=$2`,
		a.TriggerAttemptID, existing.ID); uerr != nil {
		return Assignment{}, false, uerr
	}
	existing.TriggerAttemptID = a.TriggerAttemptID
	return existing, false, nil
}

func (s *SQLStore) Update(ctx context.Context, a Assignment) error {
	res, err := s.db.ExecContext(ctx, `UPDATE remedial_assignments SET
		reason=$1, status=$2, due_at=$3, trigger_attempt_id=$4,
		resolved_attempt_id=$5, resolved_at=$6, resolution_score=$7, remarks=$8
		WHERE id=$9`,
		a.Reason, string(a.Status), a.DueAt, a.TriggerAttemptID,
		a.ResolvedAttemptID, a.ResolvedAt, a.ResolutionScore, a.Remarks, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.E(apperr.KindNotFound, "remedial assignment not found")
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Assignment, error) {
	query := `SELECT ` + cols + ` FROM remedial_assignments WHERE 1=1`
	args := []interface{}{}
	if opts.LearnerID != "" {
		args = append(args, opts.LearnerID)
		query += fmt.Sprintf(" AND learner_id=$%d", len(args))
	}
	if opts.QuizID != "" {
		args = append(args, opts.QuizID)
		query += fmt.Sprintf(" AND quiz_id=$%d", len(args))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	query += " ORDER BY created_at DESC"
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
	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(row rowScanner) (Assignment, error) {
	var a Assignment
	var status string
	var resolvedAt sql.NullInt64
	var resolvedBy, remarks sql.NullString
	var score sql.NullFloat64
	if err := row.Scan(&a.ID, &a.LearnerID, &a.QuizID, &a.Reason, &status, &a.CreatedAt, &a.DueAt,
		&a.TriggerAttemptID, &resolvedBy, &resolvedAt, &score, &remarks); err != nil {
		return Assignment{}, err
	}
	a.Status = Status(status)
	a.ResolvedAttemptID = resolvedBy.String
	a.ResolvedAt = resolvedAt.Int64
	a.ResolutionScore = score.Float64
	a.Remarks = remarks.String
	return a, nil
}
