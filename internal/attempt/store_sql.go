package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/learngate/learngate-lms/internal/apperr"
	"github.com/learngate/learngate-lms/internal/scoring"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const attemptCols = `id,quiz_id,learner_id,number,status,started_at,deadline,submitted_at,
	time_spent_sec,expired,earned_points,total_points,percentage,passed,question_order_json,responses_json`

func (s *SQLStore) Start(ctx context.Context, a Attempt) (Attempt, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, false, err
	}
	defer tx.Rollback()

	if existing, err := s.openAttempt(ctx, tx, a.LearnerID, a.QuizID); err == nil {
		return existing, true, tx.Commit()
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, false, err
	}

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE learner_id=$1 AND quiz_id=$2`,
		a.LearnerID, a.QuizID).Scan(&n); err != nil {
		return Attempt{}, false, err
	}
	a.Number = n + 1
	a.Status = StatusInProgress

	oj, _ := json.Marshal(a.QuestionOrder)
	rj, _ := json.Marshal(map[string]scoring.Response{})
	_, err = tx.ExecContext(ctx, `INSERT INTO attempts
		(id,quiz_id,learner_id,number,status,started_at,deadline,question_order_json,responses_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.QuizID, a.LearnerID, a.Number, string(a.Status), a.StartedAt, a.Deadline, string(oj), string(rj))
	if err != nil {
		// the partial unique index on (learner_id, quiz_id) WHERE
		// status='in_progress' fires when two Starts raced; hand back the
		// row the other call created
		if existing, qerr := s.openAttemptDB(ctx, a.LearnerID, a.QuizID); qerr == nil {
			return existing, true, nil
		}
		return Attempt{}, false, err
	}
	a.Responses = map[string]scoring.Response{}
	return a, false, tx.Commit()
}

func (s *SQLStore) openAttempt(ctx context.Context, tx *sql.Tx, learnerID, quizID string) (Attempt, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE learner_id=$1 AND quiz_id=$2 AND status='in_progress'`, learnerID, quizID)
	return scanAttempt(row)
}

func (s *SQLStore) openAttemptDB(ctx context.Context, learnerID, quizID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE learner_id=$1 AND quiz_id=$2 AND status='in_progress'`, learnerID, quizID)
	return scanAttempt(row)
}

func (s *SQLStore) Get(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, apperr.E(apperr.KindNotFound, "attempt not found")
	}
	if err != nil {
		return Attempt{}, err
	}
	answers, err := s.loadAnswers(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	a.Answers = answers
	return a, nil
}

func (s *SQLStore) SaveResponses(ctx context.Context, id string, resp map[string]scoring.Response) (Attempt, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Attempt{}, err
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
	buf, _ := json.Marshal(a.Responses)
	_, err = s.db.ExecContext(ctx,
		`UPDATE attempts SET responses_json=$1 WHERE id=$2 AND status='in_progress'`, string(buf), id)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) Finalize(ctx context.Context, a Attempt) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	rj, _ := json.Marshal(a.Responses)
	res, err := tx.ExecContext(ctx, `UPDATE attempts SET
		status='completed', submitted_at=$1, time_spent_sec=$2, expired=$3,
		earned_points=$4, total_points=$5, percentage=$6, passed=$7, responses_json=$8
		WHERE id=$9 AND status='in_progress'`,
		a.SubmittedAt, a.TimeSpentSec, a.Expired,
		a.EarnedPoints, a.TotalPoints, a.Percentage, a.Passed, string(rj), a.ID)
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := s.Get(ctx, a.ID); gerr != nil {
			return Attempt{}, gerr
		}
		return Attempt{}, apperr.E(apperr.KindForbidden, "attempt is not in progress")
	}
	for _, ans := range a.Answers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO attempt_answers
			(attempt_id,question_id,option_id,answer_text,points,max_points,needs_manual)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.ID, ans.QuestionID, ans.OptionID, ans.Text, ans.Points, ans.MaxPoints, ans.NeedsManual); err != nil {
			return Attempt{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	a.Status = StatusCompleted
	return a, nil
}

func (s *SQLStore) UpdateScore(ctx context.Context, id string, answers []scoring.AnswerScore, earned, percentage float64, passed bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, ans := range answers {
		if _, err := tx.ExecContext(ctx, `UPDATE attempt_answers
			SET points=$1, needs_manual=$2 WHERE attempt_id=$3 AND question_id=$4`,
			ans.Points, ans.NeedsManual, id, ans.QuestionID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE attempts SET earned_points=$1, percentage=$2, passed=$3 WHERE id=$4`,
		earned, percentage, passed, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) CompletedCount(ctx context.Context, learnerID, quizID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE learner_id=$1 AND quiz_id=$2 AND status='completed'`,
		learnerID, quizID).Scan(&n)
	return n, err
}

func (s *SQLStore) BestCompleted(ctx context.Context, learnerID, quizID string) (float64, bool, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT percentage, passed FROM attempts
		WHERE learner_id=$1 AND quiz_id=$2 AND status='completed'
		ORDER BY percentage DESC LIMIT 1`, learnerID, quizID)
	var pct float64
	var passed bool
	if err := row.Scan(&pct, &passed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, false, nil
		}
		return 0, false, false, err
	}
	return pct, passed, true, nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Attempt, error) {
	query := `SELECT ` + attemptCols + ` FROM attempts WHERE 1=1`
	args := []interface{}{}
	if opts.QuizID != "" {
		args = append(args, opts.QuizID)
		query += fmt.Sprintf(" AND quiz_id=$%d", len(args))
	}
	if opts.LearnerID != "" {
		args = append(args, opts.LearnerID)
		query += fmt.Sprintf(" AND learner_id=$%d", len(args))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	query += " ORDER BY started_at DESC"
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
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) AbandonStale(ctx context.Context, now int64, graceSec int) ([]Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	rows, err := tx.QueryContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE status='in_progress' AND deadline > 0 AND deadline + $1 < $2`,
		int64(graceSec), now)
	if err != nil {
		return nil, err
	}
	var stale []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range stale {
		if _, err := tx.ExecContext(ctx,
			`UPDATE attempts SET status='abandoned' WHERE id=$1 AND status='in_progress'`,
			stale[i].ID); err != nil {
			return nil, err
		}
		stale[i].Status = StatusAbandoned
	}
	return stale, tx.Commit()
}

func (s *SQLStore) loadAnswers(ctx context.Context, attemptID string) ([]scoring.AnswerScore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT question_id,option_id,answer_text,points,max_points,needs_manual
		FROM attempt_answers WHERE attempt_id=$1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []scoring.AnswerScore
	for rows.Next() {
		var a scoring.AnswerScore
		if err := rows.Scan(&a.QuestionID, &a.OptionID, &a.Text, &a.Points, &a.MaxPoints, &a.NeedsManual); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var status, oj, rj string
	var submitted, deadline sql.NullInt64
	var timeSpent sql.NullInt64
	if err := row.Scan(&a.ID, &a.QuizID, &a.LearnerID, &a.Number, &status, &a.StartedAt,
		&deadline, &submitted, &timeSpent, &a.Expired,
		&a.EarnedPoints, &a.TotalPoints, &a.Percentage, &a.Passed, &oj, &rj); err != nil {
		return Attempt{}, err
	}
	a.Status = Status(status)
	a.Deadline = deadline.Int64
	a.SubmittedAt = submitted.Int64
	a.TimeSpentSec = int(timeSpent.Int64)
	if err := json.Unmarshal([]byte(oj), &a.QuestionOrder); err != nil {
		a.QuestionOrder = nil
	}
	if err := json.Unmarshal([]byte(rj), &a.Responses); err != nil {
		a.Responses = map[string]scoring.Response{}
	}
	return a, nil
}
