// Package audit appends engine decisions to an append-only event log.
// Nothing in the engine reads the log back; it exists for reporting and
// offline reconciliation.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

// Event types written by the engine.
const (
	TypeGateEvaluated    = "GateEvaluated"
	TypeAttemptStarted   = "AttemptStarted"
	TypeAttemptSubmitted = "AttemptSubmitted"
	TypeAttemptAbandoned = "AttemptAbandoned"
	TypeRemedialOpened   = "RemedialOpened"
	TypeRemedialResolved = "RemedialResolved"
	TypeQuizUnscoreable  = "QuizUnscoreable"
)

type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: attemptID, learnerID|quizID, ...
	DataJSON  string
	CreatedAt int64
}

type Recorder interface {
	Append(ctx context.Context, typ, key string, data interface{}) error
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, typ, key string, data interface{}) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().Unix())
	return err
}

// MemoryRecorder collects events in memory; used by tests and as a no-op
// stand-in when no DB is wired.
type MemoryRecorder struct {
	mu     sync.Mutex
	Events []Event
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (m *MemoryRecorder) Append(_ context.Context, typ, key string, data interface{}) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, Event{
		Offset:    int64(len(m.Events) + 1),
		Type:      typ,
		Key:       key,
		DataJSON:  string(buf),
		CreatedAt: time.Now().Unix(),
	})
	return nil
}

// ByType filters collected events; test helper.
func (m *MemoryRecorder) ByType(typ string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
