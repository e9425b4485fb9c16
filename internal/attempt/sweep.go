package attempt

import (
	"context"
	"log"
	"time"

	"github.com/learngate/learngate-lms/internal/audit"
)

// Sweeper is the optional reconciliation job: it marks in_progress attempts
// whose deadline passed longer than the grace period ago as abandoned.
// Nothing in the synchronous contract depends on it running.
type Sweeper struct {
	store    Store
	rec      audit.Recorder
	interval time.Duration
	graceSec int
	now      func() time.Time
}

func NewSweeper(store Store, rec audit.Recorder, interval time.Duration, graceSec int) *Sweeper {
	return &Sweeper{store: store, rec: rec, interval: interval, graceSec: graceSec, now: time.Now}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				log.Printf("attempt sweep: %v", err)
			} else if n > 0 {
				log.Printf("attempt sweep: abandoned %d stale attempts", n)
			}
		}
	}
}

// SweepOnce performs a single pass and reports how many attempts it
// abandoned.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	swept, err := s.store.AbandonStale(ctx, s.now().Unix(), s.graceSec)
	if err != nil {
		return 0, err
	}
	for _, a := range swept {
		_ = s.rec.Append(ctx, audit.TypeAttemptAbandoned, a.ID, map[string]interface{}{
			"learner_id": a.LearnerID,
			"quiz_id":    a.QuizID,
			"deadline":   a.Deadline,
		})
	}
	return len(swept), nil
}
