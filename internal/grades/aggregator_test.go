package grades

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learngate/learngate-lms/internal/apperr"
	"github.com/learngate/learngate-lms/internal/quiz"
)

type fakeAttempts map[string]float64 // quizID -> best completed percentage

func (f fakeAttempts) BestCompleted(_ context.Context, _, quizID string) (float64, bool, bool, error) {
	pct, ok := f[quizID]
	return pct, pct >= 75, ok, nil
}

func seedSubject(t *testing.T, store quiz.Store, s quiz.Subject, quizIDs ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutSubject(ctx, s))
	for _, id := range quizIDs {
		require.NoError(t, store.PutQuiz(ctx, quiz.Quiz{
			ID: id, SubjectID: s.ID, Kind: quiz.KindRegular, Published: true,
		}))
	}
}

func TestGradePointBands(t *testing.T) {
	cases := []struct {
		pct  float64
		want float64
	}{
		{100, 1.00},
		{97, 1.00},
		{96.99, 1.25},
		{94, 1.25},
		{91, 1.50},
		{90, 1.75},
		{85, 2.00},
		{76, 2.75},
		{75, 3.00},
		{74.99, 5.00},
		{0, 5.00},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GradePoint(c.pct), "pct %.2f", c.pct)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, "passed", StatusFor(1.00))
	assert.Equal(t, "passed", StatusFor(3.00))
	assert.Equal(t, "failed", StatusFor(5.00))
}

func TestSubjectGradeAveragesBestAttempts(t *testing.T) {
	store := quiz.NewInMemoryStore()
	seedSubject(t, store, quiz.Subject{ID: "math", Name: "Mathematics", Units: 3}, "m1", "m2", "m3")

	agg := NewAggregator(store, fakeAttempts{"m1": 95, "m2": 85})
	sg, err := agg.SubjectGrade(context.Background(), "lrn", "math")
	require.NoError(t, err)

	assert.Equal(t, 2, sg.QuizzesTaken)
	assert.Equal(t, 3, sg.QuizzesTotal)
	// m3 was never attempted and does not drag the average down
	assert.Equal(t, 90.0, sg.PercentageAverage)
	assert.Equal(t, 1.75, sg.GradePoint)
	assert.Equal(t, "passed", sg.Status)
}

func TestSubjectGradeNoAttempts(t *testing.T) {
	store := quiz.NewInMemoryStore()
	seedSubject(t, store, quiz.Subject{ID: "sci", Name: "Science", Units: 2}, "s1")

	agg := NewAggregator(store, fakeAttempts{})
	sg, err := agg.SubjectGrade(context.Background(), "lrn", "sci")
	require.NoError(t, err)

	assert.Equal(t, "no_attempts", sg.Status)
	assert.Equal(t, 0.0, sg.GradePoint)
}

func TestSubjectGradeUnknownSubject(t *testing.T) {
	agg := NewAggregator(quiz.NewInMemoryStore(), fakeAttempts{})
	_, err := agg.SubjectGrade(context.Background(), "lrn", "ghost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestOverallWeightedAverageSkipsUntouchedSubjects(t *testing.T) {
	store := quiz.NewInMemoryStore()
	seedSubject(t, store, quiz.Subject{ID: "math", Name: "Mathematics", Units: 3}, "m1", "m2")
	seedSubject(t, store, quiz.Subject{ID: "sci", Name: "Science", Units: 2}, "s1")

	// math averages 90% -> 1.75; science untouched
	agg := NewAggregator(store, fakeAttempts{"m1": 95, "m2": 85})
	gwa, err := agg.OverallWeightedAverage(context.Background(), "lrn")
	require.NoError(t, err)
	assert.Equal(t, 1.75, gwa)
}

func TestOverallWeightedAverageUnitWeighting(t *testing.T) {
	store := quiz.NewInMemoryStore()
	seedSubject(t, store, quiz.Subject{ID: "math", Name: "Mathematics", Units: 3}, "m1")
	seedSubject(t, store, quiz.Subject{ID: "pe", Name: "PE", Units: 1}, "p1")

	// math 97% -> 1.00 at 3 units; pe 75% -> 3.00 at 1 unit
	agg := NewAggregator(store, fakeAttempts{"m1": 97, "p1": 75})
	gwa, err := agg.OverallWeightedAverage(context.Background(), "lrn")
	require.NoError(t, err)
	assert.Equal(t, 1.50, gwa) // (1.00*3 + 3.00*1) / 4
}

func TestOverallWeightedAverageNoSubjects(t *testing.T) {
	agg := NewAggregator(quiz.NewInMemoryStore(), fakeAttempts{})
	gwa, err := agg.OverallWeightedAverage(context.Background(), "lrn")
	require.NoError(t, err)
	assert.Equal(t, 0.0, gwa)
}
