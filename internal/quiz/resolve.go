package quiz

import (
	"context"

	"github.com/learngate/learngate-lms/internal/apperr"
)

// ResolvePreTestLink fixes a post_test's counterpart at definition time so
// the gate never has to re-discover it per request. An explicit link is
// verified; otherwise the subject's single pre_test is adopted. A subject
// holding more than one pre_test is ambiguous and refused.
func ResolvePreTestLink(ctx context.Context, store Store, q *Quiz) error {
	if q.Kind != KindPostTest {
		return nil
	}
	if q.PreTestID != "" {
		pt, err := store.GetQuiz(ctx, q.PreTestID)
		if err != nil {
			return apperr.Wrap(apperr.KindDataIntegrity, "linked pre-test missing", err)
		}
		if pt.Kind != KindPreTest {
			return apperr.E(apperr.KindDataIntegrity, "linked quiz is not a pre-test")
		}
		return nil
	}
	pres, err := store.ListQuizzes(ctx, ListOpts{SubjectID: q.SubjectID, Kind: KindPreTest})
	if err != nil {
		return err
	}
	switch len(pres) {
	case 0:
		// no pre-test in the subject: nothing to link, gate falls back to lessons
		return nil
	case 1:
		q.PreTestID = pres[0].ID
		return nil
	default:
		return apperr.E(apperr.KindDataIntegrity, "subject has multiple pre-tests; link one explicitly")
	}
}
