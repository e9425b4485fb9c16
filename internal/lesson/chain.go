package lesson

import (
	"fmt"

	"github.com/learngate/learngate-lms/internal/apperr"
)

// ValidateChain rejects prerequisite cycles and dangling references within
// one subject's units. Run before persisting a unit that names a PrereqID.
func ValidateChain(units []Unit) error {
	byID := make(map[string]Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	for _, u := range units {
		if u.PrereqID == "" {
			continue
		}
		if _, ok := byID[u.PrereqID]; !ok {
			return apperr.E(apperr.KindDataIntegrity,
				fmt.Sprintf("lesson %s: prerequisite %s not in subject", u.ID, u.PrereqID))
		}
		// walk the chain; revisiting the start means a cycle
		seen := map[string]bool{u.ID: true}
		cur := u.PrereqID
		for cur != "" {
			if seen[cur] {
				return apperr.E(apperr.KindDataIntegrity,
					fmt.Sprintf("lesson %s: prerequisite cycle", u.ID))
			}
			seen[cur] = true
			cur = byID[cur].PrereqID
		}
	}
	return nil
}
