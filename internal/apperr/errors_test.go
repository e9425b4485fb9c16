package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := E(KindNotFound, "quiz not found")
	if !errors.Is(err, E(KindNotFound, "")) {
		t.Fatal("same kind should match regardless of message")
	}
	if errors.Is(err, E(KindForbidden, "")) {
		t.Fatal("different kinds must not match")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("want not_found, got %s", KindOf(err))
	}
}

func TestDeniedCarriesReason(t *testing.T) {
	err := Denied("lessons_required", "complete 2 more lessons")
	if KindOf(err) != KindAccessDenied {
		t.Fatalf("want access_denied, got %s", KindOf(err))
	}
	if ReasonOf(err) != "lessons_required" {
		t.Fatalf("want lessons_required, got %q", ReasonOf(err))
	}
	// a target with a reason set only matches the same reason
	if errors.Is(err, Denied("pre_test_required", "")) {
		t.Fatal("reasons must match when the target names one")
	}
	if !errors.Is(err, E(KindAccessDenied, "")) {
		t.Fatal("reasonless target matches on kind alone")
	}
}

func TestWrapPreservesChain(t *testing.T) {
	inner := errors.New("row not found")
	err := Wrap(KindDataIntegrity, "linked pre-test missing", inner)
	if !errors.Is(err, inner) {
		t.Fatal("wrapped cause must stay reachable")
	}
	if KindOf(err) != KindDataIntegrity {
		t.Fatalf("want data_integrity, got %s", KindOf(err))
	}
	if got := err.Error(); got != "linked pre-test missing: row not found" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(fmt.Errorf("boom")) != "" {
		t.Fatal("plain errors carry no kind")
	}
	if ReasonOf(nil) != "" {
		t.Fatal("nil carries no reason")
	}
}
