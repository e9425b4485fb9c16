package lesson

import (
	"context"
	"testing"

	"github.com/learngate/learngate-lms/internal/apperr"
)

func TestValidateChain(t *testing.T) {
	ok := []Unit{
		{ID: "a", SubjectID: "s1"},
		{ID: "b", SubjectID: "s1", PrereqID: "a"},
		{ID: "c", SubjectID: "s1", PrereqID: "b"},
	}
	if err := ValidateChain(ok); err != nil {
		t.Fatalf("valid chain rejected: %v", err)
	}

	dangling := []Unit{{ID: "a", SubjectID: "s1", PrereqID: "ghost"}}
	if err := ValidateChain(dangling); apperr.KindOf(err) != apperr.KindDataIntegrity {
		t.Fatalf("want data_integrity for dangling prereq, got %v", err)
	}

	cycle := []Unit{
		{ID: "a", SubjectID: "s1", PrereqID: "b"},
		{ID: "b", SubjectID: "s1", PrereqID: "a"},
	}
	if err := ValidateChain(cycle); apperr.KindOf(err) != apperr.KindDataIntegrity {
		t.Fatalf("want data_integrity for cycle, got %v", err)
	}

	self := []Unit{{ID: "a", SubjectID: "s1", PrereqID: "a"}}
	if err := ValidateChain(self); apperr.KindOf(err) != apperr.KindDataIntegrity {
		t.Fatalf("want data_integrity for self-reference, got %v", err)
	}
}

func TestMarkCompleteIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.PutUnit(ctx, Unit{ID: "l1", SubjectID: "s1", Published: true}); err != nil {
		t.Fatalf("put unit: %v", err)
	}

	p1, err := store.MarkComplete(ctx, "lrn", "l1")
	if err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	p2, err := store.MarkComplete(ctx, "lrn", "l1")
	if err != nil {
		t.Fatalf("second mark complete: %v", err)
	}
	if p1.ID != p2.ID || p1.CompletedAt != p2.CompletedAt {
		t.Fatalf("repeat completion must return the original row: %+v vs %+v", p1, p2)
	}

	done, err := store.IsCompleted(ctx, "lrn", "l1")
	if err != nil || !done {
		t.Fatalf("want completed, got %v err=%v", done, err)
	}
}

func TestMarkCompleteUnknownLesson(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.MarkComplete(context.Background(), "lrn", "ghost")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestCountProgressPublishedOnly(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	units := []Unit{
		{ID: "l1", SubjectID: "s1", Position: 1, Published: true},
		{ID: "l2", SubjectID: "s1", Position: 2, Published: true},
		{ID: "l3", SubjectID: "s1", Position: 3, Published: false}, // draft
		{ID: "x1", SubjectID: "s2", Position: 1, Published: true},  // other subject
	}
	for _, u := range units {
		if err := store.PutUnit(ctx, u); err != nil {
			t.Fatalf("put unit: %v", err)
		}
	}
	if _, err := store.MarkComplete(ctx, "lrn", "l1"); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	// completing a draft must not count toward the published total
	if _, err := store.MarkComplete(ctx, "lrn", "l3"); err != nil {
		t.Fatalf("mark complete draft: %v", err)
	}

	c, err := store.CountProgress(ctx, "lrn", "s1")
	if err != nil {
		t.Fatalf("count progress: %v", err)
	}
	if c.Completed != 1 || c.Total != 2 {
		t.Fatalf("want 1/2, got %d/%d", c.Completed, c.Total)
	}
	if c.AllDone() {
		t.Fatal("1 of 2 is not done")
	}

	if _, err := store.MarkComplete(ctx, "lrn", "l2"); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	c, _ = store.CountProgress(ctx, "lrn", "s1")
	if !c.AllDone() {
		t.Fatalf("2 of 2 should be done, got %+v", c)
	}
}

func TestAllDoneRequiresPublishedUnits(t *testing.T) {
	var empty Counts
	if empty.AllDone() {
		t.Fatal("zero published units must not count as done")
	}
}

func TestListUnitsOrderedByPosition(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for _, u := range []Unit{
		{ID: "l3", SubjectID: "s1", Position: 3},
		{ID: "l1", SubjectID: "s1", Position: 1},
		{ID: "l2", SubjectID: "s1", Position: 2},
	} {
		if err := store.PutUnit(ctx, u); err != nil {
			t.Fatalf("put unit: %v", err)
		}
	}
	out, err := store.ListUnits(ctx, "s1")
	if err != nil {
		t.Fatalf("list units: %v", err)
	}
	if len(out) != 3 || out[0].ID != "l1" || out[2].ID != "l3" {
		t.Fatalf("want position order l1,l2,l3, got %v", out)
	}
}
