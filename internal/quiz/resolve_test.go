package quiz

import (
	"context"
	"testing"

	"github.com/learngate/learngate-lms/internal/apperr"
)

func TestResolvePreTestLinkAdoptsSinglePreTest(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	if err := store.PutQuiz(ctx, Quiz{ID: "pre", SubjectID: "s1", Kind: KindPreTest}); err != nil {
		t.Fatalf("put: %v", err)
	}

	post := Quiz{ID: "post", SubjectID: "s1", Kind: KindPostTest}
	if err := ResolvePreTestLink(ctx, store, &post); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if post.PreTestID != "pre" {
		t.Fatalf("want adopted link to pre, got %q", post.PreTestID)
	}
}

func TestResolvePreTestLinkNoPreTestInSubject(t *testing.T) {
	store := NewInMemoryStore()
	post := Quiz{ID: "post", SubjectID: "s1", Kind: KindPostTest}
	if err := ResolvePreTestLink(context.Background(), store, &post); err != nil {
		t.Fatalf("no pre-test should resolve to no link: %v", err)
	}
	if post.PreTestID != "" {
		t.Fatalf("want empty link, got %q", post.PreTestID)
	}
}

func TestResolvePreTestLinkAmbiguous(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"pre1", "pre2"} {
		if err := store.PutQuiz(ctx, Quiz{ID: id, SubjectID: "s1", Kind: KindPreTest}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	post := Quiz{ID: "post", SubjectID: "s1", Kind: KindPostTest}
	err := ResolvePreTestLink(ctx, store, &post)
	if apperr.KindOf(err) != apperr.KindDataIntegrity {
		t.Fatalf("two pre-tests in the subject is ambiguous, got %v", err)
	}
}

func TestResolvePreTestLinkVerifiesExplicitLink(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	if err := store.PutQuiz(ctx, Quiz{ID: "reg", SubjectID: "s1", Kind: KindRegular}); err != nil {
		t.Fatalf("put: %v", err)
	}

	post := Quiz{ID: "post", SubjectID: "s1", Kind: KindPostTest, PreTestID: "reg"}
	if err := ResolvePreTestLink(ctx, store, &post); apperr.KindOf(err) != apperr.KindDataIntegrity {
		t.Fatalf("link to a non-pre-test must be refused, got %v", err)
	}

	post.PreTestID = "ghost"
	if err := ResolvePreTestLink(ctx, store, &post); apperr.KindOf(err) != apperr.KindDataIntegrity {
		t.Fatalf("link to a missing quiz must be refused, got %v", err)
	}
}

func TestResolvePreTestLinkIgnoresNonPostTests(t *testing.T) {
	store := NewInMemoryStore()
	q := Quiz{ID: "q1", SubjectID: "s1", Kind: KindRegular}
	if err := ResolvePreTestLink(context.Background(), store, &q); err != nil {
		t.Fatalf("regular quizzes need no link: %v", err)
	}
}

func TestSanitizeStripsCorrectFlags(t *testing.T) {
	q := Quiz{Questions: []Question{{
		ID:   "1",
		Type: TypeChoice,
		Options: []Option{
			{ID: "a", Correct: true},
			{ID: "b"},
		},
	}}}
	clean := Sanitize(q)
	for _, opt := range clean.Questions[0].Options {
		if opt.Correct {
			t.Fatalf("option %s still flagged correct", opt.ID)
		}
	}
	// the source quiz keeps its answer key
	if !q.Questions[0].Options[0].Correct {
		t.Fatal("sanitize must not mutate the source quiz")
	}
}
