package solver

import (
	"context"
	"errors"
	"testing"
)

type countingSolver struct {
	calls int
	reply string
	err   error
}

func (c *countingSolver) Solve(ctx context.Context, smtlib string) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestCacheReturnsMemoizedResultWithoutRecalling(t *testing.T) {
	inner := &countingSolver{reply: "sat"}
	cache := NewCache(inner)

	for i := 0; i < 3; i++ {
		got, err := cache.Solve(context.Background(), "(check-sat)")
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		if got != "sat" {
			t.Fatalf("Solve = %q, want sat", got)
		}
	}

	if inner.calls != 1 {
		t.Fatalf("inner solver called %d times, want 1", inner.calls)
	}
}

func TestCacheDoesNotMemoizeErrors(t *testing.T) {
	inner := &countingSolver{err: errors.New("z3 crashed")}
	cache := NewCache(inner)

	if _, err := cache.Solve(context.Background(), "q"); err == nil {
		t.Fatal("expected an error from the wrapped solver")
	}
	if _, err := cache.Solve(context.Background(), "q"); err == nil {
		t.Fatal("expected an error on the second call too")
	}
	if inner.calls != 2 {
		t.Fatalf("inner solver called %d times, want 2 (errors not cached)", inner.calls)
	}
}

func TestDefaultZ3PathIsNonEmpty(t *testing.T) {
	if got := defaultZ3Path(); got == "" {
		t.Fatal("defaultZ3Path returned empty string")
	}
}
