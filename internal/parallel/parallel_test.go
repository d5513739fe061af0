package parallel

import (
	"errors"
	"testing"

	"go.uber.org/atomic"
)

func TestForCoversRange(t *testing.T) {
	for _, threads := range []uint64{0, 1, 4, 16} {
		var sum atomic.Uint64
		err := For(10, 1000, threads, func(i uint64) error {
			sum.Add(i)
			return nil
		})
		if err != nil {
			t.Fatalf("threads=%d: %v", threads, err)
		}
		// sum of 10..999
		want := uint64((10 + 999) * 990 / 2)
		if sum.Load() != want {
			t.Errorf("threads=%d: sum = %d, want %d", threads, sum.Load(), want)
		}
	}
}

func TestForEmptyRange(t *testing.T) {
	called := false
	if err := For(5, 5, 4, func(uint64) error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("functor called on empty range")
	}
}

func TestForPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	for _, threads := range []uint64{1, 8} {
		err := For(0, 100, threads, func(i uint64) error {
			if i == 42 {
				return boom
			}
			return nil
		})
		if !errors.Is(err, boom) {
			t.Errorf("threads=%d: got %v, want boom", threads, err)
		}
	}
}
