package application

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestPinAllocator_ReturnsTenDigitCode(t *testing.T) {
	t.Parallel()

	code, err := NewPinAllocator().Allocate(context.Background(), func(context.Context, string) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if len(code) != 10 || code[0] == '0' {
		t.Fatalf("expected a 10-digit code without leading zero, got %q", code)
	}
	if _, err := strconv.ParseUint(code, 10, 64); err != nil {
		t.Fatalf("code %q is not numeric", code)
	}
}

func TestPinAllocator_ExhaustsAfterBound(t *testing.T) {
	t.Parallel()

	checks, collisions := 0, 0
	alloc := NewPinAllocator().OnCollision(func() { collisions++ })
	_, err := alloc.Allocate(context.Background(), func(context.Context, string) (bool, error) {
		checks++
		return true, nil
	})
	if !errors.Is(err, ErrPinExhausted) {
		t.Fatalf("expected ErrPinExhausted, got %v", err)
	}
	if checks != DefaultPinAttempts || collisions != DefaultPinAttempts {
		t.Fatalf("expected %d checks and collisions, got %d and %d", DefaultPinAttempts, checks, collisions)
	}
}

func TestPinAllocator_RetriesUntilFree(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	code, err := NewPinAllocator().WithMaxAttempts(3).Allocate(context.Background(), func(_ context.Context, c string) (bool, error) {
		seen[c] = true
		return len(seen) < 3, nil
	})
	if err != nil {
		t.Fatalf("Allocate returned error: %v", err)
	}
	if !seen[code] {
		t.Fatalf("returned code %q was never checked", code)
	}
}

func TestPinAllocator_PropagatesFailures(t *testing.T) {
	t.Parallel()

	_, err := NewPinAllocator().WithRandom(failingReader{}).Allocate(context.Background(), func(context.Context, string) (bool, error) {
		return false, nil
	})
	if err == nil || errors.Is(err, ErrPinExhausted) {
		t.Fatalf("expected random source failure, got %v", err)
	}

	lookupErr := errors.New("store down")
	_, err = NewPinAllocator().Allocate(context.Background(), func(context.Context, string) (bool, error) {
		return false, lookupErr
	})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
