package application

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/example/meeting-rooms/internal/metrics"
)

const (
	// DefaultPinAttempts bounds dial-in code generation.
	DefaultPinAttempts = 10

	pinLow  = 1_000_000_000
	pinHigh = 10_000_000_000
)

// CodeExists reports whether a dial-in code is already taken.
type CodeExists func(ctx context.Context, code string) (bool, error)

// PinAllocator draws 10-digit dial-in codes from a cryptographically strong
// source until an unused one is found.
type PinAllocator struct {
	random      io.Reader
	maxAttempts int
	onCollision func()
}

// NewPinAllocator returns an allocator reading from crypto/rand.
func NewPinAllocator() *PinAllocator {
	return &PinAllocator{random: rand.Reader, maxAttempts: DefaultPinAttempts}
}

// WithRandom replaces the random source.
func (a *PinAllocator) WithRandom(r io.Reader) *PinAllocator {
	a.random = r
	return a
}

// WithMaxAttempts replaces the attempt bound.
func (a *PinAllocator) WithMaxAttempts(n int) *PinAllocator {
	if n > 0 {
		a.maxAttempts = n
	}
	return a
}

// OnCollision registers a callback invoked for every taken code.
func (a *PinAllocator) OnCollision(fn func()) *PinAllocator {
	a.onCollision = fn
	return a
}

// Allocate returns an unused code or ErrPinExhausted after the attempt bound.
func (a *PinAllocator) Allocate(ctx context.Context, exists CodeExists) (string, error) {
	span := big.NewInt(pinHigh - pinLow)
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		n, err := rand.Int(a.random, span)
		if err != nil {
			return "", fmt.Errorf("generate dial-in code: %w", err)
		}
		code := fmt.Sprintf("%d", n.Int64()+pinLow)

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check dial-in code: %w", err)
		}
		if !taken {
			return code, nil
		}
		a.collided()
	}
	return "", ErrPinExhausted
}

func (a *PinAllocator) collided() {
	metrics.PinCollisionsTotal.Inc()
	if a.onCollision != nil {
		a.onCollision()
	}
}
