package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
)

// charset defines the character set used for generating short codes.
// Uses alphanumeric characters (both cases) for a total of 62 possible characters.
// This gives us 62^6 = ~56 billion possible combinations for 6-character codes.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// ShortCodeLength is the length of every generated code.
	ShortCodeLength = 6
	// DefaultMaxAttempts is the number of draws before allocation gives up.
	DefaultMaxAttempts = 5
)

// MembershipSet is the fast-path set of codes already handed out.
type MembershipSet interface {
	Contains(ctx context.Context, shortCode string) (bool, error)
	Add(ctx context.Context, shortCode string) error
}

// CodeLookup answers whether the durable store already holds a code.
type CodeLookup interface {
	ShortCodeExists(ctx context.Context, shortCode string) (bool, error)
}

// Allocation is the outcome of Allocate: either a fresh code, or Exhausted when
// every attempt collided.
type Allocation struct {
	Code     string
	Attempts int
}

// Exhausted reports that no unique code was found within the attempt budget.
func (a Allocation) Exhausted() bool {
	return a.Code == ""
}

// ShortCodeAllocator draws random codes and checks them against the membership
// set first and the durable store second. The durable unique constraint remains
// the final word: two allocators may both hand out the same code, and the loser
// finds out at commit time.
type ShortCodeAllocator struct {
	set         MembershipSet
	store       CodeLookup
	maxAttempts int
	generate    func() (string, error)
}

// AllocatorOption customizes a ShortCodeAllocator.
type AllocatorOption func(*ShortCodeAllocator)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) AllocatorOption {
	return func(a *ShortCodeAllocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithCodeGenerator replaces the random generator.
func WithCodeGenerator(gen func() (string, error)) AllocatorOption {
	return func(a *ShortCodeAllocator) {
		a.generate = gen
	}
}

// NewShortCodeAllocator creates an allocator.
func NewShortCodeAllocator(set MembershipSet, store CodeLookup, opts ...AllocatorOption) *ShortCodeAllocator {
	a := &ShortCodeAllocator{
		set:         set,
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		generate:    func() (string, error) { return GenerateShortCode(ShortCodeLength) },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GenerateShortCode generates a cryptographically secure random short code.
func GenerateShortCode(length int) (string, error) {
	code := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// Allocate returns a code unknown to both the membership set and the durable
// store, or an Exhausted allocation after maxAttempts collisions. The error is
// reserved for generator and durable store failures.
func (a *ShortCodeAllocator) Allocate(ctx context.Context) (Allocation, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.generate()
		if err != nil {
			return Allocation{Attempts: attempt}, fmt.Errorf("failed to generate short code: %w", err)
		}

		taken, err := a.set.Contains(ctx, code)
		if err != nil {
			// The set is only an accelerator; let the database decide.
			log.Printf("Short code set unavailable, checking database only: %v", err)
			taken = false
		}
		if !taken {
			taken, err = a.store.ShortCodeExists(ctx, code)
			if err != nil {
				return Allocation{Attempts: attempt}, fmt.Errorf("database error checking short code uniqueness: %w", err)
			}
		}
		if taken {
			log.Printf("Short code '%s' already exists, retrying generation (%d/%d)...", code, attempt, a.maxAttempts)
			continue
		}

		if err := a.set.Add(ctx, code); err != nil {
			log.Printf("Failed to record short code '%s' in set: %v", code, err)
		}
		return Allocation{Code: code, Attempts: attempt}, nil
	}
	return Allocation{Attempts: a.maxAttempts}, nil
}
