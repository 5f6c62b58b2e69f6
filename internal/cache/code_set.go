package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeSetKey = "short_codes"

// CodeSet is the fast-path membership set of allocated short codes.
// It may contain codes that never made it to the database; it is advisory only.
type CodeSet struct {
	client  redis.Cmdable
	timeout time.Duration
}

// NewCodeSet creates the membership set accessor.
func NewCodeSet(client redis.Cmdable, timeout time.Duration) *CodeSet {
	return &CodeSet{client: client, timeout: timeout}
}

// Contains reports whether shortCode was already handed out.
func (s *CodeSet) Contains(ctx context.Context, shortCode string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.client.SIsMember(ctx, codeSetKey, shortCode).Result()
	if err != nil {
		return false, fmt.Errorf("code set contains %s: %w", shortCode, err)
	}
	return ok, nil
}

// Add records shortCode as allocated.
func (s *CodeSet) Add(ctx context.Context, shortCode string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.SAdd(ctx, codeSetKey, shortCode).Err(); err != nil {
		return fmt.Errorf("code set add %s: %w", shortCode, err)
	}
	return nil
}
