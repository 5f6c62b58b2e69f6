// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/axellelanca/clickstream/internal/cache"
	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/metrics"
	"github.com/axellelanca/clickstream/internal/models"
	"github.com/axellelanca/clickstream/internal/quota"
	"github.com/axellelanca/clickstream/internal/repository"
)

// maxCommitAttempts bounds how many freshly allocated codes Shorten tries to
// commit when the database reports a unique violation.
const maxCommitAttempts = 5

// ClickPublisher receives click facts from the redirect path.
// Implementations must not block and must not fail the redirect.
type ClickPublisher interface {
	Publish(shortCode, clientIP string)
}

// URLCache is the cache-aside accelerator in front of the link repository.
type URLCache interface {
	Get(ctx context.Context, shortCode string) (cache.Lookup[string], error)
	Set(ctx context.Context, shortCode, destination string) error
}

// LinkService provides business logic methods for managing shortened links.
// It acts as an intermediary between the HTTP handlers and the data repository.
type LinkService struct {
	linkRepo  repository.LinkRepository
	allocator *ShortCodeAllocator
	urlCache  URLCache
	quota     quota.Checker
	clicks    ClickPublisher
}

// NewLinkService creates and returns a new instance of LinkService.
func NewLinkService(
	linkRepo repository.LinkRepository,
	allocator *ShortCodeAllocator,
	urlCache URLCache,
	quotaChecker quota.Checker,
	clicks ClickPublisher,
) *LinkService {
	return &LinkService{
		linkRepo:  linkRepo,
		allocator: allocator,
		urlCache:  urlCache,
		quota:     quotaChecker,
		clicks:    clicks,
	}
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q: %w", raw, customerrors.ErrInvalidURL)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q: %w", raw, customerrors.ErrInvalidURL)
	}
	return nil
}

// ShortURL builds the public short link for code under baseURL.
func ShortURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}

// Shorten creates a new short URL owned by ownerID.
// The durable row is written before the cache entry, so a cached mapping
// always has a durable counterpart.
func (s *LinkService) Shorten(ctx context.Context, longURL, ownerID string) (*models.ShortURL, error) {
	if ownerID == "" {
		return nil, customerrors.ErrUnauthorized
	}
	if err := ValidateURL(longURL); err != nil {
		return nil, err
	}
	if err := s.quota.Check(ctx, ownerID); err != nil {
		return nil, err
	}

	for i := 0; i < maxCommitAttempts; i++ {
		alloc, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, err
		}
		if alloc.Exhausted() {
			return nil, fmt.Errorf("after %d attempts: %w", alloc.Attempts, customerrors.ErrShortCodeGenerationFailed)
		}

		link := &models.ShortURL{
			ShortCode:   alloc.Code,
			OriginalURL: longURL,
			OwnerID:     ownerID,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.linkRepo.CreateLink(ctx, link); err != nil {
			if errors.Is(err, customerrors.ErrShortCodeConflict) {
				// Another allocator committed the same code first.
				log.Printf("Short code '%s' taken at commit time, allocating again (%d/%d)...", alloc.Code, i+1, maxCommitAttempts)
				continue
			}
			return nil, err
		}

		if err := s.urlCache.Set(ctx, link.ShortCode, link.OriginalURL); err != nil {
			log.Printf("Failed to cache new link %s: %v", link.ShortCode, err)
		}
		return link, nil
	}
	return nil, fmt.Errorf("after %d commit conflicts: %w", maxCommitAttempts, customerrors.ErrShortCodeGenerationFailed)
}

// Resolve returns the destination of shortCode using cache-aside:
// cache first, then the database with cache repair. Unknown codes are not
// cached, so a code created later resolves immediately.
func (s *LinkService) Resolve(ctx context.Context, shortCode string) (string, error) {
	lookup, err := s.urlCache.Get(ctx, shortCode)
	if err != nil {
		metrics.URLCacheLookups.WithLabelValues("error").Inc()
		log.Printf("URL cache unavailable for %s, reading database: %v", shortCode, err)
	}
	if lookup.Hit {
		metrics.URLCacheLookups.WithLabelValues("hit").Inc()
		return lookup.Value, nil
	}
	if err == nil {
		metrics.URLCacheLookups.WithLabelValues("miss").Inc()
	}

	link, err := s.linkRepo.GetLinkByShortCode(ctx, shortCode)
	if err != nil {
		return "", err
	}

	if err := s.urlCache.Set(ctx, shortCode, link.OriginalURL); err != nil {
		log.Printf("Failed to repair URL cache for %s: %v", shortCode, err)
	}
	return link.OriginalURL, nil
}

// Redirect resolves shortCode and records the click without waiting on it.
func (s *LinkService) Redirect(ctx context.Context, shortCode, clientIP string) (string, error) {
	destination, err := s.Resolve(ctx, shortCode)
	if err != nil {
		return "", err
	}
	s.clicks.Publish(shortCode, clientIP)
	return destination, nil
}
