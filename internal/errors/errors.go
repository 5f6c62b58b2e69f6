package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the URL shortener and its click pipeline

// ErrShortCodeNotFound is returned when a short code doesn't exist (or isn't owned by the caller)
var ErrShortCodeNotFound = errors.New("short code not found")

// ErrInvalidURL is returned when the provided URL is not an absolute http(s) URL
var ErrInvalidURL = errors.New("invalid URL format")

// ErrInvalidIP is returned when a click event carries an unparseable client IP
var ErrInvalidIP = errors.New("invalid client IP address")

// ErrUserNotFound is returned when the user service does not know the owner
var ErrUserNotFound = errors.New("user not found")

// ErrQuotaExceeded is returned when the owner already used their whole URL quota
var ErrQuotaExceeded = errors.New("URL quota exceeded")

// ErrUnauthorized is returned when the request carries no valid owner identity
var ErrUnauthorized = errors.New("unauthorized")

// ErrShortCodeGenerationFailed is returned when we can't generate a unique short code
// within the attempt budget
var ErrShortCodeGenerationFailed = errors.New("failed to generate unique short code")

// ErrShortCodeConflict is returned by the durable store when a short code is already taken
// at commit time. Callers treat it as a collision and allocate again.
var ErrShortCodeConflict = errors.New("short code already exists")

// ErrClickRecordingFailed is returned when an enriched click can't be persisted
type ErrClickRecordingFailed struct {
	ShortCode string
	Reason    string
}

func (e ErrClickRecordingFailed) Error() string {
	return fmt.Sprintf("failed to record click for short code %s: %s", e.ShortCode, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
