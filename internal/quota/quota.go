// Package quota asks the external user service whether an owner may create another link.
package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	customerrors "github.com/axellelanca/clickstream/internal/errors"
)

// Checker decides whether ownerID may create one more short URL.
// It returns ErrQuotaExceeded or ErrUserNotFound when creation must be denied.
type Checker interface {
	Check(ctx context.Context, ownerID string) error
}

// Usage is the body of GET /users/{id}/quota.
type Usage struct {
	Quota int `json:"quota"`
	Used  int `json:"used"`
}

// HTTPChecker calls the user service over HTTP.
type HTTPChecker struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPChecker creates a checker for the user service at baseURL.
func NewHTTPChecker(baseURL string, timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Check denies the request when used >= quota.
func (c *HTTPChecker) Check(ctx context.Context, ownerID string) error {
	usage, err := c.Usage(ctx, ownerID)
	if err != nil {
		return err
	}
	if usage.Used >= usage.Quota {
		return fmt.Errorf("owner %s used %d of %d: %w", ownerID, usage.Used, usage.Quota, customerrors.ErrQuotaExceeded)
	}
	return nil
}

// Usage fetches the owner's quota and current usage.
func (c *HTTPChecker) Usage(ctx context.Context, ownerID string) (*Usage, error) {
	endpoint := fmt.Sprintf("%s/users/%s/quota", c.baseURL, url.PathEscape(ownerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build quota request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quota request for %s: %w", ownerID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("quota for %s: %w", ownerID, customerrors.ErrUserNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("quota for %s: user service answered %d", ownerID, resp.StatusCode)
	}

	var usage Usage
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return nil, fmt.Errorf("decode quota for %s: %w", ownerID, err)
	}
	return &usage, nil
}

// Unlimited lets every owner through; used when quota.enabled is false.
type Unlimited struct{}

// Check always allows.
func (Unlimited) Check(context.Context, string) error { return nil }
