package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/models"
	"github.com/axellelanca/clickstream/internal/repository"
)

func TestGetAnalytics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	clickRepo := repository.NewClickRepository(env.db)
	svc := NewAnalyticsService(env.repo, clickRepo)

	require.NoError(t, env.repo.CreateLink(ctx, &models.ShortURL{ShortCode: "abc123", OriginalURL: "https://a.example", OwnerID: "u1"}))

	country, city := "FR", "Paris"
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, clickRepo.CreateClick(ctx, &models.Click{ShortCode: "abc123", ClientIP: "203.0.113.5", Timestamp: ts, Country: &country, City: &city}))
	require.NoError(t, clickRepo.CreateClick(ctx, &models.Click{ShortCode: "abc123", ClientIP: "10.0.0.1", Timestamp: ts.Add(time.Hour)}))

	analytics, err := svc.GetAnalytics(ctx, "abc123", "u1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", analytics.ShortCode)
	assert.EqualValues(t, 2, analytics.TotalClicks)
	assert.Equal(t, []models.DailyClickCount{{Date: "2026-05-04", Count: 2}}, analytics.DailyClicks)
	assert.Len(t, analytics.GeoData, 2)
}

func TestGetAnalytics_NoClicks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewAnalyticsService(env.repo, repository.NewClickRepository(env.db))
	require.NoError(t, env.repo.CreateLink(ctx, &models.ShortURL{ShortCode: "abc123", OriginalURL: "https://a.example", OwnerID: "u1"}))

	analytics, err := svc.GetAnalytics(ctx, "abc123", "u1")
	require.NoError(t, err)
	assert.Zero(t, analytics.TotalClicks)
	assert.Empty(t, analytics.DailyClicks)
	assert.Empty(t, analytics.GeoData)
}

func TestGetAnalytics_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewAnalyticsService(env.repo, repository.NewClickRepository(env.db))
	require.NoError(t, env.repo.CreateLink(ctx, &models.ShortURL{ShortCode: "abc123", OriginalURL: "https://a.example", OwnerID: "u1"}))

	_, err := svc.GetAnalytics(ctx, "abc123", "u2")
	assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)

	_, err = svc.GetAnalytics(ctx, "nope00", "u1")
	assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)
}
