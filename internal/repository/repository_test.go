package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/axellelanca/clickstream/internal/config"
	"github.com/axellelanca/clickstream/internal/database"
	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = filepath.Join(t.TempDir(), "test.db")
	cfg.Database.MaxOpenConns = 1

	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func strPtr(s string) *string { return &s }

func TestLinkRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewLinkRepository(newTestDB(t))

	link := &models.ShortURL{ShortCode: "Ab3dE9", OriginalURL: "https://a.example/x", OwnerID: "u1"}
	require.NoError(t, repo.CreateLink(ctx, link))

	got, err := repo.GetLinkByShortCode(ctx, "Ab3dE9")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example/x", got.OriginalURL)
	assert.Equal(t, "u1", got.OwnerID)

	exists, err := repo.ShortCodeExists(ctx, "Ab3dE9")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ShortCodeExists(ctx, "zzzzzz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLinkRepository_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewLinkRepository(newTestDB(t))

	require.NoError(t, repo.CreateLink(ctx, &models.ShortURL{ShortCode: "dup123", OriginalURL: "https://a.example", OwnerID: "u1"}))
	err := repo.CreateLink(ctx, &models.ShortURL{ShortCode: "dup123", OriginalURL: "https://b.example", OwnerID: "u2"})
	assert.ErrorIs(t, err, customerrors.ErrShortCodeConflict)

	got, err := repo.GetLinkByShortCode(ctx, "dup123")
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", got.OriginalURL, "first mapping is immutable")
}

func TestLinkRepository_NotFoundAndOwnership(t *testing.T) {
	ctx := context.Background()
	repo := NewLinkRepository(newTestDB(t))
	require.NoError(t, repo.CreateLink(ctx, &models.ShortURL{ShortCode: "own123", OriginalURL: "https://a.example", OwnerID: "u1"}))

	_, err := repo.GetLinkByShortCode(ctx, "zzzzzz")
	assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)

	_, err = repo.GetLinkByShortCodeAndOwner(ctx, "own123", "u2")
	assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)

	got, err := repo.GetLinkByShortCodeAndOwner(ctx, "own123", "u1")
	require.NoError(t, err)
	assert.Equal(t, "own123", got.ShortCode)
}

func TestClickRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	repo := NewClickRepository(newTestDB(t))

	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
	clicks := []models.Click{
		{ShortCode: "abc123", ClientIP: "203.0.113.5", Timestamp: day1, Country: strPtr("FR"), City: strPtr("Paris")},
		{ShortCode: "abc123", ClientIP: "203.0.113.6", Timestamp: day2, Country: strPtr("FR"), City: strPtr("Paris")},
		{ShortCode: "abc123", ClientIP: "198.51.100.1", Timestamp: day2},
		{ShortCode: "other1", ClientIP: "198.51.100.1", Timestamp: day2},
	}
	for i := range clicks {
		require.NoError(t, repo.CreateClick(ctx, &clicks[i]))
	}

	total, err := repo.CountClicksByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	daily, err := repo.DailyClicksByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []models.DailyClickCount{
		{Date: "2026-03-01", Count: 1},
		{Date: "2026-03-02", Count: 2},
	}, daily)

	geo, err := repo.GeoClicksByShortCode(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, geo, 2)
	require.NotNil(t, geo[0].Country)
	assert.Equal(t, "FR", *geo[0].Country)
	assert.Equal(t, "Paris", *geo[0].City)
	assert.EqualValues(t, 2, geo[0].Count)
	assert.Nil(t, geo[1].Country)
	assert.Nil(t, geo[1].City)
	assert.EqualValues(t, 1, geo[1].Count)
}

func TestClickRepository_NoClicks(t *testing.T) {
	ctx := context.Background()
	repo := NewClickRepository(newTestDB(t))

	total, err := repo.CountClicksByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Zero(t, total)

	daily, err := repo.DailyClicksByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Empty(t, daily)

	geo, err := repo.GeoClicksByShortCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Empty(t, geo)
}
