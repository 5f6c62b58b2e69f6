package services

import (
	"context"

	"github.com/axellelanca/clickstream/internal/models"
	"github.com/axellelanca/clickstream/internal/repository"
)

// AnalyticsService answers click statistics queries for link owners.
type AnalyticsService struct {
	linkRepo  repository.LinkRepository
	clickRepo repository.ClickRepository
}

// NewAnalyticsService creates and returns a new instance of AnalyticsService.
func NewAnalyticsService(linkRepo repository.LinkRepository, clickRepo repository.ClickRepository) *AnalyticsService {
	return &AnalyticsService{linkRepo: linkRepo, clickRepo: clickRepo}
}

// GetAnalytics returns total, per-day and per-location click counts for shortCode.
// A code that exists but belongs to someone else is reported as not found.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, shortCode, ownerID string) (*models.Analytics, error) {
	if _, err := s.linkRepo.GetLinkByShortCodeAndOwner(ctx, shortCode, ownerID); err != nil {
		return nil, err
	}

	total, err := s.clickRepo.CountClicksByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	daily, err := s.clickRepo.DailyClicksByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	geo, err := s.clickRepo.GeoClicksByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	return &models.Analytics{
		ShortCode:   shortCode,
		TotalClicks: total,
		DailyClicks: daily,
		GeoData:     geo,
	}, nil
}
