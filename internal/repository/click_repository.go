package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/axellelanca/clickstream/internal/models"
	"gorm.io/gorm"
)

// ClickRepository est une interface qui définit les méthodes d'accès aux données
type ClickRepository interface {
	CreateClick(ctx context.Context, click *models.Click) error
	CountClicksByShortCode(ctx context.Context, shortCode string) (int64, error)
	DailyClicksByShortCode(ctx context.Context, shortCode string) ([]models.DailyClickCount, error)
	GeoClicksByShortCode(ctx context.Context, shortCode string) ([]models.GeoClickCount, error)
}

// GormClickRepository est l'implémentation de l'interface ClickRepository utilisant GORM.
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository crée et retourne une nouvelle instance de GormClickRepository.
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// CreateClick insère un nouvel enregistrement de clic dans la base de données.
func (r *GormClickRepository) CreateClick(ctx context.Context, click *models.Click) error {
	if err := r.db.WithContext(ctx).Create(click).Error; err != nil {
		return fmt.Errorf("failed to create click: %w", err)
	}
	return nil
}

// CountClicksByShortCode compte le nombre total de clics pour un shortCode.
func (r *GormClickRepository) CountClicksByShortCode(ctx context.Context, shortCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Click{}).
		Where("short_code = ?", shortCode).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks for %s: %w", shortCode, err)
	}
	return count, nil
}

// DailyClicksByShortCode groups clicks by UTC day, oldest first.
// Bucketing happens here rather than in SQL because date functions differ
// between SQLite and PostgreSQL.
func (r *GormClickRepository) DailyClicksByShortCode(ctx context.Context, shortCode string) ([]models.DailyClickCount, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).Model(&models.Click{}).
		Where("short_code = ?", shortCode).
		Order("timestamp").
		Pluck("timestamp", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load click timestamps for %s: %w", shortCode, err)
	}

	daily := make([]models.DailyClickCount, 0)
	for _, ts := range stamps {
		day := ts.UTC().Format("2006-01-02")
		if n := len(daily); n > 0 && daily[n-1].Date == day {
			daily[n-1].Count++
			continue
		}
		daily = append(daily, models.DailyClickCount{Date: day, Count: 1})
	}
	return daily, nil
}

// GeoClicksByShortCode groups clicks by country and city, most clicked first.
func (r *GormClickRepository) GeoClicksByShortCode(ctx context.Context, shortCode string) ([]models.GeoClickCount, error) {
	rows := make([]models.GeoClickCount, 0)
	err := r.db.WithContext(ctx).Model(&models.Click{}).
		Select("country, city, COUNT(*) AS count").
		Where("short_code = ?", shortCode).
		Group("country, city").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to group clicks by location for %s: %w", shortCode, err)
	}
	return rows, nil
}
