package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/models"
	"gorm.io/gorm"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux données
type LinkRepository interface {
	CreateLink(ctx context.Context, link *models.ShortURL) error
	GetLinkByShortCode(ctx context.Context, shortCode string) (*models.ShortURL, error)
	GetLinkByShortCodeAndOwner(ctx context.Context, shortCode, ownerID string) (*models.ShortURL, error)
	ShortCodeExists(ctx context.Context, shortCode string) (bool, error)
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink insère un nouveau lien dans la base de données.
// A primary key violation is reported as ErrShortCodeConflict.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.ShortURL) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create link %s: %w", link.ShortCode, customerrors.ErrShortCodeConflict)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetLinkByShortCode récupère un lien en utilisant son shortCode.
// Returns ErrShortCodeNotFound when no row matches.
func (r *GormLinkRepository) GetLinkByShortCode(ctx context.Context, shortCode string) (*models.ShortURL, error) {
	var link models.ShortURL
	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		return nil, notFound(err, shortCode)
	}
	return &link, nil
}

// GetLinkByShortCodeAndOwner récupère un lien seulement s'il appartient à ownerID.
func (r *GormLinkRepository) GetLinkByShortCodeAndOwner(ctx context.Context, shortCode, ownerID string) (*models.ShortURL, error) {
	var link models.ShortURL
	err := r.db.WithContext(ctx).
		Where("short_code = ? AND owner_id = ?", shortCode, ownerID).
		First(&link).Error
	if err != nil {
		return nil, notFound(err, shortCode)
	}
	return &link, nil
}

// ShortCodeExists vérifie si un shortCode est déjà enregistré.
func (r *GormLinkRepository) ShortCodeExists(ctx context.Context, shortCode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ShortURL{}).
		Where("short_code = ?", shortCode).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check short code %s: %w", shortCode, err)
	}
	return count > 0, nil
}

func notFound(err error, shortCode string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", shortCode, customerrors.ErrShortCodeNotFound)
	}
	return fmt.Errorf("failed to get link %s: %w", shortCode, err)
}

// isUniqueViolation recognizes duplicate keys from both drivers, whether or not
// the dialector translated the error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
