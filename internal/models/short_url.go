package models

import "time"

// ShortURL is the durable mapping from a short code to its destination URL.
// Rows are immutable once created and are never deleted.
type ShortURL struct {
	// ShortCode is the primary key, so the database itself rejects a duplicate code
	// even when two allocators raced past the fast-path membership check.
	ShortCode   string    `gorm:"primaryKey;size:10" json:"short_code"`
	OriginalURL string    `gorm:"not null" json:"original_url"`
	OwnerID     string    `gorm:"size:64;not null;index" json:"owner_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName pins the table name used by GORM.
func (ShortURL) TableName() string {
	return "short_urls"
}
