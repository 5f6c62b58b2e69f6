package models

import "time"

// Click is an enriched click stored in the database.
// This model is append-only: one row per ingested click message.
type Click struct {
	// ID is the primary key with auto-increment functionality
	ID uint `gorm:"primaryKey"`

	// ShortCode and Timestamp share a composite index so per-link range and
	// grouping queries stay cheap.
	ShortCode string `gorm:"size:10;not null;index:idx_clicks_short_code_timestamp,priority:1"`

	// ClientIP stores the caller address as received on the redirect
	// - size:45: sufficient for both IPv4 and IPv6 addresses
	ClientIP string `gorm:"size:45;not null"`

	// Timestamp is assigned when the click is ingested, not when the redirect happened.
	Timestamp time.Time `gorm:"not null;index:idx_clicks_short_code_timestamp,priority:2"`

	// Geo fields stay NULL when enrichment fails or the IP is not in the geo database.
	Country   *string `gorm:"size:8"`
	City      *string `gorm:"size:128"`
	Latitude  *float64
	Longitude *float64
}

// ClickEvent is the raw click fact published on the click queue.
// It only carries what the redirect path knows; enrichment happens in the consumer.
type ClickEvent struct {
	ShortCode   string    `json:"short_code"`
	ClientIP    string    `json:"client_ip"`
	PublishedAt time.Time `json:"published_at"`
}
