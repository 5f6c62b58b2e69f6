package models

// GeoInfo holds the geolocation of an IP address. Every field is optional.
type GeoInfo struct {
	Country   *string  `json:"country,omitempty"`
	City      *string  `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// IsEmpty reports whether no geo data is available.
func (g GeoInfo) IsEmpty() bool {
	return g.Country == nil && g.City == nil && g.Latitude == nil && g.Longitude == nil
}
