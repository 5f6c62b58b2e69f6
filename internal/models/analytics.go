package models

// Analytics is the read-time summary of the clicks recorded for one short code.
type Analytics struct {
	ShortCode   string            `json:"short_code"`
	TotalClicks int64             `json:"total_clicks"`
	DailyClicks []DailyClickCount `json:"daily_clicks"`
	GeoData     []GeoClickCount   `json:"geo_data"`
}

// DailyClickCount is the number of clicks ingested on one UTC day.
type DailyClickCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// GeoClickCount is the number of clicks for one country/city pair.
// Both keys are nil for clicks that could not be geolocated.
type GeoClickCount struct {
	Country *string `json:"country"`
	City    *string `json:"city"`
	Count   int64   `json:"count"`
}
