package models

import "time"

// DateLayout is the ISO-8601 calendar date used on the wire.
const DateLayout = "2006-01-02"

// VegetationReading is one cloud-filtered NDVI observation over a farm polygon.
type VegetationReading struct {
	Date     time.Time
	Value    float64 // -1..1
	SourceID string  // e.g. "sentinel-2-l2a:2024-05-01"
}

// WeatherSample is one day of weather at a farm centroid.
type WeatherSample struct {
	Date            time.Time
	TempMeanC       float64
	TempMaxC        float64
	PrecipitationMm float64
	Forecast        bool // false for observed past days
}

// NdviPoint is one point of the NDVI chart.
type NdviPoint struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	NDVI       float64 `json:"ndvi"`
	IsForecast bool    `json:"is_forecast"`
}
