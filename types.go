package main

import (
	"agrowatch/models"
)

// Request/response DTOs. Keep them minimal and explicit.

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
}

// farmReq is the body of create and update; update replaces every field.
type farmReq struct {
	Name string          `json:"name"`
	Crop string          `json:"crop"`
	Area *models.Polygon `json:"area"` // GeoJSON Polygon, exterior ring only
}

type weatherDay struct {
	Date            string  `json:"date"` // YYYY-MM-DD
	TempMeanC       float64 `json:"temp_mean_c"`
	TempMaxC        float64 `json:"temp_max_c"`
	PrecipitationMm float64 `json:"precipitation_mm"`
	IsForecast      bool    `json:"is_forecast"`
}

func toWeatherDays(series []models.WeatherSample) []weatherDay {
	out := make([]weatherDay, len(series))
	for i, s := range series {
		out[i] = weatherDay{
			Date:            s.Date.Format(models.DateLayout),
			TempMeanC:       s.TempMeanC,
			TempMaxC:        s.TempMaxC,
			PrecipitationMm: s.PrecipitationMm,
			IsForecast:      s.Forecast,
		}
	}
	return out
}

type statusResp struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
