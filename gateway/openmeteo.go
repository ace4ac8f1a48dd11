package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agrowatch/models"
	"agrowatch/observability"
)

const openMeteoDaily = "temperature_2m_mean,temperature_2m_max,precipitation_sum"

// OpenMeteoClient fetches daily weather for a point from the Open-Meteo
// forecast API, which serves past days and forecast days in one response.
type OpenMeteoClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewOpenMeteoClient creates a weather client.
func NewOpenMeteoClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *OpenMeteoClient {
	return &OpenMeteoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Daily returns pastDays+forecastDays samples ascending by date. The first
// pastDays are observed history; the rest, starting today, are forecast.
// Days are UTC calendar days, matching the imagery date range.
func (c *OpenMeteoClient) Daily(ctx context.Context, lat, lon float64, pastDays, forecastDays int) ([]models.WeatherSample, error) {
	params := url.Values{
		"latitude":      {strconv.FormatFloat(lat, 'f', 6, 64)},
		"longitude":     {strconv.FormatFloat(lon, 'f', 6, 64)},
		"daily":         {openMeteoDaily},
		"past_days":     {strconv.Itoa(pastDays)},
		"forecast_days": {strconv.Itoa(forecastDays)},
		"timezone":      {"UTC"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := call(c.httpClient, req, ServiceWeather, c.metrics, c.logger)
	if err != nil {
		return nil, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		record(c.metrics, ServiceWeather, outcomeError)
		return nil, upstreamErr(ServiceWeather, http.StatusOK, fmt.Errorf("decode forecast: %w", err))
	}
	samples, err := resp.samples(pastDays, pastDays+forecastDays)
	if err != nil {
		record(c.metrics, ServiceWeather, outcomeError)
		return nil, upstreamErr(ServiceWeather, http.StatusOK, err)
	}
	record(c.metrics, ServiceWeather, outcomeSuccess)
	return samples, nil
}

// Open-Meteo response types. Series are parallel arrays and may hold nulls.

type forecastResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		TempMean      []*float64 `json:"temperature_2m_mean"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		Precipitation []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

func (r forecastResponse) samples(pastDays, want int) ([]models.WeatherSample, error) {
	d := r.Daily
	if len(d.Time) != want {
		return nil, fmt.Errorf("expected %d daily samples, got %d", want, len(d.Time))
	}
	if len(d.TempMean) != want || len(d.TempMax) != want || len(d.Precipitation) != want {
		return nil, errors.New("daily series lengths differ")
	}

	out := make([]models.WeatherSample, 0, want)
	for i, day := range d.Time {
		date, err := time.Parse(models.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("daily time %q: %w", day, err)
		}
		if d.TempMean[i] == nil || d.TempMax[i] == nil {
			return nil, fmt.Errorf("missing temperature on %s", day)
		}
		var precip float64
		if p := d.Precipitation[i]; p != nil {
			precip = *p
		}
		out = append(out, models.WeatherSample{
			Date:            date,
			TempMeanC:       *d.TempMean[i],
			TempMaxC:        *d.TempMax[i],
			PrecipitationMm: precip,
			Forecast:        i >= pastDays,
		})
	}
	return out, nil
}
