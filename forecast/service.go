// Package forecast derives model features from vegetation and weather series
// and predicts near-future NDVI for a farm.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agrowatch/geo"
	"agrowatch/models"
	"agrowatch/observability"

	"github.com/jonboulle/clockwork"
)

// ImageryClient returns NDVI readings over a polygon, most-recent-first,
// already filtered by cloud cover. An empty slice means no usable scene.
type ImageryClient interface {
	Readings(ctx context.Context, area models.Polygon, from, to time.Time) ([]models.VegetationReading, error)
}

// WeatherClient returns pastDays+forecastDays daily samples in date order,
// the first pastDays tagged historical.
type WeatherClient interface {
	Daily(ctx context.Context, lat, lon float64, pastDays, forecastDays int) ([]models.WeatherSample, error)
}

// Options controls the windows the service asks for.
type Options struct {
	HistoricalDays int
	ForecastDays   int
	PredictDays    int
	LookbackDays   int

	// Rolling feeds each predicted value forward as the next day's current
	// reading. When false the vegetation pair stays fixed across the curve.
	Rolling bool
}

// Chart is the NDVI series for a farm: observed readings inside the
// historical window, then one prediction per forward day.
type Chart struct {
	Readings    []models.NdviPoint
	Predictions []models.NdviPoint
	Weather     []models.WeatherSample
}

// Points returns readings followed by predictions.
func (c Chart) Points() []models.NdviPoint {
	out := make([]models.NdviPoint, 0, len(c.Readings)+len(c.Predictions))
	out = append(out, c.Readings...)
	return append(out, c.Predictions...)
}

// Service wires the imagery and weather gateways to a predictor.
type Service struct {
	imagery   ImageryClient
	weather   WeatherClient
	predictor Predictor
	opts      Options
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService creates a Service. A nil clock uses real time.
func NewService(imagery ImageryClient, weather WeatherClient, predictor Predictor, opts Options, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		imagery:   imagery,
		weather:   weather,
		predictor: predictor,
		opts:      opts,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// Predictor exposes the configured strategy, e.g. for readiness checks.
func (s *Service) Predictor() Predictor { return s.predictor }

// Current predicts NDVI for today.
func (s *Service) Current(ctx context.Context, farm models.Farm) (float64, error) {
	readings, err := s.readings(ctx, farm)
	if err != nil {
		return 0, err
	}
	pair, ok := latestPair(readings)
	if !ok {
		return 0, ErrNoImagery
	}

	series, err := s.Weather(ctx, farm)
	if err != nil {
		return 0, err
	}
	window, err := Window(series, s.opts.HistoricalDays)
	if err != nil {
		return 0, err
	}
	return s.predict(Input{Pair: pair, Window: window})
}

// Chart builds the multi-day curve: for each forward day a fresh window of the
// WindowSize samples ending at that day is derived.
func (s *Service) Chart(ctx context.Context, farm models.Farm) (Chart, error) {
	readings, err := s.readings(ctx, farm)
	if err != nil {
		return Chart{}, err
	}
	pair, ok := latestPair(readings)
	if !ok {
		return Chart{}, ErrNoImagery
	}

	series, err := s.Weather(ctx, farm)
	if err != nil {
		return Chart{}, err
	}

	chart := Chart{Weather: series, Predictions: make([]models.NdviPoint, 0, s.opts.PredictDays)}
	for day := 1; day <= s.opts.PredictDays; day++ {
		window, err := Window(series, s.opts.HistoricalDays+day)
		if err != nil {
			return Chart{}, err
		}
		v, err := s.predict(Input{Pair: pair, Window: window})
		if err != nil {
			return Chart{}, err
		}
		chart.Predictions = append(chart.Predictions, models.NdviPoint{
			Date:       window[0].Date.Format(models.DateLayout),
			NDVI:       v,
			IsForecast: true,
		})
		if s.opts.Rolling {
			pair = VegetationPair{Lag: pair.Current, Current: v}
		}
	}

	chart.Readings = s.historyPoints(readings, chart.Predictions)
	return chart, nil
}

// Weather fetches the historical+forecast series at the farm centroid.
func (s *Service) Weather(ctx context.Context, farm models.Farm) ([]models.WeatherSample, error) {
	lat, lon := geo.Centroid(farm.Area)
	series, err := s.weather.Daily(ctx, lat, lon, s.opts.HistoricalDays, s.opts.ForecastDays)
	if err != nil {
		return nil, fmt.Errorf("weather for farm %d: %w", farm.ID, err)
	}
	return series, nil
}

func (s *Service) readings(ctx context.Context, farm models.Farm) ([]models.VegetationReading, error) {
	to := s.today()
	from := to.AddDate(0, 0, -s.opts.LookbackDays)
	readings, err := s.imagery.Readings(ctx, farm.Area, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("imagery for farm %d: %w", farm.ID, err)
	}
	if len(readings) == 0 {
		s.logger.Info("no cloud-free imagery", "farm_id", farm.ID, "from", from.Format(models.DateLayout))
	}
	return readings, nil
}

// historyPoints keeps readings inside the historical window, oldest first and
// one per date, strictly before the first prediction.
func (s *Service) historyPoints(readings []models.VegetationReading, predictions []models.NdviPoint) []models.NdviPoint {
	since := s.today().AddDate(0, 0, -(s.opts.HistoricalDays - 1)).Format(models.DateLayout)
	until := ""
	if len(predictions) > 0 {
		until = predictions[0].Date
	}

	out := make([]models.NdviPoint, 0, len(readings))
	for i := len(readings) - 1; i >= 0; i-- {
		date := readings[i].Date.UTC().Format(models.DateLayout)
		if date < since || (until != "" && date >= until) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Date >= date {
			continue
		}
		out = append(out, models.NdviPoint{Date: date, NDVI: readings[i].Value})
	}
	return out
}

func (s *Service) predict(in Input) (float64, error) {
	v, err := s.predictor.Predict(in)
	if err != nil {
		s.metrics.Predictions.WithLabelValues(s.predictor.Name(), "error").Inc()
		return 0, err
	}
	s.metrics.Predictions.WithLabelValues(s.predictor.Name(), "success").Inc()
	return v, nil
}

func (s *Service) today() time.Time {
	now := s.clock.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
