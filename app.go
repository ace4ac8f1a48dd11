package main

import (
	"context"
	"errors"
	"log/slog"

	"agrowatch/forecast"
	"agrowatch/gateway"
	"agrowatch/observability"
	"agrowatch/store"

	"github.com/jonboulle/clockwork"
)

type App struct {
	cfg      Config
	store    store.Store
	forecast *forecast.Service
	metrics  *observability.Metrics
	logger   *slog.Logger
	clock    clockwork.Clock
}

func newApp(ctx context.Context, cfg Config, metrics *observability.Metrics, logger *slog.Logger) (*App, error) {
	st, err := store.Open(ctx, store.Options{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DatabaseURL,
		MongoURI: cfg.MongoURI,
		MongoDB:  cfg.MongoDB,
	})
	if err != nil {
		return nil, err
	}

	predictor, err := loadPredictor(cfg, metrics, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	imagery := gateway.NewSentinelClient(gateway.SentinelConfig{
		BaseURL:       cfg.SentinelBaseURL,
		TokenURL:      cfg.SentinelTokenURL,
		ClientID:      cfg.SentinelClientID,
		ClientSecret:  cfg.SentinelClientSecret,
		Timeout:       cfg.SentinelTimeout,
		MaxCloudCover: cfg.MaxCloudCover,
	}, metrics, logger)
	weather := gateway.NewOpenMeteoClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)

	clock := clockwork.NewRealClock()
	svc := forecast.NewService(imagery, weather, predictor, forecastOptions(cfg), clock, metrics, logger)

	return &App{
		cfg:      cfg,
		store:    st,
		forecast: svc,
		metrics:  metrics,
		logger:   logger,
		clock:    clock,
	}, nil
}

func forecastOptions(cfg Config) forecast.Options {
	return forecast.Options{
		HistoricalDays: cfg.HistoricalDays,
		ForecastDays:   cfg.ForecastDays,
		PredictDays:    cfg.PredictDays,
		LookbackDays:   cfg.NDVILookbackDays,
		Rolling:        cfg.ChartMode == chartModeRolling,
	}
}

// loadPredictor reads the model artifact once at startup and picks the
// strategy. Only a missing or broken artifact is tolerated; bad strategy
// names fail startup.
func loadPredictor(cfg Config, metrics *observability.Metrics, logger *slog.Logger) (forecast.Predictor, error) {
	var model *forecast.Regression
	if cfg.Predictor != forecast.StrategyHeuristic {
		m, err := forecast.LoadRegression(cfg.ModelPath)
		switch {
		case err == nil:
			model = m
			metrics.ModelLoaded.Set(1)
			logger.Info("regression model loaded", "path", cfg.ModelPath, "name", m.Name)
		case errors.Is(err, forecast.ErrModelUnavailable) && cfg.Predictor == forecast.StrategyAuto:
			logger.Warn("regression model unavailable, falling back to heuristic", "path", cfg.ModelPath, "error", err)
		default:
			logger.Error("regression model unavailable, predictions will fail", "path", cfg.ModelPath, "error", err)
		}
	}

	p, err := forecast.NewPredictor(cfg.Predictor, model)
	if err != nil {
		return nil, err
	}
	logger.Info("predictor selected", "strategy", p.Name())
	return p, nil
}

func (a *App) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("store close error", "error", err)
	}
}
