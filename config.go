package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"agrowatch/forecast"
	"agrowatch/store"
)

const (
	chartModeFixed   = "fixed"
	chartModeRolling = "rolling"
)

type Config struct {
	Port            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBDriver    string
	DatabaseURL string
	MongoURI    string
	MongoDB     string

	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins []string

	SentinelBaseURL      string
	SentinelTokenURL     string
	SentinelClientID     string
	SentinelClientSecret string
	SentinelTimeout      time.Duration
	MaxCloudCover        float64
	NDVILookbackDays     int

	WeatherBaseURL string
	WeatherTimeout time.Duration

	HistoricalDays int
	ForecastDays   int
	PredictDays    int
	Predictor      string
	ModelPath      string
	ChartMode      string
}

// Load reads configuration from the environment, applying defaults where
// unset. Errors name the offending variable.
func Load() (Config, error) {
	var errs []error
	dur := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getenv(key, def))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s", key))
		}
		return d
	}
	num := func(key string, def int) int {
		n, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s", key))
		}
		return n
	}

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", "10s"),

		DBDriver:    getenv("DB_DRIVER", store.DriverPostgres),
		DatabaseURL: getenv("DATABASE_URL", postgresURLFromParts()),
		MongoURI:    getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getenv("MONGO_DB", "agrowatch"),

		JWTSecret:   getenv("JWT_SECRET", "change_me"),
		JWTTTL:      dur("JWT_TTL", "24h"),
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173,http://localhost:3000")),

		SentinelBaseURL:      getenv("SENTINEL_BASE_URL", "https://services.sentinel-hub.com"),
		SentinelTokenURL:     getenv("SENTINEL_TOKEN_URL", "https://services.sentinel-hub.com/auth/realms/main/protocol/openid-connect/token"),
		SentinelClientID:     os.Getenv("SENTINEL_CLIENT_ID"),
		SentinelClientSecret: os.Getenv("SENTINEL_CLIENT_SECRET"),
		SentinelTimeout:      dur("SENTINEL_TIMEOUT", "30s"),
		NDVILookbackDays:     num("NDVI_LOOKBACK_DAYS", 90),

		WeatherBaseURL: getenv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
		WeatherTimeout: dur("WEATHER_TIMEOUT", "20s"),

		HistoricalDays: num("HISTORICAL_DAYS", 7),
		ForecastDays:   num("FORECAST_DAYS", 14),
		PredictDays:    num("PREDICT_DAYS", 7),
		Predictor:      strings.ToLower(getenv("PREDICTOR", forecast.StrategyAuto)),
		ModelPath:      getenv("MODEL_PATH", "model/ndvi_regression.json"),
		ChartMode:      strings.ToLower(getenv("CHART_MODE", chartModeFixed)),
	}

	cloud, err := strconv.ParseFloat(getenv("MAX_CLOUD_COVER", "20"), 64)
	if err != nil || cloud < 0 || cloud > 100 {
		errs = append(errs, errors.New("invalid MAX_CLOUD_COVER: want 0..100"))
	}
	cfg.MaxCloudCover = cloud

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBDriver {
	case store.DriverPostgres, store.DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for DB_DRIVER=%s", c.DBDriver)
		}
	case store.DriverMongo, store.DriverMemory:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q", c.DBDriver)
	}
	switch c.Predictor {
	case forecast.StrategyAuto, forecast.StrategyHeuristic, forecast.StrategyModel:
	default:
		return fmt.Errorf("invalid PREDICTOR %q", c.Predictor)
	}
	switch c.ChartMode {
	case chartModeFixed, chartModeRolling:
	default:
		return fmt.Errorf("invalid CHART_MODE %q", c.ChartMode)
	}
	if c.NDVILookbackDays < 1 {
		return errors.New("NDVI_LOOKBACK_DAYS must be at least 1")
	}
	if c.PredictDays < 1 {
		return errors.New("PREDICT_DAYS must be at least 1")
	}
	if c.HistoricalDays+1 < forecast.WindowSize {
		return fmt.Errorf("HISTORICAL_DAYS must be at least %d", forecast.WindowSize-1)
	}
	if c.PredictDays >= c.ForecastDays {
		return errors.New("PREDICT_DAYS must be less than FORECAST_DAYS")
	}
	return nil
}

// postgresURLFromParts composes a DSN from POSTGRES_* variables, or returns
// "" when any of them is missing.
func postgresURLFromParts() string {
	user, pass := os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD")
	host, db := os.Getenv("POSTGRES_HOST"), os.Getenv("POSTGRES_DB")
	if user == "" || pass == "" || host == "" || db == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host,
		Path:     "/" + db,
		RawQuery: "sslmode=" + getenv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
