package forecast

import "errors"

var (
	// ErrNoImagery means no cloud-free scene covered the farm in the lookback range.
	ErrNoImagery = errors.New("no cloud-free imagery in range")

	// ErrModelUnavailable means the model-backed predictor has no trained artifact.
	ErrModelUnavailable = errors.New("regression model unavailable")

	// ErrInsufficientWeather means a weather window is too short for feature derivation.
	ErrInsufficientWeather = errors.New("insufficient weather samples")
)
