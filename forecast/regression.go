package forecast

import (
	"encoding/json"
	"fmt"
	"os"
)

// FeatureNames is the column order the regression artifact must declare.
var FeatureNames = [6]string{"ndvi_lag", "ndvi", "temp_short", "temp_long", "precip_total", "precip_x_temp"}

// Regression is a fitted linear estimator exported as JSON by the training job.
// It is read-only after loading and safe for concurrent use.
type Regression struct {
	Name         string    `json:"name"`
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadRegression reads and validates a model artifact. Every failure wraps
// ErrModelUnavailable.
func LoadRegression(path string) (*Regression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	var r Regression
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrModelUnavailable, path, err)
	}
	if len(r.Coefficients) != len(FeatureNames) {
		return nil, fmt.Errorf("%w: %s has %d coefficients, want %d", ErrModelUnavailable, path, len(r.Coefficients), len(FeatureNames))
	}
	if len(r.Features) > 0 {
		if len(r.Features) != len(FeatureNames) {
			return nil, fmt.Errorf("%w: %s declares %d features, want %d", ErrModelUnavailable, path, len(r.Features), len(FeatureNames))
		}
		for i, name := range r.Features {
			if name != FeatureNames[i] {
				return nil, fmt.Errorf("%w: %s feature %d is %q, want %q", ErrModelUnavailable, path, i, name, FeatureNames[i])
			}
		}
	}
	return &r, nil
}

// Predict evaluates intercept + sum(coef[i] * x[i]).
func (r *Regression) Predict(x [6]float64) float64 {
	y := r.Intercept
	for i, c := range r.Coefficients {
		y += c * x[i]
	}
	return y
}
