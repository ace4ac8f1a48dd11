package forecast

import (
	"fmt"

	"agrowatch/models"
)

// Strategy names, also used as metric labels.
const (
	StrategyHeuristic = "heuristic"
	StrategyModel     = "model"
	StrategyAuto      = "auto"
)

// Input is everything a single prediction may look at.
type Input struct {
	Pair   VegetationPair
	Window []models.WeatherSample // most-recent-first
}

// Predictor turns an input into a predicted NDVI value.
type Predictor interface {
	Name() string
	Predict(in Input) (float64, error)
	// Ready reports whether Predict can succeed at all.
	Ready() error
}

// NewPredictor selects a strategy. In auto mode a nil model falls back to the
// heuristic; in model mode a nil model yields a predictor that always fails
// with ErrModelUnavailable.
func NewPredictor(strategy string, model *Regression) (Predictor, error) {
	switch strategy {
	case StrategyHeuristic:
		return Heuristic{}, nil
	case StrategyModel:
		return &ModelPredictor{model: model}, nil
	case StrategyAuto, "":
		if model == nil {
			return Heuristic{}, nil
		}
		return &ModelPredictor{model: model}, nil
	default:
		return nil, fmt.Errorf("unknown predictor strategy %q", strategy)
	}
}

// Heuristic is the closed-form predictor:
// clip(ndvi + 0.01*avg max temp - 0.005*avg precipitation, 0, 1).
// It ignores the lag reading.
type Heuristic struct{}

func (Heuristic) Name() string { return StrategyHeuristic }

func (Heuristic) Ready() error { return nil }

func (Heuristic) Predict(in Input) (float64, error) {
	if len(in.Window) == 0 {
		return 0, fmt.Errorf("%w: empty window", ErrInsufficientWeather)
	}
	var sumTemp, sumPrecip float64
	for _, w := range in.Window {
		sumTemp += w.TempMaxC
		sumPrecip += w.PrecipitationMm
	}
	n := float64(len(in.Window))
	return clip(in.Pair.Current+0.01*(sumTemp/n)-0.005*(sumPrecip/n), 0, 1), nil
}

// ModelPredictor feeds derived features into a fitted regression. Its output
// is not clipped.
type ModelPredictor struct {
	model *Regression
}

// NewModelPredictor wraps a loaded model; nil is allowed and reports unavailable.
func NewModelPredictor(model *Regression) *ModelPredictor {
	return &ModelPredictor{model: model}
}

func (p *ModelPredictor) Name() string { return StrategyModel }

func (p *ModelPredictor) Ready() error {
	if p.model == nil {
		return ErrModelUnavailable
	}
	return nil
}

func (p *ModelPredictor) Predict(in Input) (float64, error) {
	if p.model == nil {
		return 0, ErrModelUnavailable
	}
	f, err := DeriveFeatures(in.Pair, in.Window)
	if err != nil {
		return 0, err
	}
	return p.model.Predict(f.Vector()), nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
