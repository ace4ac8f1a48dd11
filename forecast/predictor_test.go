package forecast

import (
	"math"
	"testing"

	"agrowatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatWindow(maxTemp, precip float64) []models.WeatherSample {
	w := make([]models.WeatherSample, WindowSize)
	for i := range w {
		w[i] = models.WeatherSample{TempMeanC: maxTemp - 5, TempMaxC: maxTemp, PrecipitationMm: precip}
	}
	return w
}

func TestHeuristic_Formula(t *testing.T) {
	v, err := Heuristic{}.Predict(Input{Pair: VegetationPair{Current: 0.5}, Window: flatWindow(20, 4)})
	require.NoError(t, err)
	// 0.5 + 0.2 - 0.02
	assert.InDelta(t, 0.68, v, 1e-9)
}

func TestHeuristic_IgnoresLag(t *testing.T) {
	a, err := Heuristic{}.Predict(Input{Pair: VegetationPair{Lag: 0.1, Current: 0.5}, Window: flatWindow(20, 4)})
	require.NoError(t, err)
	b, err := Heuristic{}.Predict(Input{Pair: VegetationPair{Lag: 0.9, Current: 0.5}, Window: flatWindow(20, 4)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHeuristic_ClipsToUnitRange(t *testing.T) {
	tests := []struct {
		name    string
		ndvi    float64
		maxTemp float64
		precip  float64
		want    float64
	}{
		{"above one", 1.2, 25, 0, 1.0},
		{"exactly one", 0.9, 10, 0, 1.0},
		{"below zero", -0.8, 0, 40, 0.0},
		{"negative ndvi with heat", -1, 30, 0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Heuristic{}.Predict(Input{Pair: VegetationPair{Current: tt.ndvi}, Window: flatWindow(tt.maxTemp, tt.precip)})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestHeuristic_AlwaysInUnitRange(t *testing.T) {
	for ndvi := -1.0; ndvi <= 1.5; ndvi += 0.25 {
		for temp := -30.0; temp <= 50; temp += 10 {
			for precip := 0.0; precip <= 100; precip += 25 {
				v, err := Heuristic{}.Predict(Input{Pair: VegetationPair{Current: ndvi}, Window: flatWindow(temp, precip)})
				require.NoError(t, err)
				assert.False(t, math.IsNaN(v))
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
	}
}

func TestHeuristic_EmptyWindow(t *testing.T) {
	_, err := Heuristic{}.Predict(Input{Pair: VegetationPair{Current: 0.5}})
	require.ErrorIs(t, err, ErrInsufficientWeather)
}

func TestModelPredictor_Unclipped(t *testing.T) {
	model := &Regression{Intercept: 1, Coefficients: []float64{0, 1, 0, 0, 0, 0}}
	p := NewModelPredictor(model)
	require.NoError(t, p.Ready())

	v, err := p.Predict(Input{Pair: VegetationPair{Lag: 0.2, Current: 0.9}, Window: flatWindow(20, 1)})
	require.NoError(t, err)
	assert.InDelta(t, 1.9, v, 1e-9)
}

func TestModelPredictor_UsesDerivedFeatures(t *testing.T) {
	model := &Regression{Coefficients: []float64{1, 1, 1, 1, 1, 1}}
	p := NewModelPredictor(model)

	window := samples([2]float64{10, 0}, [2]float64{12, 0}, [2]float64{14, 1}, [2]float64{16, 2})
	v, err := p.Predict(Input{Pair: VegetationPair{Lag: 0.4, Current: 0.6}, Window: window})
	require.NoError(t, err)
	assert.InDelta(t, 0.4+0.6+11+15+3+39, v, 1e-9)
}

func TestModelPredictor_NoModel(t *testing.T) {
	p := NewModelPredictor(nil)
	require.ErrorIs(t, p.Ready(), ErrModelUnavailable)

	_, err := p.Predict(Input{Window: flatWindow(20, 0)})
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestModelPredictor_ShortWindow(t *testing.T) {
	p := NewModelPredictor(&Regression{Coefficients: make([]float64, 6)})
	_, err := p.Predict(Input{Window: flatWindow(20, 0)[:2]})
	require.ErrorIs(t, err, ErrInsufficientWeather)
}

func TestNewPredictor_Strategies(t *testing.T) {
	model := &Regression{Coefficients: make([]float64, 6)}

	p, err := NewPredictor(StrategyHeuristic, model)
	require.NoError(t, err)
	assert.Equal(t, StrategyHeuristic, p.Name())

	p, err = NewPredictor(StrategyModel, nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyModel, p.Name())
	assert.ErrorIs(t, p.Ready(), ErrModelUnavailable)

	p, err = NewPredictor(StrategyAuto, nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyHeuristic, p.Name())

	p, err = NewPredictor(StrategyAuto, model)
	require.NoError(t, err)
	assert.Equal(t, StrategyModel, p.Name())

	_, err = NewPredictor("oracle", model)
	require.Error(t, err)
}
