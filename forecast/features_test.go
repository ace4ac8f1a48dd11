package forecast

import (
	"testing"
	"time"

	"agrowatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(pairs ...[2]float64) []models.WeatherSample {
	out := make([]models.WeatherSample, len(pairs))
	for i, p := range pairs {
		out[i] = models.WeatherSample{TempMeanC: p[0], TempMaxC: p[0] + 5, PrecipitationMm: p[1]}
	}
	return out
}

func TestSummarize_FourDayWindow(t *testing.T) {
	s, err := Summarize(samples([2]float64{10, 0}, [2]float64{12, 0}, [2]float64{14, 1}, [2]float64{16, 2}))
	require.NoError(t, err)

	assert.InDelta(t, 11.0, s.ShortTemp, 1e-9)
	assert.InDelta(t, 15.0, s.LongTemp, 1e-9)
	assert.InDelta(t, 3.0, s.TotalPrecip, 1e-9)
	assert.InDelta(t, 13.0, s.MeanTemp, 1e-9)
	assert.InDelta(t, 39.0, s.Interaction, 1e-9)
	assert.InDelta(t, 18.0, s.MeanMaxTemp, 1e-9)
	assert.InDelta(t, 0.75, s.MeanPrecip, 1e-9)
}

func TestSummarize_MinimumWindow(t *testing.T) {
	s, err := Summarize(samples([2]float64{10, 1}, [2]float64{20, 1}, [2]float64{30, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 15.0, s.ShortTemp, 1e-9)
	assert.InDelta(t, 30.0, s.LongTemp, 1e-9)
}

func TestSummarize_TooFewSamples(t *testing.T) {
	for n := 0; n < MinWindow; n++ {
		_, err := Summarize(make([]models.WeatherSample, n))
		require.ErrorIs(t, err, ErrInsufficientWeather, "n=%d", n)
	}
}

func TestDeriveFeatures_VectorOrder(t *testing.T) {
	f, err := DeriveFeatures(VegetationPair{Lag: 0.4, Current: 0.6},
		samples([2]float64{10, 0}, [2]float64{12, 0}, [2]float64{14, 1}, [2]float64{16, 2}))
	require.NoError(t, err)

	assert.Equal(t, [6]float64{0.4, 0.6, 11, 15, 3, 39}, f.Vector())
}

func TestDeriveFeatures_PropagatesPrecondition(t *testing.T) {
	_, err := DeriveFeatures(VegetationPair{}, samples([2]float64{10, 0}))
	require.ErrorIs(t, err, ErrInsufficientWeather)
}

func TestWindow_MostRecentFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := make([]models.WeatherSample, 10)
	for i := range series {
		series[i] = models.WeatherSample{Date: base.AddDate(0, 0, i), TempMeanC: float64(i)}
	}

	w, err := Window(series, 7)
	require.NoError(t, err)
	require.Len(t, w, WindowSize)
	assert.Equal(t, 7.0, w[0].TempMeanC)
	assert.Equal(t, 2.0, w[WindowSize-1].TempMeanC)
}

func TestWindow_OutOfRange(t *testing.T) {
	series := make([]models.WeatherSample, 10)

	_, err := Window(series, 4)
	require.ErrorIs(t, err, ErrInsufficientWeather)

	_, err = Window(series, 10)
	require.ErrorIs(t, err, ErrInsufficientWeather)
}

func TestLatestPair(t *testing.T) {
	_, ok := latestPair(nil)
	assert.False(t, ok)

	pair, ok := latestPair([]models.VegetationReading{{Value: 0.7}})
	require.True(t, ok)
	assert.Equal(t, VegetationPair{Lag: 0.7, Current: 0.7}, pair)

	pair, ok = latestPair([]models.VegetationReading{{Value: 0.7}, {Value: 0.5}, {Value: 0.1}})
	require.True(t, ok)
	assert.Equal(t, VegetationPair{Lag: 0.5, Current: 0.7}, pair)
}
