package forecast

import (
	"fmt"

	"agrowatch/models"
)

const (
	// WindowSize is the number of daily samples fed to a single prediction.
	WindowSize = 6

	// MinWindow is the shortest window the feature deriver accepts: two days
	// for the short horizon and at least one for the long horizon.
	MinWindow = 3
)

// VegetationPair holds the latest NDVI reading and the one before it.
type VegetationPair struct {
	Lag     float64
	Current float64
}

// WeatherSummary aggregates a weather window ordered most-recent-first.
type WeatherSummary struct {
	ShortTemp   float64 // mean of w[0], w[1]
	LongTemp    float64 // mean of w[2:]
	TotalPrecip float64
	MeanTemp    float64
	Interaction float64 // TotalPrecip * MeanTemp
	MeanMaxTemp float64
	MeanPrecip  float64
}

// Summarize derives the horizon averages from daily mean temperatures.
func Summarize(window []models.WeatherSample) (WeatherSummary, error) {
	if len(window) < MinWindow {
		return WeatherSummary{}, fmt.Errorf("%w: need %d, got %d", ErrInsufficientWeather, MinWindow, len(window))
	}

	var s WeatherSummary
	var sumTemp, sumMax, sumLong float64
	for i, w := range window {
		sumTemp += w.TempMeanC
		sumMax += w.TempMaxC
		s.TotalPrecip += w.PrecipitationMm
		if i >= 2 {
			sumLong += w.TempMeanC
		}
	}
	n := float64(len(window))

	s.ShortTemp = (window[0].TempMeanC + window[1].TempMeanC) / 2
	s.LongTemp = sumLong / float64(len(window)-2)
	s.MeanTemp = sumTemp / n
	s.Interaction = s.TotalPrecip * s.MeanTemp
	s.MeanMaxTemp = sumMax / n
	s.MeanPrecip = s.TotalPrecip / n
	return s, nil
}

// Features is the fixed six-slot input of the regression model.
type Features struct {
	LagNDVI     float64
	CurrentNDVI float64
	ShortTemp   float64
	LongTemp    float64
	TotalPrecip float64
	Interaction float64
}

// Vector returns the features in model column order.
func (f Features) Vector() [6]float64 {
	return [6]float64{f.LagNDVI, f.CurrentNDVI, f.ShortTemp, f.LongTemp, f.TotalPrecip, f.Interaction}
}

// DeriveFeatures builds the model input from a vegetation pair and a window.
func DeriveFeatures(pair VegetationPair, window []models.WeatherSample) (Features, error) {
	s, err := Summarize(window)
	if err != nil {
		return Features{}, err
	}
	return Features{
		LagNDVI:     pair.Lag,
		CurrentNDVI: pair.Current,
		ShortTemp:   s.ShortTemp,
		LongTemp:    s.LongTemp,
		TotalPrecip: s.TotalPrecip,
		Interaction: s.Interaction,
	}, nil
}

// Window returns the WindowSize samples of series ending at index end,
// ordered most-recent-first so w[0] is the target day.
func Window(series []models.WeatherSample, end int) ([]models.WeatherSample, error) {
	start := end - WindowSize + 1
	if start < 0 || end >= len(series) {
		return nil, fmt.Errorf("%w: window ending at day %d outside series of %d", ErrInsufficientWeather, end, len(series))
	}
	out := make([]models.WeatherSample, 0, WindowSize)
	for i := end; i >= start; i-- {
		out = append(out, series[i])
	}
	return out, nil
}

// latestPair picks current and lag from readings ordered most-recent-first.
// A single reading serves as its own lag.
func latestPair(readings []models.VegetationReading) (VegetationPair, bool) {
	switch len(readings) {
	case 0:
		return VegetationPair{}, false
	case 1:
		return VegetationPair{Lag: readings[0].Value, Current: readings[0].Value}, true
	default:
		return VegetationPair{Lag: readings[1].Value, Current: readings[0].Value}, true
	}
}
