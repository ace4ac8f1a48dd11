package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrowatch/models"
	"agrowatch/observability"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeImagery struct {
	readings []models.VegetationReading
	err      error
	from, to time.Time
	calls    int
}

func (f *fakeImagery) Readings(_ context.Context, _ models.Polygon, from, to time.Time) ([]models.VegetationReading, error) {
	f.calls++
	f.from, f.to = from, to
	return f.readings, f.err
}

type fakeWeather struct {
	today    time.Time
	err      error
	lat, lon float64
}

// Daily mimics the weather service: pastDays observed days, then today onward.
func (f *fakeWeather) Daily(_ context.Context, lat, lon float64, pastDays, forecastDays int) ([]models.WeatherSample, error) {
	f.lat, f.lon = lat, lon
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.WeatherSample, 0, pastDays+forecastDays)
	for i := -pastDays; i < forecastDays; i++ {
		out = append(out, models.WeatherSample{
			Date:            f.today.AddDate(0, 0, i),
			TempMeanC:       15 + float64(i)*0.5,
			TempMaxC:        20 + float64(i)*0.5,
			PrecipitationMm: float64((i + pastDays) % 3),
			Forecast:        i >= 0,
		})
	}
	return out, nil
}

// offsetPredictor returns current + delta so curve behaviour is easy to assert.
type offsetPredictor struct {
	delta  float64
	inputs []Input
}

func (p *offsetPredictor) Name() string { return "offset" }
func (p *offsetPredictor) Ready() error { return nil }
func (p *offsetPredictor) Predict(in Input) (float64, error) {
	p.inputs = append(p.inputs, in)
	return in.Pair.Current + p.delta, nil
}

var testNow = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

func testToday() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) }

func testFarm() models.Farm {
	return models.Farm{
		ID: 1,
		Area: models.Polygon{Type: "Polygon", Coordinates: [][][]float64{{
			{19.0, 50.0}, {19.2, 50.0}, {19.2, 50.2}, {19.0, 50.2}, {19.0, 50.0},
		}}},
	}
}

func testReadings() []models.VegetationReading {
	today := testToday()
	return []models.VegetationReading{
		{Date: today.AddDate(0, 0, -1), Value: 0.62, SourceID: "s2:d-1"},
		{Date: today.AddDate(0, 0, -6), Value: 0.55, SourceID: "s2:d-6"},
		{Date: today.AddDate(0, 0, -20), Value: 0.50, SourceID: "s2:d-20"},
	}
}

func defaultOptions() Options {
	return Options{HistoricalDays: 7, ForecastDays: 14, PredictDays: 7, LookbackDays: 90}
}

func newTestService(img ImageryClient, p Predictor, opts Options) (*Service, *fakeWeather) {
	w := &fakeWeather{today: testToday()}
	svc := NewService(img, w, p, opts, clockwork.NewFakeClockAt(testNow),
		observability.NewMetricsForTesting(), observability.DiscardLogger())
	return svc, w
}

// --- tests ---

func TestService_Current_Heuristic(t *testing.T) {
	img := &fakeImagery{readings: testReadings()}
	svc, w := newTestService(img, Heuristic{}, defaultOptions())

	v, err := svc.Current(context.Background(), testFarm())
	require.NoError(t, err)

	// Window ends today (offset 0) and covers offsets -5..0.
	var sumMax, sumPrecip float64
	for i := -5; i <= 0; i++ {
		sumMax += 20 + float64(i)*0.5
		sumPrecip += float64((i + 7) % 3)
	}
	want := clip(0.62+0.01*sumMax/6-0.005*sumPrecip/6, 0, 1)
	assert.InDelta(t, want, v, 1e-9)

	assert.InDelta(t, 50.1, w.lat, 1e-9)
	assert.InDelta(t, 19.1, w.lon, 1e-9)
	assert.Equal(t, testToday().AddDate(0, 0, -90), img.from)
	assert.Equal(t, testToday().AddDate(0, 0, 1), img.to)
}

func TestService_Current_NoImagery(t *testing.T) {
	svc, _ := newTestService(&fakeImagery{}, Heuristic{}, defaultOptions())

	_, err := svc.Current(context.Background(), testFarm())
	require.ErrorIs(t, err, ErrNoImagery)
}

func TestService_Current_ImageryError(t *testing.T) {
	upstream := errors.New("boom")
	svc, _ := newTestService(&fakeImagery{err: upstream}, Heuristic{}, defaultOptions())

	_, err := svc.Current(context.Background(), testFarm())
	require.ErrorIs(t, err, upstream)
}

func TestService_Current_ModelUnavailable(t *testing.T) {
	svc, _ := newTestService(&fakeImagery{readings: testReadings()}, NewModelPredictor(nil), defaultOptions())

	_, err := svc.Current(context.Background(), testFarm())
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestService_Current_ShortHistory(t *testing.T) {
	opts := defaultOptions()
	opts.HistoricalDays = 3
	svc, _ := newTestService(&fakeImagery{readings: testReadings()}, Heuristic{}, opts)

	_, err := svc.Current(context.Background(), testFarm())
	require.ErrorIs(t, err, ErrInsufficientWeather)
}

func TestService_Chart_Shape(t *testing.T) {
	svc, _ := newTestService(&fakeImagery{readings: testReadings()}, Heuristic{}, defaultOptions())

	chart, err := svc.Chart(context.Background(), testFarm())
	require.NoError(t, err)

	var past, future int
	for _, w := range chart.Weather {
		if w.Forecast {
			future++
		} else {
			past++
		}
	}
	assert.Equal(t, 7, past)
	assert.Equal(t, 14, future)

	require.Len(t, chart.Predictions, 7)
	assert.Equal(t, "2025-06-11", chart.Predictions[0].Date)
	assert.Equal(t, "2025-06-17", chart.Predictions[6].Date)
	for _, p := range chart.Predictions {
		assert.True(t, p.IsForecast)
	}

	// The reading 20 days back is outside the 7-day historical window.
	require.Len(t, chart.Readings, 2)
	assert.Equal(t, models.NdviPoint{Date: "2025-06-04", NDVI: 0.55}, chart.Readings[0])
	assert.Equal(t, models.NdviPoint{Date: "2025-06-09", NDVI: 0.62}, chart.Readings[1])

	points := chart.Points()
	require.Len(t, points, 9)
	for i := 1; i < len(points); i++ {
		assert.Less(t, points[i-1].Date, points[i].Date, "dates must strictly increase")
	}
}

func TestService_Chart_FreshWindowPerDay(t *testing.T) {
	p := &offsetPredictor{}
	svc, _ := newTestService(&fakeImagery{readings: testReadings()}, p, defaultOptions())

	_, err := svc.Chart(context.Background(), testFarm())
	require.NoError(t, err)

	require.Len(t, p.inputs, 7)
	for day, in := range p.inputs {
		require.Len(t, in.Window, WindowSize)
		assert.Equal(t, testToday().AddDate(0, 0, day+1), in.Window[0].Date)
		assert.Equal(t, testToday().AddDate(0, 0, day+1-(WindowSize-1)), in.Window[WindowSize-1].Date)
	}
}

func TestService_Chart_FixedPairAcrossCurve(t *testing.T) {
	p := &offsetPredictor{delta: 0.05}
	svc, _ := newTestService(&fakeImagery{readings: testReadings()}, p, defaultOptions())

	chart, err := svc.Chart(context.Background(), testFarm())
	require.NoError(t, err)

	for _, pt := range chart.Predictions {
		assert.InDelta(t, 0.67, pt.NDVI, 1e-9)
	}
	for _, in := range p.inputs {
		assert.Equal(t, VegetationPair{Lag: 0.55, Current: 0.62}, in.Pair)
	}
}

func TestService_Chart_RollingPair(t *testing.T) {
	opts := defaultOptions()
	opts.Rolling = true
	p := &offsetPredictor{delta: 0.05}
	svc, _ := newTestService(&fakeImagery{readings: testReadings()}, p, opts)

	chart, err := svc.Chart(context.Background(), testFarm())
	require.NoError(t, err)

	for day, pt := range chart.Predictions {
		assert.InDelta(t, 0.62+0.05*float64(day+1), pt.NDVI, 1e-9)
	}
	assert.InDelta(t, 0.62, p.inputs[1].Pair.Lag, 1e-9)
	assert.InDelta(t, 0.67, p.inputs[1].Pair.Current, 1e-9)
}

func TestService_Chart_PredictDaysBeyondSeries(t *testing.T) {
	opts := defaultOptions()
	opts.PredictDays = opts.ForecastDays
	svc, _ := newTestService(&fakeImagery{readings: testReadings()}, Heuristic{}, opts)

	_, err := svc.Chart(context.Background(), testFarm())
	require.ErrorIs(t, err, ErrInsufficientWeather)
}

func TestService_Chart_WeatherError(t *testing.T) {
	img := &fakeImagery{readings: testReadings()}
	svc, w := newTestService(img, Heuristic{}, defaultOptions())
	w.err = errors.New("weather down")

	_, err := svc.Chart(context.Background(), testFarm())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather down")
}
