package main

import (
	"net/http"
)

// handleFarmNDVI returns the predicted NDVI for today as a bare number.
func (a *App) handleFarmNDVI(w http.ResponseWriter, r *http.Request) {
	f, ok := a.loadFarm(w, r)
	if !ok {
		return
	}
	v, err := a.forecast.Current(r.Context(), f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleFarmNDVIChart returns observed readings followed by one prediction per
// forward day, ascending by date.
func (a *App) handleFarmNDVIChart(w http.ResponseWriter, r *http.Request) {
	f, ok := a.loadFarm(w, r)
	if !ok {
		return
	}
	chart, err := a.forecast.Chart(r.Context(), f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart.Points())
}

// handleFarmWeather returns the historical and forecast weather the chart uses.
func (a *App) handleFarmWeather(w http.ResponseWriter, r *http.Request) {
	f, ok := a.loadFarm(w, r)
	if !ok {
		return
	}
	series, err := a.forecast.Weather(r.Context(), f)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeatherDays(series))
}
