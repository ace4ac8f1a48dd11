package main

import (
	"errors"
	"net/http"

	"agrowatch/forecast"
	"agrowatch/gateway"
	"agrowatch/geo"
	"agrowatch/store"
)

// writeError maps domain errors to plain-text HTTP responses.
func (a *App) writeError(w http.ResponseWriter, err error) {
	var (
		verr *geo.ValidationError
		uerr *gateway.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, store.ErrDuplicate):
		http.Error(w, "already exists", http.StatusConflict)
	case errors.Is(err, forecast.ErrNoImagery), errors.Is(err, forecast.ErrInsufficientWeather):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, forecast.ErrModelUnavailable):
		http.Error(w, "prediction model unavailable", http.StatusServiceUnavailable)
	case errors.As(err, &uerr):
		status := http.StatusBadGateway
		if uerr.Timeout() {
			status = http.StatusGatewayTimeout
		}
		a.logger.Warn("upstream failure", "service", uerr.Service, "status", uerr.StatusCode, "error", err)
		http.Error(w, uerr.Service+" unavailable", status)
	default:
		a.logger.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
