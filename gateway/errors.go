// Package gateway holds the HTTP clients for the satellite imagery and
// weather services.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"agrowatch/observability"
)

const (
	ServiceImagery = "sentinelhub"
	ServiceWeather = "openmeteo"
)

// UpstreamError reports a failed call to an external service: transport
// failure, non-2xx status or an unusable body.
type UpstreamError struct {
	Service    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *UpstreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

func upstreamErr(service string, status int, err error) error {
	return &UpstreamError{Service: service, StatusCode: status, Err: err}
}

// maxBody caps how much of an upstream response is read.
const maxBody = 8 << 20

// Outcome labels of UpstreamRequests.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeEmpty   = "empty"
)

func record(metrics *observability.Metrics, service, outcome string) {
	metrics.UpstreamRequests.WithLabelValues(service, outcome).Inc()
}

// call sends req and returns the body of a 2xx response. Everything else
// becomes an *UpstreamError and is counted as an error. A returned body is
// not counted yet: the caller records its outcome once it is decoded.
func call(hc *http.Client, req *http.Request, service string, metrics *observability.Metrics, logger *slog.Logger) ([]byte, error) {
	start := time.Now()
	body, err := roundTrip(hc, req, service)
	metrics.UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		record(metrics, service, outcomeError)
		logger.Warn("upstream request failed", "service", service, "error", err)
		return nil, err
	}
	return body, nil
}

func roundTrip(hc *http.Client, req *http.Request, service string) ([]byte, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, upstreamErr(service, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, upstreamErr(service, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamErr(service, resp.StatusCode, fmt.Errorf("unexpected response: %s", truncate(body, 512)))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
