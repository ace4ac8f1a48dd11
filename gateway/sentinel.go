package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"agrowatch/models"
	"agrowatch/observability"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	sentinelCollection = "sentinel-2-l2a"
	crs84              = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"

	// Roughly 10 m at the equator, the native Sentinel-2 red/NIR resolution.
	sentinelResolution = 0.0001
)

const ndviEvalscript = `//VERSION=3
function setup() {
  return {
    input: [{ bands: ["B04", "B08", "dataMask"] }],
    output: [
      { id: "ndvi", bands: 1, sampleType: "FLOAT32" },
      { id: "dataMask", bands: 1 }
    ]
  };
}
function evaluatePixel(s) {
  let ndvi = (s.B08 - s.B04) / (s.B08 + s.B04);
  return { ndvi: [ndvi], dataMask: [s.dataMask] };
}`

// SentinelConfig configures a SentinelClient. ClientID and ClientSecret are
// optional; without them requests go out unauthenticated.
type SentinelConfig struct {
	BaseURL       string
	TokenURL      string
	ClientID      string
	ClientSecret  string
	Timeout       time.Duration
	MaxCloudCover float64
}

// SentinelClient reads per-day NDVI statistics for a polygon from the
// Sentinel Hub Statistical API.
type SentinelClient struct {
	baseURL       string
	maxCloudCover float64
	httpClient    *http.Client
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewSentinelClient creates the imagery client. When credentials are set the
// returned client fetches and refreshes OAuth2 tokens on its own.
func NewSentinelClient(cfg SentinelConfig, metrics *observability.Metrics, logger *slog.Logger) *SentinelClient {
	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
		hc = cc.Client(ctx)
		hc.Timeout = cfg.Timeout
	}
	return &SentinelClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		maxCloudCover: cfg.MaxCloudCover,
		httpClient:    hc,
		metrics:       metrics,
		logger:        logger,
	}
}

// Readings returns one NDVI reading per day in [from, to) that had a
// cloud-free scene, most recent first.
func (c *SentinelClient) Readings(ctx context.Context, area models.Polygon, from, to time.Time) ([]models.VegetationReading, error) {
	payload, err := json.Marshal(c.statisticsRequest(area, from, to))
	if err != nil {
		return nil, fmt.Errorf("marshal statistics request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/statistics", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := call(c.httpClient, req, ServiceImagery, c.metrics, c.logger)
	if err != nil {
		return nil, err
	}

	var resp statisticsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		record(c.metrics, ServiceImagery, outcomeError)
		return nil, upstreamErr(ServiceImagery, http.StatusOK, fmt.Errorf("decode statistics: %w", err))
	}

	readings := make([]models.VegetationReading, 0, len(resp.Data))
	for _, d := range resp.Data {
		r, ok := d.reading()
		if !ok {
			continue
		}
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].Date.After(readings[j].Date) })

	if len(readings) == 0 {
		record(c.metrics, ServiceImagery, outcomeEmpty)
	} else {
		record(c.metrics, ServiceImagery, outcomeSuccess)
	}

	c.logger.Debug("imagery statistics", "intervals", len(resp.Data), "readings", len(readings))
	return readings, nil
}

func (c *SentinelClient) statisticsRequest(area models.Polygon, from, to time.Time) statisticsRequest {
	var req statisticsRequest
	req.Input.Bounds.Geometry = area
	req.Input.Bounds.Properties.CRS = crs84
	req.Input.Data = []dataSource{{
		Type:       sentinelCollection,
		DataFilter: dataFilter{MaxCloudCoverage: c.maxCloudCover},
	}}
	req.Aggregation.TimeRange.From = from.UTC().Format(time.RFC3339)
	req.Aggregation.TimeRange.To = to.UTC().Format(time.RFC3339)
	req.Aggregation.AggregationInterval.Of = "P1D"
	req.Aggregation.Evalscript = ndviEvalscript
	req.Aggregation.ResX = sentinelResolution
	req.Aggregation.ResY = sentinelResolution
	return req
}

// Statistical API wire types.

type statisticsRequest struct {
	Input struct {
		Bounds struct {
			Geometry   models.Polygon `json:"geometry"`
			Properties struct {
				CRS string `json:"crs"`
			} `json:"properties"`
		} `json:"bounds"`
		Data []dataSource `json:"data"`
	} `json:"input"`
	Aggregation struct {
		TimeRange struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"timeRange"`
		AggregationInterval struct {
			Of string `json:"of"`
		} `json:"aggregationInterval"`
		Evalscript string  `json:"evalscript"`
		ResX       float64 `json:"resx"`
		ResY       float64 `json:"resy"`
	} `json:"aggregation"`
}

type dataSource struct {
	Type       string     `json:"type"`
	DataFilter dataFilter `json:"dataFilter"`
}

type dataFilter struct {
	MaxCloudCoverage float64 `json:"maxCloudCoverage"`
}

type statisticsResponse struct {
	Data []interval `json:"data"`
}

type interval struct {
	Interval struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"interval"`
	Outputs map[string]struct {
		Bands map[string]struct {
			Stats bandStats `json:"stats"`
		} `json:"bands"`
	} `json:"outputs"`
	Error *struct {
		Type string `json:"type"`
	} `json:"error,omitempty"`
}

type bandStats struct {
	Mean        statFloat `json:"mean"`
	SampleCount int       `json:"sampleCount"`
	NoDataCount int       `json:"noDataCount"`
}

func (d interval) reading() (models.VegetationReading, bool) {
	if d.Error != nil {
		return models.VegetationReading{}, false
	}
	out, ok := d.Outputs["ndvi"]
	if !ok {
		return models.VegetationReading{}, false
	}
	band, ok := out.Bands["B0"]
	if !ok {
		return models.VegetationReading{}, false
	}
	s := band.Stats
	if v := float64(s.Mean); math.IsNaN(v) || math.IsInf(v, 0) || s.SampleCount == 0 || s.SampleCount <= s.NoDataCount {
		return models.VegetationReading{}, false
	}
	date, err := time.Parse(time.RFC3339, d.Interval.From)
	if err != nil {
		return models.VegetationReading{}, false
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return models.VegetationReading{
		Date:     date,
		Value:    float64(s.Mean),
		SourceID: sentinelCollection + ":" + date.Format(models.DateLayout),
	}, true
}

// statFloat accepts numbers and the strings "NaN"/"Infinity" the API emits
// for empty intervals.
type statFloat float64

func (f *statFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = statFloat(math.NaN())
			return nil
		}
		*f = statFloat(v)
		return nil
	}
	if string(b) == "null" {
		*f = statFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = statFloat(v)
	return nil
}
