package pressure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/streamside/hydrocond/internal/types"
)

// HTTPRetriever fetches hourly surface pressure from an ISD-lite style
// JSON endpoint keyed by coordinates and time span.
type HTTPRetriever struct {
	SourceName string
	Endpoint   string
	Client     *http.Client
}

// NewHTTPRetriever builds a retriever with a bounded request timeout.
func NewHTTPRetriever(name, endpoint string) *HTTPRetriever {
	return &HTTPRetriever{
		SourceName: name,
		Endpoint:   endpoint,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *HTTPRetriever) Name() string {
	return r.SourceName
}

type pressureResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error"`
	Samples []pressureSample `json:"samples"`
}

type pressureSample struct {
	Time        time.Time `json:"dateTimeISO"`
	PressureKPa float64   `json:"pressureKPA"`
}

// FetchPressure retrieves the series for one span. Failures are returned
// to the caller, which decides between the secondary source and degraded
// continuation.
func (r *HTTPRetriever) FetchPressure(ctx context.Context, site types.Site, start, end time.Time) ([]time.Time, []float64, error) {
	u, err := url.Parse(r.Endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pressure endpoint: %w", err)
	}
	q := u.Query()
	q.Set("lat", fmt.Sprintf("%.4f", site.Lat))
	q.Set("lon", fmt.Sprintf("%.4f", site.Lon))
	q.Set("from", start.UTC().Format(time.RFC3339))
	q.Set("to", end.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("pressure request to %s failed: %w", r.SourceName, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("pressure source %s returned HTTP %d", r.SourceName, resp.StatusCode)
	}

	var body pressureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("decoding pressure response: %w", err)
	}
	if !body.Success {
		return nil, nil, fmt.Errorf("pressure source %s: %s", r.SourceName, body.Error)
	}

	times := make([]time.Time, len(body.Samples))
	values := make([]float64, len(body.Samples))
	for i, s := range body.Samples {
		times[i] = s.Time.UTC()
		values[i] = s.PressureKPa
	}
	return times, values, nil
}
