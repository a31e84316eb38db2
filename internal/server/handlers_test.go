package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

func prepareBody(t *testing.T, opts config.Options, n int) []byte {
	t.Helper()
	body := prepareRequest{
		Site:    siteBody{Region: "NC", Site: "Eno", Lat: 36.03, Lon: -79.0},
		Options: opts,
	}
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 15 * time.Minute)
		hour := float64(ts.Hour()) + float64(ts.Minute())/60
		for _, v := range []string{types.VarDO, types.VarWaterTemp, types.VarLight, types.VarDepth} {
			value := 1.0
			switch v {
			case types.VarDO:
				value = 8.0 + math.Sin(hour/24*2*math.Pi)
			case types.VarWaterTemp:
				value = 20.0
			case types.VarLight:
				value = math.Max(0, 1500*math.Sin((hour-6)/12*math.Pi))
			case types.VarDepth:
				value = 0.3
			}
			val := value
			body.Observations = append(body.Observations, observationBody{
				DateTimeUTC: ts, Variable: v, Value: &val,
			})
		}
	}
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	return buf
}

func TestHandlePrepare(t *testing.T) {
	s := New(":0", nil, nil, log.GetSugaredLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/prepare",
		bytes.NewReader(prepareBody(t, config.DefaultOptions(), 96)))
	rec := httptest.NewRecorder()
	s.handlePrepare(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp prepareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Output == nil || len(resp.Output.Columns["DO_obs"]) == 0 {
		t.Error("response should carry the conditioned table")
	}
	if resp.Diagnostics == nil || resp.Diagnostics.RunID == "" {
		t.Error("response should carry run diagnostics")
	}
}

func TestHandlePrepareConfigErrorIs400(t *testing.T) {
	s := New(":0", nil, nil, log.GetSugaredLogger())

	opts := config.DefaultOptions()
	opts.FillGaps = "kalman"
	req := httptest.NewRequest(http.MethodPost, "/v1/prepare",
		bytes.NewReader(prepareBody(t, opts, 8)))
	rec := httptest.NewRecorder()
	s.handlePrepare(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Class != "ConfigurationError" {
		t.Errorf("class = %q, want ConfigurationError", resp.Class)
	}
}

func TestHandlePrepareSufficiencyErrorIs422(t *testing.T) {
	s := New(":0", nil, nil, log.GetSugaredLogger())

	body := prepareRequest{
		Site:    siteBody{Region: "NC", Site: "Eno"},
		Options: config.DefaultOptions(),
	}
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		value := 20.0
		body.Observations = append(body.Observations, observationBody{
			DateTimeUTC: start.Add(time.Duration(i) * 15 * time.Minute),
			Variable:    types.VarWaterTemp,
			Value:       &value,
		})
	}
	buf, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/v1/prepare", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	s.handlePrepare(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body.String())
	}
}
