package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/streamside/hydrocond/internal/constants"
	"github.com/streamside/hydrocond/internal/format"
	"github.com/streamside/hydrocond/internal/pipeline"
	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

// prepareRequest is the JSON body of POST /v1/prepare.
type prepareRequest struct {
	Site         siteBody          `json:"site"`
	Options      config.Options    `json:"options"`
	Observations []observationBody `json:"observations"`
}

type siteBody struct {
	Region string  `json:"region"`
	Site   string  `json:"site"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

type observationBody struct {
	DateTimeUTC time.Time `json:"DateTime_UTC"`
	Variable    string    `json:"variable"`
	Value       *float64  `json:"value"`
	FlagType    string    `json:"flagtype,omitempty"`
	FlagComment string    `json:"flagcomment,omitempty"`
}

// apiOutput mirrors format.Output with nullable cells, since JSON has no
// encoding for NaN.
type apiOutput struct {
	SolarTime []time.Time           `json:"solar_time"`
	Columns   map[string][]*float64 `json:"columns"`
	Spec      format.SpecRecord     `json:"spec"`
}

func toAPIOutput(out *format.Output) *apiOutput {
	api := &apiOutput{
		SolarTime: out.SolarTime,
		Columns:   make(map[string][]*float64, len(out.Columns)),
		Spec:      out.Spec,
	}
	for name, values := range out.Columns {
		cells := make([]*float64, len(values))
		for i, v := range values {
			if !types.IsMissing(v) {
				value := v
				cells[i] = &value
			}
		}
		api.Columns[name] = cells
	}
	return api
}

type prepareResponse struct {
	Output      *apiOutput         `json:"output"`
	Diagnostics *types.Diagnostics `json:"diagnostics"`
}

type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": constants.Version})
}

func (s *Server) handlePrepare(w http.ResponseWriter, req *http.Request) {
	var body prepareRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body: "+err.Error())
		return
	}

	obs := make([]types.Observation, 0, len(body.Observations))
	for _, ob := range body.Observations {
		o := types.Observation{
			Region:   body.Site.Region,
			Site:     body.Site.Site,
			Time:     ob.DateTimeUTC,
			Variable: ob.Variable,
			Value:    types.Missing(),
			Comment:  ob.FlagComment,
		}
		if ob.Value != nil {
			o.Value = *ob.Value
		}
		if ob.FlagType != "" {
			flag, err := types.ParseFlag(ob.FlagType)
			if err != nil {
				writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
				return
			}
			o.Flag = flag
		}
		obs = append(obs, o)
	}

	site := types.Site{Region: body.Site.Region, Site: body.Site.Site, Lat: body.Site.Lat, Lon: body.Site.Lon}
	p := pipeline.New(body.Options, site, s.primary, s.secondary)

	out, diag, err := p.Run(req.Context(), obs)
	if err != nil {
		status, class := classify(err)
		s.logger.Warnw("prepare failed", "class", class, "error", err, "run", diag.RunID)
		writeError(w, status, class, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prepareResponse{Output: toAPIOutput(out), Diagnostics: diag})
}

// classify maps the pipeline's error taxonomy onto HTTP statuses.
func classify(err error) (int, string) {
	var ce *types.ConfigError
	var se *types.SufficiencyError
	var ae *types.AlignmentError
	switch {
	case errors.As(err, &ce):
		return http.StatusBadRequest, "ConfigurationError"
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity, "DataSufficiencyError"
	case errors.As(err, &ae):
		return http.StatusUnprocessableEntity, "AlignmentFailure"
	}
	return http.StatusInternalServerError, "InternalError"
}

func writeError(w http.ResponseWriter, status int, class, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg, Class: class})
}
