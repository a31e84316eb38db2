// Package format assembles the model-specific output schema from the
// conditioned wide table.
package format

import (
	"time"

	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

// OutputKind is the closed set of output schemas.
type OutputKind int

const (
	StreamMetabolizerBayes OutputKind = iota
	StreamMetabolizerMLE
	BASE
)

// KindFromOptions maps the model/type options onto an output kind,
// rejecting the combinations that are not supported yet.
func KindFromOptions(opts config.Options) (OutputKind, error) {
	switch opts.Model {
	case config.ModelBASE:
		return BASE, types.Configf("BASE output is not yet supported")
	case config.ModelStreamMetabolizer:
		switch opts.Type {
		case config.TypeMLE:
			return StreamMetabolizerMLE, types.Configf("MLE output is not yet supported")
		case config.TypeBayes:
			return StreamMetabolizerBayes, nil
		}
	}
	return 0, types.Configf("unsupported model/type combination %q/%q", opts.Model, opts.Type)
}

// SpecRecord describes the decisions the pipeline actually made.
type SpecRecord struct {
	IntervalMinutes float64  `json:"interval_minutes"`
	FlagsRemoved    []string `json:"flags_removed,omitempty"`
	FillMethod      string   `json:"fill_method,omitempty"`
	UsedRatingCurve bool     `json:"used_rating_curve"`
}

// Output is the final handoff to the caller.
type Output struct {
	SolarTime []time.Time          `json:"solar_time"`
	Columns   map[string][]float64 `json:"columns"`
	Spec      SpecRecord           `json:"spec"`
}

// canonical output columns and their internal sources.
var bayesColumns = []struct {
	out      string
	in       string
	required bool
}{
	{out: "DO_obs", in: types.VarDO, required: true},
	{out: "DO_sat", in: types.VarDOSat, required: true},
	{out: "depth", in: types.VarDepth, required: true},
	{out: "temp_water", in: types.VarWaterTemp, required: true},
	{out: "light", in: types.VarLight, required: true},
	{out: "discharge", in: types.VarDischarge, required: false},
}

// Format renders the conditioned table into the schema for one kind. Only
// the Bayes formatter produces output; the others return their fixed
// errors from KindFromOptions and exist so every kind has a formatter.
func Format(kind OutputKind, t *types.WideTable, solarTime []time.Time, d *types.Diagnostics) (*Output, error) {
	switch kind {
	case StreamMetabolizerBayes:
		return formatBayes(t, solarTime, d)
	case StreamMetabolizerMLE:
		return nil, types.Configf("MLE output is not yet supported")
	case BASE:
		return nil, types.Configf("BASE output is not yet supported")
	}
	return nil, types.Configf("unknown output kind %d", kind)
}

func formatBayes(t *types.WideTable, solarTime []time.Time, d *types.Diagnostics) (*Output, error) {
	out := &Output{
		SolarTime: solarTime,
		Columns:   make(map[string][]float64),
		Spec: SpecRecord{
			IntervalMinutes: d.IntervalMinutes,
			FlagsRemoved:    d.FlagsRemoved,
			FillMethod:      d.FillMethod,
			UsedRatingCurve: d.RatingCurve != nil,
		},
	}
	for _, c := range bayesColumns {
		if !t.Has(c.in) {
			if c.required {
				return nil, &types.SufficiencyError{Variable: c.in, Reason: "required output column missing"}
			}
			continue
		}
		out.Columns[c.out] = t.Column(c.in)
	}
	return out, nil
}
