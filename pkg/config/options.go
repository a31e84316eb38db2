// Package config defines the pipeline's configuration surface and its
// validation rules.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Models and estimation types the formatter understands.
const (
	ModelStreamMetabolizer = "streamMetabolizer"
	ModelBASE              = "BASE"

	TypeBayes = "bayes"
	TypeMLE   = "mle"
)

// Gap-fill methods accepted by the fillgaps option.
var fillMethods = map[string]bool{
	"interpolation": true,
	"locf":          true,
	"mean":          true,
	"random":        true,
	"ma":            true,
	"none":          true,
}

// kalman is recognized but not implemented by the bundled filler.
const fillKalman = "kalman"

// RatingCurveOptions configures discharge estimation from level/stage.
// Exactly one of CalibrationZ/CalibrationQ or Coefficients must be usable;
// when both are given, coefficients win and the pairs are ignored with a
// warning.
type RatingCurveOptions struct {
	CalibrationZ     []float64 `json:"calibration_z,omitempty"`
	CalibrationQ     []float64 `json:"calibration_q,omitempty"`
	Coefficients     []float64 `json:"coefficients,omitempty"` // [a, b]
	Form             string    `json:"form"`                   // power, exponential, linear
	SensorHeight     float64   `json:"sensor_height,omitempty"`
	IgnoreOutOfRange bool      `json:"ignore_out_of_range,omitempty"`

	// Plot is accepted for compatibility; rendering belongs to an external
	// plotting collaborator and no plot is produced here.
	Plot bool `json:"plot,omitempty"`
}

// Options is the full configuration surface for one pipeline run.
type Options struct {
	Model    string `json:"model"`
	Type     string `json:"type"`
	Interval string `json:"interval,omitempty"` // "<number> (min|hour)" or "" for auto

	RemoveFlags []string `json:"rm_flagged,omitempty"` // flag names, or ["none"]
	FillGaps    string   `json:"fillgaps"`
	MaxHours    float64  `json:"maxhours,omitempty"`

	RatingCurve *RatingCurveOptions `json:"rating_curve,omitempty"`

	EstimateArealDepth bool `json:"estimate_areal_depth,omitempty"`
	EstimatePAR        bool `json:"estimate_par,omitempty"`
	RetrievePressure   bool `json:"retrieve_pressure,omitempty"`

	// DuplicatePreference picks a winner when both a local and a remote
	// series measure the same quantity: "local", "remote", "fewest-missing",
	// or "" to keep the local series and record a warning.
	DuplicatePreference string `json:"duplicate_preference,omitempty"`
}

// DefaultOptions returns the options used when the caller specifies nothing.
func DefaultOptions() Options {
	return Options{
		Model:    ModelStreamMetabolizer,
		Type:     TypeBayes,
		FillGaps: "interpolation",
		MaxHours: 3,
	}
}

// Validate checks the whole configuration surface up front so that no
// pipeline work happens on a bad config.
func (o *Options) Validate() error {
	switch o.Model {
	case ModelStreamMetabolizer, ModelBASE:
	default:
		return fmt.Errorf("unknown model %q; must be %s or %s", o.Model, ModelStreamMetabolizer, ModelBASE)
	}
	switch o.Type {
	case TypeBayes, TypeMLE:
	default:
		return fmt.Errorf("unknown type %q; must be %s or %s", o.Type, TypeBayes, TypeMLE)
	}
	if o.Interval != "" {
		if _, err := ParseInterval(o.Interval); err != nil {
			return err
		}
	}
	if o.FillGaps == fillKalman {
		return fmt.Errorf("fillgaps method %q is not supported", fillKalman)
	}
	if o.FillGaps != "" && !fillMethods[o.FillGaps] {
		return fmt.Errorf("unknown fillgaps method %q", o.FillGaps)
	}
	if o.MaxHours < 0 {
		return fmt.Errorf("maxhours must be positive, got %g", o.MaxHours)
	}
	if err := validateFlags(o.RemoveFlags); err != nil {
		return err
	}
	switch o.DuplicatePreference {
	case "", "local", "remote", "fewest-missing":
	default:
		return fmt.Errorf("unknown duplicate_preference %q", o.DuplicatePreference)
	}
	if o.RatingCurve != nil {
		if err := o.RatingCurve.validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateFlags(flags []string) error {
	for _, f := range flags {
		switch f {
		case "none", "Interesting", "Questionable", "Bad Data", "BadData":
		default:
			return fmt.Errorf("unknown flag %q in rm_flagged", f)
		}
	}
	return nil
}

func (rc *RatingCurveOptions) validate() error {
	switch rc.Form {
	case "power", "exponential", "linear":
	default:
		return fmt.Errorf("unknown rating curve form %q", rc.Form)
	}
	if len(rc.Coefficients) != 0 && len(rc.Coefficients) != 2 {
		return fmt.Errorf("rating curve coefficients must be [a, b], got %d values", len(rc.Coefficients))
	}
	if len(rc.CalibrationZ) != len(rc.CalibrationQ) {
		return fmt.Errorf("rating curve calibration pairs unbalanced: %d Z vs %d Q",
			len(rc.CalibrationZ), len(rc.CalibrationQ))
	}
	if len(rc.Coefficients) == 0 && len(rc.CalibrationZ) < 2 {
		return fmt.Errorf("rating curve needs coefficients or at least 2 calibration pairs")
	}
	return nil
}

// ParseInterval parses a "<number> (min|hour)" interval string. Hour values
// may be fractional; everything is normalized to minutes because the grid
// builder only handles whole-minute steps.
func ParseInterval(s string) (time.Duration, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, fmt.Errorf("invalid interval %q; expected \"<number> (min|hour)\"", s)
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q; number must be positive", s)
	}
	var minutes float64
	switch strings.ToLower(fields[1]) {
	case "min", "mins", "minute", "minutes":
		minutes = n
	case "hour", "hours", "hr", "hrs":
		minutes = n * 60
	default:
		return 0, fmt.Errorf("invalid interval unit %q; expected min or hour", fields[1])
	}
	if minutes != math.Trunc(minutes) {
		return 0, fmt.Errorf("interval %q is not a whole number of minutes", s)
	}
	return time.Duration(minutes) * time.Minute, nil
}
