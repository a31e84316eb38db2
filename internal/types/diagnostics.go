package types

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/streamside/hydrocond/internal/log"
)

// RatingFit summarizes a fitted rating curve for the run record.
type RatingFit struct {
	Form           string  `json:"form"`
	A              float64 `json:"a"`
	B              float64 `json:"b"`
	R2             float64 `json:"r2,omitempty"`
	ZMin           float64 `json:"z_min,omitempty"`
	ZMax           float64 `json:"z_max,omitempty"`
	MedianResidual float64 `json:"median_residual,omitempty"`
	ResidualStdDev float64 `json:"residual_stddev,omitempty"`
	Fitted         bool    `json:"fitted"`
}

// Provenance values for Diagnostics.DepthSource. Empty means the depth
// column was measured directly.
const (
	DepthFromLevel    = "level substitute"
	DepthFromRating   = "rating curve"
	DepthFromGeometry = "hydraulic geometry"
)

// Diagnostics is the per-run trace object. It replaces ad hoc global debug
// state: every stage appends its warnings and decisions here, and the whole
// record is returned to the caller alongside the output table.
type Diagnostics struct {
	RunID           string     `json:"run_id"`
	Warnings        []string   `json:"warnings,omitempty"`
	IntervalMinutes float64    `json:"interval_minutes"`
	GridStartRow    int        `json:"grid_start_row"`
	FlagsRemoved    []string   `json:"flags_removed,omitempty"`
	FillMethod      string     `json:"fill_method,omitempty"`
	PressureSource  string     `json:"pressure_source,omitempty"`
	DepthSource     string     `json:"depth_source,omitempty"`
	RatingCurve     *RatingFit `json:"rating_curve,omitempty"`
}

// NewDiagnostics creates a diagnostics record with a fresh run ID.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{RunID: uuid.NewString()}
}

// Warnf records a warning on the run and mirrors it to the log.
func (d *Diagnostics) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.Warnings = append(d.Warnings, msg)
	log.Warnf("%s (run %s)", msg, d.RunID)
}
