// Package sanitize floors physically invalid values and applies unit
// conversions after all derivation stages have run.
package sanitize

import (
	"github.com/streamside/hydrocond/internal/types"
)

// Downstream models divide by depth and take logs of discharge; zero and
// negative values are replaced with this floor.
const positiveFloor = 0.01

// KPaToAtm converts barometric pressure from kilopascals to atmospheres.
func KPaToAtm(kpa float64) float64 {
	return kpa / 101.325
}

// FloorColumn replaces values <= 0 in a column with the positive floor and
// returns the number of corrections.
func FloorColumn(values []float64) int {
	corrected := 0
	for i, v := range values {
		if types.IsMissing(v) {
			continue
		}
		if v <= 0 {
			values[i] = positiveFloor
			corrected++
		}
	}
	return corrected
}

// Sanitize floors depth and discharge in place, recording a count-based
// warning per corrected column.
func Sanitize(t *types.WideTable, d *types.Diagnostics) {
	for _, col := range []string{types.VarDepth, types.VarDischarge} {
		if !t.Has(col) {
			continue
		}
		if n := FloorColumn(t.Column(col)); n > 0 {
			d.Warnf("%d non-positive %s value(s) floored to %g", n, col, positiveFloor)
		}
	}
}

// ConvertColumn applies a pure scalar transform to every present cell.
func ConvertColumn(values []float64, f func(float64) float64) {
	for i, v := range values {
		if !types.IsMissing(v) {
			values[i] = f(v)
		}
	}
}
