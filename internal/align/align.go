// Package align snaps an irregular wide table onto a regular timestamp
// grid, searching for the grid phase that preserves the most data.
package align

import (
	"time"

	"github.com/streamside/hydrocond/internal/types"
)

const (
	// maxStartAttempts bounds the phase search. The search is
	// deterministic: exhausting it is a hard interval incompatibility,
	// not a transient condition.
	maxStartAttempts = 10

	// A column is mostly missing when more than this fraction of its
	// cells are empty after the join.
	mostlyMissingThreshold = 0.8

	// An alignment is acceptable when at most this fraction of columns
	// are mostly missing.
	acceptableColumnFraction = 0.4
)

// Align left-joins the table onto a regular grid at the given step. The
// first observed timestamp may sit off-phase relative to the true grid, so
// candidate grids starting at successive observed rows are tried until the
// join stops producing near-total gaps.
func Align(t *types.WideTable, step time.Duration, d *types.Diagnostics) (*types.WideTable, error) {
	if t.Rows() == 0 {
		return nil, &types.SufficiencyError{Variable: "all", Reason: "empty table"}
	}

	rowOf := make(map[int64]int, t.Rows())
	for i, ts := range t.Times {
		rowOf[ts.UnixNano()] = i
	}
	end := t.Times[t.Rows()-1]

	attempts := maxStartAttempts
	if t.Rows() < attempts {
		attempts = t.Rows()
	}

	for s := 0; s < attempts; s++ {
		grid := types.Grid{Start: t.Times[s], End: end, Step: step}
		joined := leftJoin(t, grid, rowOf)
		if mostlyMissingFraction(joined) <= acceptableColumnFraction {
			if s > 0 {
				d.Warnf("grid phase search skipped %d off-phase leading row(s)", s)
			}
			d.GridStartRow = s + 1
			return joined, nil
		}
	}
	return nil, &types.AlignmentError{Attempts: maxStartAttempts, StepMin: step.Minutes()}
}

// leftJoin builds the grid timeline and carries over cells whose original
// timestamp lands exactly on it.
func leftJoin(t *types.WideTable, grid types.Grid, rowOf map[int64]int) *types.WideTable {
	times := grid.Times()
	out := types.NewWideTable(times)
	for _, col := range t.Columns {
		src := t.Column(col)
		dst := make([]float64, len(times))
		for i, ts := range times {
			if j, ok := rowOf[ts.UnixNano()]; ok {
				dst[i] = src[j]
			} else {
				dst[i] = types.Missing()
			}
		}
		out.SetColumn(col, dst)
	}
	return out
}

func mostlyMissingFraction(t *types.WideTable) float64 {
	if len(t.Columns) == 0 {
		return 0
	}
	bad := 0
	for _, col := range t.Columns {
		if t.MissingFraction(col) > mostlyMissingThreshold {
			bad++
		}
	}
	return float64(bad) / float64(len(t.Columns))
}
