// Package gapfill implements the pluggable imputation step for short runs
// of missing values on an already-aligned table.
package gapfill

import (
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
	"github.com/streamside/hydrocond/internal/types"
)

// Method names accepted by the fillgaps option. The kalman method is
// rejected at configuration validation and never reaches this package.
const (
	MethodInterpolation = "interpolation"
	MethodLOCF          = "locf"
	MethodMean          = "mean"
	MethodRandom        = "random"
	MethodMA            = "ma"
	MethodNone          = "none"
)

const maWindow = 4 // samples on each side for the moving-average method

// Fill imputes missing cells in place, column by column. Only runs of up
// to maxGapRows consecutive missing cells are filled; longer gaps are left
// for the caller to reject or tolerate.
func Fill(t *types.WideTable, method string, maxGapRows int, d *types.Diagnostics) {
	if method == "" || method == MethodNone || maxGapRows <= 0 {
		return
	}
	filled := 0
	for _, col := range t.Columns {
		filled += fillColumn(t.Column(col), method, maxGapRows)
	}
	d.FillMethod = method
	if filled > 0 {
		d.Warnf("imputed %d missing value(s) using %s", filled, method)
	}
}

func fillColumn(values []float64, method string, maxGapRows int) int {
	filled := 0
	n := len(values)
	for i := 0; i < n; i++ {
		if !types.IsMissing(values[i]) {
			continue
		}
		j := i
		for j < n && types.IsMissing(values[j]) {
			j++
		}
		// Leading and trailing gaps have no anchor on one side; only
		// interior runs within the span limit are imputed.
		if i > 0 && j < n && j-i <= maxGapRows {
			fillRun(values, i, j, method)
			filled += j - i
		}
		i = j
	}
	return filled
}

func fillRun(values []float64, start, end int, method string) {
	prev := values[start-1]
	next := values[end]
	switch method {
	case MethodInterpolation:
		span := float64(end - start + 1)
		for k := start; k < end; k++ {
			frac := float64(k-start+1) / span
			values[k] = prev + (next-prev)*frac
		}
	case MethodLOCF:
		for k := start; k < end; k++ {
			values[k] = prev
		}
	case MethodMean:
		mean := columnMean(values)
		for k := start; k < end; k++ {
			values[k] = mean
		}
	case MethodRandom:
		observed := observedValues(values)
		for k := start; k < end; k++ {
			values[k] = observed[rand.Intn(len(observed))]
		}
	case MethodMA:
		for k := start; k < end; k++ {
			values[k] = windowMean(values, k)
		}
	}
}

func columnMean(values []float64) float64 {
	m, err := stats.Mean(observedValues(values))
	if err != nil {
		return math.NaN()
	}
	return m
}

func observedValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !types.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// windowMean averages the present neighbors within the moving-average
// window, falling back to linear behavior as values fill in left to right.
func windowMean(values []float64, at int) float64 {
	lo := at - maWindow
	if lo < 0 {
		lo = 0
	}
	hi := at + maWindow
	if hi > len(values)-1 {
		hi = len(values) - 1
	}
	sum, count := 0.0, 0
	for k := lo; k <= hi; k++ {
		if k != at && !types.IsMissing(values[k]) {
			sum += values[k]
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
