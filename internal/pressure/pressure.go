// Package pressure reconciles the table's barometric pressure column
// against externally retrieved series, filling only what is missing.
package pressure

import (
	"context"
	"time"

	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/types"
)

// Retriever fetches an air-pressure series (kPa) for a site over a span.
// It is the pipeline's single external I/O boundary: a synchronous call
// returning a result or a failure, never a hidden control-flow path.
type Retriever interface {
	FetchPressure(ctx context.Context, site types.Site, start, end time.Time) ([]time.Time, []float64, error)
	Name() string
}

// Need records why pressure is required for this run.
type Need struct {
	ForSaturation bool
	ForDischarge  bool
	Force         bool
}

func (n Need) any() bool {
	return n.ForSaturation || n.ForDischarge || n.Force
}

// Archives report hourly; gaps up to two hours cover a dropped sample on
// either side of a grid row. Longer runs are left for the gap filler.
const maxInterpolateSpan = 2 * time.Hour

// Reconcile ensures the table's pressure column is as complete as the
// retrievers allow. Fetched values fill only missing timestamps; measured
// values are never overwritten. Retrieval failure is degradation, not an
// error: the pipeline proceeds with reduced coverage and a warning.
func Reconcile(ctx context.Context, t *types.WideTable, site types.Site, need Need,
	primary, secondary Retriever, d *types.Diagnostics) {

	missingBefore := t.MissingFraction(types.VarAirPres)
	entirelyAbsent := !t.Has(types.VarAirPres) || missingBefore == 1.0

	if need.any() && entirelyAbsent || need.Force {
		fetchAndMerge(ctx, t, site, primary, secondary, d)
	} else if !entirelyAbsent && missingBefore > 0 && need.any() {
		// Partial coverage with an explicit need: fill the holes too.
		fetchAndMerge(ctx, t, site, primary, secondary, d)
	}

	if t.Has(types.VarAirPres) {
		maxRun := t.Rows()
		if t.Rows() > 1 {
			if step := t.Times[1].Sub(t.Times[0]); step > 0 {
				maxRun = int(maxInterpolateSpan / step)
			}
		}
		interpolateNeighbors(t.Column(types.VarAirPres), maxRun)
	}

	coverage := 1 - t.MissingFraction(types.VarAirPres)
	if coverage < 0.5 && !need.any() {
		d.Warnf("air pressure coverage is %.0f%% after reconciliation; downstream modeling may fail", coverage*100)
	}
}

func fetchAndMerge(ctx context.Context, t *types.WideTable, site types.Site,
	primary, secondary Retriever, d *types.Diagnostics) {

	if t.Rows() == 0 || primary == nil {
		return
	}
	start, end := t.Times[0], t.Times[t.Rows()-1]

	times, values, err := primary.FetchPressure(ctx, site, start, end)
	source := primary.Name()
	if err != nil {
		log.Warnf("primary pressure retrieval from %s failed: %v", source, err)
		if secondary == nil {
			d.Warnf("pressure retrieval failed (%s); proceeding without retrieved pressure", source)
			return
		}
		times, values, err = secondary.FetchPressure(ctx, site, start, end)
		source = secondary.Name()
		if err != nil {
			d.Warnf("pressure retrieval failed on both sources; proceeding without retrieved pressure")
			return
		}
	}

	merged := merge(t, times, values)
	if merged > 0 {
		d.PressureSource = source
		log.Infof("merged %d retrieved pressure value(s) from %s", merged, source)
	}
}

// merge left-joins fetched samples onto the grid, writing only missing
// cells. Fetched timestamps between grid rows snap to the nearest row.
func merge(t *types.WideTable, times []time.Time, values []float64) int {
	if len(times) == 0 {
		return 0
	}
	if !t.Has(types.VarAirPres) {
		col := make([]float64, t.Rows())
		for i := range col {
			col[i] = types.Missing()
		}
		t.SetColumn(types.VarAirPres, col)
	}
	col := t.Column(types.VarAirPres)

	rowOf := make(map[int64]int, t.Rows())
	for i, ts := range t.Times {
		rowOf[ts.UnixNano()] = i
	}
	step := int64(0)
	if t.Rows() > 1 {
		step = t.Times[1].Sub(t.Times[0]).Nanoseconds()
	}

	merged := 0
	for i, ts := range times {
		row, ok := rowOf[ts.UnixNano()]
		if !ok && step > 0 {
			// Snap to the nearest grid row when within half a step.
			offset := ts.Sub(t.Times[0]).Nanoseconds()
			if offset >= 0 {
				nearest := (offset + step/2) / step
				if int(nearest) < t.Rows() {
					snapped := t.Times[0].Add(time.Duration(nearest * step))
					if d := ts.Sub(snapped); d.Abs().Nanoseconds() <= step/2 {
						row, ok = int(nearest), true
					}
				}
			}
		}
		if ok && types.IsMissing(col[row]) {
			col[row] = values[i]
			merged++
		}
	}
	return merged
}

// interpolateNeighbors closes interior gaps of up to maxRun rows by linear
// interpolation between the nearest present neighbors. No extrapolation
// beyond dataset bounds.
func interpolateNeighbors(values []float64, maxRun int) {
	n := len(values)
	i := 0
	for i < n {
		if !types.IsMissing(values[i]) {
			i++
			continue
		}
		j := i
		for j < n && types.IsMissing(values[j]) {
			j++
		}
		if i > 0 && j < n && j-i <= maxRun {
			prev, next := values[i-1], values[j]
			span := float64(j - i + 1)
			for k := i; k < j; k++ {
				frac := float64(k-i+1) / span
				values[k] = prev + (next-prev)*frac
			}
		}
		i = j
	}
}
