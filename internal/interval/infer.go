// Package interval infers native sampling intervals from noisy timestamp
// sets and reconciles them into one canonical grid spacing.
package interval

import (
	"fmt"
	"time"

	"github.com/streamside/hydrocond/internal/types"
)

// run is one run-length-encoded stretch of identical successive differences.
type run struct {
	diff   time.Duration
	length int
}

// rle run-length-encodes the successive differences of a timestamp set.
func rle(diffs []time.Duration) []run {
	var runs []run
	for _, d := range diffs {
		if n := len(runs); n > 0 && runs[n-1].diff == d {
			runs[n-1].length++
			continue
		}
		runs = append(runs, run{diff: d, length: 1})
	}
	return runs
}

// Infer determines the native sampling interval of one variable from its
// sorted, de-duplicated timestamps. The modal difference is weighted by
// summed run length rather than run count, so a single long anomalous run
// cannot masquerade as the dominant interval.
func Infer(variable string, times []time.Time, d *types.Diagnostics) (types.IntervalRecord, error) {
	if len(times) < 2 {
		return types.IntervalRecord{}, fmt.Errorf("variable %s has %d timestamps; need at least 2 to infer an interval",
			variable, len(times))
	}

	diffs := make([]time.Duration, len(times)-1)
	for i := 1; i < len(times); i++ {
		diffs[i-1] = times[i].Sub(times[i-1])
		if diffs[i-1] <= 0 {
			return types.IntervalRecord{}, fmt.Errorf("variable %s timestamps not strictly ascending at index %d", variable, i)
		}
	}

	runs := rle(diffs)
	rec := types.IntervalRecord{Variable: variable}

	if len(runs) == 1 {
		rec.Interval = runs[0].diff
		return rec, nil
	}

	// Duration-weighted mode: total run length per distinct difference.
	weight := make(map[time.Duration]int)
	minDiff := runs[0].diff
	for _, r := range runs {
		weight[r.diff] += r.length
		if r.diff < minDiff {
			minDiff = r.diff
		}
	}
	var mode time.Duration
	best := -1
	for diff, w := range weight {
		if w > best || (w == best && diff < mode) {
			mode, best = diff, w
		}
	}
	rec.Interval = mode

	// Regular data with dropped rows has every distinct difference as an
	// integer multiple of the smallest one.
	for diff := range weight {
		if diff%minDiff != 0 {
			rec.Irregular = true
			break
		}
	}
	if rec.Irregular {
		d.Warnf("%s is sampled irregularly; using modal interval %v, gaps will be introduced", variable, mode)
		return rec, nil
	}

	// Each run of non-modal differences is one stretch of dropped rows.
	for _, r := range runs {
		if r.diff != mode {
			rec.GapCount++
		}
	}
	return rec, nil
}
