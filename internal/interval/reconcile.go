package interval

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

// Reconcile picks one target interval for the whole dataset. With no user
// request, a unanimous per-variable interval wins outright; otherwise the
// coarsest detected interval is chosen so that finer series thin instead of
// sprouting gaps. A user-requested interval must either match a detected
// one exactly or be an exact multiple of the coarsest (dataset thinning);
// anything else is a configuration error naming the accepted set.
func Reconcile(records []types.IntervalRecord, userInterval string, d *types.Diagnostics) (time.Duration, error) {
	if len(records) == 0 {
		return 0, types.Configf("no variables with inferable intervals")
	}

	detected := distinctIntervals(records)
	coarsest := detected[len(detected)-1]

	if userInterval == "" {
		if len(detected) == 1 {
			return detected[0], nil
		}
		d.Warnf("variables sample at mixed intervals (%s); using coarsest %v", describe(detected), coarsest)
		return coarsest, nil
	}

	requested, err := config.ParseInterval(userInterval)
	if err != nil {
		return 0, types.Configf("%v", err)
	}
	for _, iv := range detected {
		if requested == iv {
			return requested, nil
		}
	}
	if requested > coarsest && requested%coarsest == 0 {
		d.Warnf("requested interval %v thins the dataset (coarsest detected is %v)", requested, coarsest)
		return requested, nil
	}
	return 0, types.Configf("interval %q incompatible with data; accepted: %s, or any exact multiple of %v",
		userInterval, describe(detected), coarsest)
}

func distinctIntervals(records []types.IntervalRecord) []time.Duration {
	seen := make(map[time.Duration]bool)
	var out []time.Duration
	for _, r := range records {
		if !seen[r.Interval] {
			seen[r.Interval] = true
			out = append(out, r.Interval)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

func describe(intervals []time.Duration) string {
	parts := make([]string, len(intervals))
	for i, iv := range intervals {
		parts[i] = fmt.Sprintf("%g min", iv.Minutes())
	}
	return strings.Join(parts, ", ")
}
