// Package types defines the shared data structures for the conditioning pipeline.
package types

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Flag classifies the quality of a single observation.
type Flag int

const (
	FlagNone Flag = iota
	FlagInteresting
	FlagQuestionable
	FlagBadData
)

// ParseFlag converts a flag name from the acquisition schema
func ParseFlag(s string) (Flag, error) {
	switch s {
	case "", "None":
		return FlagNone, nil
	case "Interesting":
		return FlagInteresting, nil
	case "Questionable":
		return FlagQuestionable, nil
	case "Bad Data", "BadData":
		return FlagBadData, nil
	}
	return FlagNone, fmt.Errorf("unknown flag type %q", s)
}

func (f Flag) String() string {
	switch f {
	case FlagInteresting:
		return "Interesting"
	case FlagQuestionable:
		return "Questionable"
	case FlagBadData:
		return "BadData"
	}
	return "None"
}

// Observation is one long-format sensor record. A missing value is NaN.
type Observation struct {
	Region   string
	Site     string
	Time     time.Time
	Variable string
	Value    float64
	Flag     Flag
	Comment  string
}

// Site holds the metadata needed for solar and pressure retrieval
type Site struct {
	Region string
	Site   string
	Lat    float64
	Lon    float64
}

// Name returns the acquisition-schema site identifier, e.g. "NC_Eno".
func (s Site) Name() string {
	return s.Region + "_" + s.Site
}

// VariableSeries binds a variable name to its sorted, de-duplicated samples.
type VariableSeries struct {
	Variable string
	Times    []time.Time
	Values   []float64
}

// IntervalRecord reports the inferred native sampling interval of one variable.
type IntervalRecord struct {
	Variable  string
	Interval  time.Duration
	GapCount  int
	Irregular bool
}

// Grid defines the canonical regular timeline.
type Grid struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Rows returns the number of grid timestamps, endpoints inclusive.
func (g Grid) Rows() int {
	if g.Step <= 0 || g.End.Before(g.Start) {
		return 0
	}
	return int(g.End.Sub(g.Start)/g.Step) + 1
}

// Times materializes the grid timeline.
func (g Grid) Times() []time.Time {
	n := g.Rows()
	ts := make([]time.Time, n)
	for i := 0; i < n; i++ {
		ts[i] = g.Start.Add(time.Duration(i) * g.Step)
	}
	return ts
}

// SeriesByVariable groups long-format observations into per-variable series.
// Duplicate (variable, timestamp) pairs violate the acquisition contract.
func SeriesByVariable(obs []Observation) (map[string]*VariableSeries, error) {
	byVar := make(map[string]*VariableSeries)
	seen := make(map[string]map[int64]bool)
	for _, o := range obs {
		vs, ok := byVar[o.Variable]
		if !ok {
			vs = &VariableSeries{Variable: o.Variable}
			byVar[o.Variable] = vs
			seen[o.Variable] = make(map[int64]bool)
		}
		key := o.Time.UnixNano()
		if seen[o.Variable][key] {
			return nil, fmt.Errorf("duplicate observation for %s at %s", o.Variable, o.Time.UTC().Format(time.RFC3339))
		}
		seen[o.Variable][key] = true
		vs.Times = append(vs.Times, o.Time.UTC())
		vs.Values = append(vs.Values, o.Value)
	}
	for _, vs := range byVar {
		sortSeries(vs)
	}
	return byVar, nil
}

func sortSeries(vs *VariableSeries) {
	idx := make([]int, len(vs.Times))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return vs.Times[idx[a]].Before(vs.Times[idx[b]]) })
	times := make([]time.Time, len(idx))
	values := make([]float64, len(idx))
	for i, j := range idx {
		times[i] = vs.Times[j]
		values[i] = vs.Values[j]
	}
	vs.Times = times
	vs.Values = values
}

// IsMissing reports whether a sample value is absent.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Missing is the sentinel for absent samples.
func Missing() float64 {
	return math.NaN()
}
