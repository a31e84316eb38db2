package types

import (
	"fmt"
	"sort"
	"time"
)

// Canonical variable names used across the pipeline. These match the
// acquisition schema's variable enum after ingestion.
const (
	VarDO        = "DO_mgL"
	VarWaterTemp = "WaterTemp_C"
	VarLight     = "Light_PAR"
	VarLevel     = "Level_m"
	VarDepth     = "Depth_m"
	VarDischarge = "Discharge_m3s"
	VarAirPres   = "AirPres_kPa"
	VarDOSat     = "satDO_mgL"

	// Remote reference-gauge variants of level and discharge.
	VarRefLevel     = "RefLevel_m"
	VarRefDischarge = "RefDischarge_m3s"
)

// WideTable is the pipeline's working table: one row per timestamp, one
// column per variable. Missing cells are NaN.
type WideTable struct {
	Times   []time.Time
	Columns []string
	Data    map[string][]float64
}

// NewWideTable creates an empty table over the given timeline.
func NewWideTable(times []time.Time) *WideTable {
	return &WideTable{
		Times: times,
		Data:  make(map[string][]float64),
	}
}

// Rows returns the row count.
func (t *WideTable) Rows() int {
	return len(t.Times)
}

// Has reports whether a column exists.
func (t *WideTable) Has(col string) bool {
	_, ok := t.Data[col]
	return ok
}

// Column returns the named column, or nil when absent.
func (t *WideTable) Column(col string) []float64 {
	return t.Data[col]
}

// SetColumn adds or replaces a column. The column length must match the
// table's timeline.
func (t *WideTable) SetColumn(col string, values []float64) error {
	if len(values) != len(t.Times) {
		return fmt.Errorf("column %s has %d values for %d rows", col, len(values), len(t.Times))
	}
	if !t.Has(col) {
		t.Columns = append(t.Columns, col)
	}
	t.Data[col] = values
	return nil
}

// Rename moves a column to a new name. Renaming onto an existing column is
// an error; callers resolve duplicates first.
func (t *WideTable) Rename(from, to string) error {
	if !t.Has(from) {
		return fmt.Errorf("no column %s to rename", from)
	}
	if t.Has(to) {
		return fmt.Errorf("cannot rename %s: column %s already present", from, to)
	}
	t.Data[to] = t.Data[from]
	delete(t.Data, from)
	for i, c := range t.Columns {
		if c == from {
			t.Columns[i] = to
		}
	}
	return nil
}

// Drop removes a column if present.
func (t *WideTable) Drop(col string) {
	if !t.Has(col) {
		return
	}
	delete(t.Data, col)
	for i, c := range t.Columns {
		if c == col {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			break
		}
	}
}

// MissingFraction returns the proportion of NaN cells in a column.
// Absent columns count as fully missing.
func (t *WideTable) MissingFraction(col string) float64 {
	values, ok := t.Data[col]
	if !ok || len(values) == 0 {
		return 1.0
	}
	missing := 0
	for _, v := range values {
		if IsMissing(v) {
			missing++
		}
	}
	return float64(missing) / float64(len(values))
}

// Presence is an explicit column-presence map built once after ingestion,
// consulted by later stages instead of repeated existence checks.
type Presence map[string]bool

// BuildPresence snapshots which canonical variables the table carries.
func (t *WideTable) BuildPresence() Presence {
	p := make(Presence, len(t.Columns))
	for _, c := range t.Columns {
		p[c] = true
	}
	return p
}

// Pivot converts per-variable series into a wide table over the union of
// their timestamps.
func Pivot(series map[string]*VariableSeries) *WideTable {
	uniq := make(map[int64]time.Time)
	for _, vs := range series {
		for _, ts := range vs.Times {
			uniq[ts.UnixNano()] = ts
		}
	}
	times := make([]time.Time, 0, len(uniq))
	for _, ts := range uniq {
		times = append(times, ts)
	}
	sortTimes(times)

	rowOf := make(map[int64]int, len(times))
	for i, ts := range times {
		rowOf[ts.UnixNano()] = i
	}

	t := NewWideTable(times)
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vs := series[name]
		col := make([]float64, len(times))
		for i := range col {
			col[i] = Missing()
		}
		for i, ts := range vs.Times {
			col[rowOf[ts.UnixNano()]] = vs.Values[i]
		}
		t.SetColumn(name, col)
	}
	return t
}

func sortTimes(ts []time.Time) {
	sort.Slice(ts, func(a, b int) bool { return ts[a].Before(ts[b]) })
}
