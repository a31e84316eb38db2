package gapfill

import (
	"math"
	"testing"
	"time"

	"github.com/streamside/hydrocond/internal/types"
)

func makeTable(col string, values []float64) *types.WideTable {
	times := make([]time.Time, len(values))
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 15 * time.Minute)
	}
	t := types.NewWideTable(times)
	t.SetColumn(col, values)
	return t
}

func TestInterpolationFill(t *testing.T) {
	nan := math.NaN()
	wt := makeTable(types.VarDO, []float64{8.0, nan, nan, 9.5})
	d := types.NewDiagnostics()

	Fill(wt, MethodInterpolation, 4, d)

	got := wt.Column(types.VarDO)
	want := []float64{8.0, 8.5, 9.0, 9.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("got[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	if d.FillMethod != MethodInterpolation {
		t.Errorf("fill method %q not recorded", d.FillMethod)
	}
}

func TestLOCFFill(t *testing.T) {
	nan := math.NaN()
	wt := makeTable(types.VarWaterTemp, []float64{21.0, nan, nan, 23.0})
	d := types.NewDiagnostics()

	Fill(wt, MethodLOCF, 4, d)

	got := wt.Column(types.VarWaterTemp)
	if got[1] != 21.0 || got[2] != 21.0 {
		t.Errorf("locf should carry 21.0 forward, got %v", got)
	}
}

func TestMeanFill(t *testing.T) {
	nan := math.NaN()
	wt := makeTable(types.VarLight, []float64{10, nan, 20, 30})
	d := types.NewDiagnostics()

	Fill(wt, MethodMean, 4, d)

	if got := wt.Column(types.VarLight)[1]; math.Abs(got-20) > 1e-12 {
		t.Errorf("mean fill = %g, want 20", got)
	}
}

func TestGapLongerThanMaxLeftAlone(t *testing.T) {
	nan := math.NaN()
	wt := makeTable(types.VarDO, []float64{8.0, nan, nan, nan, 9.0})
	d := types.NewDiagnostics()

	Fill(wt, MethodInterpolation, 2, d)

	got := wt.Column(types.VarDO)
	for i := 1; i <= 3; i++ {
		if !math.IsNaN(got[i]) {
			t.Errorf("gap of 3 exceeds max 2; got[%d] = %g", i, got[i])
		}
	}
}

func TestEdgeGapsNotExtrapolated(t *testing.T) {
	nan := math.NaN()
	wt := makeTable(types.VarDO, []float64{nan, 8.0, 9.0, nan})
	d := types.NewDiagnostics()

	Fill(wt, MethodInterpolation, 4, d)

	got := wt.Column(types.VarDO)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[3]) {
		t.Errorf("edge gaps must not be extrapolated, got %v", got)
	}
}

func TestNoneMethodIsNoop(t *testing.T) {
	nan := math.NaN()
	wt := makeTable(types.VarDO, []float64{8.0, nan, 9.0})
	d := types.NewDiagnostics()

	Fill(wt, MethodNone, 4, d)

	if !math.IsNaN(wt.Column(types.VarDO)[1]) {
		t.Error("none method must not modify the table")
	}
}

func TestRandomFillDrawsFromObserved(t *testing.T) {
	nan := math.NaN()
	wt := makeTable(types.VarDO, []float64{8.0, nan, 9.0})
	d := types.NewDiagnostics()

	Fill(wt, MethodRandom, 4, d)

	got := wt.Column(types.VarDO)[1]
	if got != 8.0 && got != 9.0 {
		t.Errorf("random fill must draw from observed values, got %g", got)
	}
}
