package interval

import (
	"testing"
	"time"

	"github.com/streamside/hydrocond/internal/types"
)

func stamps(start time.Time, step time.Duration, n int) []time.Time {
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out
}

func TestInferUniform(t *testing.T) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	d := types.NewDiagnostics()

	rec, err := Infer("DO_mgL", stamps(start, 15*time.Minute, 50), d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Interval != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", rec.Interval)
	}
	if rec.GapCount != 0 {
		t.Errorf("gap count = %d, want 0", rec.GapCount)
	}
	if rec.Irregular {
		t.Error("uniform series reported irregular")
	}
}

func TestInferSingleGap(t *testing.T) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	times := stamps(start, 10*time.Minute, 20)
	// Drop four consecutive rows from the middle.
	times = append(times[:8:8], times[12:]...)

	d := types.NewDiagnostics()
	rec, err := Infer("WaterTemp_C", times, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Interval != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", rec.Interval)
	}
	if rec.GapCount != 1 {
		t.Errorf("gap count = %d, want 1", rec.GapCount)
	}
	if rec.Irregular {
		t.Error("gapped-but-regular series reported irregular")
	}
}

func TestInferLongAnomalousRunDoesNotWin(t *testing.T) {
	// 30 points at 5 min, then a stretch of 10 points at 7 min. The 7-min
	// diffs are not multiples of 5, so the series is irregular, but the
	// duration-weighted mode must still be 5 min.
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	times := stamps(start, 5*time.Minute, 30)
	last := times[len(times)-1]
	for i := 1; i <= 10; i++ {
		times = append(times, last.Add(time.Duration(i)*7*time.Minute))
	}

	d := types.NewDiagnostics()
	rec, err := Infer("Level_m", times, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", rec.Interval)
	}
	if !rec.Irregular {
		t.Error("mixed non-multiple spacing should be irregular")
	}
	if len(d.Warnings) == 0 {
		t.Error("irregular series should record a warning")
	}
}

func TestInferTooFewPoints(t *testing.T) {
	d := types.NewDiagnostics()
	if _, err := Infer("DO_mgL", []time.Time{time.Now()}, d); err == nil {
		t.Error("expected error for single timestamp")
	}
}

func TestInferNonAscending(t *testing.T) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{start, start.Add(10 * time.Minute), start.Add(5 * time.Minute)}
	d := types.NewDiagnostics()
	if _, err := Infer("DO_mgL", times, d); err == nil {
		t.Error("expected error for out-of-order timestamps")
	}
}
