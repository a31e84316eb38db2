package rating

import (
	"math"
	"testing"

	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

func TestPowerFitRoundTrip(t *testing.T) {
	// Synthetic pairs from known coefficients with mild multiplicative noise.
	a, b := 2.3, 1.7
	noise := []float64{1.01, 0.99, 1.02, 0.98, 1.00, 1.01, 0.99, 1.00}
	var z, q []float64
	for i, nz := range noise {
		zi := 0.1 + 0.1*float64(i)
		z = append(z, zi)
		q = append(q, a*math.Pow(zi, b)*nz)
	}

	d := types.NewDiagnostics()
	curve, err := Resolve(&config.RatingCurveOptions{
		CalibrationZ: z,
		CalibrationQ: q,
		Form:         "power",
	}, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(curve.A-a)/a > 0.05 {
		t.Errorf("fitted a = %g, want %g within 5%%", curve.A, a)
	}
	if math.Abs(curve.B-b)/b > 0.05 {
		t.Errorf("fitted b = %g, want %g within 5%%", curve.B, b)
	}

	discharge, depth := curve.Apply(z, d)
	for i := range z {
		if math.Abs(discharge[i]-q[i])/q[i] > 0.05 {
			t.Errorf("predicted Q[%d] = %g, want %g within 5%%", i, discharge[i], q[i])
		}
		if depth[i] != z[i] {
			t.Errorf("depth[%d] = %g, want %g", i, depth[i], z[i])
		}
	}

	if d.RatingCurve == nil || !d.RatingCurve.Fitted {
		t.Error("fit diagnostic should be recorded")
	}
	if d.RatingCurve.R2 < 0.99 {
		t.Errorf("R2 = %g, want > 0.99 for near-perfect pairs", d.RatingCurve.R2)
	}
}

func TestLinearFit(t *testing.T) {
	z := []float64{0.1, 0.2, 0.3, 0.4}
	q := []float64{0.7, 1.2, 1.7, 2.2} // Q = 5*Z + 0.2

	d := types.NewDiagnostics()
	curve, err := Resolve(&config.RatingCurveOptions{
		CalibrationZ: z,
		CalibrationQ: q,
		Form:         "linear",
	}, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(curve.A-5) > 1e-9 || math.Abs(curve.B-0.2) > 1e-9 {
		t.Errorf("fit = (%g, %g), want (5, 0.2)", curve.A, curve.B)
	}
}

func TestExponentialFit(t *testing.T) {
	a, b := 0.4, 3.0
	var z, q []float64
	for i := 0; i < 6; i++ {
		zi := 0.1 * float64(i+1)
		z = append(z, zi)
		q = append(q, a*math.Exp(b*zi))
	}

	d := types.NewDiagnostics()
	curve, err := Resolve(&config.RatingCurveOptions{
		CalibrationZ: z,
		CalibrationQ: q,
		Form:         "exponential",
	}, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(curve.A-a) > 1e-9 || math.Abs(curve.B-b) > 1e-9 {
		t.Errorf("fit = (%g, %g), want (%g, %g)", curve.A, curve.B, a, b)
	}
}

func TestCoefficientsBeatPairs(t *testing.T) {
	d := types.NewDiagnostics()
	curve, err := Resolve(&config.RatingCurveOptions{
		CalibrationZ: []float64{0.1, 0.2, 0.3},
		CalibrationQ: []float64{0.5, 1.1, 2.0},
		Coefficients: []float64{3.0, 2.0},
		Form:         "power",
	}, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if curve.A != 3.0 || curve.B != 2.0 {
		t.Errorf("coefficients must win, got (%g, %g)", curve.A, curve.B)
	}
	if len(d.Warnings) == 0 {
		t.Error("parameter conflict should be warned")
	}
	if curve.HasRange {
		t.Error("supplied coefficients carry no calibration range")
	}
}

func TestNeitherUsableFails(t *testing.T) {
	d := types.NewDiagnostics()
	_, err := Resolve(&config.RatingCurveOptions{Form: "power"}, d)
	if err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestOutOfRangePolicy(t *testing.T) {
	z := []float64{0.2, 0.3, 0.4}
	q := []float64{1.0, 2.0, 3.5}

	for _, ignore := range []bool{true, false} {
		d := types.NewDiagnostics()
		curve, err := Resolve(&config.RatingCurveOptions{
			CalibrationZ:     z,
			CalibrationQ:     q,
			Form:             "power",
			IgnoreOutOfRange: ignore,
		}, d)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		discharge, _ := curve.Apply([]float64{0.1, 0.3, 0.9}, d)
		if ignore {
			if !types.IsMissing(discharge[0]) || !types.IsMissing(discharge[2]) {
				t.Error("out-of-range levels should be missing when ignored")
			}
			if types.IsMissing(discharge[1]) {
				t.Error("in-range level should still predict")
			}
		} else {
			for i, v := range discharge {
				if types.IsMissing(v) {
					t.Errorf("extrapolation expected at index %d", i)
				}
			}
		}
	}
}

func TestSensorHeightShiftsDatum(t *testing.T) {
	d := types.NewDiagnostics()
	curve, err := Resolve(&config.RatingCurveOptions{
		Coefficients: []float64{2.0, 1.0},
		Form:         "linear",
		SensorHeight: 0.5,
	}, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	discharge, depth := curve.Apply([]float64{0.2}, d)
	if math.Abs(depth[0]-0.7) > 1e-12 {
		t.Errorf("depth = %g, want 0.7", depth[0])
	}
	if math.Abs(discharge[0]-(2.0*0.7+1.0)) > 1e-12 {
		t.Errorf("discharge = %g, want %g", discharge[0], 2.0*0.7+1.0)
	}
}
