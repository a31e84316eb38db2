package format

import (
	"errors"
	"testing"
	"time"

	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

func TestKindFromOptions(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		typ     string
		want    OutputKind
		wantErr bool
	}{
		{name: "bayes supported", model: config.ModelStreamMetabolizer, typ: config.TypeBayes, want: StreamMetabolizerBayes},
		{name: "mle rejected", model: config.ModelStreamMetabolizer, typ: config.TypeMLE, wantErr: true},
		{name: "BASE rejected", model: config.ModelBASE, typ: config.TypeBayes, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := KindFromOptions(config.Options{Model: tt.model, Type: tt.typ})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				var ce *types.ConfigError
				if !errors.As(err, &ce) {
					t.Errorf("error is %T, want *types.ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kind != tt.want {
				t.Errorf("kind = %d, want %d", kind, tt.want)
			}
		})
	}
}

func conditionedTable(n int) (*types.WideTable, []time.Time) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 15 * time.Minute)
	}
	t := types.NewWideTable(times)
	ones := func() []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = 1
		}
		return v
	}
	for _, c := range []string{types.VarDO, types.VarDOSat, types.VarDepth, types.VarWaterTemp, types.VarLight} {
		t.SetColumn(c, ones())
	}
	return t, times
}

func TestFormatBayes(t *testing.T) {
	wt, times := conditionedTable(4)
	d := types.NewDiagnostics()
	d.IntervalMinutes = 15
	d.FillMethod = "interpolation"

	out, err := Format(StreamMetabolizerBayes, wt, times, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, col := range []string{"DO_obs", "DO_sat", "depth", "temp_water", "light"} {
		if _, ok := out.Columns[col]; !ok {
			t.Errorf("missing output column %s", col)
		}
	}
	if _, ok := out.Columns["discharge"]; ok {
		t.Error("discharge should be absent when never derived")
	}
	if out.Spec.IntervalMinutes != 15 {
		t.Errorf("spec interval = %g, want 15", out.Spec.IntervalMinutes)
	}
	if out.Spec.UsedRatingCurve {
		t.Error("spec should record no rating curve")
	}
}

func TestFormatBayesMissingRequiredColumn(t *testing.T) {
	wt, times := conditionedTable(4)
	wt.Drop(types.VarDOSat)
	d := types.NewDiagnostics()

	_, err := Format(StreamMetabolizerBayes, wt, times, d)
	var se *types.SufficiencyError
	if !errors.As(err, &se) {
		t.Fatalf("error is %T, want *types.SufficiencyError", err)
	}
}

func TestFormatUnsupportedKinds(t *testing.T) {
	wt, times := conditionedTable(2)
	d := types.NewDiagnostics()
	for _, kind := range []OutputKind{StreamMetabolizerMLE, BASE} {
		if _, err := Format(kind, wt, times, d); err == nil {
			t.Errorf("kind %d should be unsupported", kind)
		}
	}
}
