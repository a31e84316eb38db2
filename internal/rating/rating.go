// Package rating fits and applies stage-discharge rating curves.
package rating

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
	"gonum.org/v1/gonum/stat"
)

// Form selects the functional shape of the rating relationship.
type Form string

const (
	FormPower       Form = "power"       // Q = a * Z^b
	FormExponential Form = "exponential" // Q = a * e^(b*Z)
	FormLinear      Form = "linear"      // Q = a*Z + b
)

// Curve is a resolved rating relationship ready to apply.
type Curve struct {
	Form Form
	A, B float64

	// Calibration Z range, populated only when fitted from pairs.
	ZMin, ZMax       float64
	HasRange         bool
	IgnoreOutOfRange bool

	SensorHeight float64
}

// Resolve turns rating-curve options into an applicable Curve. Exactly one
// of coefficients or calibration pairs must be usable; when both are given
// the coefficients win and the pairs are ignored with a warning.
func Resolve(rc *config.RatingCurveOptions, d *types.Diagnostics) (Curve, error) {
	if rc == nil {
		return Curve{}, types.Configf("discharge requested but no rating curve supplied")
	}
	form := Form(rc.Form)

	c := Curve{
		Form:             form,
		SensorHeight:     rc.SensorHeight,
		IgnoreOutOfRange: rc.IgnoreOutOfRange,
	}

	if rc.Plot {
		d.Warnf("rating curve plot requested; plotting is handled by an external tool, none produced")
	}

	haveCoeffs := len(rc.Coefficients) == 2
	havePairs := len(rc.CalibrationZ) >= 2

	switch {
	case haveCoeffs:
		if havePairs {
			d.Warnf("rating curve has both coefficients and calibration pairs; using coefficients, pairs ignored")
		}
		c.A, c.B = rc.Coefficients[0], rc.Coefficients[1]
		d.RatingCurve = &types.RatingFit{Form: string(form), A: c.A, B: c.B}
		return c, nil
	case havePairs:
		fit, err := fitPairs(form, rc.CalibrationZ, rc.CalibrationQ)
		if err != nil {
			return Curve{}, err
		}
		c.A, c.B = fit.A, fit.B
		c.ZMin, c.ZMax = fit.ZMin, fit.ZMax
		c.HasRange = true
		d.RatingCurve = fit
		return c, nil
	}
	return Curve{}, types.Configf("rating curve needs either coefficients [a, b] or calibration pairs")
}

// fitPairs regresses (a, b) from calibration pairs: log-log linear
// regression for the power form, log-linear for exponential, ordinary
// least squares for linear.
func fitPairs(form Form, z, q []float64) (*types.RatingFit, error) {
	if len(z) != len(q) || len(z) < 2 {
		return nil, types.Configf("rating curve needs at least 2 balanced calibration pairs")
	}

	x := make([]float64, 0, len(z))
	y := make([]float64, 0, len(q))
	for i := range z {
		switch form {
		case FormPower:
			if z[i] <= 0 || q[i] <= 0 {
				continue // log-space fit cannot use non-positive pairs
			}
			x = append(x, math.Log(z[i]))
			y = append(y, math.Log(q[i]))
		case FormExponential:
			if q[i] <= 0 {
				continue
			}
			x = append(x, z[i])
			y = append(y, math.Log(q[i]))
		case FormLinear:
			x = append(x, z[i])
			y = append(y, q[i])
		default:
			return nil, types.Configf("unknown rating curve form %q", form)
		}
	}
	if len(x) < 2 {
		return nil, types.Configf("too few usable calibration pairs for %s fit", form)
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := stat.RSquared(x, y, nil, alpha, beta)

	fit := &types.RatingFit{Form: string(form), R2: r2, Fitted: true}
	switch form {
	case FormPower, FormExponential:
		fit.A = math.Exp(alpha)
		fit.B = beta
	case FormLinear:
		fit.A = beta  // slope
		fit.B = alpha // intercept
	}

	zmin, zmax := z[0], z[0]
	for _, v := range z[1:] {
		zmin = math.Min(zmin, v)
		zmax = math.Max(zmax, v)
	}
	fit.ZMin, fit.ZMax = zmin, zmax

	// Residual summary in discharge units for the run record.
	curve := Curve{Form: form, A: fit.A, B: fit.B}
	residuals := make([]float64, len(z))
	for i := range z {
		residuals[i] = math.Abs(curve.predict(z[i]) - q[i])
	}
	if med, err := stats.Median(residuals); err == nil {
		fit.MedianResidual = med
	}
	if sd, err := stats.StandardDeviation(residuals); err == nil {
		fit.ResidualStdDev = sd
	}
	return fit, nil
}

func (c Curve) predict(z float64) float64 {
	switch c.Form {
	case FormPower:
		return c.A * math.Pow(z, c.B)
	case FormExponential:
		return c.A * math.Exp(c.B*z)
	case FormLinear:
		return c.A*z + c.B
	}
	return math.NaN()
}

// Apply converts a continuous level series into discharge and a depth
// series in the calibration datum. SensorHeight shifts the level series
// into the datum the calibration pairs were measured in. Out-of-range
// predictions become missing when IgnoreOutOfRange is set, and extrapolate
// otherwise. Non-positive results are left for the sanitizer.
func (c Curve) Apply(level []float64, d *types.Diagnostics) (discharge, depth []float64) {
	discharge = make([]float64, len(level))
	depth = make([]float64, len(level))
	outOfRange := 0
	for i, lv := range level {
		if types.IsMissing(lv) {
			discharge[i] = types.Missing()
			depth[i] = types.Missing()
			continue
		}
		z := lv + c.SensorHeight
		depth[i] = z
		if c.HasRange && c.IgnoreOutOfRange && (z < c.ZMin || z > c.ZMax) {
			discharge[i] = types.Missing()
			outOfRange++
			continue
		}
		discharge[i] = c.predict(z)
	}
	if outOfRange > 0 {
		d.Warnf("%d level value(s) outside the calibration range [%g, %g] dropped from discharge",
			outOfRange, c.ZMin, c.ZMax)
	}
	return discharge, depth
}
