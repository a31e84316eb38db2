// Package dosat computes equilibrium dissolved-oxygen concentration as a
// pure function of water temperature and barometric pressure.
package dosat

import "math"

// Saturation returns the DO concentration (mg/L) of fresh water in
// equilibrium with the atmosphere at waterTempC (degrees C) and pressureAtm
// (atmospheres), using the Garcia-Benson refit of the Benson-Krause data
// with the USGS pressure and vapor corrections. Salinity is taken as zero.
func Saturation(waterTempC, pressureAtm float64) float64 {
	// Scaled temperature for the Garcia-Benson polynomial.
	ts := math.Log((298.15 - waterTempC) / (273.15 + waterTempC))

	lnC := 2.00907 +
		3.22014*ts +
		4.05010*math.Pow(ts, 2) +
		4.94457*math.Pow(ts, 3) -
		0.256847*math.Pow(ts, 4) +
		3.88767*math.Pow(ts, 5)
	cStar := math.Exp(lnC) // mL/L at 1 atm moist air

	tk := waterTempC + 273.15
	// Partial pressure of water vapor, atm.
	pwv := math.Exp(11.8571 - 3840.70/tk - 216961.0/(tk*tk))
	// Second virial coefficient of oxygen.
	theta := 0.000975 - 1.426e-5*waterTempC + 6.436e-8*waterTempC*waterTempC

	pressureCorr := pressureAtm * (1 - pwv/pressureAtm) * (1 - theta*pressureAtm) /
		((1 - pwv) * (1 - theta))

	// 1.42905 mg O2 per mL at STP.
	return cStar * 1.42905 * pressureCorr
}
