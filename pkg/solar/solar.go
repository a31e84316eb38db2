// Package solar provides the solar-time and insolation collaborators:
// pure functions of time and location used to derive the solar_time and
// light columns.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// position holds the intermediate solar geometry for one instant.
type position struct {
	eqTimeMin      float64
	declinationRad float64
	cosZenith      float64
	elevationDeg   float64
	distAU         float64
}

// compute derives solar geometry from low-accuracy series (Meeus ch. 25)
// anchored on the julian day.
func compute(t time.Time, lat, lon float64) position {
	jd := julian.TimeToJD(t.UTC())
	T := (jd - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	sunLong := L0 + C
	omega := 125.04 - 1934.136*T
	lambda := sunLong - 0.00569 - 0.00478*math.Sin(degToRad(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	declRad := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	utcMin := float64(t.UTC().Hour()*60+t.UTC().Minute()) + float64(t.UTC().Second())/60.0
	tst := utcMin + 4*lon + eqTimeMin
	haRad := degToRad(tst/4 - 180)

	latRad := degToRad(lat)
	cosZen := math.Sin(latRad)*math.Sin(declRad) + math.Cos(latRad)*math.Cos(declRad)*math.Cos(haRad)
	elDeg := 90 - radToDeg(math.Acos(cosZen)) + 0.5667

	// Sun-Earth distance from the equation of center.
	mRad := degToRad(M)
	E := mRad + e*math.Sin(mRad)*(1+e*math.Cos(mRad))
	v := 2 * math.Atan(math.Sqrt((1+e)/(1-e))*math.Tan(E/2))
	r := (1 - e*e) / (1 + e*math.Cos(v))

	return position{
		eqTimeMin:      eqTimeMin,
		declinationRad: declRad,
		cosZenith:      cosZen,
		elevationDeg:   elDeg,
		distAU:         r,
	}
}

// MeanSolarTime shifts a UTC instant by the site's longitudinal offset
// (4 minutes per degree). This is the solar_time convention the output
// table uses: local mean solar time without the equation-of-time wobble.
func MeanSolarTime(t time.Time, lon float64) time.Time {
	return t.UTC().Add(time.Duration(4*lon*60) * time.Second)
}

// ApparentSolarTime additionally applies the equation of time, putting
// true solar noon at 12:00.
func ApparentSolarTime(t time.Time, lon float64) time.Time {
	p := compute(t, 0, lon)
	offset := 4*lon + p.eqTimeMin
	return t.UTC().Add(time.Duration(offset*60) * time.Second)
}

// Insolation estimates clear-sky shortwave irradiance in W/m2 using the
// Bras atmospheric attenuation model with turbidity factor nfac.
func Insolation(t time.Time, lat, lon, nfac float64) float64 {
	const solarConstant = 1367.0

	p := compute(t, lat, lon)
	if p.elevationDeg <= 0 {
		return 0
	}
	io := p.cosZenith * solarConstant / (p.distAU * p.distAU)
	m := 1.0 / (p.cosZenith + 0.15*math.Pow(p.elevationDeg+3.885, -1.253))
	a1 := 0.128 - 0.054*math.Log(m)/math.Ln10
	sr := io * math.Exp(-nfac*a1*m)
	if sr < 0 {
		return 0
	}
	return sr
}

// PAR converts shortwave irradiance (W/m2) to photosynthetically active
// radiation in umol/m2/s: ~45% of shortwave is PAR, at ~4.57 umol/J.
func PAR(shortwave float64) float64 {
	return shortwave * 0.45 * 4.57
}
