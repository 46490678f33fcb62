// Package eto implements the FAO-56 Penman-Monteith daily reference
// evapotranspiration calculation.
package eto

import (
	"math"
	"time"
)

// Calculate returns the daily reference evapotranspiration in mm/day.
//
// Inputs: min/max temperature (°C), relative humidity (%), atmospheric
// pressure (hPa), wind speed (m/s, 10 m measurement height), solar radiation
// (kWh/m²/day), altitude (m), latitude (decimal degrees) and the calculation
// date. Pure and deterministic; the result is clamped to be non-negative.
func Calculate(minTemp, maxTemp, humidity, pressure, windSpeed, solarRadiation, altitude, latitude float64, date time.Time) float64 {
	tMean := (maxTemp + minTemp) / 2

	// Solar radiation kWh/day -> MJ/m²/day.
	rs := solarRadiation * 3.6

	// Wind speed at 2 m reference height.
	u2 := windSpeed * 0.748

	// Slope of the saturation vapor pressure curve (kPa/°C).
	slope := 4098 * (0.6108 * math.Exp((17.27*tMean)/(tMean+237.3))) /
		math.Pow(tMean+237.3, 2)

	// Psychrometric constant (kPa/°C), pressure converted hPa -> kPa.
	psc := pressure / 10 * 0.000665

	den := slope + psc*(1+0.34*u2)
	dt := slope / den              // radiation weight
	pt := psc / den                // wind weight
	tt := u2 * (900 / (tMean + 273)) // wind temperature term

	// Saturation and actual vapor pressure (kPa).
	eTmax := 0.6108 * math.Exp(17.27*maxTemp/(maxTemp+237.3))
	eTmin := 0.6108 * math.Exp(17.27*minTemp/(minTemp+237.3))
	es := (eTmax + eTmin) / 2
	ea := humidity * es / 100

	doy := float64(date.YearDay())

	// Inverse relative Earth-Sun distance and solar declination.
	dr := 1 + 0.033*math.Cos(2*math.Pi*doy/365)
	sd := 0.409 * math.Sin(2*math.Pi*doy/365-1.39)

	lat := latitude * math.Pi / 180

	// Sunset hour angle.
	ws := math.Acos(-(math.Tan(sd) * math.Tan(lat)))

	// Extraterrestrial radiation (MJ/m²/day).
	ra := (1440 / math.Pi) * 0.082 * dr *
		(ws*math.Sin(lat)*math.Sin(sd) + math.Cos(lat)*math.Cos(sd)*math.Sin(ws))

	// Clear sky radiation.
	rso := ra * (0.75 + 2*altitude/100000)

	// Net shortwave radiation, albedo 0.23.
	rns := rs * (1 - 0.23)

	// Net longwave radiation via Stefan-Boltzmann on Tmax/Tmin in Kelvin.
	rnl := 4.903e-9 * (math.Pow(273.16+maxTemp, 4) + math.Pow(273.16+minTemp, 4)) / 2
	rnl *= 0.34 - 0.14*math.Sqrt(ea)
	rnl *= 1.35*rs/rso - 0.35

	// Net radiation; soil heat flux negligible at daily scale.
	rn := rns - rnl
	rng := 0.408 * rn

	etRad := dt * rng
	etWind := pt * tt * (es - ea)

	return math.Max(0, etRad+etWind)
}
