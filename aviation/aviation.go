// aviation/aviation.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"github.com/openfmgc/vnav/math"
)

const (
	TonsToPounds        = 2204.62
	FeetPerNauticalMile = 6076.12
	KnotsToFeetPerSec   = 1.68781
	Gravity             = 32.174 // ft/s^2

	// International Standard Atmosphere
	SeaLevelTemperature     = 288.15    // K
	TemperatureLapseRate    = 0.0019812 // K/ft
	StandardTropopause      = 36089     // ft
	SeaLevelSpeedOfSound    = 661.4786  // kt
	pressureExponent        = 5.25588
	stratosphereScaleHeight = 20805.7 // ft
)

// StandardTemperature returns the ISA temperature in Kelvin at the given
// pressure altitude; tropo is the tropopause altitude, with zero meaning
// the standard tropopause.
func StandardTemperature(alt, tropo float32) float32 {
	if tropo <= 0 {
		tropo = StandardTropopause
	}
	return SeaLevelTemperature - TemperatureLapseRate*min(alt, tropo)
}

// Temperature returns the static air temperature in Kelvin, accounting for
// a deviation from ISA.
func Temperature(alt, isaDev, tropo float32) float32 {
	return StandardTemperature(alt, tropo) + isaDev
}

// ISADeviation returns the deviation from ISA for an outside air
// temperature oat, given in Celsius, measured at the given altitude.
func ISADeviation(alt, oat, tropo float32) float32 {
	return oat + 273.15 - StandardTemperature(alt, tropo)
}

// PressureRatio returns the ratio of static pressure at the given
// pressure altitude to the sea level pressure (delta).
func PressureRatio(alt, tropo float32) float32 {
	if tropo <= 0 {
		tropo = StandardTropopause
	}
	if alt <= tropo {
		theta := StandardTemperature(alt, tropo) / SeaLevelTemperature
		return math.Pow(theta, pressureExponent)
	}

	deltaTropo := math.Pow(StandardTemperature(tropo, tropo)/SeaLevelTemperature, pressureExponent)
	return deltaTropo * math.Exp(-(alt-tropo)/stratosphereScaleHeight)
}

// TemperatureRatio returns theta, the ratio of the static temperature to
// the sea level standard temperature.
func TemperatureRatio(alt, isaDev, tropo float32) float32 {
	return Temperature(alt, isaDev, tropo) / SeaLevelTemperature
}

// DensityRatio returns sigma, the ratio of air density at the given
// altitude to the density at sea level.
func DensityRatio(alt, isaDev, tropo float32) float32 {
	return PressureRatio(alt, tropo) / TemperatureRatio(alt, isaDev, tropo)
}

// SpeedOfSound returns the local speed of sound in knots.
func SpeedOfSound(alt, isaDev, tropo float32) float32 {
	return SeaLevelSpeedOfSound * math.Sqrt(TemperatureRatio(alt, isaDev, tropo))
}

// CASToMach converts calibrated airspeed in knots to Mach number given
// the pressure ratio delta.
func CASToMach(cas, delta float32) float32 {
	qcp0 := math.Pow(1+0.2*math.Sqr(cas/SeaLevelSpeedOfSound), 3.5) - 1
	return math.Sqrt(5 * (math.Pow(qcp0/delta+1, 2.0/7.0) - 1))
}

// MachToCAS is the inverse of CASToMach.
func MachToCAS(mach, delta float32) float32 {
	qcp := math.Pow(1+0.2*mach*mach, 3.5) - 1
	return SeaLevelSpeedOfSound * math.Sqrt(5*(math.Pow(delta*qcp+1, 2.0/7.0)-1))
}

// MachToTAS returns true airspeed in knots.
func MachToTAS(mach, alt, isaDev, tropo float32) float32 {
	return mach * SpeedOfSound(alt, isaDev, tropo)
}

func CASToTAS(cas, alt, isaDev, tropo float32) float32 {
	return MachToTAS(CASToMach(cas, PressureRatio(alt, tropo)), alt, isaDev, tropo)
}

func TASToCAS(tas, alt, isaDev, tropo float32) float32 {
	mach := tas / SpeedOfSound(alt, isaDev, tropo)
	return MachToCAS(mach, PressureRatio(alt, tropo))
}

// CrossoverAltitude returns the altitude at which the given calibrated
// airspeed and Mach number correspond to the same true airspeed. Below
// it, a CAS/Mach speed schedule flies the CAS; above it, the Mach.
func CrossoverAltitude(cas, mach, tropo float32) float32 {
	alt, ok := math.Bisect(0, 60000, 1, func(alt float32) float32 {
		return CASToMach(cas, PressureRatio(alt, tropo)) - mach
	})
	if !ok {
		// The CAS is always faster (or always slower) than the Mach over
		// the altitudes we care about.
		if CASToMach(cas, 1) > mach {
			return 0
		}
		return 60000
	}
	return alt
}

// ScheduleMach returns the Mach number flown at the given altitude for a
// CAS/Mach speed schedule; a zero mach means CAS only.
func ScheduleMach(cas, mach, alt, tropo float32) float32 {
	m := CASToMach(cas, PressureRatio(alt, tropo))
	if mach > 0 && m > mach {
		return mach
	}
	return m
}
