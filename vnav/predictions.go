// vnav/predictions.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"
	"time"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/math"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// StepResults describes a single integration step. Altitudes are given in
// the direction of flight, even for steps that are integrated backward.
type StepResults struct {
	PathAngle        float32 // degrees, negative when descending
	VerticalSpeed    float32 // ft/min
	DistanceTraveled float32 // nm
	FuelBurned       float32 // lb
	TimeElapsed      float32 // seconds
	InitialAltitude  float32
	FinalAltitude    float32
	Speed            float32 // kt CAS at the end of the step
	Mach             float32
}

// SegmentIntegrator is the prediction interface used for level cruise
// flight. weight is the zero fuel weight in pounds; the aircraft's mass
// during the step is weight plus the fuel on board.
type SegmentIntegrator interface {
	LevelFlightStep(altitude, distance, speed, mach, weight, fuelOnBoard, headwind, isaDev float32) (StepResults, error)
}

// ClimbIntegrator integrates forward through a climb at climb thrust.
type ClimbIntegrator interface {
	ClimbStep(startAlt, endAlt, speed, mach, weight, fuelOnBoard, headwind, isaDev float32) (StepResults, error)
}

// DescentIntegrator integrates descent and deceleration segments backward:
// the fuel on board is known at the end of the segment and the result
// gives the fuel burned getting there.
type DescentIntegrator interface {
	IdleDescentStep(topAlt, bottomAlt, speed, mach, weight, fuelOnBoardAtEnd, headwind, isaDev float32) (StepResults, error)
	GeometricDescentStep(topAlt, bottomAlt, pathAngle, speed, weight, fuelOnBoardAtEnd, headwind, isaDev float32, approachConfig bool) (StepResults, error)
	LevelDecelerationStep(alt, fromSpeed, toSpeed, weight, fuelOnBoardAtEnd, headwind, isaDev float32, approachConfig bool) (StepResults, error)
}

type levelStepKey struct {
	perf  aviation.AircraftPerformance
	tropo float32

	alt, dist, speed, mach, weight, fob, headwind, isaDev float32
}

// levelSteps memoises level flight steps for all Predictions; the key
// holds the performance model so entries never leak across aircraft.
// There is one cache for the process since each expirable LRU runs a
// cleanup goroutine for its whole lifetime.
var levelSteps = expirable.NewLRU[levelStepKey, StepResults](levelStepCacheSize, nil, levelStepCacheTTL)

// Predictions implements the integrators using the aircraft's
// performance model and the standard atmosphere.
type Predictions struct {
	Perf  *aviation.AircraftPerformance
	Tropo float32
}

const (
	levelStepCacheSize = 1024
	levelStepCacheTTL  = 10 * time.Minute
	// Climb and descent gradients beyond this are treated as model
	// failures rather than flyable paths.
	maxSinPathAngle = 0.35
)

func NewPredictions(perf *aviation.AircraftPerformance, tropo float32) *Predictions {
	return &Predictions{Perf: perf, Tropo: tropo}
}

func (p *Predictions) levelKey(alt, dist, speed, mach, weight, fob, headwind, isaDev float32) levelStepKey {
	return levelStepKey{*p.Perf, p.Tropo, alt, dist, speed, mach, weight, fob, headwind, isaDev}
}

func infeasible(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInfeasibleSegment, fmt.Sprintf(format, args...))
}

func allFinite(v ...float32) bool {
	for _, f := range v {
		if !math.IsFinite(f) {
			return false
		}
	}
	return true
}

func (p *Predictions) atmosphere(alt, isaDev float32) (delta, theta float32) {
	return aviation.PressureRatio(alt, p.Tropo), aviation.TemperatureRatio(alt, isaDev, p.Tropo)
}

func (p *Predictions) tas(mach, alt, isaDev float32) float32 {
	return aviation.MachToTAS(mach, alt, isaDev, p.Tropo)
}

// LevelFlightStep integrates a constant altitude, constant speed segment
// of the given length.
func (p *Predictions) LevelFlightStep(alt, dist, speed, mach, weight, fob, headwind, isaDev float32) (StepResults, error) {
	if p.Perf == nil {
		return StepResults{}, ErrNoPerformanceData
	} else if !allFinite(alt, dist, speed, mach, weight, fob, headwind, isaDev) {
		return StepResults{}, infeasible("non-finite input")
	} else if dist <= 0 {
		return StepResults{}, infeasible("level segment distance %.2f nm", dist)
	} else if weight <= 0 || speed <= 0 {
		return StepResults{}, infeasible("weight %.0f, speed %.0f", weight, speed)
	}

	key := p.levelKey(alt, dist, speed, mach, weight, fob, headwind, isaDev)
	if r, ok := levelSteps.Get(key); ok {
		return r, nil
	}

	delta, theta := p.atmosphere(alt, isaDev)
	m := aviation.ScheduleMach(speed, mach, alt, p.Tropo)
	gs := p.tas(m, alt, isaDev) - headwind
	if gs <= 0 {
		return StepResults{}, infeasible("ground speed %.0f kt", gs)
	}
	hours := dist / gs

	fuelFlow := func(w float32) float32 {
		return p.Perf.FuelFlow(p.Perf.Drag(w, m, delta, false), m, theta)
	}

	// Predict with the initial weight, then correct using the weight at
	// the middle of the step.
	w0 := weight + fob
	burn := fuelFlow(w0) * hours
	burn = fuelFlow(w0-burn/2) * hours

	r := StepResults{
		DistanceTraveled: dist,
		FuelBurned:       burn,
		TimeElapsed:      hours * 3600,
		InitialAltitude:  alt,
		FinalAltitude:    alt,
		Speed:            aviation.MachToCAS(m, delta),
		Mach:             m,
	}
	levelSteps.Add(key, r)

	VNAVLog(VNAVLogPredictions, "level step alt=%.0f dist=%.1f M%.3f w=%.0f burn=%.1f t=%.0f",
		alt, dist, m, w0, burn, r.TimeElapsed)

	return r, nil
}

// ClimbStep integrates a climb at maximum climb thrust from startAlt to
// endAlt.
func (p *Predictions) ClimbStep(startAlt, endAlt, speed, mach, weight, fob, headwind, isaDev float32) (StepResults, error) {
	if p.Perf == nil {
		return StepResults{}, ErrNoPerformanceData
	} else if !allFinite(startAlt, endAlt, speed, mach, weight, fob, headwind, isaDev) {
		return StepResults{}, infeasible("non-finite input")
	} else if endAlt <= startAlt {
		return StepResults{}, infeasible("climb from %.0f to %.0f", startAlt, endAlt)
	}

	midAlt := (startAlt + endAlt) / 2
	delta, theta := p.atmosphere(midAlt, isaDev)
	m := aviation.ScheduleMach(speed, mach, midAlt, p.Tropo)
	tas := p.tas(m, midAlt, isaDev)
	thrust := p.Perf.ClimbThrust(delta)
	dh := endAlt - startAlt

	step := func(w float32) (StepResults, error) {
		excess := thrust - p.Perf.Drag(w, m, delta, false)
		sinGamma := excess / w
		if sinGamma <= 0 {
			return StepResults{}, infeasible("no excess thrust at %.0f ft (w=%.0f)", midAlt, w)
		}
		sinGamma = min(sinGamma, maxSinPathAngle)
		gamma := float32(math.Atan(sinGamma / math.Sqrt(1-sinGamma*sinGamma)))

		roc := tas * aviation.KnotsToFeetPerSec * sinGamma // ft/s
		t := dh / roc
		cosGamma := math.Sqrt(1 - sinGamma*sinGamma)
		gs := tas*cosGamma - headwind
		if gs <= 0 {
			return StepResults{}, infeasible("ground speed %.0f kt", gs)
		}

		return StepResults{
			PathAngle:        math.Degrees(gamma),
			VerticalSpeed:    roc * 60,
			DistanceTraveled: gs * t / 3600,
			FuelBurned:       p.Perf.FuelFlow(thrust, m, theta) * t / 3600,
			TimeElapsed:      t,
			InitialAltitude:  startAlt,
			FinalAltitude:    endAlt,
			Speed:            aviation.MachToCAS(m, aviation.PressureRatio(endAlt, p.Tropo)),
			Mach:             m,
		}, nil
	}

	r, err := step(weight + fob)
	if err != nil {
		return r, err
	}
	return step(weight + fob - r.FuelBurned/2)
}

// IdleDescentStep integrates an idle thrust descent from topAlt down to
// bottomAlt at the given speed schedule. fob is the fuel on board at the
// bottom of the descent.
func (p *Predictions) IdleDescentStep(topAlt, bottomAlt, speed, mach, weight, fob, headwind, isaDev float32) (StepResults, error) {
	if p.Perf == nil {
		return StepResults{}, ErrNoPerformanceData
	} else if !allFinite(topAlt, bottomAlt, speed, mach, weight, fob, headwind, isaDev) {
		return StepResults{}, infeasible("non-finite input")
	} else if topAlt <= bottomAlt {
		return StepResults{}, infeasible("descent from %.0f to %.0f", topAlt, bottomAlt)
	}

	midAlt := (topAlt + bottomAlt) / 2
	delta, theta := p.atmosphere(midAlt, isaDev)
	m := aviation.ScheduleMach(speed, mach, midAlt, p.Tropo)
	tas := p.tas(m, midAlt, isaDev)
	idle := p.Perf.IdleThrust(delta)
	dh := topAlt - bottomAlt

	step := func(w float32) (StepResults, error) {
		sinGamma := (p.Perf.Drag(w, m, delta, false) - idle) / w
		if sinGamma <= 0 {
			return StepResults{}, infeasible("idle thrust exceeds drag at %.0f ft", midAlt)
		}
		sinGamma = min(sinGamma, maxSinPathAngle)
		cosGamma := math.Sqrt(1 - sinGamma*sinGamma)

		rod := tas * aviation.KnotsToFeetPerSec * sinGamma
		t := dh / rod
		gs := tas*cosGamma - headwind
		if gs <= 0 {
			return StepResults{}, infeasible("ground speed %.0f kt", gs)
		}

		return StepResults{
			PathAngle:        -math.Degrees(math.Atan(sinGamma / cosGamma)),
			VerticalSpeed:    -rod * 60,
			DistanceTraveled: gs * t / 3600,
			FuelBurned:       p.Perf.FuelFlow(idle, m, theta) * t / 3600,
			TimeElapsed:      t,
			InitialAltitude:  topAlt,
			FinalAltitude:    bottomAlt,
			Speed:            aviation.MachToCAS(m, aviation.PressureRatio(bottomAlt, p.Tropo)),
			Mach:             m,
		}, nil
	}

	// The aircraft is heavier at the top than at the bottom.
	r, err := step(weight + fob)
	if err != nil {
		return r, err
	}
	return step(weight + fob + r.FuelBurned/2)
}

// GeometricDescentStep integrates a descent along a fixed flight path
// angle (degrees, positive downward) at constant CAS, with thrust set to
// hold the path or at idle, whichever is greater.
func (p *Predictions) GeometricDescentStep(topAlt, bottomAlt, pathAngle, speed, weight, fob, headwind, isaDev float32,
	approachConfig bool) (StepResults, error) {
	if p.Perf == nil {
		return StepResults{}, ErrNoPerformanceData
	} else if !allFinite(topAlt, bottomAlt, pathAngle, speed, weight, fob, headwind, isaDev) {
		return StepResults{}, infeasible("non-finite input")
	} else if topAlt <= bottomAlt || pathAngle <= 0 || pathAngle >= 90 {
		return StepResults{}, infeasible("descent from %.0f to %.0f on a %.1f degree path", topAlt, bottomAlt, pathAngle)
	}

	midAlt := (topAlt + bottomAlt) / 2
	delta, theta := p.atmosphere(midAlt, isaDev)
	m := aviation.CASToMach(speed, delta)
	tas := p.tas(m, midAlt, isaDev)
	gamma := math.Radians(pathAngle)
	sinGamma := math.Sin(gamma)
	gs := tas*math.Sqrt(1-sinGamma*sinGamma) - headwind
	if gs <= 0 {
		return StepResults{}, infeasible("ground speed %.0f kt", gs)
	}

	dist := (topAlt - bottomAlt) / math.Tan(gamma) / aviation.FeetPerNauticalMile
	t := dist / gs * 3600

	burn := func(w float32) float32 {
		thrust := max(p.Perf.Drag(w, m, delta, approachConfig)-w*sinGamma, p.Perf.IdleThrust(delta))
		return p.Perf.FuelFlow(thrust, m, theta) * t / 3600
	}
	b := burn(weight + fob)
	b = burn(weight + fob + b/2)

	return StepResults{
		PathAngle:        -pathAngle,
		VerticalSpeed:    -tas * aviation.KnotsToFeetPerSec * sinGamma * 60,
		DistanceTraveled: dist,
		FuelBurned:       b,
		TimeElapsed:      t,
		InitialAltitude:  topAlt,
		FinalAltitude:    bottomAlt,
		Speed:            speed,
		Mach:             m,
	}, nil
}

// LevelDecelerationStep integrates a level deceleration at idle thrust
// from fromSpeed to toSpeed. fob is the fuel on board once the aircraft
// has slowed to toSpeed.
func (p *Predictions) LevelDecelerationStep(alt, fromSpeed, toSpeed, weight, fob, headwind, isaDev float32,
	approachConfig bool) (StepResults, error) {
	if p.Perf == nil {
		return StepResults{}, ErrNoPerformanceData
	} else if !allFinite(alt, fromSpeed, toSpeed, weight, fob, headwind, isaDev) {
		return StepResults{}, infeasible("non-finite input")
	} else if fromSpeed < toSpeed || toSpeed <= 0 {
		return StepResults{}, infeasible("deceleration from %.0f to %.0f kt", fromSpeed, toSpeed)
	}

	delta, theta := p.atmosphere(alt, isaDev)
	mTo := aviation.CASToMach(toSpeed, delta)
	if fromSpeed == toSpeed {
		return StepResults{InitialAltitude: alt, FinalAltitude: alt, Speed: toSpeed, Mach: mTo}, nil
	}

	mFrom := aviation.CASToMach(fromSpeed, delta)
	mAvg := (mFrom + mTo) / 2
	tasAvg := p.tas(mAvg, alt, isaDev)
	dv := (p.tas(mFrom, alt, isaDev) - p.tas(mTo, alt, isaDev)) * aviation.KnotsToFeetPerSec
	idle := p.Perf.IdleThrust(delta)

	w := weight + fob
	decel := aviation.Gravity * (p.Perf.Drag(w, mAvg, delta, approachConfig) - idle) / w
	if decel <= 0 {
		return StepResults{}, infeasible("unable to decelerate at idle at %.0f ft", alt)
	}
	t := dv / decel
	gs := tasAvg - headwind
	if gs <= 0 {
		return StepResults{}, infeasible("ground speed %.0f kt", gs)
	}

	return StepResults{
		DistanceTraveled: gs * t / 3600,
		FuelBurned:       p.Perf.FuelFlow(idle, mAvg, theta) * t / 3600,
		TimeElapsed:      t,
		InitialAltitude:  alt,
		FinalAltitude:    alt,
		Speed:            toSpeed,
		Mach:             mTo,
	}, nil
}
