// vnav/path.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"github.com/openfmgc/vnav/aviation"
)

// Height of the individual steps used when integrating climbs and
// descents; the speed schedule and atmosphere are evaluated at the middle
// of each step.
const pathStepHeight = 2000 // ft

// pathState is the aircraft state at the current point of a path being
// integrated, forward or backward.
type pathState struct {
	dist, alt, fob, seconds float32
}

func stateAt(cp VerticalCheckpoint) pathState {
	return pathState{
		dist:    cp.DistanceFromStart,
		alt:     cp.Altitude,
		fob:     cp.RemainingFuelOnBoard,
		seconds: cp.SecondsFromStart,
	}
}

// advance moves the state forward along the path by the given step.
func (s *pathState) advance(r StepResults) {
	s.dist += r.DistanceTraveled
	s.alt = r.FinalAltitude
	s.fob -= r.FuelBurned
	s.seconds += r.TimeElapsed
}

// retreat moves the state backward along the path by the given step.
func (s *pathState) retreat(r StepResults) {
	s.dist -= r.DistanceTraveled
	s.alt = r.InitialAltitude
	s.fob += r.FuelBurned
	s.seconds -= r.TimeElapsed
}

func (s pathState) checkpoint(reason VerticalCheckpointReason, cas, mach, tropo float32) VerticalCheckpoint {
	m := aviation.ScheduleMach(cas, mach, s.alt, tropo)
	return VerticalCheckpoint{
		Reason:               reason,
		DistanceFromStart:    s.dist,
		Altitude:             s.alt,
		Speed:                aviation.MachToCAS(m, aviation.PressureRatio(s.alt, tropo)),
		Mach:                 m,
		RemainingFuelOnBoard: s.fob,
		SecondsFromStart:     s.seconds,
	}
}

// splitAltitudes returns the boundaries of the steps from lo to hi,
// excluding lo and including hi.
func splitAltitudes(lo, hi float32) []float32 {
	var alts []float32
	for alt := lo + pathStepHeight; alt < hi; alt += pathStepHeight {
		alts = append(alts, alt)
	}
	if hi > lo {
		alts = append(alts, hi)
	}
	return alts
}
