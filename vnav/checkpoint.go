// vnav/checkpoint.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import "fmt"

type VerticalCheckpointReason int

const (
	PresentPosition VerticalCheckpointReason = iota
	Liftoff
	ThrustReductionAltitude
	AccelerationAltitude
	CrossingClimbSpeedLimit
	TopOfClimb
	TopOfDescent
	StartSpeedLimitDeceleration
	CrossingDescentSpeedLimit
	StartDeceleration
	ApproachSpeed
	Landing
)

var reasonNames = [...]string{
	PresentPosition:             "PresentPosition",
	Liftoff:                     "Liftoff",
	ThrustReductionAltitude:     "ThrustReductionAltitude",
	AccelerationAltitude:        "AccelerationAltitude",
	CrossingClimbSpeedLimit:     "CrossingClimbSpeedLimit",
	TopOfClimb:                  "TopOfClimb",
	TopOfDescent:                "TopOfDescent",
	StartSpeedLimitDeceleration: "StartSpeedLimitDeceleration",
	CrossingDescentSpeedLimit:   "CrossingDescentSpeedLimit",
	StartDeceleration:           "StartDeceleration",
	ApproachSpeed:               "ApproachSpeed",
	Landing:                     "Landing",
}

func (r VerticalCheckpointReason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("VerticalCheckpointReason(%d)", int(r))
	}
	return reasonNames[r]
}

// IsAnchor reports whether a profile may hold at most one checkpoint
// with this reason.
func (r VerticalCheckpointReason) IsAnchor() bool {
	return r == TopOfClimb || r == TopOfDescent
}

// VerticalCheckpoint is a point on the vertical profile where something
// of note happens.
type VerticalCheckpoint struct {
	Reason            VerticalCheckpointReason
	DistanceFromStart float32 // nm along the route
	Altitude          float32 // ft
	Speed             float32 // kt CAS
	Mach              float32
	// RemainingFuelOnBoard is in pounds.
	RemainingFuelOnBoard float32
	SecondsFromStart     float32
}

func (cp VerticalCheckpoint) String() string {
	return fmt.Sprintf("%s: %.1fnm %.0fft %.0fkt/M%.3f fob=%.0flb t=%.0fs", cp.Reason, cp.DistanceFromStart,
		cp.Altitude, cp.Speed, cp.Mach, cp.RemainingFuelOnBoard, cp.SecondsFromStart)
}
