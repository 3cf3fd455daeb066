// vnav/climb.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"

	"github.com/openfmgc/vnav/log"
)

// Speed increment over V2 flown up to the acceleration altitude.
const initialClimbSpeedIncrement = 10 // kt

// ClimbPathBuilder computes the climb forward from liftoff to the top of
// climb at the cruise altitude.
type ClimbPathBuilder struct {
	Integrator ClimbIntegrator
	lg         *log.Logger
}

func NewClimbPathBuilder(integrator ClimbIntegrator, lg *log.Logger) *ClimbPathBuilder {
	return &ClimbPathBuilder{Integrator: integrator, lg: lg}
}

// ComputeClimbPath appends the climb checkpoints to profile, which should
// be empty.
func (c *ClimbPathBuilder) ComputeClimbPath(profile *GeometryProfile, params ComputationParameters) error {
	if params.V2Speed <= 0 {
		return fmt.Errorf("%w: no V2", ErrCannotCompute)
	}

	tropo := params.TropoPause
	zfw := params.ZeroFuelWeightPounds()
	cruiseAlt := params.CruiseAltitude
	initialCAS := params.V2Speed + initialClimbSpeedIncrement
	climbCAS, climbMach := params.ManagedClimbSpeed, params.ManagedClimbSpeedMach

	s := pathState{alt: params.OriginAirfieldElevation, fob: params.FuelOnBoard}
	if cruiseAlt <= s.alt {
		return fmt.Errorf("%w: cruise altitude %.0f is not above the origin", ErrInfeasibleSegment, cruiseAlt)
	}
	profile.Append(s.checkpoint(Liftoff, params.V2Speed, 0, tropo))

	climb := func(top, cas, mach float32) error {
		for _, alt := range splitAltitudes(s.alt, top) {
			r, err := c.Integrator.ClimbStep(s.alt, alt, cas, mach, zfw, s.fob, 0, params.ISADeviation)
			if err != nil {
				return err
			}
			s.advance(r)
		}
		return nil
	}

	// Each segment is skipped if its top is not above where we already
	// are; all of them stop at the cruise altitude.
	type segment struct {
		reason    VerticalCheckpointReason
		top       float32
		cas, mach float32
	}
	segs := []segment{
		{ThrustReductionAltitude, params.ThrustReductionAltitude, initialCAS, 0},
		{AccelerationAltitude, params.AccelerationAltitude, initialCAS, 0},
	}
	if lim := params.SpeedLimit; lim.Speed > 0 && lim.Speed < climbCAS {
		segs = append(segs, segment{CrossingClimbSpeedLimit, lim.UnderAltitude, lim.Speed, 0})
	}
	segs = append(segs, segment{TopOfClimb, cruiseAlt, climbCAS, climbMach})

	for _, seg := range segs {
		top := min(seg.top, cruiseAlt)
		if top <= s.alt && seg.reason != TopOfClimb {
			continue
		}
		if err := climb(top, seg.cas, seg.mach); err != nil {
			return fmt.Errorf("%s: %w", seg.reason, err)
		}
		cp := s.checkpoint(seg.reason, seg.cas, seg.mach, tropo)
		profile.Append(cp)
		VNAVLog(VNAVLogClimb, "%s", cp)
	}

	toc, _ := profile.LastCheckpoint()
	c.lg.Debug("climb path", "top_of_climb", toc.DistanceFromStart, "fob", toc.RemainingFuelOnBoard,
		"seconds", toc.SecondsFromStart)

	return nil
}
