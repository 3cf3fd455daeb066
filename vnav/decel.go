// vnav/decel.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/log"
)

const (
	// Height above the destination at which the final approach path is
	// intercepted, level and at approach speed.
	ApproachInterceptHeight = 2000 // ft
	ApproachPathAngle       = 3    // degrees
)

// DecelPathBuilder computes the end of the profile backward from the
// runway: the final approach on a fixed path at approach speed and, before
// it, a level deceleration from the descent speed at the intercept
// altitude.
type DecelPathBuilder struct {
	Integrator DescentIntegrator
	lg         *log.Logger
}

func NewDecelPathBuilder(integrator DescentIntegrator, lg *log.Logger) *DecelPathBuilder {
	return &DecelPathBuilder{Integrator: integrator, lg: lg}
}

// approachSpeed returns the final approach speed, falling back to the
// aircraft's landing speed if none was entered.
func approachSpeed(params ComputationParameters) float32 {
	if params.ApproachSpeed > 0 || params.Perf == nil {
		return params.ApproachSpeed
	}
	return params.Perf.Speed.Landing
}

// descentSpeedAt returns the managed descent CAS, limited by the speed
// limit if alt is below it.
func descentSpeedAt(params ComputationParameters, alt float32) float32 {
	cas := params.ManagedDescentSpeed
	if lim := params.SpeedLimit; lim.Speed > 0 && alt < lim.UnderAltitude {
		cas = min(cas, lim.Speed)
	}
	return cas
}

func (d *DecelPathBuilder) ComputeDecelPath(profile *GeometryProfile, params ComputationParameters,
	estimatedFuelAtDestination float32) error {
	vapp := approachSpeed(params)
	if vapp <= 0 {
		return fmt.Errorf("%w: no approach speed", ErrCannotCompute)
	}

	elev := params.DestinationAirfieldElevation
	interceptAlt := elev + ApproachInterceptHeight
	zfw := params.ZeroFuelWeightPounds()
	isaDev := params.ISADeviation
	mach := func(cas, alt float32) float32 {
		return aviation.CASToMach(cas, aviation.PressureRatio(alt, params.TropoPause))
	}

	landing := VerticalCheckpoint{
		Reason:               Landing,
		DistanceFromStart:    params.TotalFlightPlanDistance,
		Altitude:             elev,
		Speed:                vapp,
		Mach:                 mach(vapp, elev),
		RemainingFuelOnBoard: estimatedFuelAtDestination,
	}

	final, err := d.Integrator.GeometricDescentStep(interceptAlt, elev, ApproachPathAngle, vapp, zfw,
		landing.RemainingFuelOnBoard, 0, isaDev, true)
	if err != nil {
		return fmt.Errorf("final approach: %w", err)
	}
	app := VerticalCheckpoint{
		Reason:               ApproachSpeed,
		DistanceFromStart:    landing.DistanceFromStart - final.DistanceTraveled,
		Altitude:             interceptAlt,
		Speed:                vapp,
		Mach:                 mach(vapp, interceptAlt),
		RemainingFuelOnBoard: landing.RemainingFuelOnBoard + final.FuelBurned,
		SecondsFromStart:     landing.SecondsFromStart - final.TimeElapsed,
	}

	decelSpeed := max(descentSpeedAt(params, interceptAlt), vapp)
	decel, err := d.Integrator.LevelDecelerationStep(interceptAlt, decelSpeed, vapp, zfw, app.RemainingFuelOnBoard,
		0, isaDev, true)
	if err != nil {
		return fmt.Errorf("deceleration: %w", err)
	}
	start := VerticalCheckpoint{
		Reason:               StartDeceleration,
		DistanceFromStart:    app.DistanceFromStart - decel.DistanceTraveled,
		Altitude:             interceptAlt,
		Speed:                decelSpeed,
		Mach:                 mach(decelSpeed, interceptAlt),
		RemainingFuelOnBoard: app.RemainingFuelOnBoard + decel.FuelBurned,
		SecondsFromStart:     app.SecondsFromStart - decel.TimeElapsed,
	}
	if start.DistanceFromStart < 0 {
		d.lg.Warn("deceleration starts before the origin", "distance", start.DistanceFromStart)
		return fmt.Errorf("%w: deceleration starts %.1f nm before the origin", ErrInfeasibleSegment,
			-start.DistanceFromStart)
	}

	profile.Append(start, app, landing)

	VNAVLog(VNAVLogDecel, "decel at %.1f nm from %.0f kt, approach at %.1f nm, landing fob %.0f",
		start.DistanceFromStart, decelSpeed, app.DistanceFromStart, estimatedFuelAtDestination)

	return nil
}
