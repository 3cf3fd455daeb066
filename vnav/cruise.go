// vnav/cruise.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"

	"github.com/openfmgc/vnav/log"
)

// CruisePathResult is the forward estimate for the cruise segment from
// top of climb to top of descent.
type CruisePathResult struct {
	RemainingFuelOnBoardAtTopOfDescent float32 // lb
	DistanceTraveled                   float32 // nm
	TimeElapsed                        float32 // seconds
}

type CruiseBuilder interface {
	ComputeCruisePath(profile *GeometryProfile, params ComputationParameters) (CruisePathResult, error)
}

// CruisePathBuilder predicts the cruise segment as a single level flight
// step at the cruise altitude and managed cruise speed. It does not modify
// the profile.
type CruisePathBuilder struct {
	Integrator SegmentIntegrator
	lg         *log.Logger
}

func NewCruisePathBuilder(integrator SegmentIntegrator, lg *log.Logger) *CruisePathBuilder {
	return &CruisePathBuilder{Integrator: integrator, lg: lg}
}

func (c *CruisePathBuilder) ComputeCruisePath(profile *GeometryProfile, params ComputationParameters) (CruisePathResult, error) {
	toc, ok := profile.FindVerticalCheckpoint(TopOfClimb)
	if !ok {
		return CruisePathResult{}, fmt.Errorf("%w: %s", ErrMissingCheckpoint, TopOfClimb)
	}
	tod, ok := profile.FindVerticalCheckpoint(TopOfDescent)
	if !ok {
		return CruisePathResult{}, fmt.Errorf("%w: %s", ErrMissingCheckpoint, TopOfDescent)
	}

	// A zero-length cruise is as unusable as a negative one.
	cruiseDistance := tod.DistanceFromStart - toc.DistanceFromStart
	if cruiseDistance <= 0 {
		c.lg.Warn("cruise segment too short", "distance", cruiseDistance, "top_of_climb", toc.DistanceFromStart,
			"top_of_descent", tod.DistanceFromStart)
		return CruisePathResult{}, fmt.Errorf("%w: %.2f nm", ErrCruiseTooShort, cruiseDistance)
	}

	step, err := c.Integrator.LevelFlightStep(params.CruiseAltitude, cruiseDistance, params.ManagedCruiseSpeed,
		params.ManagedCruiseSpeedMach, params.ZeroFuelWeightPounds(), toc.RemainingFuelOnBoard, 0, params.ISADeviation)
	if err != nil {
		return CruisePathResult{}, fmt.Errorf("cruise: %w", err)
	}

	c.lg.Debug("cruise segment", "distance", step.DistanceTraveled, "time", step.TimeElapsed, "fuel_burned", step.FuelBurned)
	VNAVLog(VNAVLogCruise, "distance %.1f nm, time %.0f s, burn %.0f lb", step.DistanceTraveled, step.TimeElapsed,
		step.FuelBurned)

	return CruisePathResult{
		RemainingFuelOnBoardAtTopOfDescent: toc.RemainingFuelOnBoard - step.FuelBurned,
		DistanceTraveled:                   step.DistanceTraveled,
		TimeElapsed:                        step.TimeElapsed,
	}, nil
}
