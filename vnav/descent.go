// vnav/descent.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"
	"slices"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/log"
)

// DescentPathBuilder computes an idle descent backward from the start of
// the deceleration up to the cruise altitude, flying the managed descent
// CAS/Mach schedule and honoring the speed limit.
type DescentPathBuilder struct {
	Integrator DescentIntegrator
	lg         *log.Logger
}

func NewDescentPathBuilder(integrator DescentIntegrator, lg *log.Logger) *DescentPathBuilder {
	return &DescentPathBuilder{Integrator: integrator, lg: lg}
}

func (d *DescentPathBuilder) ComputeDescentPath(profile *GeometryProfile, params ComputationParameters) (DescentPathResult, error) {
	idx := profile.IndexOf(StartDeceleration)
	if idx < 0 {
		return DescentPathResult{}, fmt.Errorf("%w: %w: %s", ErrDescentUnavailable, ErrMissingCheckpoint, StartDeceleration)
	}
	bottom := profile.Checkpoints[idx]
	if params.CruiseAltitude <= bottom.Altitude {
		return DescentPathResult{}, fmt.Errorf("%w: cruise altitude %.0f is not above %.0f", ErrDescentUnavailable,
			params.CruiseAltitude, bottom.Altitude)
	}

	zfw := params.ZeroFuelWeightPounds()
	tropo := params.TropoPause
	cas, mach := params.ManagedDescentSpeed, params.ManagedDescentSpeedMach
	lim := params.SpeedLimit

	s := stateAt(bottom)
	// Checkpoints are found in reverse order.
	var cps []VerticalCheckpoint

	descend := func(top, cas, mach float32) error {
		for _, alt := range splitAltitudes(s.alt, top) {
			r, err := d.Integrator.IdleDescentStep(alt, s.alt, cas, mach, zfw, s.fob, 0, params.ISADeviation)
			if err != nil {
				return err
			}
			s.retreat(r)
		}
		return nil
	}

	// The deceleration segment was built with the same limit; see
	// descentSpeedAt.
	limited := lim.Speed > 0 && cas > lim.Speed && lim.UnderAltitude > bottom.Altitude
	if limited && lim.UnderAltitude >= params.CruiseAltitude {
		// The whole descent is below the limit altitude.
		cas = lim.Speed
	} else if limited {
		if err := descend(lim.UnderAltitude, lim.Speed, 0); err != nil {
			return DescentPathResult{}, fmt.Errorf("%w: below speed limit: %w", ErrDescentUnavailable, err)
		}
		cps = append(cps, s.checkpoint(CrossingDescentSpeedLimit, lim.Speed, 0, tropo))

		r, err := d.Integrator.LevelDecelerationStep(s.alt, cas, lim.Speed, zfw, s.fob, 0, params.ISADeviation, false)
		if err != nil {
			return DescentPathResult{}, fmt.Errorf("%w: speed limit deceleration: %w", ErrDescentUnavailable, err)
		}
		s.retreat(r)
		cps = append(cps, s.checkpoint(StartSpeedLimitDeceleration, cas, mach, tropo))
	}

	if err := descend(params.CruiseAltitude, cas, mach); err != nil {
		return DescentPathResult{}, fmt.Errorf("%w: %w", ErrDescentUnavailable, err)
	}
	tod := s.checkpoint(TopOfDescent, cas, mach, tropo)
	cps = append(cps, tod)

	slices.Reverse(cps)
	profile.Insert(idx, cps...)

	// Burn is measured to the end of the profile so that subtracting it
	// from the fuel at top of descent gives the fuel at the destination.
	end, _ := profile.LastCheckpoint()
	result := DescentPathResult{
		FuelBurned:                         tod.RemainingFuelOnBoard - end.RemainingFuelOnBoard,
		RemainingFuelOnBoardAtTopOfDescent: tod.RemainingFuelOnBoard,
	}

	d.lg.Debug("descent path", "top_of_descent", tod.DistanceFromStart, "fuel_burned", result.FuelBurned)
	VNAVLog(VNAVLogDescent, "top of descent at %.1f nm (%.0f ft, crossover %.0f ft), burn %.0f lb, fob %.0f lb",
		tod.DistanceFromStart, tod.Altitude, aviation.CrossoverAltitude(cas, mach, tropo), result.FuelBurned,
		result.RemainingFuelOnBoardAtTopOfDescent)

	return result, nil
}
