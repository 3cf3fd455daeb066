// vnav/computation.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/log"
)

// VerticalProfileComputation computes complete profiles from liftoff to
// landing. Each call to Compute works from a single parameter snapshot.
type VerticalProfileComputation struct {
	Params ParameterProvider
	Config CoordinatorConfig

	lg *log.Logger

	// Builders are recreated when the aircraft model, the tropopause or
	// the coordinator configuration changes.
	perf        *aviation.AircraftPerformance
	tropo       float32
	predictions *Predictions
	climb       *ClimbPathBuilder
	coordinator *CruiseToDescentCoordinator
}

func NewVerticalProfileComputation(params ParameterProvider, config CoordinatorConfig, lg *log.Logger) *VerticalProfileComputation {
	return &VerticalProfileComputation{
		Params: params,
		Config: config,
		lg:     lg,
	}
}

func (v *VerticalProfileComputation) updateBuilders(p ComputationParameters) {
	if v.perf != nil && *v.perf == *p.Perf && v.tropo == p.TropoPause && v.coordinator.Config == v.Config {
		return
	}

	perf := *p.Perf
	v.perf, v.tropo = &perf, p.TropoPause
	v.predictions = NewPredictions(v.perf, v.tropo)
	v.climb = NewClimbPathBuilder(v.predictions, v.lg)
	v.coordinator = NewCruiseToDescentCoordinator(v.Config,
		NewDecelPathBuilder(v.predictions, v.lg),
		NewDescentPathBuilder(v.predictions, v.lg),
		NewCruisePathBuilder(v.predictions, v.lg),
		v.lg)

	v.lg.Info("initialized profile builders", "aircraft", perf.ICAO, "tropopause", v.tropo)
}

// Compute replaces the contents of profile with a newly computed profile.
// An error is returned only if the parameters or the climb don't allow a
// profile to be computed at all; otherwise the CoordinationResult
// describes how far the computation got.
func (v *VerticalProfileComputation) Compute(profile *GeometryProfile) (CoordinationResult, error) {
	p := v.Params.Get()
	if !p.CanComputeProfile() {
		return CoordinationResult{Status: InsufficientParameters, Err: ErrCannotCompute}, ErrCannotCompute
	}
	v.updateBuilders(p)

	profile.Lock(v.lg)
	defer profile.Unlock(v.lg)

	profile.TruncateAfter(-1)
	if err := v.climb.ComputeClimbPath(profile, p); err != nil {
		profile.TruncateAfter(-1)
		v.lg.Warn("unable to compute climb", "error", err, "version", p.Version)
		return CoordinationResult{Status: MissingTopOfClimb, Err: err}, fmt.Errorf("climb: %w", err)
	}

	result := v.coordinator.coordinate(profile, p)
	v.lg.Debug("computed profile", "version", p.Version, "status", result.Status, "checkpoints", profile.Len())

	return result, nil
}

// Recompute reruns the cruise and descent coordination on a profile
// whose climb has already been computed, as the guidance loop does when
// the parameters change but the climb is still valid.
func (v *VerticalProfileComputation) Recompute(profile *GeometryProfile) CoordinationResult {
	p := v.Params.Get()
	if !p.CanComputeProfile() {
		return CoordinationResult{Status: InsufficientParameters, Err: ErrCannotCompute}
	}
	v.updateBuilders(p)

	return v.coordinator.Coordinate(profile, p)
}
