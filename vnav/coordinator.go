// vnav/coordinator.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"

	"github.com/openfmgc/vnav/log"
	"github.com/openfmgc/vnav/math"
)

// DecelBuilder appends the deceleration and approach checkpoints, working
// backward from the destination with the given fuel on board at landing.
type DecelBuilder interface {
	ComputeDecelPath(profile *GeometryProfile, params ComputationParameters, estimatedFuelAtDestination float32) error
}

// DescentPathResult is the backward estimate for the descent. A FuelBurned
// that is not a positive finite number means the descent could not be
// computed.
type DescentPathResult struct {
	FuelBurned                         float32 // lb
	RemainingFuelOnBoardAtTopOfDescent float32 // lb
}

// Usable reports whether the descent burn can be used for reconciliation.
func (r DescentPathResult) Usable() bool {
	return math.IsFinite(r.FuelBurned) && r.FuelBurned > 0
}

// DescentBuilder inserts the descent checkpoints, from top of descent down
// to the start of the deceleration already in the profile.
type DescentBuilder interface {
	ComputeDescentPath(profile *GeometryProfile, params ComputationParameters) (DescentPathResult, error)
}

type CoordinationStatus int

const (
	// Converged: the forward and backward fuel estimates at top of descent
	// agree within the tolerance.
	Converged CoordinationStatus = iota
	// IterationLimitReached: the iteration cap was hit first. The profile
	// is still the accepted result.
	IterationLimitReached
	// MissingTopOfClimb: the profile has no climb to continue from.
	MissingTopOfClimb
	DescentUnavailable
	CruiseInfeasible
	// InsufficientParameters: the parameter snapshot doesn't describe a
	// flight yet (no V2, performance data, cruise altitude or distance).
	InsufficientParameters
)

func (s CoordinationStatus) String() string {
	switch s {
	case Converged:
		return "Converged"
	case IterationLimitReached:
		return "IterationLimitReached"
	case MissingTopOfClimb:
		return "MissingTopOfClimb"
	case DescentUnavailable:
		return "DescentUnavailable"
	case CruiseInfeasible:
		return "CruiseInfeasible"
	case InsufficientParameters:
		return "InsufficientParameters"
	default:
		return fmt.Sprintf("CoordinationStatus(%d)", int(s))
	}
}

// IterationTrace records the inputs and outputs of one
// decel-descent-cruise pass.
type IterationTrace struct {
	// EstimatedFuelAtDestination is the value given to the decel builder.
	EstimatedFuelAtDestination float32
	DescentFuelBurned          float32
	BackwardFuelAtTopOfDescent float32
	ForwardFuelAtTopOfDescent  float32
	Error                      float32
	CruiseDistance             float32
	CruiseTime                 float32
}

type CoordinationResult struct {
	Status     CoordinationStatus
	Iterations int
	// Error is the last forward minus backward fuel difference at top of
	// descent; it is math.Infinity if no iteration completed.
	Error                      float32
	EstimatedFuelAtDestination float32
	Cruise                     CruisePathResult
	Trace                      []IterationTrace
	// Err holds the cause for the abort statuses.
	Err error
}

// Ready reports whether the profile after top of climb holds a complete
// continuation that may be used for guidance.
func (r CoordinationResult) Ready() bool {
	return r.Status == Converged || r.Status == IterationLimitReached
}

// CruiseToDescentCoordinator computes a self-consistent cruise, descent
// and deceleration continuation of a profile whose climb is already
// fixed. Fuel burned in cruise depends on the fuel at top of descent,
// which the descent computes backward from a guess of the fuel at the
// destination; the coordinator iterates on that guess.
type CruiseToDescentCoordinator struct {
	Config  CoordinatorConfig
	Decel   DecelBuilder
	Descent DescentBuilder
	Cruise  CruiseBuilder

	lg *log.Logger
}

func NewCruiseToDescentCoordinator(config CoordinatorConfig, decel DecelBuilder, descent DescentBuilder,
	cruise CruiseBuilder, lg *log.Logger) *CruiseToDescentCoordinator {
	return &CruiseToDescentCoordinator{
		Config:  config,
		Decel:   decel,
		Descent: descent,
		Cruise:  cruise,
		lg:      lg,
	}
}

// Coordinate rebuilds everything in profile after the top of climb
// checkpoint. It holds the profile's lock for the entire computation.
// Coordinate never fails outright: if the continuation cannot be
// computed, the profile is left ending at top of climb and the returned
// result's Status says why.
func (c *CruiseToDescentCoordinator) Coordinate(profile *GeometryProfile, params ComputationParameters) CoordinationResult {
	profile.Lock(c.lg)
	defer profile.Unlock(c.lg)

	return c.coordinate(profile, params)
}

func (c *CruiseToDescentCoordinator) coordinate(profile *GeometryProfile, params ComputationParameters) CoordinationResult {
	cfg := c.Config.WithDefaults()
	cfg.MaxIterations = max(cfg.MaxIterations, 1)

	result := CoordinationResult{
		Error:                      math.Infinity,
		EstimatedFuelAtDestination: cfg.InitialFuelAtDestinationGuess,
	}

	tocIndex := profile.IndexOf(TopOfClimb)
	if tocIndex < 0 {
		result.Status = MissingTopOfClimb
		result.Err = fmt.Errorf("%w: %s", ErrMissingCheckpoint, TopOfClimb)
		c.lg.Debug("no top of climb; skipping cruise and descent")
		return result
	}

	abort := func(status CoordinationStatus, err error) CoordinationResult {
		profile.TruncateAfter(tocIndex)
		result.Status = status
		result.Err = err
		c.lg.Debug("coordination aborted", "status", status, "iteration", result.Iterations+1, "error", err)
		VNAVLog(VNAVLogIteration, "aborted in iteration %d: %s: %v", result.Iterations+1, status, err)
		return result
	}

	// A NaN error must not look like convergence, so test for being
	// within tolerance rather than outside it.
	converged := func() bool { return math.Abs(result.Error) <= cfg.FuelTolerance }

	for result.Iterations < cfg.MaxIterations && !converged() {
		profile.TruncateAfter(tocIndex)

		est := result.EstimatedFuelAtDestination
		if err := c.Decel.ComputeDecelPath(profile, params, est); err != nil {
			return abort(DescentUnavailable, fmt.Errorf("decel: %w", err))
		}

		descent, err := c.Descent.ComputeDescentPath(profile, params)
		if err == nil && !descent.Usable() {
			err = fmt.Errorf("%w: fuel burned %f", ErrDescentUnavailable, descent.FuelBurned)
		}
		if err != nil {
			return abort(DescentUnavailable, err)
		}

		cruise, err := c.Cruise.ComputeCruisePath(profile, params)
		if err != nil {
			return abort(CruiseInfeasible, err)
		}

		forward := cruise.RemainingFuelOnBoardAtTopOfDescent
		result.EstimatedFuelAtDestination = forward - descent.FuelBurned
		result.Error = forward - descent.RemainingFuelOnBoardAtTopOfDescent
		result.Cruise = cruise
		result.Iterations++

		result.Trace = append(result.Trace, IterationTrace{
			EstimatedFuelAtDestination: est,
			DescentFuelBurned:          descent.FuelBurned,
			BackwardFuelAtTopOfDescent: descent.RemainingFuelOnBoardAtTopOfDescent,
			ForwardFuelAtTopOfDescent:  forward,
			Error:                      result.Error,
			CruiseDistance:             cruise.DistanceTraveled,
			CruiseTime:                 cruise.TimeElapsed,
		})

		VNAVLog(VNAVLogIteration, "iteration %d: dest fuel %.0f -> %.0f, fwd %.0f bwd %.0f err %.1f",
			result.Iterations, est, result.EstimatedFuelAtDestination, forward,
			descent.RemainingFuelOnBoardAtTopOfDescent, result.Error)
	}

	if converged() {
		result.Status = Converged
	} else {
		result.Status = IterationLimitReached
	}

	c.anchorTimes(profile, tocIndex, result.Cruise)

	c.lg.Debug("coordination finished", "status", result.Status, "iterations", result.Iterations,
		"error", result.Error, "fuel_at_destination", result.EstimatedFuelAtDestination,
		"cruise_distance", result.Cruise.DistanceTraveled, "cruise_time", result.Cruise.TimeElapsed)
	LogProfile(VNAVLogIteration, profile)

	return result
}

// anchorTimes converts the destination-relative times of the checkpoints
// after top of climb so that they continue from top of climb's time.
func (c *CruiseToDescentCoordinator) anchorTimes(profile *GeometryProfile, tocIndex int, cruise CruisePathResult) {
	todIndex := profile.IndexOf(TopOfDescent)
	if todIndex < 0 {
		return
	}
	toc, tod := profile.Checkpoints[tocIndex], profile.Checkpoints[todIndex]
	profile.ShiftTimeAfter(tocIndex, toc.SecondsFromStart+cruise.TimeElapsed-tod.SecondsFromStart)
}
