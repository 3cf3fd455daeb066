// vnav/config.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"github.com/openfmgc/vnav/math"
	"github.com/openfmgc/vnav/util"
)

const (
	DefaultInitialFuelAtDestinationGuess = 2300 // lb
	DefaultFuelTolerance                 = 100  // lb
	DefaultMaxIterations                 = 4
)

// CoordinatorConfig holds the constants that drive the cruise/descent
// fixed-point iteration.
type CoordinatorConfig struct {
	// InitialFuelAtDestinationGuess seeds the first backward pass.
	InitialFuelAtDestinationGuess float32 `json:"initial_fuel_at_destination"`
	// FuelTolerance is the largest acceptable difference between the
	// forward and backward estimates of fuel at top of descent.
	FuelTolerance float32 `json:"fuel_tolerance"`
	MaxIterations int     `json:"max_iterations"`
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		InitialFuelAtDestinationGuess: DefaultInitialFuelAtDestinationGuess,
		FuelTolerance:                 DefaultFuelTolerance,
		MaxIterations:                 DefaultMaxIterations,
	}
}

// WithDefaults returns a copy of c where zero-valued fields have been
// replaced with the defaults, so that a partially-specified JSON config
// only overrides what it mentions.
func (c CoordinatorConfig) WithDefaults() CoordinatorConfig {
	d := DefaultCoordinatorConfig()
	if c.InitialFuelAtDestinationGuess == 0 {
		c.InitialFuelAtDestinationGuess = d.InitialFuelAtDestinationGuess
	}
	if c.FuelTolerance == 0 {
		c.FuelTolerance = d.FuelTolerance
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	return c
}

func (c CoordinatorConfig) Check(e *util.ErrorLogger) {
	e.Push("coordinator")
	defer e.Pop()

	if c.InitialFuelAtDestinationGuess < 0 || !math.IsFinite(c.InitialFuelAtDestinationGuess) {
		e.ErrorString("\"initial_fuel_at_destination\" %f must be non-negative", c.InitialFuelAtDestinationGuess)
	}
	if c.FuelTolerance <= 0 || !math.IsFinite(c.FuelTolerance) {
		e.ErrorString("\"fuel_tolerance\" %f must be positive", c.FuelTolerance)
	}
	if c.MaxIterations < 1 {
		e.ErrorString("\"max_iterations\" %d must be at least 1", c.MaxIterations)
	}
}
