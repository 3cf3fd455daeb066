// vnav/predictions_test.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/math"
)

func makePredictions(t *testing.T) *Predictions {
	t.Helper()
	perf, err := aviation.LookupPerformance("A320")
	if err != nil {
		t.Fatal(err)
	}
	return NewPredictions(&perf, 0)
}

const testZFW = 60 * aviation.TonsToPounds

func TestLevelFlightStep(t *testing.T) {
	p := makePredictions(t)

	r, err := p.LevelFlightStep(35000, 400, 280, 0.78, testZFW, 10000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if r.DistanceTraveled != 400 || r.FinalAltitude != 35000 || r.PathAngle != 0 {
		t.Errorf("unexpected level step %+v", r)
	}
	if r.Mach != 0.78 {
		t.Errorf("expected to fly M0.78 above the crossover altitude, got M%f", r.Mach)
	}
	// 400 nm at about 450 kt TAS.
	if math.Abs(r.TimeElapsed-3203) > 20 {
		t.Errorf("time %f, expected about 3203s", r.TimeElapsed)
	}
	if r.FuelBurned < 3500 || r.FuelBurned > 6500 {
		t.Errorf("burned %f lb in 400nm of cruise", r.FuelBurned)
	}

	heavy, err := p.LevelFlightStep(35000, 400, 280, 0.78, testZFW+20000, 10000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if heavy.FuelBurned <= r.FuelBurned {
		t.Errorf("heavier aircraft burned %f, lighter burned %f", heavy.FuelBurned, r.FuelBurned)
	}

	headwind, err := p.LevelFlightStep(35000, 400, 280, 0.78, testZFW, 10000, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if headwind.TimeElapsed <= r.TimeElapsed || headwind.FuelBurned <= r.FuelBurned {
		t.Errorf("headwind step %+v should take longer than %+v", headwind, r)
	}
}

func TestLevelFlightStepCache(t *testing.T) {
	p := makePredictions(t)

	a, err := p.LevelFlightStep(33000, 250, 280, 0.78, testZFW, 9000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !levelSteps.Contains(p.levelKey(33000, 250, 280, 0.78, testZFW, 9000, 0, 0)) {
		t.Errorf("level step wasn't cached")
	}
	b, err := p.LevelFlightStep(33000, 250, 280, 0.78, testZFW, 9000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("cached result %+v differs from %+v", b, a)
	}

	// A different drag polar must not reuse the cached step.
	perf := *p.Perf
	perf.Aero.CD0 *= 1.2
	draggy := NewPredictions(&perf, p.Tropo)
	if draggy.levelKey(33000, 250, 280, 0.78, testZFW, 9000, 0, 0) == p.levelKey(33000, 250, 280, 0.78, testZFW, 9000, 0, 0) {
		t.Fatal("cache key ignores the performance model")
	}
	c, err := draggy.LevelFlightStep(33000, 250, 280, 0.78, testZFW, 9000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.FuelBurned <= a.FuelBurned {
		t.Errorf("higher drag burned %f, expected more than %f", c.FuelBurned, a.FuelBurned)
	}

	// As must a different tropopause.
	if NewPredictions(p.Perf, 30000).levelKey(33000, 250, 280, 0.78, testZFW, 9000, 0, 0) ==
		p.levelKey(33000, 250, 280, 0.78, testZFW, 9000, 0, 0) {
		t.Error("cache key ignores the tropopause")
	}
}

func TestInfeasibleSteps(t *testing.T) {
	p := makePredictions(t)
	nan := float32(gomath.NaN())

	for _, dist := range []float32{0, -10, nan, float32(gomath.Inf(1))} {
		if _, err := p.LevelFlightStep(35000, dist, 280, 0.78, testZFW, 10000, 0, 0); !errors.Is(err, ErrInfeasibleSegment) {
			t.Errorf("distance %f: expected ErrInfeasibleSegment, got %v", dist, err)
		}
	}
	if _, err := p.LevelFlightStep(35000, 100, 280, 0.78, testZFW, nan, 0, 0); !errors.Is(err, ErrInfeasibleSegment) {
		t.Errorf("NaN fuel: expected ErrInfeasibleSegment, got %v", err)
	}
	// Headwind faster than the aircraft.
	if _, err := p.LevelFlightStep(35000, 100, 280, 0.78, testZFW, 10000, 600, 0); !errors.Is(err, ErrInfeasibleSegment) {
		t.Errorf("expected ErrInfeasibleSegment, got %v", err)
	}
	// Not enough thrust to climb this high at this weight.
	if _, err := p.ClimbStep(45000, 47000, 280, 0.78, 200000, 0, 0, 0); !errors.Is(err, ErrInfeasibleSegment) {
		t.Errorf("expected ErrInfeasibleSegment, got %v", err)
	}
	if _, err := p.ClimbStep(12000, 10000, 250, 0, testZFW, 10000, 0, 0); !errors.Is(err, ErrInfeasibleSegment) {
		t.Errorf("descending climb: expected ErrInfeasibleSegment, got %v", err)
	}
	if _, err := p.IdleDescentStep(10000, 12000, 250, 0, testZFW, 10000, 0, 0); !errors.Is(err, ErrInfeasibleSegment) {
		t.Errorf("climbing descent: expected ErrInfeasibleSegment, got %v", err)
	}
	if _, err := p.LevelDecelerationStep(2000, 137, 250, testZFW, 5000, 0, 0, true); !errors.Is(err, ErrInfeasibleSegment) {
		t.Errorf("acceleration: expected ErrInfeasibleSegment, got %v", err)
	}

	var none Predictions
	if _, err := none.LevelFlightStep(35000, 100, 280, 0.78, testZFW, 10000, 0, 0); !errors.Is(err, ErrNoPerformanceData) {
		t.Errorf("expected ErrNoPerformanceData, got %v", err)
	}
}

func TestClimbAndDescentSteps(t *testing.T) {
	p := makePredictions(t)

	climb, err := p.ClimbStep(10000, 12000, 250, 0, testZFW, 13000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if climb.VerticalSpeed < 1000 || climb.VerticalSpeed > 5000 || climb.PathAngle <= 0 {
		t.Errorf("unexpected climb %+v", climb)
	}
	if climb.DistanceTraveled <= 0 || climb.FuelBurned <= 0 || climb.FinalAltitude != 12000 {
		t.Errorf("unexpected climb %+v", climb)
	}

	descent, err := p.IdleDescentStep(12000, 10000, 250, 0, testZFW, 6000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if descent.PathAngle > -1 || descent.PathAngle < -5 || descent.VerticalSpeed >= 0 {
		t.Errorf("unexpected descent %+v", descent)
	}
	if descent.InitialAltitude != 12000 || descent.FinalAltitude != 10000 {
		t.Errorf("unexpected descent altitudes %+v", descent)
	}
	// Idle descents cover more ground than full thrust climbs.
	if descent.DistanceTraveled <= climb.DistanceTraveled || descent.FuelBurned >= climb.FuelBurned {
		t.Errorf("descent %+v vs climb %+v", descent, climb)
	}
}

func TestApproachSteps(t *testing.T) {
	p := makePredictions(t)

	final, err := p.GeometricDescentStep(2000, 0, 3, 137, testZFW, 5000, 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	// 2000ft on a 3 degree path is about 6.3nm.
	if math.Abs(final.DistanceTraveled-6.28) > 0.01 {
		t.Errorf("final approach distance %f", final.DistanceTraveled)
	}
	if final.FuelBurned <= 0 || final.PathAngle != -3 {
		t.Errorf("unexpected final approach %+v", final)
	}

	decel, err := p.LevelDecelerationStep(2000, 250, 137, testZFW, 5000, 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if decel.DistanceTraveled < 1 || decel.DistanceTraveled > 10 || decel.Speed != 137 {
		t.Errorf("unexpected deceleration %+v", decel)
	}

	none, err := p.LevelDecelerationStep(2000, 137, 137, testZFW, 5000, 0, 0, true)
	if err != nil || none.DistanceTraveled != 0 || none.FuelBurned != 0 {
		t.Errorf("expected an empty deceleration, got %+v, %v", none, err)
	}
}
