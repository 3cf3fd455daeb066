// vnav/descent_test.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"slices"
	"testing"

	"github.com/openfmgc/vnav/math"
)

func buildDescent(t *testing.T, params ComputationParameters) *GeometryProfile {
	t.Helper()
	pred := NewPredictions(params.Perf, params.TropoPause)

	p := makeClimbProfile()
	if err := NewDecelPathBuilder(pred, nil).ComputeDecelPath(p, params, 2300); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDescentPathBuilder(pred, nil).ComputeDescentPath(p, params); err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDescentSpeedLimit(t *testing.T) {
	params := makeFlightParams(t, "A320")
	p := buildDescent(t, params)

	expected := []VerticalCheckpointReason{Liftoff, AccelerationAltitude, TopOfClimb, TopOfDescent,
		StartSpeedLimitDeceleration, CrossingDescentSpeedLimit, StartDeceleration, ApproachSpeed, Landing}
	if got := reasons(p); !slices.Equal(got, expected) {
		t.Fatalf("got checkpoints %v", got)
	}

	crossing, _ := p.FindVerticalCheckpoint(CrossingDescentSpeedLimit)
	decel, _ := p.FindVerticalCheckpoint(StartDeceleration)
	if crossing.Altitude != 10000 || math.Abs(crossing.Speed-250) > 0.5 || math.Abs(decel.Speed-250) > 0.5 {
		t.Errorf("speed limit not honored: %s, %s", crossing, decel)
	}
}

func TestDescentSpeedLimitAboveCruise(t *testing.T) {
	params := makeFlightParams(t, "A320")

	for _, under := range []float32{params.CruiseAltitude, params.CruiseAltitude + 1000} {
		params.SpeedLimit.UnderAltitude = under
		p := buildDescent(t, params)

		if slices.Contains(reasons(p), CrossingDescentSpeedLimit) || slices.Contains(reasons(p), StartSpeedLimitDeceleration) {
			t.Errorf("limit at %.0f: unexpected speed limit checkpoints %v", under, reasons(p))
		}

		// The whole descent is flown at the limit speed, so there's no
		// jump in speed where the deceleration starts.
		tod, _ := p.FindVerticalCheckpoint(TopOfDescent)
		decel, _ := p.FindVerticalCheckpoint(StartDeceleration)
		if math.Abs(tod.Speed-250) > 0.5 || math.Abs(decel.Speed-250) > 0.5 {
			t.Errorf("limit at %.0f: top of descent %s, start of deceleration %s", under, tod, decel)
		}
	}
}

func TestDescentSpeedLimitBelowDeceleration(t *testing.T) {
	params := makeFlightParams(t, "A320")
	params.SpeedLimit.UnderAltitude = 1000
	p := buildDescent(t, params)

	if slices.Contains(reasons(p), CrossingDescentSpeedLimit) {
		t.Errorf("unexpected speed limit crossing %v", reasons(p))
	}
	decel, _ := p.FindVerticalCheckpoint(StartDeceleration)
	if math.Abs(decel.Speed-params.ManagedDescentSpeed) > 0.5 {
		t.Errorf("deceleration should start from the managed descent speed: %s", decel)
	}
}
