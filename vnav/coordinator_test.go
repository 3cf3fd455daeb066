// vnav/coordinator_test.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"errors"
	gomath "math"
	"slices"
	"testing"

	"github.com/openfmgc/vnav/math"
)

// stubDecel appends a fixed approach and records what it was called with.
type stubDecel struct {
	calls   int
	fuel    []float32
	entered [][]VerticalCheckpointReason
	err     error
}

func (s *stubDecel) ComputeDecelPath(p *GeometryProfile, params ComputationParameters, est float32) error {
	s.calls++
	s.fuel = append(s.fuel, est)
	s.entered = append(s.entered, reasons(p))
	if s.err != nil {
		return s.err
	}
	p.Append(VerticalCheckpoint{Reason: StartDeceleration, DistanceFromStart: 580, Altitude: 2000,
		RemainingFuelOnBoard: est + 50, SecondsFromStart: -200},
		VerticalCheckpoint{Reason: Landing, DistanceFromStart: 600, RemainingFuelOnBoard: est})
	return nil
}

// stubDescent inserts a top of descent and returns results[i] on the ith
// call, repeating the last one.
type stubDescent struct {
	calls       int
	todDistance float32
	results     []DescentPathResult
	err         error
}

func (s *stubDescent) ComputeDescentPath(p *GeometryProfile, params ComputationParameters) (DescentPathResult, error) {
	s.calls++
	if s.err != nil {
		return DescentPathResult{}, s.err
	}
	r := s.results[min(s.calls, len(s.results))-1]
	p.Insert(p.IndexOf(StartDeceleration), VerticalCheckpoint{Reason: TopOfDescent, DistanceFromStart: s.todDistance,
		Altitude: 35000, RemainingFuelOnBoard: r.RemainingFuelOnBoardAtTopOfDescent, SecondsFromStart: -1200})
	return r, nil
}

type stubCruise struct {
	calls   int
	results []CruisePathResult
	err     error
}

func (s *stubCruise) ComputeCruisePath(p *GeometryProfile, params ComputationParameters) (CruisePathResult, error) {
	s.calls++
	if s.err != nil {
		return CruisePathResult{}, s.err
	}
	return s.results[min(s.calls, len(s.results))-1], nil
}

func makeStubCoordinator(descent []DescentPathResult, cruise []CruisePathResult) (*CruiseToDescentCoordinator,
	*stubDecel, *stubDescent, *stubCruise) {
	dc := &stubDecel{}
	ds := &stubDescent{todDistance: 500, results: descent}
	cr := &stubCruise{results: cruise}
	return NewCruiseToDescentCoordinator(DefaultCoordinatorConfig(), dc, ds, cr, nil), dc, ds, cr
}

func TestReconciliationArithmetic(t *testing.T) {
	c, dc, ds, cr := makeStubCoordinator(
		[]DescentPathResult{{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 4850}},
		[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 5000, DistanceTraveled: 380, TimeElapsed: 3000}})

	r := c.Coordinate(makeClimbProfile(), ComputationParameters{})

	if len(r.Trace) == 0 {
		t.Fatalf("no iterations ran")
	}
	first := r.Trace[0]
	if first.EstimatedFuelAtDestination != DefaultInitialFuelAtDestinationGuess {
		t.Errorf("first iteration started from %f", first.EstimatedFuelAtDestination)
	}
	if first.Error != 150 {
		t.Errorf("first iteration error %f, expected 150", first.Error)
	}

	// The error never drops below the tolerance, so we run to the cap.
	if r.Iterations != DefaultMaxIterations || r.Status != IterationLimitReached || !r.Ready() {
		t.Errorf("got %d iterations, status %s", r.Iterations, r.Status)
	}
	if !slices.Equal(dc.fuel, []float32{2300, 3800, 3800, 3800}) {
		t.Errorf("decel builder was given fuel %v", dc.fuel)
	}
	if r.EstimatedFuelAtDestination != 3800 || r.Error != 150 {
		t.Errorf("estimated fuel %f error %f", r.EstimatedFuelAtDestination, r.Error)
	}
	if dc.calls != 4 || ds.calls != 4 || cr.calls != 4 {
		t.Errorf("builder calls: decel %d descent %d cruise %d", dc.calls, ds.calls, cr.calls)
	}
}

func TestBoundedIteration(t *testing.T) {
	// Estimates that never agree, including ones that aren't numbers.
	for _, bwd := range []float32{0, -1e6, float32(gomath.NaN())} {
		c, dc, ds, cr := makeStubCoordinator(
			[]DescentPathResult{{FuelBurned: 500, RemainingFuelOnBoardAtTopOfDescent: bwd}},
			[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 6000}})

		r := c.Coordinate(makeClimbProfile(), ComputationParameters{})
		if dc.calls > 4 || ds.calls > 4 || cr.calls > 4 {
			t.Errorf("bwd %f: builder calls: decel %d descent %d cruise %d", bwd, dc.calls, ds.calls, cr.calls)
		}
		if r.Iterations != 4 || r.Status != IterationLimitReached {
			t.Errorf("bwd %f: %d iterations, status %s", bwd, r.Iterations, r.Status)
		}
	}

	// The cap is configurable.
	c, dc, _, _ := makeStubCoordinator(
		[]DescentPathResult{{FuelBurned: 500, RemainingFuelOnBoardAtTopOfDescent: 0}},
		[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 6000}})
	c.Config.MaxIterations = 2
	if r := c.Coordinate(makeClimbProfile(), ComputationParameters{}); r.Iterations != 2 || dc.calls != 2 {
		t.Errorf("expected 2 iterations, got %d (%d decel calls)", r.Iterations, dc.calls)
	}
}

func TestConvergenceByError(t *testing.T) {
	c, dc, ds, cr := makeStubCoordinator(
		[]DescentPathResult{
			{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 4850},
			{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 4960},
			{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 0},
		},
		[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 5000}})

	r := c.Coordinate(makeClimbProfile(), ComputationParameters{})

	if r.Status != Converged || r.Iterations != 2 {
		t.Errorf("got status %s after %d iterations, expected convergence at 2", r.Status, r.Iterations)
	}
	if dc.calls != 2 || ds.calls != 2 || cr.calls != 2 {
		t.Errorf("builder calls: decel %d descent %d cruise %d", dc.calls, ds.calls, cr.calls)
	}
	if r.Error != 40 {
		t.Errorf("final error %f, expected 40", r.Error)
	}
}

func TestMissingTopOfClimb(t *testing.T) {
	c, dc, ds, cr := makeStubCoordinator(
		[]DescentPathResult{{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 4850}},
		[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 5000}})

	p := NewGeometryProfile(
		VerticalCheckpoint{Reason: Liftoff, RemainingFuelOnBoard: 14000},
		VerticalCheckpoint{Reason: AccelerationAltitude, DistanceFromStart: 5, Altitude: 3000})
	before := p.Clone()

	r := c.Coordinate(p, ComputationParameters{})

	if dc.calls+ds.calls+cr.calls != 0 {
		t.Errorf("builders were called: decel %d descent %d cruise %d", dc.calls, ds.calls, cr.calls)
	}
	if !slices.Equal(p.Checkpoints, before.Checkpoints) {
		t.Errorf("profile changed from %v to %v", before.Checkpoints, p.Checkpoints)
	}
	if r.Status != MissingTopOfClimb || r.Ready() || !errors.Is(r.Err, ErrMissingCheckpoint) {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestInfeasibleCruise(t *testing.T) {
	dc := &stubDecel{}
	// Top of descent before top of climb.
	ds := &stubDescent{todDistance: 90,
		results: []DescentPathResult{{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 4850}}}
	integ := &stubIntegrator{burnPerNm: 12}
	c := NewCruiseToDescentCoordinator(DefaultCoordinatorConfig(), dc, ds, NewCruisePathBuilder(integ, nil), nil)

	p := makeClimbProfile()
	r := c.Coordinate(p, ComputationParameters{CruiseAltitude: 35000})

	if dc.calls != 1 || ds.calls != 1 {
		t.Errorf("expected one decel and one descent call, got %d and %d", dc.calls, ds.calls)
	}
	if len(integ.calls) != 0 {
		t.Errorf("cruise integrator was called")
	}
	if r.Status != CruiseInfeasible || r.Ready() || !errors.Is(r.Err, ErrCruiseTooShort) {
		t.Errorf("unexpected result %+v", r)
	}
	if last, _ := p.LastCheckpoint(); last.Reason != TopOfClimb || p.Len() != 3 {
		t.Errorf("expected the profile to end at top of climb, got %v", reasons(p))
	}
}

func TestDescentUnavailable(t *testing.T) {
	for _, c := range []struct {
		name   string
		result DescentPathResult
		err    error
	}{
		{name: "error", err: ErrDescentUnavailable},
		{name: "zero burn", result: DescentPathResult{RemainingFuelOnBoardAtTopOfDescent: 4000}},
		{name: "negative burn", result: DescentPathResult{FuelBurned: -10, RemainingFuelOnBoardAtTopOfDescent: 4000}},
		{name: "NaN burn", result: DescentPathResult{FuelBurned: float32(gomath.NaN())}},
	} {
		coord, dc, ds, cr := makeStubCoordinator([]DescentPathResult{c.result},
			[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 5000}})
		ds.err = c.err

		p := makeClimbProfile()
		r := coord.Coordinate(p, ComputationParameters{})

		if dc.calls != 1 || ds.calls != 1 || cr.calls != 0 {
			t.Errorf("%s: builder calls: decel %d descent %d cruise %d", c.name, dc.calls, ds.calls, cr.calls)
		}
		if r.Status != DescentUnavailable || r.Ready() || !errors.Is(r.Err, ErrDescentUnavailable) {
			t.Errorf("%s: unexpected result %+v", c.name, r)
		}
		if p.Len() != 3 {
			t.Errorf("%s: expected the profile to end at top of climb, got %v", c.name, reasons(p))
		}
	}
}

func TestDecelFailure(t *testing.T) {
	coord, dc, ds, _ := makeStubCoordinator(
		[]DescentPathResult{{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 4850}},
		[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 5000}})
	dc.err = ErrInfeasibleSegment

	r := coord.Coordinate(makeClimbProfile(), ComputationParameters{})
	if r.Status != DescentUnavailable || !errors.Is(r.Err, ErrInfeasibleSegment) || ds.calls != 0 {
		t.Errorf("unexpected result %+v, %d descent calls", r, ds.calls)
	}
}

func TestTruncationBetweenIterations(t *testing.T) {
	c, dc, _, _ := makeStubCoordinator(
		[]DescentPathResult{
			{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 4850},
			{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 5000},
		},
		[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 5000}})

	p := makeClimbProfile()
	// Leftovers from an earlier computation.
	p.Append(VerticalCheckpoint{Reason: TopOfDescent, DistanceFromStart: 450},
		VerticalCheckpoint{Reason: Landing, DistanceFromStart: 600})

	r := c.Coordinate(p, ComputationParameters{})
	if r.Iterations != 2 {
		t.Fatalf("expected two iterations, got %d", r.Iterations)
	}

	climb := []VerticalCheckpointReason{Liftoff, AccelerationAltitude, TopOfClimb}
	for i, entered := range dc.entered {
		if !slices.Equal(entered, climb) {
			t.Errorf("iteration %d started with %v", i+1, entered)
		}
	}

	expected := append(climb, TopOfDescent, StartDeceleration, Landing)
	if got := reasons(p); !slices.Equal(got, expected) {
		t.Errorf("final profile %v, expected %v", got, expected)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("final profile is invalid: %v", err)
	}
}

func TestTimeAnchoring(t *testing.T) {
	c, _, _, _ := makeStubCoordinator(
		[]DescentPathResult{{FuelBurned: 1200, RemainingFuelOnBoardAtTopOfDescent: 5000}},
		[]CruisePathResult{{RemainingFuelOnBoardAtTopOfDescent: 5000, TimeElapsed: 3000}})

	p := makeClimbProfile()
	if r := c.Coordinate(p, ComputationParameters{}); r.Status != Converged {
		t.Fatalf("expected convergence, got %s", r.Status)
	}

	// Top of climb is at 1100s; the stub descent is 1200s long.
	for reason, expected := range map[VerticalCheckpointReason]float32{
		TopOfClimb:        1100,
		TopOfDescent:      4100,
		StartDeceleration: 5100,
		Landing:           5300,
	} {
		cp, ok := p.FindVerticalCheckpoint(reason)
		if !ok {
			t.Errorf("%s missing", reason)
		} else if math.Abs(cp.SecondsFromStart-expected) > 0.01 {
			t.Errorf("%s at %fs, expected %fs", reason, cp.SecondsFromStart, expected)
		}
	}
}

func TestCoordinationStatusString(t *testing.T) {
	if s := CruiseInfeasible.String(); s != "CruiseInfeasible" {
		t.Errorf("got %q", s)
	}
	if s := InsufficientParameters.String(); s != "InsufficientParameters" {
		t.Errorf("got %q", s)
	}
	if s := CoordinationStatus(42).String(); s != "CoordinationStatus(42)" {
		t.Errorf("got %q", s)
	}
}
