// cmd/vnavsim/scenario_test.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfmgc/vnav/math"
	"github.com/openfmgc/vnav/util"
	"github.com/openfmgc/vnav/vnav"
)

func useTempCacheDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	saved := util.CacheDir
	util.CacheDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { util.CacheDir = saved })
}

func builtinScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	var e util.ErrorLogger
	for _, s := range LoadScenarios(nil, &e) {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("%s: scenario not found", name)
	return nil
}

func TestBuiltinScenarios(t *testing.T) {
	var e util.ErrorLogger
	scenarios := LoadScenarios(nil, &e)
	if e.HaveErrors() {
		t.Fatalf("errors in built-in scenarios:\n%s", e.String())
	}

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
		if s.perf == nil {
			t.Errorf("%s: performance not looked up", s.Name)
		}
	}
	if got := strings.Join(names, ","); got != "A20N LFPO-LEMD,A320 EDDF-LEBL,B738 EGLL-LFMN hot day" {
		t.Errorf("unexpected scenarios %q", got)
	}

	a20n := scenarios[0]
	if a20n.Coordinator == nil || a20n.Coordinator.MaxIterations != 6 ||
		a20n.Coordinator.FuelTolerance != vnav.DefaultFuelTolerance {
		t.Errorf("coordinator settings not merged with defaults: %+v", a20n.Coordinator)
	}

	b738 := scenarios[2]
	if b738.ApproachSpeed != b738.perf.Speed.Landing {
		t.Errorf("approach speed %f, expected the landing speed %f", b738.ApproachSpeed, b738.perf.Speed.Landing)
	}
}

func TestScenarioCheck(t *testing.T) {
	for _, test := range []struct {
		name     string
		json     string
		expected string
	}{
		{
			name:     "UnknownAircraft",
			json:     `{"name": "x", "aircraft": "C172"}`,
			expected: "C172",
		},
		{
			name:     "Overweight",
			json:     `{"name": "x", "aircraft": "A320", "zfw": 64, "fob": 40000}`,
			expected: "exceeds the maximum",
		},
		{
			name:     "Mach",
			json:     `{"name": "x", "aircraft": "A320", "cruise_speed": {"cas": 280, "mach": 1.2}}`,
			expected: "\"cruise_speed\": \"mach\" 1.200",
		},
		{
			name:     "Misspelled",
			json:     `{"name": "x", "aircraft": "A320", "cruise_alt": 35000}`,
			expected: "cruise_alt",
		},
		{
			name:     "Coordinator",
			json:     `{"name": "x", "aircraft": "A320", "coordinator": {"fuel_tolerance": -5}}`,
			expected: "fuel_tolerance",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var e util.ErrorLogger
			parseScenarios("test.json", []byte(test.json), &e)
			if !e.HaveErrors() {
				t.Fatal("expected errors")
			}
			if !strings.Contains(e.String(), test.expected) {
				t.Errorf("errors %q don't mention %q", e.String(), test.expected)
			}
		})
	}
}

func TestLoadScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	contents, err := builtinScenarios.ReadFile("scenarios/a320-eddf-lebl.json")
	if err != nil {
		t.Fatal(err)
	}
	fn := filepath.Join(dir, "a.json")
	if err := os.WriteFile(fn, contents, 0644); err != nil {
		t.Fatal(err)
	}

	var e util.ErrorLogger
	if s := LoadScenarios([]string{fn}, &e); len(s) != 1 || e.HaveErrors() {
		t.Fatalf("got %d scenarios, errors %s", len(s), e.String())
	}

	// The same scenario twice is an error.
	LoadScenarios([]string{fn, fn}, &e)
	if !strings.Contains(e.String(), "multiple scenarios") {
		t.Errorf("duplicate scenario not reported: %s", e.String())
	}

	e = util.ErrorLogger{}
	LoadScenarios([]string{filepath.Join(dir, "missing.json")}, &e)
	if !e.HaveErrors() {
		t.Errorf("missing file not reported")
	}
}

func TestScenarioKeyAndHash(t *testing.T) {
	s := builtinScenario(t, "B738 EGLL-LFMN hot day")
	if k := s.Key(); k != "b738-egll-lfmn-hot-day" {
		t.Errorf("key %q", k)
	}

	h := s.Hash()
	s.FuelOnBoard += 100
	if s.Hash() == h {
		t.Errorf("hash didn't change with the fuel on board")
	}
}

func TestScenarioParameters(t *testing.T) {
	s := builtinScenario(t, "A320 EDDF-LEBL")
	p := vnav.NewParameterObserver(s.FMGC(), nil).Get()

	if !p.CanComputeProfile() {
		t.Fatal("expected to be able to compute the profile")
	}
	// 15C at 364ft is just above ISA.
	if math.Abs(p.ISADeviation-0.721) > 0.01 {
		t.Errorf("ISA deviation %f, expected 0.721", p.ISADeviation)
	}
	if p.SpeedLimit != (vnav.SpeedLimit{UnderAltitude: 10000, Speed: 250}) {
		t.Errorf("speed limit %+v", p.SpeedLimit)
	}
	if p.ManagedDescentSpeed != 290 || p.ManagedCruiseSpeedMach != 0.78 {
		t.Errorf("unexpected managed speeds %+v", p)
	}
	if p.Perf == s.perf {
		t.Errorf("parameters alias the scenario's performance data")
	}
}

func TestRunScenario(t *testing.T) {
	useTempCacheDir(t)

	s := builtinScenario(t, "A320 EDDF-LEBL")
	r, err := RunScenario(s, vnav.DefaultCoordinatorConfig(), true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Resumed || !r.Ready || r.Status != "Converged" {
		t.Fatalf("unexpected first run: resumed %v ready %v status %s", r.Resumed, r.Ready, r.Status)
	}
	tod, ok := r.Checkpoint(vnav.TopOfDescent)
	if !ok {
		t.Fatal("no top of descent")
	}

	r2, err := RunScenario(s, vnav.DefaultCoordinatorConfig(), true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r2.Resumed {
		t.Errorf("second run didn't resume from the cached profile")
	}
	if tod2, ok := r2.Checkpoint(vnav.TopOfDescent); !ok || tod2 != tod {
		t.Errorf("resumed top of descent %v, expected %v", tod2, tod)
	}

	var buf bytes.Buffer
	r2.Write(&buf)
	for _, expected := range []string{"A320 EDDF-LEBL", "Converged", "(resumed)", "TopOfDescent", "trip time"} {
		if !strings.Contains(buf.String(), expected) {
			t.Errorf("report doesn't contain %q:\n%s", expected, buf.String())
		}
	}

	// A changed scenario doesn't reuse the cached climb.
	s.ZeroFuelWeight += 2
	r3, err := RunScenario(s, vnav.DefaultCoordinatorConfig(), true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r3.Resumed {
		t.Errorf("resumed from a profile computed for different parameters")
	}
}

func TestRunScenarioTooShort(t *testing.T) {
	useTempCacheDir(t)

	s := builtinScenario(t, "A320 EDDF-LEBL")
	s.Distance = 150
	r, err := RunScenario(s, vnav.DefaultCoordinatorConfig(), false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Ready || r.Status != "CruiseInfeasible" || r.Failure == "" {
		t.Errorf("expected an infeasible cruise, got %s (%q)", r.Status, r.Failure)
	}
	if _, ok := r.Checkpoint(vnav.TopOfDescent); ok {
		t.Errorf("profile kept a top of descent")
	}
}

func TestFormatSeconds(t *testing.T) {
	if s := formatSeconds(3725); s != "1:02:05" {
		t.Errorf("got %q", s)
	}
	if s := formatSeconds(59); s != "0:00:59" {
		t.Errorf("got %q", s)
	}
}
