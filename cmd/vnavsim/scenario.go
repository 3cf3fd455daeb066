// cmd/vnavsim/scenario.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/util"
	"github.com/openfmgc/vnav/vnav"
)

//go:embed scenarios/*.json
var builtinScenarios embed.FS

type SpeedSchedule struct {
	CAS  float32 `json:"cas"`
	Mach float32 `json:"mach"`
}

type Airfield struct {
	ICAO      string  `json:"icao"`
	Elevation float32 `json:"elevation"`
}

// Scenario describes a flight to compute the vertical profile for. It
// stands in for the FMGC: the profile computation samples it through a
// vnav.ParameterObserver.
type Scenario struct {
	Name     string `json:"name"`
	Aircraft string `json:"aircraft"`

	ZeroFuelWeight float32 `json:"zfw"` // tons
	FuelOnBoard    float32 `json:"fob"` // pounds
	V2             float32 `json:"v2"`
	OAT            float32 `json:"oat"` // Celsius at the origin
	Tropopause     float32 `json:"tropopause"`

	Origin      Airfield `json:"origin"`
	Destination Airfield `json:"destination"`
	Distance    float32  `json:"distance"` // nm

	ThrustReductionAltitude float32 `json:"thrust_reduction_altitude"`
	AccelerationAltitude    float32 `json:"acceleration_altitude"`
	CruiseAltitude          float32 `json:"cruise_altitude"`

	ClimbSpeed    SpeedSchedule   `json:"climb_speed"`
	CruiseSpeed   SpeedSchedule   `json:"cruise_speed"`
	DescentSpeed  SpeedSchedule   `json:"descent_speed"`
	ApproachSpeed float32         `json:"approach_speed"`
	SpeedLimit    vnav.SpeedLimit `json:"speed_limit"`

	Coordinator *vnav.CoordinatorConfig `json:"coordinator,omitempty"`

	perf *aviation.AircraftPerformance
}

// Check validates the scenario and looks up its aircraft's performance.
func (s *Scenario) Check(e *util.ErrorLogger) {
	e.Push("scenario " + s.Name)
	defer e.Pop()

	if s.Name == "" {
		e.ErrorString("must provide \"name\"")
	}

	if perf, err := aviation.LookupPerformance(s.Aircraft); err != nil {
		e.Error(err)
	} else {
		s.perf = &perf
		if s.ZeroFuelWeight <= perf.Weights.OperatingEmpty || s.ZeroFuelWeight >= perf.Weights.MaxTakeoff {
			e.ErrorString("\"zfw\" %.1f t is not plausible for a %s", s.ZeroFuelWeight, perf.ICAO)
		}
		if s.FuelOnBoard > perf.Weights.MaxFuel {
			e.ErrorString("\"fob\" %.0f lb exceeds the maximum of %.0f lb", s.FuelOnBoard, perf.Weights.MaxFuel)
		}
		if tow := s.ZeroFuelWeight + s.FuelOnBoard/aviation.TonsToPounds; tow > perf.Weights.MaxTakeoff {
			e.ErrorString("takeoff weight %.1f t exceeds the maximum of %.1f t", tow, perf.Weights.MaxTakeoff)
		}
		if s.CruiseAltitude > perf.Ceiling {
			e.ErrorString("\"cruise_altitude\" %.0f is above the %s ceiling", s.CruiseAltitude, perf.ICAO)
		}
		if s.ApproachSpeed == 0 {
			s.ApproachSpeed = perf.Speed.Landing
		}
	}

	if s.FuelOnBoard <= 0 {
		e.ErrorString("\"fob\" must be positive")
	}
	if s.V2 <= 0 {
		e.ErrorString("\"v2\" must be positive")
	}
	if s.Distance <= 0 {
		e.ErrorString("\"distance\" must be positive")
	}
	if s.CruiseAltitude <= max(s.Origin.Elevation, s.Destination.Elevation) {
		e.ErrorString("\"cruise_altitude\" must be above both airfields")
	}
	if s.AccelerationAltitude < s.ThrustReductionAltitude {
		e.ErrorString("\"acceleration_altitude\" is below \"thrust_reduction_altitude\"")
	}

	for name, sp := range map[string]SpeedSchedule{
		"climb_speed":   s.ClimbSpeed,
		"cruise_speed":  s.CruiseSpeed,
		"descent_speed": s.DescentSpeed,
	} {
		if sp.CAS <= 0 {
			e.ErrorString("%q: \"cas\" must be positive", name)
		}
		if sp.Mach < 0 || sp.Mach >= 1 {
			e.ErrorString("%q: \"mach\" %.3f must be in [0,1)", name, sp.Mach)
		}
	}

	if s.Coordinator != nil {
		c := s.Coordinator.WithDefaults()
		c.Check(e)
		s.Coordinator = &c
	}
}

var nonAlnum = regexp.MustCompile("[^a-z0-9]+")

// Key returns a filename-friendly identifier for the scenario.
func (s *Scenario) Key() string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s.Name), "-"), "-")
}

// Hash identifies the scenario's contents so that a cached profile is
// only reused for the scenario it was computed for.
func (s *Scenario) Hash() string {
	b, _ := json.Marshal(s)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func (s *Scenario) FMGC() vnav.FMGC { return scenarioFMGC{s} }

type scenarioFMGC struct {
	s *Scenario
}

func (f scenarioFMGC) PresentPosition() vnav.LatLongAlt {
	return vnav.LatLongAlt{Altitude: f.s.Origin.Elevation}
}

func (f scenarioFMGC) FCUAltitude() float32                  { return f.s.CruiseAltitude }
func (f scenarioFMGC) ZeroFuelWeight() float32               { return f.s.ZeroFuelWeight }
func (f scenarioFMGC) FuelOnBoard() float32                  { return f.s.FuelOnBoard }
func (f scenarioFMGC) V2Speed() float32                      { return f.s.V2 }
func (f scenarioFMGC) TropoPause() float32                   { return f.s.Tropopause }
func (f scenarioFMGC) OutsideAirTemperature() float32        { return f.s.OAT }
func (f scenarioFMGC) ApproachSpeed() float32                { return f.s.ApproachSpeed }
func (f scenarioFMGC) OriginAirfieldElevation() float32      { return f.s.Origin.Elevation }
func (f scenarioFMGC) DestinationAirfieldElevation() float32 { return f.s.Destination.Elevation }
func (f scenarioFMGC) AccelerationAltitude() float32         { return f.s.AccelerationAltitude }
func (f scenarioFMGC) ThrustReductionAltitude() float32      { return f.s.ThrustReductionAltitude }
func (f scenarioFMGC) CruiseAltitude() float32               { return f.s.CruiseAltitude }
func (f scenarioFMGC) SpeedLimit() vnav.SpeedLimit           { return f.s.SpeedLimit }
func (f scenarioFMGC) TotalFlightPlanDistance() float32      { return f.s.Distance }

func (f scenarioFMGC) ManagedClimbSpeed() (float32, float32) {
	return f.s.ClimbSpeed.CAS, f.s.ClimbSpeed.Mach
}
func (f scenarioFMGC) ManagedCruiseSpeed() (float32, float32) {
	return f.s.CruiseSpeed.CAS, f.s.CruiseSpeed.Mach
}
func (f scenarioFMGC) ManagedDescentSpeed() (float32, float32) {
	return f.s.DescentSpeed.CAS, f.s.DescentSpeed.Mach
}
func (f scenarioFMGC) Performance() *aviation.AircraftPerformance { return f.s.perf }

// parseScenarios decodes a file holding either a single scenario or an
// array of them.
func parseScenarios(filename string, contents []byte, e *util.ErrorLogger) []*Scenario {
	e.Push(filename)
	defer e.Pop()

	var scenarios []*Scenario
	if trimmed := strings.TrimSpace(string(contents)); strings.HasPrefix(trimmed, "[") {
		scenarios = util.CheckJSON[[]*Scenario](contents, e)
	} else if s := util.CheckJSON[*Scenario](contents, e); s != nil {
		scenarios = []*Scenario{s}
	}

	for _, s := range scenarios {
		s.Check(e)
	}
	return scenarios
}

// LoadScenarios loads the scenarios in the given files, or the built-in
// ones if no files are given. All problems are reported through e.
func LoadScenarios(filenames []string, e *util.ErrorLogger) []*Scenario {
	var scenarios []*Scenario

	if len(filenames) == 0 {
		names, err := fs.Glob(builtinScenarios, "scenarios/*.json")
		if err != nil {
			e.Error(err)
			return nil
		}
		for _, name := range names {
			contents, err := builtinScenarios.ReadFile(name)
			if err != nil {
				e.Error(err)
				continue
			}
			scenarios = append(scenarios, parseScenarios(path.Base(name), contents, e)...)
		}
	} else {
		for _, fn := range filenames {
			contents, err := os.ReadFile(fn)
			if err != nil {
				e.Error(err)
				continue
			}
			scenarios = append(scenarios, parseScenarios(fn, contents, e)...)
		}
	}

	e.Push("scenarios")
	seen := make(map[string]bool)
	for _, s := range scenarios {
		if seen[s.Key()] {
			e.ErrorString("%q: multiple scenarios with this name", s.Name)
		}
		seen[s.Key()] = true
	}
	e.Pop()

	slices.SortFunc(scenarios, func(a, b *Scenario) int { return strings.Compare(a.Name, b.Name) })

	return scenarios
}
