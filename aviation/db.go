// aviation/db.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/openfmgc/vnav/math"
	"github.com/openfmgc/vnav/util"
)

// AircraftPerformance holds the simplified performance model used for
// trajectory predictions: a parabolic drag polar, a thrust lapse model
// for climb and idle thrust, and a Mach-corrected TSFC.
type AircraftPerformance struct {
	Name string `json:"name"`
	ICAO string `json:"icao"`
	// engines, weight class, category
	WeightClass string  `json:"weightClass"`
	Ceiling     float32 `json:"ceiling"`
	Engine      struct {
		AircraftType       string  `json:"type"`
		Count              int     `json:"count"`
		MaxClimbThrust     float32 `json:"maxClimbThrust"` // lbf per engine, sea level
		ThrustLapse        float32 `json:"thrustLapse"`    // exponent applied to delta
		IdleThrustFraction float32 `json:"idleThrustFraction"`
		TSFC               float32 `json:"tsfc"` // lb/(lbf hr) at M0, sea level
		TSFCMachFactor     float32 `json:"tsfcMachFactor"`
	} `json:"engines"`
	Aero struct {
		WingArea           float32 `json:"wingArea"` // ft^2
		CD0                float32 `json:"cd0"`
		InducedDragFactor  float32 `json:"inducedDragFactor"`
		ApproachDragFactor float32 `json:"approachDragFactor"` // flaps/gear extended
	} `json:"aero"`
	Rate struct {
		Climb      float32 `json:"climb"` // ft / minute
		Descent    float32 `json:"descent"`
		Accelerate float32 `json:"accelerate"` // kts / 2 seconds
		Decelerate float32 `json:"decelerate"`
	} `json:"rate"`
	Speed struct {
		Min        float32 `json:"min"`
		V2         float32 `json:"v2"`
		Landing    float32 `json:"landing"`
		CruiseTAS  float32 `json:"cruise"`
		CruiseMach float32 `json:"cruiseM"`
		MaxTAS     float32 `json:"max"`
		MaxMach    float32 `json:"maxM"`
	} `json:"speed"`
	Weights struct {
		MaxTakeoff     float32 `json:"maxTakeoff"` // t
		MaxLanding     float32 `json:"maxLanding"` // t
		OperatingEmpty float32 `json:"operatingEmpty"`
		MaxFuel        float32 `json:"maxFuel"` // lb
	} `json:"weights"`
}

// dynamicPressureFactor is 0.7 * p0 * S in lbf per ft^2 of wing area per
// Mach^2, i.e., L = 1481.4 * delta * M^2 * S * CL.
const dynamicPressureFactor = 1481.4

// LiftCoefficient returns the lift coefficient needed to support the
// given weight (lb) in level flight.
func (ap *AircraftPerformance) LiftCoefficient(weight, mach, delta float32) float32 {
	q := dynamicPressureFactor * delta * mach * mach * ap.Aero.WingArea
	if q <= 0 {
		return math.Infinity
	}
	return weight / q
}

// Drag returns the total drag in lbf.
func (ap *AircraftPerformance) Drag(weight, mach, delta float32, approachConfig bool) float32 {
	cl := ap.LiftCoefficient(weight, mach, delta)
	cd := ap.Aero.CD0 + ap.Aero.InducedDragFactor*cl*cl
	if approachConfig && ap.Aero.ApproachDragFactor > 0 {
		cd *= ap.Aero.ApproachDragFactor
	}
	return dynamicPressureFactor * delta * mach * mach * ap.Aero.WingArea * cd
}

// ClimbThrust returns the total maximum climb thrust in lbf.
func (ap *AircraftPerformance) ClimbThrust(delta float32) float32 {
	return float32(ap.Engine.Count) * ap.Engine.MaxClimbThrust * math.Pow(delta, ap.Engine.ThrustLapse)
}

// IdleThrust returns the total idle thrust in lbf.
func (ap *AircraftPerformance) IdleThrust(delta float32) float32 {
	return ap.Engine.IdleThrustFraction * ap.ClimbThrust(delta)
}

// FuelFlow returns the total fuel flow in lb/hr needed to produce the
// given thrust.
func (ap *AircraftPerformance) FuelFlow(thrust, mach, theta float32) float32 {
	tsfc := ap.Engine.TSFC * (1 + ap.Engine.TSFCMachFactor*mach) * math.Sqrt(theta)
	return max(0, thrust) * tsfc
}

func (ap *AircraftPerformance) Check(e *util.ErrorLogger) {
	e.Push(ap.ICAO)
	defer e.Pop()

	if ap.Engine.Count <= 0 {
		e.ErrorString("must have at least one engine")
	}
	if ap.Engine.MaxClimbThrust <= 0 {
		e.ErrorString("\"maxClimbThrust\" must be positive")
	}
	if ap.Engine.IdleThrustFraction < 0 || ap.Engine.IdleThrustFraction >= 1 {
		e.ErrorString("\"idleThrustFraction\" %f must be in [0,1)", ap.Engine.IdleThrustFraction)
	}
	if ap.Engine.TSFC <= 0 {
		e.ErrorString("\"tsfc\" must be positive")
	}
	if ap.Aero.WingArea <= 0 {
		e.ErrorString("\"wingArea\" must be positive")
	}
	if ap.Aero.CD0 <= 0 || ap.Aero.InducedDragFactor <= 0 {
		e.ErrorString("drag polar coefficients must be positive")
	}
	if ap.Speed.Landing <= 0 || ap.Speed.V2 <= 0 {
		e.ErrorString("\"landing\" and \"v2\" speeds must be given")
	}
}

///////////////////////////////////////////////////////////////////////////
// Performance database

//go:embed resources/performance.json
var performanceJSON []byte

var (
	performanceOnce sync.Once
	performanceDB   map[string]*AircraftPerformance
	performanceErr  error
)

func loadPerformanceDB() {
	var db map[string]*AircraftPerformance
	if err := json.Unmarshal(performanceJSON, &db); err != nil {
		performanceErr = fmt.Errorf("aircraft performance: %w", err)
		return
	}

	var e util.ErrorLogger
	for _, icao := range slices.Sorted(maps.Keys(db)) {
		if db[icao].ICAO != icao {
			e.ErrorString("%s: ICAO code mismatch %q", icao, db[icao].ICAO)
		}
		db[icao].Check(&e)
	}
	if e.HaveErrors() {
		performanceErr = e.Err()
		return
	}
	performanceDB = db
}

// LookupPerformance returns the performance model for the given ICAO
// aircraft type. The returned value is a copy that the caller may modify.
func LookupPerformance(icao string) (AircraftPerformance, error) {
	performanceOnce.Do(loadPerformanceDB)
	if performanceErr != nil {
		return AircraftPerformance{}, performanceErr
	}

	ap, ok := performanceDB[strings.ToUpper(icao)]
	if !ok {
		return AircraftPerformance{}, fmt.Errorf("%s: unknown aircraft type", icao)
	}
	return *ap, nil
}

// PerformanceTypes returns the ICAO codes of all aircraft with
// performance data, sorted.
func PerformanceTypes() []string {
	performanceOnce.Do(loadPerformanceDB)
	return slices.Sorted(maps.Keys(performanceDB))
}
