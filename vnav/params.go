// vnav/params.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"sync"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/log"

	"github.com/brunoga/deep"
)

type SpeedLimit struct {
	UnderAltitude float32 `json:"under_altitude"` // ft
	Speed         float32 `json:"speed"`          // kt
}

type LatLongAlt struct {
	Latitude, Longitude float32
	Altitude            float32
}

// ComputationParameters is a snapshot of everything the profile builders
// need to know about the aircraft and the guidance state. A snapshot is
// never modified after it is taken; a coordination run sees exactly one.
type ComputationParameters struct {
	// Version increases each time the observer takes a new snapshot.
	Version uint64

	PresentPosition LatLongAlt
	FCUAltitude     float32

	ZeroFuelWeight float32 // tons
	FuelOnBoard    float32 // pounds
	V2Speed        float32
	TropoPause     float32
	PerfFactor     float32
	ISADeviation   float32

	ManagedClimbSpeed       float32
	ManagedClimbSpeedMach   float32
	ManagedCruiseSpeed      float32
	ManagedCruiseSpeedMach  float32
	ManagedDescentSpeed     float32
	ManagedDescentSpeedMach float32
	ApproachSpeed           float32

	OriginAirfieldElevation      float32
	DestinationAirfieldElevation float32
	AccelerationAltitude         float32
	ThrustReductionAltitude      float32
	CruiseAltitude               float32
	SpeedLimit                   SpeedLimit

	// TotalFlightPlanDistance is the along-track distance from the origin
	// to the destination runway threshold in nm.
	TotalFlightPlanDistance float32

	Perf *aviation.AircraftPerformance
}

// ZeroFuelWeightPounds returns the zero fuel weight in the mass unit used
// for predictions.
func (p ComputationParameters) ZeroFuelWeightPounds() float32 {
	return p.ZeroFuelWeight * aviation.TonsToPounds
}

// CanComputeProfile reports whether the parameters describe a flight for
// which a profile can be computed; the FMGC only provides V2 once the
// takeoff performance has been entered.
func (p ComputationParameters) CanComputeProfile() bool {
	return p.V2Speed > 0 && p.Perf != nil && p.CruiseAltitude > 0 && p.TotalFlightPlanDistance > 0
}

// ParameterProvider gives out parameter snapshots.
type ParameterProvider interface {
	Get() ComputationParameters
}

// FMGC is the source of live guidance and aircraft state that the
// ParameterObserver samples.
type FMGC interface {
	PresentPosition() LatLongAlt
	FCUAltitude() float32
	ZeroFuelWeight() float32 // tons
	FuelOnBoard() float32    // pounds
	V2Speed() float32
	TropoPause() float32
	OutsideAirTemperature() float32 // Celsius at the present position
	ManagedClimbSpeed() (cas, mach float32)
	ManagedCruiseSpeed() (cas, mach float32)
	ManagedDescentSpeed() (cas, mach float32)
	ApproachSpeed() float32
	OriginAirfieldElevation() float32
	DestinationAirfieldElevation() float32
	AccelerationAltitude() float32
	ThrustReductionAltitude() float32
	CruiseAltitude() float32
	SpeedLimit() SpeedLimit
	TotalFlightPlanDistance() float32
	Performance() *aviation.AircraftPerformance
}

// ParameterObserver samples an FMGC into immutable snapshots. Update is
// called between profile computations; Get may be called from any
// goroutine.
type ParameterObserver struct {
	fmgc FMGC
	lg   *log.Logger

	mu      sync.Mutex
	params  ComputationParameters
	version uint64
}

func NewParameterObserver(fmgc FMGC, lg *log.Logger) *ParameterObserver {
	o := &ParameterObserver{fmgc: fmgc, lg: lg}
	o.Update()
	return o
}

// Update takes a new snapshot of the FMGC state.
func (o *ParameterObserver) Update() {
	f := o.fmgc
	pos := f.PresentPosition()
	climbCAS, climbMach := f.ManagedClimbSpeed()
	cruiseCAS, cruiseMach := f.ManagedCruiseSpeed()
	descentCAS, descentMach := f.ManagedDescentSpeed()
	tropo := f.TropoPause()

	p := ComputationParameters{
		PresentPosition: pos,
		FCUAltitude:     f.FCUAltitude(),

		ZeroFuelWeight: f.ZeroFuelWeight(),
		FuelOnBoard:    f.FuelOnBoard(),
		V2Speed:        f.V2Speed(),
		TropoPause:     tropo,
		PerfFactor:     0, // not provided by the FMGC
		ISADeviation:   aviation.ISADeviation(pos.Altitude, f.OutsideAirTemperature(), tropo),

		ManagedClimbSpeed:       climbCAS,
		ManagedClimbSpeedMach:   climbMach,
		ManagedCruiseSpeed:      cruiseCAS,
		ManagedCruiseSpeedMach:  cruiseMach,
		ManagedDescentSpeed:     descentCAS,
		ManagedDescentSpeedMach: descentMach,
		ApproachSpeed:           f.ApproachSpeed(),

		OriginAirfieldElevation:      f.OriginAirfieldElevation(),
		DestinationAirfieldElevation: f.DestinationAirfieldElevation(),
		AccelerationAltitude:         f.AccelerationAltitude(),
		ThrustReductionAltitude:      f.ThrustReductionAltitude(),
		CruiseAltitude:               f.CruiseAltitude(),
		SpeedLimit:                   f.SpeedLimit(),
		TotalFlightPlanDistance:      f.TotalFlightPlanDistance(),
	}
	if perf := f.Performance(); perf != nil {
		p.Perf = deep.MustCopy(perf)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.version++
	p.Version = o.version
	o.params = p

	o.lg.Debug("updated computation parameters", "version", p.Version, "fob", p.FuelOnBoard,
		"cruise_altitude", p.CruiseAltitude, "isa_dev", p.ISADeviation)
}

// Get returns the most recent snapshot. The snapshot shares no memory
// with the observer or the FMGC.
func (o *ParameterObserver) Get() ComputationParameters {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.params.Clone()
}

func (o *ParameterObserver) CanComputeProfile() bool {
	return o.Get().CanComputeProfile()
}

// Clone returns a copy of p that does not alias its performance data.
func (p ComputationParameters) Clone() ComputationParameters {
	return deep.MustCopy(p)
}

// StaticParameters is a ParameterProvider that always returns the same
// snapshot; it's handy for tools and tests that don't have a live FMGC.
type StaticParameters ComputationParameters

func (s StaticParameters) Get() ComputationParameters {
	return ComputationParameters(s).Clone()
}
