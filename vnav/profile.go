// vnav/profile.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"
	"slices"

	"github.com/openfmgc/vnav/log"
	"github.com/openfmgc/vnav/util"

	"github.com/brunoga/deep"
)

// GeometryProfile is the ordered sequence of checkpoints describing the
// vertical profile along the route. Checkpoints are kept in route order,
// so DistanceFromStart never decreases along the slice.
//
// A profile has a single writer. Code that shares a profile between
// goroutines must hold its lock for the duration of a whole computation
// (see CruiseToDescentCoordinator.Coordinate), not just around individual
// method calls, since a computation leaves the profile transiently
// inconsistent.
type GeometryProfile struct {
	Checkpoints []VerticalCheckpoint

	mu util.LoggingMutex
}

func NewGeometryProfile(cps ...VerticalCheckpoint) *GeometryProfile {
	return &GeometryProfile{Checkpoints: slices.Clone(cps)}
}

func (p *GeometryProfile) Lock(lg *log.Logger)   { p.mu.Lock(lg) }
func (p *GeometryProfile) Unlock(lg *log.Logger) { p.mu.Unlock(lg) }

func (p *GeometryProfile) Len() int { return len(p.Checkpoints) }

// FindVerticalCheckpoint returns the first checkpoint with the given
// reason.
func (p *GeometryProfile) FindVerticalCheckpoint(reason VerticalCheckpointReason) (VerticalCheckpoint, bool) {
	if idx := p.IndexOf(reason); idx >= 0 {
		return p.Checkpoints[idx], true
	}
	return VerticalCheckpoint{}, false
}

// FindIndex returns the index of the first checkpoint for which pred
// returns true, or -1.
func (p *GeometryProfile) FindIndex(pred func(VerticalCheckpoint) bool) int {
	return slices.IndexFunc(p.Checkpoints, pred)
}

func (p *GeometryProfile) IndexOf(reason VerticalCheckpointReason) int {
	return p.FindIndex(func(cp VerticalCheckpoint) bool { return cp.Reason == reason })
}

func (p *GeometryProfile) LastCheckpoint() (VerticalCheckpoint, bool) {
	if len(p.Checkpoints) == 0 {
		return VerticalCheckpoint{}, false
	}
	return p.Checkpoints[len(p.Checkpoints)-1], true
}

// TruncateAfter removes all checkpoints after the one at index; passing
// -1 empties the profile.
func (p *GeometryProfile) TruncateAfter(index int) {
	index = max(index, -1)
	if index+1 >= len(p.Checkpoints) {
		return
	}
	p.Checkpoints = slices.Delete(p.Checkpoints, index+1, len(p.Checkpoints))
}

func (p *GeometryProfile) Append(cps ...VerticalCheckpoint) {
	p.Checkpoints = append(p.Checkpoints, cps...)
}

// Insert adds checkpoints before the one currently at index. It is used
// by builders that integrate backward and so compute checkpoints that
// precede ones added earlier.
func (p *GeometryProfile) Insert(index int, cps ...VerticalCheckpoint) {
	index = max(0, min(index, len(p.Checkpoints)))
	p.Checkpoints = slices.Insert(p.Checkpoints, index, cps...)
}

// ShiftTimeAfter adds delta seconds to the time of every checkpoint after
// index.
func (p *GeometryProfile) ShiftTimeAfter(index int, delta float32) {
	for i := max(index+1, 0); i < len(p.Checkpoints); i++ {
		p.Checkpoints[i].SecondsFromStart += delta
	}
}

// Validate checks that the checkpoints are in route order, that
// distances are non-negative, and that there is at most one checkpoint for
// each anchor reason.
func (p *GeometryProfile) Validate() error {
	var e util.ErrorLogger
	seen := make(map[VerticalCheckpointReason]bool)
	for i, cp := range p.Checkpoints {
		e.Push(fmt.Sprintf("checkpoint %d (%s)", i, cp.Reason))
		if cp.DistanceFromStart < 0 {
			e.ErrorString("negative distance from start %f", cp.DistanceFromStart)
		}
		if i > 0 && cp.DistanceFromStart < p.Checkpoints[i-1].DistanceFromStart {
			e.ErrorString("distance %f is before previous checkpoint's %f", cp.DistanceFromStart,
				p.Checkpoints[i-1].DistanceFromStart)
		}
		if cp.Reason.IsAnchor() {
			if seen[cp.Reason] {
				e.ErrorString("duplicate %s checkpoint", cp.Reason)
			}
			seen[cp.Reason] = true
		}
		e.Pop()
	}
	return e.Err()
}

// Clone returns a deep copy of the profile's checkpoints that can be
// handed to readers while the original continues to be updated.
func (p *GeometryProfile) Clone() *GeometryProfile {
	return &GeometryProfile{Checkpoints: deep.MustCopy(p.Checkpoints)}
}
