// vnav/errors.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import "errors"

var (
	ErrMissingCheckpoint  = errors.New("required checkpoint not in profile")
	ErrCruiseTooShort     = errors.New("cruise segment too short")
	ErrDescentUnavailable = errors.New("descent path cannot be computed")
	ErrInfeasibleSegment  = errors.New("segment is physically infeasible")
	ErrNoPerformanceData  = errors.New("no aircraft performance data")
	ErrCannotCompute      = errors.New("parameters are not sufficient to compute a profile")
)
