// vnav/log.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

// Available logging categories
const (
	VNAVLogIteration   = "iteration"
	VNAVLogCruise      = "cruise"
	VNAVLogDescent     = "descent"
	VNAVLogDecel       = "decel"
	VNAVLogClimb       = "climb"
	VNAVLogPredictions = "predictions"
)
