//go:build vnavlog

// vnav/log_debug.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

import (
	"fmt"
	"strings"
	"time"
)

// VNAV tracing configuration
var (
	vnavlogEnabled    bool
	vnavlogCategories map[string]bool
	vnavlogStart      time.Time
)

// InitVNAVLog initializes the VNAV trace logging system
func InitVNAVLog(enabled bool, categories string) {
	vnavlogEnabled = enabled
	vnavlogCategories = make(map[string]bool)
	vnavlogStart = time.Now()

	if !enabled {
		return
	}

	if categories == "" || categories == "all" {
		for _, cat := range []string{VNAVLogIteration, VNAVLogCruise, VNAVLogDescent, VNAVLogDecel,
			VNAVLogClimb, VNAVLogPredictions} {
			vnavlogCategories[cat] = true
		}
	} else {
		for _, cat := range strings.Split(categories, ",") {
			vnavlogCategories[strings.TrimSpace(cat)] = true
		}
	}
}

// VNAVLog logs a message with the elapsed time and category
func VNAVLog(category string, format string, args ...interface{}) {
	if !vnavlogEnabled || !vnavlogCategories[category] {
		return
	}

	// Format: [elapsed] [category] message
	elapsed := time.Since(vnavlogStart).Round(time.Microsecond)
	fmt.Printf("[%s] [%s] %s\n", elapsed, category, fmt.Sprintf(format, args...))
}

// VNAVLogEnabled returns whether VNAV logging is enabled for a given category
func VNAVLogEnabled(category string) bool {
	return vnavlogEnabled && vnavlogCategories[category]
}

// LogProfile logs each checkpoint of the profile
func LogProfile(category string, p *GeometryProfile) {
	if !VNAVLogEnabled(category) {
		return
	}
	for i, cp := range p.Checkpoints {
		VNAVLog(category, "%2d %s", i, cp)
	}
}
