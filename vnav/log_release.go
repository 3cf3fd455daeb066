//go:build !vnavlog

// vnav/log_release.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vnav

// InitVNAVLog is a no-op in release builds
func InitVNAVLog(enabled bool, categories string) {}

// VNAVLog is a no-op in release builds
func VNAVLog(category string, format string, args ...interface{}) {}

// VNAVLogEnabled always returns false in release builds
func VNAVLogEnabled(category string) bool { return false }

// LogProfile is a no-op in release builds
func LogProfile(category string, p *GeometryProfile) {}
