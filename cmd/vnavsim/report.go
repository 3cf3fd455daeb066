// cmd/vnavsim/report.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/openfmgc/vnav/vnav"
)

// Report summarizes the profile computed for a scenario; it is what gets
// printed and archived.
type Report struct {
	Scenario string
	Aircraft string
	Computed time.Time
	Elapsed  time.Duration
	// Resumed is set when the climb came from a cached profile.
	Resumed bool

	Status                     string
	Ready                      bool
	Iterations                 int
	Error                      float32
	EstimatedFuelAtDestination float32
	Failure                    string `msgpack:",omitempty"`

	Trace       []vnav.IterationTrace
	Checkpoints []vnav.VerticalCheckpoint
}

func MakeReport(s *Scenario, result vnav.CoordinationResult, profile *vnav.GeometryProfile) *Report {
	r := &Report{
		Scenario:                   s.Name,
		Aircraft:                   s.Aircraft,
		Computed:                   time.Now().UTC(),
		Status:                     result.Status.String(),
		Ready:                      result.Ready(),
		Iterations:                 result.Iterations,
		Error:                      result.Error,
		EstimatedFuelAtDestination: result.EstimatedFuelAtDestination,
		Trace:                      result.Trace,
		Checkpoints:                profile.Clone().Checkpoints,
	}
	if result.Err != nil {
		r.Failure = result.Err.Error()
	}
	return r
}

// ArchivePath returns the path under which the report is stored.
func (r *Report) ArchivePath(key string) string {
	return fmt.Sprintf("profiles/%s/%s.msgpack.zst", key, r.Computed.Format("20060102T150405Z"))
}

func (r *Report) Checkpoint(reason vnav.VerticalCheckpointReason) (vnav.VerticalCheckpoint, bool) {
	for _, cp := range r.Checkpoints {
		if cp.Reason == reason {
			return cp, true
		}
	}
	return vnav.VerticalCheckpoint{}, false
}

func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "%s (%s): %s after %d iteration(s), error %.1f lb, computed in %s",
		r.Scenario, r.Aircraft, r.Status, r.Iterations, r.Error, r.Elapsed.Round(time.Microsecond))
	if r.Resumed {
		fmt.Fprint(w, " (resumed)")
	}
	fmt.Fprintln(w)
	if r.Failure != "" {
		fmt.Fprintf(w, "  %s\n", r.Failure)
	}

	if len(r.Trace) > 0 {
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "  iter\tdest est\tdescent burn\tToD bwd\tToD fwd\terror\tcruise nm\tcruise min\t")
		for i, t := range r.Trace {
			fmt.Fprintf(tw, "  %d\t%.0f\t%.0f\t%.0f\t%.0f\t%.1f\t%.1f\t%.1f\t\n", i+1, t.EstimatedFuelAtDestination,
				t.DescentFuelBurned, t.BackwardFuelAtTopOfDescent, t.ForwardFuelAtTopOfDescent, t.Error,
				t.CruiseDistance, t.CruiseTime/60)
		}
		tw.Flush()
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "  checkpoint\tdist nm\talt ft\tcas\tmach\tfob lb\ttime")
	for _, cp := range r.Checkpoints {
		fmt.Fprintf(tw, "  %s\t%.1f\t%.0f\t%.0f\t%.3f\t%.0f\t%s\n", cp.Reason, cp.DistanceFromStart, cp.Altitude,
			cp.Speed, cp.Mach, cp.RemainingFuelOnBoard, formatSeconds(cp.SecondsFromStart))
	}
	tw.Flush()

	if landing, ok := r.Checkpoint(vnav.Landing); ok && r.Ready {
		fmt.Fprintf(w, "  trip time %s, fuel at destination %.0f lb\n", formatSeconds(landing.SecondsFromStart),
			landing.RemainingFuelOnBoard)
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
}

func formatSeconds(s float32) string {
	d := time.Duration(s) * time.Second
	return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
