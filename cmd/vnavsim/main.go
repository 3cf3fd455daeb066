// cmd/vnavsim/main.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// vnavsim computes vertical profiles for flights described in JSON
// scenario files and prints, dumps, or archives the results.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/openfmgc/vnav/aviation"
	"github.com/openfmgc/vnav/log"
	"github.com/openfmgc/vnav/util"
	"github.com/openfmgc/vnav/vnav"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
)

var (
	logLevel          = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir            = flag.String("logdir", "", "log file directory")
	configFilename    = flag.String("config", "", "filename of JSON file with coordinator settings")
	listAircraft      = flag.Bool("listaircraft", false, "list the aircraft types with performance data")
	lintScenarios     = flag.Bool("lint", false, "check the validity of the scenarios and exit")
	dump              = flag.Bool("dump", false, "dump the full report for each scenario")
	resume            = flag.Bool("resume", false, "reuse cached climb profiles for unchanged scenarios")
	archive           = flag.String("archive", "", "store reports in this directory, gs://bucket, or s3://bucket")
	listArchive       = flag.Bool("listarchive", false, "list the reports stored in the archive and exit")
	dryRun            = flag.Bool("dryrun", false, "don't write anything to the archive")
	parallel          = flag.Int("parallel", 4, "number of scenarios to compute concurrently")
	vnavLog           = flag.Bool("vnavlog", false, "enable vertical navigation logging")
	vnavLogCategories = flag.String("vnavlog-categories", "all", "vnav log categories (comma-separated: iteration,cruise,descent,decel,climb,predictions)")
)

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	vnav.InitVNAVLog(*vnavLog, *vnavLogCategories)

	if *listAircraft {
		for _, icao := range aviation.PerformanceTypes() {
			perf, _ := aviation.LookupPerformance(icao)
			fmt.Printf("%-6s %s\n", icao, perf.Name)
		}
		return
	}

	ctx := context.Background()

	var backend StorageBackend
	if *archive != "" {
		var err error
		if backend, err = MakeStorageBackend(ctx, *archive); err != nil {
			lg.Errorf("%s: %v", *archive, err)
			os.Exit(1)
		}
		if *dryRun {
			backend = DryRunBackend{b: backend}
		}
		defer backend.Close()
	}

	if *listArchive {
		if backend == nil {
			fmt.Fprintln(os.Stderr, "-listarchive requires -archive")
			os.Exit(1)
		}
		listReports(backend, lg)
		return
	}

	config := vnav.DefaultCoordinatorConfig()
	var e util.ErrorLogger
	if *configFilename != "" {
		config = loadConfig(*configFilename, &e)
	}

	scenarios := LoadScenarios(flag.Args(), &e)
	if e.HaveErrors() {
		e.PrintErrors(lg)
		os.Exit(1)
	}
	if *lintScenarios {
		fmt.Printf("%d scenario(s) ok\n", len(scenarios))
		return
	}

	reports := make([]*Report, len(scenarios))
	var eg errgroup.Group
	eg.SetLimit(max(1, *parallel))
	for i, s := range scenarios {
		eg.Go(func() error {
			r, err := RunScenario(s, config, *resume, lg)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Name, err)
			}
			reports[i] = r
			return nil
		})
	}
	err := eg.Wait()

	for i, r := range reports {
		if r == nil {
			continue
		}
		r.Write(os.Stdout)
		if *dump {
			godump.Dump(r)
		}
		if backend != nil {
			path := r.ArchivePath(scenarios[i].Key())
			if n, err := StoreObject(backend, path, r); err != nil {
				lg.Errorf("%s: %v", path, err)
			} else {
				lg.Info("archived report", "path", path, "bytes", n)
			}
		}
	}

	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
}

func loadConfig(filename string, e *util.ErrorLogger) vnav.CoordinatorConfig {
	e.Push(filename)
	defer e.Pop()

	contents, err := os.ReadFile(filename)
	if err != nil {
		e.Error(err)
		return vnav.DefaultCoordinatorConfig()
	}

	config := util.CheckJSON[vnav.CoordinatorConfig](contents, e).WithDefaults()
	config.Check(e)
	return config
}

// cachedProfile is stored in the user cache directory so that -resume
// can start from a previously computed climb.
type cachedProfile struct {
	ScenarioHash string
	Checkpoints  []vnav.VerticalCheckpoint
}

func cachePath(s *Scenario) string {
	return "profiles/" + s.Key() + ".msgpack"
}

func loadCachedProfile(s *Scenario, lg *log.Logger) *vnav.GeometryProfile {
	var cp cachedProfile
	if t, err := util.CacheRetrieveObject(cachePath(s), &cp); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			lg.Warn("unable to read cached profile", "error", err)
		}
		return nil
	} else if cp.ScenarioHash != s.Hash() {
		lg.Info("scenario changed since profile was cached", "cached", t)
		return nil
	}

	profile := vnav.NewGeometryProfile(cp.Checkpoints...)
	if err := profile.Validate(); err != nil {
		lg.Warn("discarding invalid cached profile", "error", err)
		return nil
	} else if profile.IndexOf(vnav.TopOfClimb) == -1 {
		return nil
	}
	return profile
}

// RunScenario computes the vertical profile for s.
func RunScenario(s *Scenario, config vnav.CoordinatorConfig, resume bool, lg *log.Logger) (*Report, error) {
	lg = lg.With("scenario", s.Name)
	if s.Coordinator != nil {
		config = *s.Coordinator
	}

	observer := vnav.NewParameterObserver(s.FMGC(), lg)
	computation := vnav.NewVerticalProfileComputation(observer, config, lg)

	start := time.Now()
	var result vnav.CoordinationResult
	var profile *vnav.GeometryProfile
	if resume {
		profile = loadCachedProfile(s, lg)
	}
	resumed := profile != nil
	if resumed {
		result = computation.Recompute(profile)
	} else {
		profile = vnav.NewGeometryProfile()
		var err error
		if result, err = computation.Compute(profile); err != nil {
			return nil, err
		}
	}
	elapsed := time.Since(start)

	if result.Ready() {
		if err := util.CacheStoreObject(cachePath(s), cachedProfile{
			ScenarioHash: s.Hash(),
			Checkpoints:  profile.Clone().Checkpoints,
		}); err != nil {
			lg.Warn("unable to cache profile", "error", err)
		}
	} else if err := util.CacheRemoveObject(cachePath(s)); err != nil {
		lg.Warn("unable to remove cached profile", "error", err)
	}

	r := MakeReport(s, result, profile)
	r.Elapsed = elapsed
	r.Resumed = resumed
	lg.Info("computed profile", "status", r.Status, "iterations", r.Iterations, "elapsed", elapsed)

	return r, nil
}

func listReports(backend StorageBackend, lg *log.Logger) {
	objs, err := backend.List("profiles")
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}

	for _, path := range slices.Sorted(maps.Keys(objs)) {
		if !strings.HasSuffix(path, ".msgpack.zst") {
			continue
		}
		var r Report
		if err := RetrieveObject(backend, path, &r); err != nil {
			lg.Warn("unable to read report", "path", path, "error", err)
			continue
		}
		fmt.Printf("%-56s %-24s %-22s %6d bytes\n", path, r.Scenario, r.Status, objs[path])
	}
}
