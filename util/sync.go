// util/sync.go
// Copyright(c) 2022-2025 vnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"log/slog"
	gomath "math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/openfmgc/vnav/log"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/process"
)

// debuggerIsRunning reports whether we're running under dlv, in which
// case lock timeouts are just breakpoints and aren't reported. It's
// checked once per process.
var debuggerIsRunning = sync.OnceValue(func() bool {
	return underDebugger(os.Getenv("_"), int32(os.Getppid()))
})

// underDebugger checks the command that launched us (the shell's "_"
// variable, set by "dlv debug" and "dlv test") and the name of the
// parent process, which covers "dlv exec" and IDE launches.
func underDebugger(launcher string, ppid int32) bool {
	if isDlv(launcher) {
		return true
	}
	parent, err := process.NewProcess(ppid)
	if err != nil {
		return false
	}
	name, err := parent.Name()
	return err == nil && isDlv(name)
}

func isDlv(cmd string) bool {
	return strings.TrimSuffix(filepath.Base(cmd), ".exe") == "dlv"
}

///////////////////////////////////////////////////////////////////////////
// LoggingMutex

var heldMutexesMutex sync.Mutex
var heldMutexes map[*LoggingMutex]interface{} = make(map[*LoggingMutex]interface{})

// LockTimeout is how long Lock waits before logging diagnostics about a
// possible deadlock.
var LockTimeout = 10 * time.Second

// LoggingMutex is a sync.Mutex that records where it was acquired and
// reports on locks that are held or waited on for a long time.
type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack []log.StackFrame
}

func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()
	lg.Debug("attempting to acquire mutex", slog.Any("mutex", l))

	if debuggerIsRunning() {
		// Don't report timeouts while stopped at a breakpoint.
		l.Mutex.Lock()
	} else if !l.Mutex.TryLock() {
		// Lock with timeout.
		locked := make(chan struct{}, 1)

		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

		select {
		case <-locked:

		case <-time.After(LockTimeout):
			heldMutexesMutex.Lock()
			lg.Error("unable to acquire mutex", slog.Duration("timeout", LockTimeout),
				slog.Any("mutex", l), slog.Any("held_mutexes", heldMutexes))
			heldMutexesMutex.Unlock()

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			var pct float64
			if usage, err := cpu.Percent(time.Second, false); err == nil && len(usage) > 0 {
				pct = usage[0]
			}

			lg.Errorf("CPU: %d%% alloc: %dMB total alloc: %dMB sys mem: %dMB goroutines: %d",
				int(gomath.Round(pct)), m.Alloc/(1024*1024), m.TotalAlloc/(1024*1024), m.Sys/(1024*1024),
				runtime.NumGoroutine())

			// Keep waiting; the diagnostics above are all we can do.
			<-locked
		}
	}

	heldMutexesMutex.Lock()
	heldMutexes[l] = nil
	heldMutexesMutex.Unlock()

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)
	w := l.acq.Sub(tryTime)
	lg.Debug("acquired mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	if w > time.Second {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	heldMutexesMutex.Lock()
	// Though it may seem like we could unlock this sooner, holding it
	// until this function returns ensures that if we end up doing logging
	// in the code below, other mutexes aren't unlocked while we're trying
	// to log the held ones.
	defer heldMutexesMutex.Unlock()

	if _, ok := heldMutexes[l]; !ok {
		lg.Error("mutex not held", slog.Any("held_mutexes", heldMutexes))
	}
	delete(heldMutexes, l)

	if d := time.Since(l.acq); d > time.Second {
		lg.Warn("mutex held for over 1 second", slog.Any("mutex", l), slog.Duration("held", d))
	}

	l.acq = time.Time{}
	l.acqStack = nil
	l.Mutex.Unlock()
}

func (l *LoggingMutex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("acq", l.acq),
		slog.Duration("held", time.Since(l.acq)),
		slog.Any("acq_stack", l.acqStack))
}
