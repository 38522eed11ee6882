// util/sync.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"log/slog"
	gomath "math"
	"runtime"
	"sync"
	"time"

	"github.com/vtolsim/vtolsim/log"

	"github.com/shirou/gopsutil/cpu"
)

// LoggingMutex is a sync.Mutex that records where it was acquired and
// complains when it is held or waited on for too long. A stuck lock in
// the sim loop shows up in the log along with the machine's load.
type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack []log.StackFrame
}

// LockTimeout is how long Lock waits before logging that it is stuck.
// It keeps waiting afterward.
var LockTimeout = 10 * time.Second

func (l *LoggingMutex) Lock(lg *log.Logger) {
	start := time.Now()

	if !l.Mutex.TryLock() {
		locked := make(chan struct{})
		go func() {
			l.Mutex.Lock()
			close(locked)
		}()

		select {
		case <-locked:
		case <-time.After(LockTimeout):
			lg.Error("unable to acquire mutex", slog.Duration("waited", LockTimeout), slog.Any("mutex", l))
			logLoad(lg)
			<-locked
		}
	}

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)
	if w := l.acq.Sub(start); w > time.Second {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	if d := time.Since(l.acq); d > time.Second {
		lg.Warn("mutex held for over 1 second", slog.Any("mutex", l), slog.Duration("held", d))
	}
	l.acq = time.Time{}
	l.acqStack = l.acqStack[:0]
	l.Mutex.Unlock()
}

func (l *LoggingMutex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("acq", l.acq),
		slog.Any("acq_stack", l.acqStack))
}

func logLoad(lg *log.Logger) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	attrs := []any{
		slog.Uint64("alloc_mb", m.Alloc/(1024*1024)),
		slog.Uint64("sys_mb", m.Sys/(1024*1024)),
		slog.Int("goroutines", runtime.NumGoroutine()),
	}
	if usage, err := cpu.Percent(time.Second, false); err == nil && len(usage) > 0 {
		attrs = append(attrs, slog.Int("cpu_percent", int(gomath.Round(usage[0]))))
	}
	lg.Warn("system load", attrs...)
}
