//go:build navlog

// nav/log_debug.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	navlogEnabled    bool
	navlogCategories map[string]bool
	// Simulation time for log lines; set by the tick driver.
	navlogTicks atomic.Int64
	navlogDT    float64 = 0.01
)

// InitNavLog enables printing of navigation traces for the given
// comma-separated categories ("all" or empty for everything).
func InitNavLog(enabled bool, categories string) {
	navlogEnabled = enabled
	navlogCategories = make(map[string]bool)

	if !enabled {
		return
	}

	if categories == "" || categories == "all" {
		navlogCategories[NavLogWaypoint] = true
		navlogCategories[NavLogGuidance] = true
	} else {
		for _, cat := range strings.Split(categories, ",") {
			navlogCategories[strings.TrimSpace(cat)] = true
		}
	}
}

// SetNavLogTick records the current simulation tick for log timestamps.
func SetNavLogTick(tick int64, dt float64) {
	navlogTicks.Store(tick)
	navlogDT = dt
}

// NavLog prints a message tagged with simulation time and category.
func NavLog(category string, format string, args ...any) {
	if !navlogEnabled || !navlogCategories[category] {
		return
	}

	t := float64(navlogTicks.Load()) * navlogDT
	fmt.Printf("[%9.2f] [%s] %s\n", t, category, fmt.Sprintf(format, args...))
}

func NavLogEnabled(category string) bool {
	return navlogEnabled && navlogCategories[category]
}
