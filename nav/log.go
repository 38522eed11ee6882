// nav/log.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

// Available logging categories
const (
	NavLogWaypoint = "waypoint"
	NavLogGuidance = "guidance"
)
