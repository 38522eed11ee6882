// telemetry/announce.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vtolsim/vtolsim/log"

	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"
)

const (
	ServiceType   = "_vtolsim._tcp"
	ServiceDomain = "local."
)

// Announcement advertises the websocket hub over mDNS so ground-station
// clients on the local network can find it.
type Announcement struct {
	server *zeroconf.Server
	lg     *log.Logger
}

func Announce(port int, run uuid.UUID, scenario string, lg *log.Logger) (*Announcement, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "vtolsim"
	}
	instance := fmt.Sprintf("%s-%s", host, run.String()[:8])

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port,
		[]string{"run=" + run.String(), "scenario=" + scenario, "path=/ws"}, nil)
	if err != nil {
		return nil, fmt.Errorf("mDNS register: %w", err)
	}

	lg.Info("announcing telemetry", slog.String("instance", instance), slog.String("service", ServiceType),
		slog.Int("port", port))
	return &Announcement{server: server, lg: lg}, nil
}

func (a *Announcement) Shutdown() {
	a.server.Shutdown()
	a.lg.Info("telemetry announcement withdrawn")
}
