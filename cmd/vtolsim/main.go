// cmd/vtolsim/main.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// vtolsim flies a QuadPlane through a scenario without a display,
// optionally streaming frames to ground-station clients and recording the
// flight.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/vtolsim/vtolsim/autopilot"
	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/sim"
	"github.com/vtolsim/vtolsim/util"
	"github.com/vtolsim/vtolsim/vehicle"

	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
)

var (
	logLevel         = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir           = flag.String("logdir", "", "log file directory")
	cpuprofile       = flag.String("cpuprofile", "", "write CPU profile to file")
	scenarioFilename = flag.String("scenario", "", "filename of JSON file with a scenario definition (default: built-in square mission)")
	vehicleFilename  = flag.String("vehicle", "", "filename of JSON file with a vehicle definition; overrides the scenario's")
	longitudinal     = flag.String("longitudinal", "", "fixed-wing height and speed control: classic or tecs (default: the scenario's)")
	ticks            = flag.Int64("ticks", 60000, "number of ticks to simulate; 0 runs until interrupted")
	realtime         = flag.Bool("realtime", false, "pace the simulation at wall clock speed")
	frameInterval    = flag.Int("frameinterval", 1, "ticks between frames sent to telemetry")
	dump             = flag.Bool("dump", false, "print the resolved scenario and vehicle and exit")
	navLog           = flag.Bool("navlog", false, "enable navigation trace logging (requires the navlog build tag)")
	navLogCategories = flag.String("navlogcat", "all", "comma-separated navigation trace categories")

	recordFilename = flag.String("record", "", "write a flight recording to this file")
	csvFilename    = flag.String("csv", "", "write the flight log as CSV to this file")
	wsAddress      = flag.String("ws", "", "serve websocket telemetry at this address, e.g. :8080")
	announce       = flag.Bool("announce", false, "advertise the websocket server over mDNS")
	redisAddress   = flag.String("redis", "", "publish frames to the redis server at this address")
	redisPrefix    = flag.String("redisprefix", "vtolsim", "prefix for redis keys and channels")
	udpAddress     = flag.String("udp", "", "send packed state datagrams to this address")

	reviewFilename = flag.String("review", "", "plot a flight recording instead of flying")
	plotDir        = flag.String("plotdir", ".", "directory for review plots")
	plotColumns    = flag.String("columns", "altitude,airspeed,phi,theta,psi", "comma-separated flight log columns to plot in review")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: vtolsim [flags]\nwhere [flags] may be:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}

	lg := log.New(*logLevel, *logDir)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			lg.Errorf("%s: unable to create CPU profile file: %v", *cpuprofile, err)
		} else {
			if err := pprof.StartCPUProfile(f); err != nil {
				lg.Errorf("unable to start CPU profile: %v", err)
			} else {
				defer pprof.StopCPUProfile()
			}
		}
	}

	if *reviewFilename != "" {
		if err := review(*reviewFilename, lg); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", *reviewFilename, err)
			os.Exit(1)
		}
		return
	}

	sc, props, err := loadScenario()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		lg.Error("unable to load scenario", slog.Any("error", err))
		os.Exit(1)
	}

	if *dump {
		if !lint(sc, props, lg) {
			os.Exit(1)
		}
		godump.Dump(sc, props)
		return
	}

	nav.InitNavLog(*navLog, *navLogCategories)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fly(ctx, sc, props, lg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadScenario() (sim.Scenario, vehicle.Properties, error) {
	sc := sim.DefaultScenario()
	if *scenarioFilename != "" {
		var err error
		if sc, err = sim.LoadScenario(*scenarioFilename); err != nil {
			return sc, vehicle.Properties{}, err
		}
	}

	if *longitudinal != "" {
		var l autopilot.Longitudinal
		if err := l.UnmarshalText([]byte(*longitudinal)); err != nil {
			return sc, vehicle.Properties{}, fmt.Errorf("-longitudinal: %w", err)
		}
		sc.Autopilot.FixedWing.Longitudinal = l
	}

	var props vehicle.Properties
	var err error
	if *vehicleFilename != "" {
		props, err = vehicle.Load(*vehicleFilename)
	} else {
		props, err = sc.Properties()
	}
	return sc, props, err
}

func fly(ctx context.Context, sc sim.Scenario, props vehicle.Properties, lg *log.Logger) error {
	s, err := sim.New(props, sc.Autopilot, sc.Initial, lg)
	if err != nil {
		return err
	}
	defer s.Events().Destroy()
	s.SetFrameInterval(*frameInterval)

	live := sim.NewLiveInput(sc.Input)

	// Telemetry outlives the flight by a little: it stops once the last
	// frames have been delivered.
	tctx, stopTelemetry := context.WithCancel(context.Background())
	defer stopTelemetry()

	t, err := startTelemetry(tctx, s, sc, props, live, lg)
	if err != nil {
		return err
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer stopTelemetry()

		f, err := s.Run(ectx, live, sim.Options{Ticks: *ticks, Realtime: *realtime})
		report(s, f)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	t.run(tctx, eg)

	err = eg.Wait()
	if cerr := t.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func report(s *sim.Sim, f sim.Frame) {
	fmt.Printf("run %s: %d ticks, %.1f s simulated\n", s.RunID, f.Tick, f.Time)
	fmt.Printf("  final state %s submode %s: pos %.1f %.1f %.1f airspeed %.1f\n", f.Flags.Operator, f.Flags.Submode,
		f.State.Position.X, f.State.Position.Y, f.State.Position.Z, f.State.Airspeed)
	n := s.Autopilot().Navigator()
	fmt.Printf("  waypoint %d, %d waypoints reached, visited %v\n", f.Track.Index, n.Advances(), n.Visited())
}

// lint reports every problem with the resolved scenario and vehicle.
func lint(sc sim.Scenario, props vehicle.Properties, lg *log.Logger) bool {
	var e util.ErrorLogger
	if err := sc.Validate(); err != nil {
		e.Error(err)
	}
	if err := props.Validate(); err != nil {
		e.Error(err)
	}
	if e.HaveErrors() {
		e.PrintErrors(lg)
		return false
	}
	if d := sc.Input.Mission.Dangling(); len(d) > 0 {
		fmt.Fprintf(os.Stderr, "warning: waypoints %v have no valid next; the mission restarts at waypoint 0 after them\n", d)
	}
	return true
}
