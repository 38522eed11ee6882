// sim/scenario.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vtolsim/vtolsim/autopilot"
	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/util"
	"github.com/vtolsim/vtolsim/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

// Scenario is everything needed to start a run: where the vehicle
// starts, what the ground station asks of it, and how the autopilot is
// tuned.
type Scenario struct {
	Name string `json:"name"`

	// Vehicle is a vehicle description file, relative to the scenario
	// file. The built-in Aerosonde is used if it is empty.
	Vehicle   string             `json:"vehicle"`
	Initial   dynamics.State     `json:"initial"`
	Input     autopilot.GCSInput `json:"input"`
	Autopilot autopilot.Config   `json:"autopilot"`

	dir string
}

// DefaultScenario is an armed Aerosonde in level flight at 1000 m flying
// a 10 km square in AUTO.
func DefaultScenario() Scenario {
	return Scenario{
		Name: "square",
		Initial: dynamics.State{
			Position:    r3.Vec{Z: -1000},
			Velocity:    r3.Vec{X: 30},
			NEDVelocity: r3.Vec{X: 30},
			Airspeed:    30,
			Armed:       true,
		},
		Input: autopilot.GCSInput{
			Mode: "AUTO",
			Mission: nav.Loop(nav.FixedWing,
				r3.Vec{X: 5000, Y: 5000, Z: -1000},
				r3.Vec{X: 5000, Y: -5000, Z: -1000},
				r3.Vec{X: -5000, Y: -5000, Z: -1000},
				r3.Vec{X: -5000, Y: 5000, Z: -1000}),
		},
		Autopilot: autopilot.DefaultConfig(),
	}
}

// LoadScenario reads a scenario file. Anything the file leaves out keeps
// its DefaultScenario value, except that a mission given in the file
// replaces the default one entirely.
func LoadScenario(path string) (Scenario, error) {
	s := DefaultScenario()
	s.Input.Mission = nav.Mission{}

	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, err
	}
	defer f.Close()

	var e util.ErrorLogger
	e.Push(path)
	if err := util.LoadJSON(f, &s, &e); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)

	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func (s Scenario) Validate() error {
	var e util.ErrorLogger
	e.Push("scenario " + s.Name)

	if err := s.Autopilot.Validate(); err != nil {
		e.Error(err)
	}
	if !finite(s.Initial) {
		e.ErrorString("initial state is not finite")
	}

	return e.Err()
}

// Properties returns the vehicle the scenario flies.
func (s Scenario) Properties() (vehicle.Properties, error) {
	if s.Vehicle == "" {
		return vehicle.Aerosonde(), nil
	}
	path := s.Vehicle
	if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}
	return vehicle.Load(path)
}
