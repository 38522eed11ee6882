// vehicle/properties_test.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vehicle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vtolsim/vtolsim/math"
	"github.com/vtolsim/vtolsim/util"
)

func TestAerosondeValid(t *testing.T) {
	p := Aerosonde()
	if err := p.Validate(); err != nil {
		t.Fatalf("default airframe failed validation: %v", err)
	}
	if p.Inertia.Gamma() <= 0 {
		t.Errorf("expected positive gamma, got %g", p.Inertia.Gamma())
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(p *Properties)
		expect string
		is     error
	}{
		{
			name:   "degenerate inertia",
			modify: func(p *Properties) { p.Inertia = Inertia{Jx: 1, Jy: 1, Jz: 1, Jxz: 1} },
			expect: "inertia",
			is:     ErrDegenerateInertia,
		},
		{
			name:   "zero mass",
			modify: func(p *Properties) { p.Mass = 0 },
			expect: "mass must be positive",
		},
		{
			name:   "zero-width pwm range",
			modify: func(p *Properties) { p.Actuators.PWM = math.Range{Min: 1500, Max: 1500} },
			expect: "actuators",
			is:     math.ErrZeroWidthRange,
		},
		{
			name:   "zero rotor thrust",
			modify: func(p *Properties) { p.Actuators.MaxMotorThrust = 0 },
			expect: "thrust limits must be positive",
		},
		{
			name:   "negative chord",
			modify: func(p *Properties) { p.Chord = -1 },
			expect: "chord must be positive",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := Aerosonde()
			tc.modify(&p)
			err := p.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, util.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.expect) {
				t.Errorf("error %q does not mention %q", err, tc.expect)
			}
			if tc.is != nil && !strings.Contains(err.Error(), tc.is.Error()) {
				t.Errorf("error %q does not carry %q", err, tc.is)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	fn := filepath.Join(dir, "heavy.json")
	if err := os.WriteFile(fn, []byte(`{"name": "heavy", "mass": 20, "quad": {"arm_length": 0.8}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mass != 20 || p.Quad.ArmLength != 0.8 {
		t.Errorf("overrides not applied: mass %g arm %g", p.Mass, p.Quad.ArmLength)
	}
	if p.WingSpan != Aerosonde().WingSpan || p.Quad.YawTorqueCoeff != Aerosonde().Quad.YawTorqueCoeff {
		t.Errorf("unspecified fields should keep their defaults")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"inertia": {"jx": 2, "jy": 1, "jz": 2, "jxz": 2}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Errorf("expected degenerate inertia to be rejected")
	}

	typo := filepath.Join(dir, "typo.json")
	if err := os.WriteFile(typo, []byte(`{"mass": 12, "aero": {"cl_alhpa": 5}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(typo); !errors.Is(err, util.ErrInvalidConfiguration) {
		t.Errorf("expected a misspelled coefficient to be rejected, got %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
