// telemetry/udp.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/vtolsim/vtolsim/dynamics"
	"github.com/vtolsim/vtolsim/sim"

	"github.com/lunixbochs/struc"
)

const packetMagic = "VTOL"

// StatePacket is the fixed-layout little-endian datagram sent to UDP
// listeners such as an external visualizer. Angles are radians and pulse
// widths microseconds.
type StatePacket struct {
	Magic    string  `struc:"[4]uint8,little"`
	Tick     uint32  `struc:"uint32,little"`
	Time     float64 `struc:"float64,little"`
	X        float32 `struc:"float32,little"`
	Y        float32 `struc:"float32,little"`
	Z        float32 `struc:"float32,little"`
	U        float32 `struc:"float32,little"`
	V        float32 `struc:"float32,little"`
	W        float32 `struc:"float32,little"`
	Phi      float32 `struc:"float32,little"`
	Theta    float32 `struc:"float32,little"`
	Psi      float32 `struc:"float32,little"`
	P        float32 `struc:"float32,little"`
	Q        float32 `struc:"float32,little"`
	R        float32 `struc:"float32,little"`
	Airspeed float32 `struc:"float32,little"`
	Operator uint8   `struc:"uint8"`
	Submode  uint8   `struc:"uint8"`
	Armed    bool    `struc:"bool"`
	Padding_ byte    `struc:"pad"`
	MotorLF  uint16  `struc:"uint16,little"`
	MotorRF  uint16  `struc:"uint16,little"`
	MotorRB  uint16  `struc:"uint16,little"`
	MotorLB  uint16  `struc:"uint16,little"`
	Throttle uint16  `struc:"uint16,little"`
	Aileron  uint16  `struc:"uint16,little"`
	Elevator uint16  `struc:"uint16,little"`
	Rudder   uint16  `struc:"uint16,little"`
}

// StatePacketSize is the packed size of a StatePacket in bytes.
const StatePacketSize = 4 + 4 + 8 + 13*4 + 4 + 8*2

func MakeStatePacket(f sim.Frame) StatePacket {
	s, pwm := f.State, f.PWM
	return StatePacket{
		Magic:    packetMagic,
		Tick:     uint32(f.Tick),
		Time:     f.Time,
		X:        float32(s.Position.X),
		Y:        float32(s.Position.Y),
		Z:        float32(s.Position.Z),
		U:        float32(s.Velocity.X),
		V:        float32(s.Velocity.Y),
		W:        float32(s.Velocity.Z),
		Phi:      float32(s.Phi),
		Theta:    float32(s.Theta),
		Psi:      float32(s.Psi),
		P:        float32(s.P),
		Q:        float32(s.Q),
		R:        float32(s.R),
		Airspeed: float32(s.Airspeed),
		Operator: uint8(f.Flags.Operator),
		Submode:  uint8(f.Flags.Submode),
		Armed:    s.Armed,
		MotorLF:  uint16(pwm.Motors[dynamics.MotorLF]),
		MotorRF:  uint16(pwm.Motors[dynamics.MotorRF]),
		MotorRB:  uint16(pwm.Motors[dynamics.MotorRB]),
		MotorLB:  uint16(pwm.Motors[dynamics.MotorLB]),
		Throttle: uint16(pwm.Throttle),
		Aileron:  uint16(pwm.Aileron),
		Elevator: uint16(pwm.Elevator),
		Rudder:   uint16(pwm.Rudder),
	}
}

func PackState(p StatePacket) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, &p); err != nil {
		return nil, fmt.Errorf("pack state: %w", err)
	}
	return buf.Bytes(), nil
}

func UnpackState(b []byte) (StatePacket, error) {
	var p StatePacket
	if err := struc.Unpack(bytes.NewReader(b), &p); err != nil {
		return p, fmt.Errorf("unpack state: %w", err)
	}
	if p.Magic != packetMagic {
		return p, fmt.Errorf("%q: not a state packet", p.Magic)
	}
	return p, nil
}

// UDPSender sends a StatePacket for each frame.
type UDPSender struct {
	conn    *net.UDPConn
	timeout time.Duration
}

func DialUDP(addr string) (*UDPSender, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &UDPSender{conn: conn, timeout: time.Second}, nil
}

func (u *UDPSender) Name() string { return "udp" }

func (u *UDPSender) Publish(_ context.Context, f sim.Frame) error {
	b, err := PackState(MakeStatePacket(f))
	if err != nil {
		return err
	}
	if err := u.conn.SetWriteDeadline(time.Now().Add(u.timeout)); err != nil {
		return err
	}
	_, err = u.conn.Write(b)
	return err
}

func (u *UDPSender) Close() error { return u.conn.Close() }
