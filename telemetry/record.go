// telemetry/record.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vtolsim/vtolsim/nav"
	"github.com/vtolsim/vtolsim/sim"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// RecordingVersion is bumped whenever Header or sim.Frame change in a
// way older readers cannot decode.
const RecordingVersion = 1

var ErrRecordingVersion = errors.New("unsupported recording version")

// Header is the first value in a recording.
type Header struct {
	Version  int         `msgpack:"version"`
	RunID    uuid.UUID   `msgpack:"run_id"`
	Scenario string      `msgpack:"scenario"`
	Vehicle  string      `msgpack:"vehicle"`
	DT       float64     `msgpack:"dt"`
	Created  time.Time   `msgpack:"created"`
	Mission  nav.Mission `msgpack:"mission"`
}

// Recorder writes a flight recording: a msgpack Header followed by one
// msgpack Frame per published frame, all zstd compressed.
type Recorder struct {
	zw     *zstd.Encoder
	bw     *bufio.Writer
	enc    *msgpack.Encoder
	frames int
}

func NewRecorder(w io.Writer, h Header) (*Recorder, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	bw := bufio.NewWriter(zw)

	r := &Recorder{zw: zw, bw: bw, enc: msgpack.NewEncoder(bw)}
	h.Version = RecordingVersion
	if err := r.enc.Encode(h); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to encode recording header: %w", err)
	}
	return r, nil
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Publish(_ context.Context, f sim.Frame) error {
	if err := r.enc.Encode(f); err != nil {
		return fmt.Errorf("frame %d: %w", f.Tick, err)
	}
	r.frames++
	return nil
}

func (r *Recorder) Frames() int { return r.frames }

// Close flushes the recording. It does not close the underlying writer.
func (r *Recorder) Close() error {
	if err := r.bw.Flush(); err != nil {
		r.zw.Close()
		return err
	}
	if err := r.zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

// ReadRecording reads back everything a Recorder wrote. A recording that
// was cut off mid-frame, as when the writer crashed, returns the frames
// before the damage along with the error.
func ReadRecording(r io.Reader) (Header, []sim.Frame, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return Header{}, nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(bufio.NewReader(zr))

	var h Header
	if err := dec.Decode(&h); err != nil {
		return Header{}, nil, fmt.Errorf("failed to decode recording header: %w", err)
	}
	if h.Version != RecordingVersion {
		return h, nil, fmt.Errorf("version %d: %w", h.Version, ErrRecordingVersion)
	}

	var frames []sim.Frame
	for {
		var f sim.Frame
		if err := dec.Decode(&f); errors.Is(err, io.EOF) {
			return h, frames, nil
		} else if err != nil {
			return h, frames, fmt.Errorf("frame %d: %w", len(frames), err)
		}
		frames = append(frames, f)
	}
}
