// cmd/vtolsim/review.go
// Copyright(c) 2025-2026 vtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vtolsim/vtolsim/log"
	"github.com/vtolsim/vtolsim/telemetry"
)

// review plots a flight recording: the ground track and the selected
// columns against time. With -csv it also converts the recording to the
// CSV flight log.
func review(path string, lg *log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h, frames, err := telemetry.ReadRecording(f)
	if err != nil {
		if len(frames) == 0 {
			return err
		}
		// Plot what survived.
		lg.Warn("recording is damaged", slog.Any("error", err), slog.Int("frames", len(frames)))
		fmt.Fprintf(os.Stderr, "%s: %v; using the first %d frames\n", path, err, len(frames))
	}
	lg.Info("reviewing recording", slog.String("run", h.RunID.String()), slog.String("scenario", h.Scenario),
		slog.Int("frames", len(frames)))

	if err := os.MkdirAll(*plotDir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	write := func(name string, plot func(*os.File) error) error {
		out, err := os.Create(filepath.Join(*plotDir, base+"-"+name))
		if err != nil {
			return err
		}
		if err := plot(out); err != nil {
			out.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Printf("wrote %s\n", out.Name())
		return out.Close()
	}

	if err := write("track.png", func(out *os.File) error {
		return telemetry.PlotGroundTrack(out, frames, h.Mission)
	}); err != nil {
		return err
	}

	var columns []string
	for c := range strings.SplitSeq(*plotColumns, ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	if err := write("series.png", func(out *os.File) error {
		return telemetry.PlotColumns(out, frames, columns)
	}); err != nil {
		return err
	}

	if *csvFilename != "" {
		out, err := os.Create(*csvFilename)
		if err != nil {
			return err
		}
		defer out.Close()

		w := telemetry.NewCSVWriter(out)
		for _, fr := range frames {
			if err := w.Publish(context.Background(), fr); err != nil {
				return err
			}
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *csvFilename)
	}

	return nil
}
