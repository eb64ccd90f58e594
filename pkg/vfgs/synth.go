package vfgs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

// ConfigFileName is the grain parameter file written before each run.
const ConfigFileName = "__preview.cfg"

// Params describes one single-frame synthesis request.
type Params struct {
	Source string
	Layout yuv.Layout
	Frame  int
	Seed   uint32
	Gain   int
}

// Synthesizer runs vfgs on one source frame at a time.
type Synthesizer struct {
	Binary  string
	WorkDir string
	Logger  *slog.Logger
}

// Synthesize writes cfg to the work directory, runs the synthesizer on the
// requested source frame and returns the 8-bit result.
func (s *Synthesizer) Synthesize(ctx context.Context, cfg []byte, p Params) (*yuv.Frame, error) {
	if err := p.Layout.Validate(); err != nil {
		return nil, err
	}
	dir := s.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vfgs: create work dir: %w", err)
	}

	cfgPath := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(cfgPath, cfg, 0o644); err != nil {
		return nil, fmt.Errorf("vfgs: write config: %w", err)
	}
	outPath := filepath.Join(dir, PreviewOutputName(p.Layout.Width, p.Layout.Height))
	_ = os.Remove(outPath)

	cmd := NewCommand(p.Source, outPath,
		Binary(s.Binary),
		Layout(p.Layout),
		OutputBitDepth(8),
		Frames(1),
		Seek(p.Frame),
		Seed(p.Seed),
		Gain(p.Gain),
		Config(cfgPath),
	)

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	res := cmd.RunCapture(ctx)
	if res.Err != nil {
		logger.Warn("grain synthesis failed", "frame", p.Frame, "error", res.Err)
		return nil, res.Err
	}
	logger.Debug("grain synthesis done", "frame", p.Frame, "seed", p.Seed, "gain", p.Gain, "elapsed", time.Since(start))

	out := p.Layout
	out.BitDepth = 8
	fr, err := yuv.ReadFrame(outPath, 0, out)
	if err != nil {
		return nil, fmt.Errorf("vfgs: read output: %w", err)
	}
	return fr, nil
}
