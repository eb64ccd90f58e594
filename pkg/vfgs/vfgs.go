// Package vfgs provides a composable API for building and executing
// invocations of the vfgs film grain synthesizer.
package vfgs

import (
	"context"
	"fmt"
	"strconv"

	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

// DefaultBinary is the synthesizer executable looked up in PATH.
const DefaultBinary = "vfgs"

// Command represents a vfgs command being built.
type Command struct {
	binary string
	input  string
	output string

	width, height int
	bitDepth      int
	outDepth      int
	format        yuv.ChromaFormat
	frames        int
	seek          int
	seed          uint32
	hasSeed       bool
	gain          int
	config        string
}

// Option modifies a Command. Options are order-independent; Build always
// emits flags in the same order.
type Option interface {
	Apply(cmd *Command)
}

// OptionFunc is a function that implements Option.
type OptionFunc func(cmd *Command)

// Apply implements Option.
func (f OptionFunc) Apply(cmd *Command) { f(cmd) }

// NewCommand creates a command reading input and writing output.
func NewCommand(input, output string, opts ...Option) *Command {
	cmd := &Command{
		binary: DefaultBinary,
		input:  input,
		output: output,
		gain:   -1,
	}
	for _, opt := range opts {
		opt.Apply(cmd)
	}
	return cmd
}

// Binary returns the executable the command runs.
func (c *Command) Binary() string {
	return c.binary
}

// Build returns the complete argument list.
func (c *Command) Build() []string {
	var args []string
	add := func(flag string, v int) {
		args = append(args, flag, strconv.Itoa(v))
	}

	if c.width > 0 {
		add("--width", c.width)
	}
	if c.height > 0 {
		add("--height", c.height)
	}
	if c.bitDepth > 0 {
		add("--bitdepth", c.bitDepth)
	}
	if c.outDepth > 0 {
		add("--outdepth", c.outDepth)
	}
	if c.format != 0 {
		args = append(args, "--format", c.format.String())
	}
	if c.frames > 0 {
		add("--frames", c.frames)
	}
	if c.seek > 0 {
		add("--seek", c.seek)
	}
	if c.hasSeed {
		args = append(args, "--seed", strconv.FormatUint(uint64(c.seed), 10))
	}
	if c.gain >= 0 {
		add("--gain", c.gain)
	}
	if c.config != "" {
		args = append(args, "--cfg", c.config)
	}

	return append(args, c.input, c.output)
}

// Run executes the command and waits for it.
func (c *Command) Run(ctx context.Context) error {
	proc, err := Start(ctx, c.binary, c.Build())
	if err != nil {
		return err
	}
	return proc.Wait()
}

// RunCapture executes the command and returns its stderr and any error.
func (c *Command) RunCapture(ctx context.Context) RunResult {
	return runCapture(ctx, c.binary, c.Build())
}

// Start starts the command. The caller must Wait or Kill.
func (c *Command) Start(ctx context.Context) (*Process, error) {
	return Start(ctx, c.binary, c.Build())
}

// String returns the command line, for logs.
func (c *Command) String() string {
	return fmt.Sprintf("%s %v", c.binary, c.Build())
}

// --- Options ---

// Binary sets the executable path.
func Binary(path string) Option {
	return OptionFunc(func(cmd *Command) {
		if path != "" {
			cmd.binary = path
		}
	})
}

// Width sets the frame width (--width).
func Width(w int) Option {
	return OptionFunc(func(cmd *Command) { cmd.width = w })
}

// Height sets the frame height (--height).
func Height(h int) Option {
	return OptionFunc(func(cmd *Command) { cmd.height = h })
}

// BitDepth sets the input bit depth (--bitdepth).
func BitDepth(b int) Option {
	return OptionFunc(func(cmd *Command) { cmd.bitDepth = b })
}

// OutputBitDepth sets the output bit depth (--outdepth). Older vfgs builds
// without the option write output at the input depth.
func OutputBitDepth(b int) Option {
	return OptionFunc(func(cmd *Command) { cmd.outDepth = b })
}

// Format sets the chroma format (--format).
func Format(f yuv.ChromaFormat) Option {
	return OptionFunc(func(cmd *Command) { cmd.format = f })
}

// Layout sets size, input bit depth and chroma format from l.
func Layout(l yuv.Layout) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.width, cmd.height = l.Width, l.Height
		cmd.bitDepth = l.BitDepth
		cmd.format = l.Format
	})
}

// Frames limits the number of processed frames (--frames).
func Frames(n int) Option {
	return OptionFunc(func(cmd *Command) { cmd.frames = n })
}

// Seek skips n input frames and offsets the grain pattern (--seek).
func Seek(n int) Option {
	return OptionFunc(func(cmd *Command) { cmd.seek = n })
}

// Seed sets the pseudo-random seed (--seed). Needs a vfgs build with
// seeded grain.
func Seed(s uint32) Option {
	return OptionFunc(func(cmd *Command) {
		cmd.seed = s
		cmd.hasSeed = true
	})
}

// Gain sets the global gain percentage (--gain).
func Gain(pct int) Option {
	return OptionFunc(func(cmd *Command) { cmd.gain = pct })
}

// Config sets the grain parameter file (--cfg).
func Config(path string) Option {
	return OptionFunc(func(cmd *Command) { cmd.config = path })
}

// PreviewOutputName is the file a single-frame preview is written to.
func PreviewOutputName(width, height int) string {
	return fmt.Sprintf("__preview_%dx%d_8b.yuv", width, height)
}
