// Package preview renders grain previews in the background. Only the most
// recent request is ever rendered; older ones are cancelled or dropped.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"thirdcoast.systems/fgcdesigner/pkg/grain"
	"thirdcoast.systems/fgcdesigner/pkg/vfgs"
	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

// Status is the lifecycle stage of the preview.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusPending     Status = "pending"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// ErrNoSource is reported when no source video is configured.
var ErrNoSource = errors.New("no source video configured")

// Synthesizer renders one grainy frame from a parameter file.
type Synthesizer interface {
	Synthesize(ctx context.Context, cfg []byte, p vfgs.Params) (*yuv.Frame, error)
}

// Request asks for a preview of Config applied to source frame Frame.
type Request struct {
	Config []byte
	Frame  int
	Gain   int
	Seed   uint32
}

// State is a snapshot of the preview.
type State struct {
	Seq       uint64        `json:"seq"`
	Status    Status        `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Frame     int           `json:"frame"`
	HasImage  bool          `json:"hasImage"`
	Elapsed   time.Duration `json:"elapsed"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Options configures a Previewer.
type Options struct {
	Source   string
	Layout   yuv.Layout
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Previewer owns the latest-wins render queue.
type Previewer struct {
	synth  Synthesizer
	opts   Options
	logger *slog.Logger
	hub    *Hub
	wake   chan struct{}

	mu       sync.Mutex
	seq      uint64
	pending  *pendingRequest
	cancel   context.CancelFunc
	state    State
	img      image.Image
	rendered *yuv.Frame
	frame    int
}

type pendingRequest struct {
	Request
	seq uint64
}

// New creates a previewer. It stays unavailable when opts.Source is empty.
func New(synth Synthesizer, opts Options) *Previewer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Previewer{
		synth:  synth,
		opts:   opts,
		logger: logger.With("component", "preview"),
		hub:    NewHub(),
		wake:   make(chan struct{}, 1),
		state:  State{Status: StatusIdle, UpdatedAt: time.Now()},
	}
	if err := p.sourceErr(); err != nil {
		p.state.Status = StatusUnavailable
		p.state.Reason = err.Error()
	}
	return p
}

func (p *Previewer) sourceErr() error {
	if p.opts.Source == "" {
		return ErrNoSource
	}
	if p.synth == nil {
		return errors.New("no synthesizer configured")
	}
	return p.opts.Layout.Validate()
}

// Available reports whether previews can be rendered at all.
func (p *Previewer) Available() bool {
	return p.sourceErr() == nil
}

// Layout returns the source layout.
func (p *Previewer) Layout() yuv.Layout {
	return p.opts.Layout
}

// Submit queues req, replacing any pending request and cancelling the one
// in flight. It returns the request sequence number, or 0 when previews are
// unavailable.
func (p *Previewer) Submit(req Request) uint64 {
	if !p.Available() {
		return 0
	}

	p.mu.Lock()
	p.seq++
	p.pending = &pendingRequest{Request: req, seq: p.seq}
	if p.cancel != nil {
		p.cancel()
	}
	p.setState(State{
		Seq:      p.seq,
		Status:   StatusPending,
		Frame:    req.Frame,
		HasImage: p.img != nil,
	})
	seq := p.seq
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return seq
}

// Run renders submitted requests until ctx is done.
func (p *Previewer) Run(ctx context.Context) error {
	if !p.Available() {
		p.logger.Info("preview disabled", "reason", p.State().Reason)
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.wake:
		}

		if d := p.opts.Debounce; d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}

		rctx, req, ok := p.take(ctx)
		if !ok {
			continue
		}
		p.render(rctx, req)
	}
}

// take claims the pending request and arms its cancellation.
func (p *Previewer) take(ctx context.Context) (context.Context, *pendingRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req := p.pending
	if req == nil {
		return nil, nil, false
	}
	p.pending = nil

	var rctx context.Context
	if p.opts.Timeout > 0 {
		rctx, p.cancel = context.WithTimeout(ctx, p.opts.Timeout)
	} else {
		rctx, p.cancel = context.WithCancel(ctx)
	}
	return rctx, req, true
}

func (p *Previewer) render(ctx context.Context, req *pendingRequest) {
	start := time.Now()
	fr, err := p.synth.Synthesize(ctx, req.Config, vfgs.Params{
		Source: p.opts.Source,
		Layout: p.opts.Layout,
		Frame:  req.Frame,
		Seed:   req.Seed,
		Gain:   req.Gain,
	})
	var img image.Image
	if err == nil {
		img, err = yuv.ToImage(fr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if req.seq != p.seq {
		p.logger.Debug("preview superseded", "seq", req.seq, "latest", p.seq)
		return
	}

	if err != nil {
		p.logger.Warn("preview unavailable", "seq", req.seq, "frame", req.Frame, "error", err)
		p.setState(State{
			Seq:      req.seq,
			Status:   StatusUnavailable,
			Reason:   err.Error(),
			Frame:    req.Frame,
			HasImage: p.img != nil,
			Elapsed:  time.Since(start),
		})
		return
	}

	p.img = img
	p.rendered = fr
	p.frame = req.Frame
	p.setState(State{
		Seq:      req.seq,
		Status:   StatusReady,
		Frame:    req.Frame,
		HasImage: true,
		Elapsed:  time.Since(start),
	})
	p.logger.Debug("preview ready", "seq", req.seq, "frame", req.Frame, "elapsed", time.Since(start))
}

// setState must be called with p.mu held.
func (p *Previewer) setState(st State) {
	st.UpdatedAt = time.Now()
	p.state = st
	p.hub.Publish(st)
}

// State returns the current state.
func (p *Previewer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Image returns the most recent successful preview.
func (p *Previewer) Image() (image.Image, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.img, p.img != nil
}

// Subscribe streams state changes.
func (p *Previewer) Subscribe() (<-chan State, func()) {
	return p.hub.Subscribe()
}

// FrameCount returns the number of frames in the source.
func (p *Previewer) FrameCount() (int, error) {
	if err := p.sourceErr(); err != nil {
		return 0, err
	}
	return yuv.FrameCount(p.opts.Source, p.opts.Layout)
}

// SourceImage renders source frame index without grain.
func (p *Previewer) SourceImage(index int) (image.Image, error) {
	if err := p.sourceErr(); err != nil {
		return nil, err
	}
	fr, err := yuv.ReadFrame(p.opts.Source, index, p.opts.Layout)
	if err != nil {
		return nil, err
	}
	return yuv.ToImage(fr)
}

// Spectrum analyzes the grain of the most recent preview against its
// clean source frame.
func (p *Previewer) Spectrum() (grain.Spectrum, error) {
	p.mu.Lock()
	rendered, index := p.rendered, p.frame
	p.mu.Unlock()
	if rendered == nil {
		return grain.Spectrum{}, fmt.Errorf("preview: nothing rendered yet")
	}

	clean, err := yuv.ReadFrame(p.opts.Source, index, p.opts.Layout)
	if err != nil {
		return grain.Spectrum{}, err
	}
	return grain.AnalyzeFrames(clean, rendered)
}
