// Package designer owns the interactive editing session: the parameter
// model, the plot editor and the preview settings. Every mutation goes
// through one mutex and queues a preview of the result.
package designer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"thirdcoast.systems/fgcdesigner/internal/preview"
	"thirdcoast.systems/fgcdesigner/pkg/editor"
	"thirdcoast.systems/fgcdesigner/pkg/fgc"
)

var (
	ErrComponent = errors.New("invalid color component")
	ErrInterval  = errors.New("invalid interval")
	ErrFrame     = errors.New("frame index out of range")
	ErrGain      = errors.New("global gain must not be negative")
	ErrNoChange  = errors.New("nothing to change")
)

// PreviewQueue accepts preview requests. *preview.Previewer implements it.
type PreviewQueue interface {
	Submit(req preview.Request) uint64
}

// Options configures a Session.
type Options struct {
	Axes       editor.Axes
	Frame      int
	FrameCount int
	Seed       uint32
	BitDepth   int
	Logger     *slog.Logger
}

// Session is the single owner of the edited model.
type Session struct {
	mu         sync.Mutex
	model      *fgc.Model
	ed         *editor.Editor
	queue      PreviewQueue
	frame      int
	frameCount int
	seed       uint32
	bitDepth   int
	version    uint64
	logger     *slog.Logger
}

// New creates a session editing m. queue may be nil.
func New(m *fgc.Model, queue PreviewQueue, opts Options) *Session {
	if m == nil {
		m = fgc.New()
	}
	axes := opts.Axes
	if axes.Width <= 0 || axes.Height <= 0 {
		axes = editor.DefaultAxes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bitDepth := opts.BitDepth
	if bitDepth == 0 {
		bitDepth = 10
	}
	return &Session{
		model:      m,
		ed:         editor.New(m, axes),
		queue:      queue,
		frame:      opts.Frame,
		frameCount: opts.FrameCount,
		seed:       opts.Seed,
		bitDepth:   bitDepth,
		logger:     logger.With("component", "designer"),
	}
}

// changed records a model or settings change and queues a preview.
// Must be called with s.mu held.
func (s *Session) changed() {
	s.version++
	if s.queue == nil {
		return
	}
	s.queue.Submit(preview.Request{
		Config: fgc.Marshal(s.model, true),
		Frame:  s.frame,
		Gain:   s.model.GlobalGain,
		Seed:   s.seed,
	})
}

// Refresh queues a preview of the current state without changing it.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed()
}

// PointerDown starts a plot gesture.
func (s *Session) PointerDown(ev editor.Event) editor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.PointerDown(ev)
}

// PointerMove drags the grabbed handles. The model follows the drag live.
func (s *Session) PointerMove(ev editor.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ed.PointerMove(ev) {
		return false
	}
	s.changed()
	return true
}

// PointerUp ends the gesture and reports what it did.
func (s *Session) PointerUp(ev editor.Event) editor.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ed.Component()
	st := s.ed.State()
	out := s.ed.PointerUp(ev)
	switch out {
	case editor.OutcomeSplit:
		s.logger.Info("interval split", "comp", fgc.ComponentName(c), "interval", st.Hovered, "at", st.SplitAt)
	case editor.OutcomeToggled:
		s.logger.Info("interval toggled", "comp", fgc.ComponentName(c), "interval", st.Hovered)
	}
	if out != editor.OutcomeNone {
		s.changed()
	}
	return out
}

// SetAxes updates the plot area reported by the client.
func (s *Session) SetAxes(a editor.Axes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.SetAxes(a)
}

// SetComponent selects the edited color component.
func (s *Session) SetComponent(c int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ed.SetComponent(c) {
		return fmt.Errorf("%w: %d", ErrComponent, c)
	}
	s.version++
	return nil
}

// SetFrame selects the source frame previewed.
func (s *Session) SetFrame(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || (s.frameCount > 0 && i >= s.frameCount) {
		return fmt.Errorf("%w: %d", ErrFrame, i)
	}
	s.frame = i
	s.changed()
	return nil
}

// SetFrameCount updates the number of frames available in the source.
func (s *Session) SetFrameCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameCount = n
	if n > 0 && s.frame >= n {
		s.frame = n - 1
	}
}

// SetGain sets the global gain percentage of the model.
func (s *Session) SetGain(g int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g < 0 {
		return fmt.Errorf("%w: %d", ErrGain, g)
	}
	s.model.GlobalGain = g
	s.changed()
	return nil
}

// SetSeed sets the synthesizer seed.
func (s *Session) SetSeed(seed uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.changed()
}

// Split divides interval k of the active component at intensity at.
func (s *Session) Split(k, at int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ed.Component()
	if !s.model.Split(c, k, at) {
		return fmt.Errorf("%w: cannot split %s[%d] at %d", ErrNoChange, fgc.ComponentName(c), k, at)
	}
	s.ed.Refresh()
	s.logger.Info("interval split", "comp", fgc.ComponentName(c), "interval", k, "at", at)
	s.changed()
	return nil
}

// SetEnabled enables or disables interval k of the active component.
func (s *Session) SetEnabled(k int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ed.Component()
	if !s.model.SetEnabled(c, k, enabled) {
		return fmt.Errorf("%w: %s[%d]", ErrInterval, fgc.ComponentName(c), k)
	}
	s.ed.Refresh()
	s.changed()
	return nil
}

// Reset restores the default parameters.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.Reset()
	s.ed.Refresh()
	s.logger.Info("parameters reset")
	s.changed()
}

// LoadConfig replaces the model with a parsed configuration. Nothing changes
// when parsing fails.
func (s *Session) LoadConfig(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := fgc.Parse(r, s.model)
	if err != nil {
		return err
	}
	s.model.Load(m)
	s.ed.Refresh()
	if err := s.model.CheckRanges(s.bitDepth); err != nil {
		s.logger.Warn("loaded config outside synthesizer ranges", "error", err)
	}
	s.logger.Info("config loaded")
	s.changed()
	return nil
}

// SaveConfig writes the configuration including disabled intervals.
func (s *Session) SaveConfig(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fgc.Serialize(w, s.model, false)
}

// PreviewConfig returns the configuration the synthesizer sees, with
// disabled intervals silenced.
func (s *Session) PreviewConfig() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fgc.Marshal(s.model, true)
}

// Model returns a copy of the edited model.
func (s *Session) Model() *fgc.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Clone()
}

// Version increases with every change.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Settings returns the preview frame, global gain and seed.
func (s *Session) Settings() (frame, gain int, seed uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.model.GlobalGain, s.seed
}

// ComponentView summarizes one color component.
type ComponentView struct {
	Name           string `json:"name"`
	Present        bool   `json:"present"`
	NumModelValues int    `json:"numModelValues"`
	NumIntervals   int    `json:"numIntervals"`
}

// View is a JSON-friendly snapshot of the session.
type View struct {
	Version         uint64                           `json:"version"`
	Component       int                              `json:"component"`
	Components      [fgc.NumComponents]ComponentView `json:"components"`
	ModelID         int                              `json:"modelId"`
	Log2ScaleFactor int                              `json:"log2ScaleFactor"`
	Axes            editor.Axes                      `json:"axes"`
	Segments        []editor.Segment                 `json:"segments"`
	Lines           []editor.Line                    `json:"lines"`
	Gesture         editor.State                     `json:"gesture"`
	Frame           int                              `json:"frame"`
	FrameCount      int                              `json:"frameCount"`
	Gain            int                              `json:"gain"`
	Seed            uint32                           `json:"seed"`
	Warnings        []string                         `json:"warnings,omitempty"`
	Summary         string                           `json:"summary"`
}

// View returns a snapshot of the session for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Version:         s.version,
		Component:       s.ed.Component(),
		ModelID:         s.model.ModelID,
		Log2ScaleFactor: s.model.Log2ScaleFactor,
		Axes:            s.ed.Axes(),
		Segments:        s.ed.Segments(),
		Lines:           s.ed.Lines(),
		Gesture:         s.ed.State(),
		Frame:           s.frame,
		FrameCount:      s.frameCount,
		Gain:            s.model.GlobalGain,
		Seed:            s.seed,
	}
	for c, comp := range s.model.Comps {
		v.Components[c] = ComponentView{
			Name:           fgc.ComponentName(c),
			Present:        comp.Present,
			NumModelValues: comp.NumModelValues,
			NumIntervals:   len(comp.Intervals),
		}
	}
	for _, err := range []error{s.model.Validate(), s.model.CheckRanges(s.bitDepth)} {
		if err != nil {
			v.Warnings = append(v.Warnings, splitErrors(err)...)
		}
	}

	var buf bytes.Buffer
	if err := fgc.Summary(&buf, s.model); err == nil {
		v.Summary = buf.String()
	}
	return v
}

// splitErrors flattens an errors.Join result.
func splitErrors(err error) []string {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
