package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/api/editor_api"
	"thirdcoast.systems/fgcdesigner/internal/db"
	"thirdcoast.systems/fgcdesigner/internal/designer"
	"thirdcoast.systems/fgcdesigner/internal/display"
	"thirdcoast.systems/fgcdesigner/internal/presets"
	"thirdcoast.systems/fgcdesigner/internal/preview"
	"thirdcoast.systems/fgcdesigner/pkg/editor"
	"thirdcoast.systems/fgcdesigner/pkg/vfgs"
	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

var testLayout = yuv.Layout{Width: 8, Height: 4, BitDepth: 8, Format: yuv.Format420}

var unitAxes = editor.Axes{Left: 0, Top: 0, Width: 256, Height: 255}

var testStatic = fstest.MapFS{
	"dist/index.html": {Data: []byte("<!doctype html><title>designer</title>")},
	"dist/editor.js":  {Data: []byte("console.log('editor')")},
}

// stubSynth returns the clean frame with luma alternating by the gain.
type stubSynth struct{}

func (stubSynth) Synthesize(_ context.Context, _ []byte, p vfgs.Params) (*yuv.Frame, error) {
	fr := yuv.NewFrame(p.Layout)
	for i := range fr.Y.Samples {
		d := float64(p.Gain) / 10
		if i%2 == 1 {
			d = -d
		}
		fr.Y.Samples[i] = 100 + d
	}
	for i := range fr.U.Samples {
		fr.U.Samples[i] = 128
		fr.V.Samples[i] = 128
	}
	return fr, nil
}

func writeSource(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.yuv")
	var buf bytes.Buffer
	for range frames {
		fr := yuv.NewFrame(testLayout)
		for i := range fr.Y.Samples {
			fr.Y.Samples[i] = 100
		}
		for i := range fr.U.Samples {
			fr.U.Samples[i] = 128
			fr.V.Samples[i] = 128
		}
		require.NoError(t, yuv.WriteFrame(&buf, fr))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

type fakeLister struct {
	rects []display.Rect
	err   error
}

func (f fakeLister) ListDisplays() ([]display.Rect, error) { return f.rects, f.err }

type testEnv struct {
	srv     *Webserver
	session *designer.Session
	preview *preview.Previewer
}

func newEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	prev := preview.New(stubSynth{}, preview.Options{
		Source:  writeSource(t, 2),
		Layout:  testLayout,
		Timeout: time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = prev.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	session := designer.New(nil, prev, designer.Options{Axes: unitAxes, FrameCount: 2, BitDepth: 8})
	deps := Deps{Session: session, Preview: prev, Static: testStatic}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := NewWebserver(deps)
	require.NoError(t, err)
	return &testEnv{srv: srv, session: session, preview: prev}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) waitRendered(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.preview.State().Status == preview.StatusReady
	}, 2*time.Second, 5*time.Millisecond)
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) designer.View {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v designer.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewWebserver_RequiresDeps(t *testing.T) {
	_, err := NewWebserver(Deps{})
	require.Error(t, err)
}

func TestStaticFiles(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>designer</title>")

	rec = env.do(t, http.MethodGet, "/static/dist/editor.js", "")
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.Regexp(t, `^"[0-9a-f]{64}"$`, etag)

	req := httptest.NewRequest(http.MethodGet, "/static/dist/editor.js", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = env.do(t, http.MethodGet, "/static/dist/missing.js", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditorSettings(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		check  func(t *testing.T, v designer.View)
	}{
		{name: "component", path: "/api/component", body: `{"component":1}`, status: http.StatusOK,
			check: func(t *testing.T, v designer.View) { assert.Equal(t, 1, v.Component) }},
		{name: "component out of range", path: "/api/component", body: `{"component":5}`, status: http.StatusBadRequest},
		{name: "frame", path: "/api/frame", body: `{"frame":1}`, status: http.StatusOK,
			check: func(t *testing.T, v designer.View) { assert.Equal(t, 1, v.Frame) }},
		{name: "frame past end", path: "/api/frame", body: `{"frame":2}`, status: http.StatusBadRequest},
		{name: "gain", path: "/api/gain", body: `{"gain":60}`, status: http.StatusOK,
			check: func(t *testing.T, v designer.View) { assert.Equal(t, 60, v.Gain) }},
		{name: "negative gain", path: "/api/gain", body: `{"gain":-1}`, status: http.StatusBadRequest},
		{name: "seed", path: "/api/seed", body: `{"seed":42}`, status: http.StatusOK,
			check: func(t *testing.T, v designer.View) { assert.Equal(t, uint32(42), v.Seed) }},
		{name: "split", path: "/api/split", body: `{"interval":0,"at":20}`, status: http.StatusOK,
			check: func(t *testing.T, v designer.View) { assert.Equal(t, 9, v.Components[0].NumIntervals) }},
		{name: "split outside interval", path: "/api/split", body: `{"interval":0,"at":200}`, status: http.StatusBadRequest},
		{name: "disable", path: "/api/enable", body: `{"interval":1,"enabled":false}`, status: http.StatusOK,
			check: func(t *testing.T, v designer.View) { assert.False(t, v.Segments[1].Enabled) }},
		{name: "enable unknown interval", path: "/api/enable", body: `{"interval":99,"enabled":true}`, status: http.StatusBadRequest},
		{name: "reset", path: "/api/reset", body: `{}`, status: http.StatusOK,
			check: func(t *testing.T, v designer.View) { assert.Equal(t, 8, v.Components[0].NumIntervals) }},
		{name: "malformed body", path: "/api/gain", body: `{"gain":`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, nil)
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decodeView(t, rec))
			}
		})
	}
}

func TestConfigEndpoints(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/config", "SEIFGCLog2ScaleFactor : 6\n")
	v := decodeView(t, rec)
	assert.Equal(t, 6, v.Log2ScaleFactor)

	rec = env.do(t, http.MethodGet, "/api/config?download=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SEIFGCLog2ScaleFactor                  : 6\n")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fgc.cfg")

	rec = env.do(t, http.MethodPost, "/api/config", "SEIFGCModelID : zero\n")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SEIFGCModelID")

	// failed load leaves the model alone
	assert.Equal(t, 6, env.session.Model().Log2ScaleFactor)

	env.do(t, http.MethodPost, "/api/enable", `{"interval":0,"enabled":false}`)
	saved := env.do(t, http.MethodGet, "/api/config", "").Body.String()
	masked := env.do(t, http.MethodGet, "/api/config/preview", "").Body.String()
	assert.Contains(t, saved, "FGCDesignerIntervalEnabledComp0")
	assert.NotContains(t, masked, "FGCDesignerIntervalEnabledComp0")
}

func TestPreviewImages(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/preview.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.session.Refresh()
	env.waitRendered(t)

	rec = env.do(t, http.MethodGet, "/api/preview.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	rec = env.do(t, http.MethodGet, "/api/preview.png?w=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err = png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	rec = env.do(t, http.MethodGet, "/api/preview.webp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", rec.Body.String()[:4])

	rec = env.do(t, http.MethodGet, "/api/preview.png?w=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/preview/spectrum", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sp))
	assert.InDelta(t, 10, sp["rms"], 1e-9)
}

func TestSourceImage(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/source.png?frame=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := png.Decode(rec.Body)
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/source.png?frame=5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/source.png?frame=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	noSource := newEnv(t, func(d *Deps) {
		d.Preview = preview.New(stubSynth{}, preview.Options{Layout: testLayout})
	})
	rec = noSource.do(t, http.MethodGet, "/api/source.png", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDisplays(t *testing.T) {
	env := newEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/displays", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	env = newEnv(t, func(d *Deps) {
		d.Displays = fakeLister{rects: []display.Rect{{W: 1920, H: 1080}, {X: 1920, W: 2560, H: 1440}}}
	})
	rec = env.do(t, http.MethodGet, "/api/displays", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "2560x1440+1920+0", out[1]["label"])

	env = newEnv(t, func(d *Deps) { d.Displays = fakeLister{err: display.ErrUnsupported} })
	rec = env.do(t, http.MethodGet, "/api/displays", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// presetRows is an in-memory presets.Querier.
type presetRows struct {
	mu   sync.Mutex
	rows map[[16]byte]*db.Preset
}

func (p *presetRows) UpsertPreset(_ context.Context, arg *db.UpsertPresetParams) (*db.Preset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row := &db.Preset{ID: arg.ID, Name: arg.Name, Notes: arg.Notes, Config: arg.Config, Meta: arg.Meta,
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true}}
	p.rows[arg.ID.Bytes] = row
	cp := *row
	return &cp, nil
}

func (p *presetRows) GetPreset(_ context.Context, id pgtype.UUID) (*db.Preset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[id.Bytes]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *row
	return &cp, nil
}

func (p *presetRows) ListPresets(_ context.Context, _ int32) ([]*db.Preset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*db.Preset
	for _, row := range p.rows {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (p *presetRows) DeletePreset(_ context.Context, id pgtype.UUID) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rows[id.Bytes]; !ok {
		return 0, nil
	}
	delete(p.rows, id.Bytes)
	return 1, nil
}

func TestPresets_NoDatabase(t *testing.T) {
	env := newEnv(t, nil)
	for _, r := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/presets", ""},
		{http.MethodPost, "/api/presets", `{"name":"a"}`},
		{http.MethodGet, "/api/presets/0b5c1d5e-3f43-4b8e-9d0e-6c1f2c1b9a11", ""},
		{http.MethodPost, "/api/presets/0b5c1d5e-3f43-4b8e-9d0e-6c1f2c1b9a11/apply", ""},
		{http.MethodGet, "/api/presets/0b5c1d5e-3f43-4b8e-9d0e-6c1f2c1b9a11/config", ""},
	} {
		rec := env.do(t, r.method, r.path, r.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, r.path)
	}
}

func TestPresets_Lifecycle(t *testing.T) {
	rows := &presetRows{rows: map[[16]byte]*db.Preset{}}
	env := newEnv(t, func(d *Deps) {
		d.Presets = presets.NewStore(rows, nil)
		d.Source = "clip.yuv"
	})

	env.do(t, http.MethodPost, "/api/gain", `{"gain":70}`)
	env.do(t, http.MethodPost, "/api/seed", `{"seed":11}`)

	rec := env.do(t, http.MethodPost, "/api/presets", `{"name":"soft","notes":"**fine** grain"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved presets.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, 70, saved.Meta.Gain)
	assert.Equal(t, uint32(11), saved.Meta.Seed)
	assert.Equal(t, "clip.yuv", saved.Meta.Source)
	assert.Contains(t, string(saved.Notes.HTML()), "<strong>fine</strong>")

	rec = env.do(t, http.MethodGet, "/api/presets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"soft"`)

	env.do(t, http.MethodPost, "/api/reset", `{}`)
	env.do(t, http.MethodPost, "/api/gain", `{"gain":100}`)

	rec = env.do(t, http.MethodPost, "/api/presets/"+saved.ID.String()+"/apply", "")
	v := decodeView(t, rec)
	assert.Equal(t, 70, v.Gain)
	assert.Equal(t, uint32(11), v.Seed)

	rec = env.do(t, http.MethodGet, "/api/presets/"+saved.ID.String()+"/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="soft.cfg"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, saved.Config, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/presets", `{"name":"bad","config":"SEIFGCModelID : zero"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/presets/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/presets/"+saved.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/presets/"+saved.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditorSocket_Drag(t *testing.T) {
	env := newEnv(t, nil)
	ts := httptest.NewServer(env.srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/editor", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	read := func() editor_api.StateMessage {
		var msg editor_api.StateMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	send := func(msg editor_api.PointerMessage) {
		require.NoError(t, conn.WriteJSON(msg))
	}

	initial := read()
	assert.Equal(t, "state", initial.Type)
	assert.Equal(t, 8, initial.State.Components[0].NumIntervals)

	send(editor_api.PointerMessage{Type: "axes", Axes: &unitAxes})
	assert.Equal(t, unitAxes, read().State.Axes)

	send(editor_api.PointerMessage{Type: "down", Event: editor.Event{X: 20, Y: 255 - 100}})
	assert.Equal(t, []int{0}, read().State.Gesture.Gain)

	send(editor_api.PointerMessage{Type: "move", Event: editor.Event{X: 20, Y: 255 - 150}})
	assert.Equal(t, 150, read().State.Segments[0].Gain)

	send(editor_api.PointerMessage{Type: "up", Event: editor.Event{X: 20, Y: 255 - 150}})
	up := read()
	assert.Equal(t, editor.OutcomeCommitted, up.Outcome)
	assert.False(t, up.State.Gesture.Active)

	assert.Equal(t, 150, env.session.Model().Comps[0].Intervals[0].Gain())
}
