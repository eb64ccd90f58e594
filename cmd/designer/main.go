package main

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"thirdcoast.systems/fgcdesigner/cmd/designer/internal/web"
	"thirdcoast.systems/fgcdesigner/internal/application"
	"thirdcoast.systems/fgcdesigner/internal/config"
	"thirdcoast.systems/fgcdesigner/internal/db"
	"thirdcoast.systems/fgcdesigner/internal/designer"
	"thirdcoast.systems/fgcdesigner/internal/display"
	"thirdcoast.systems/fgcdesigner/internal/presets"
	"thirdcoast.systems/fgcdesigner/internal/preview"
	"thirdcoast.systems/fgcdesigner/pkg/fgc"
	"thirdcoast.systems/fgcdesigner/pkg/vfgs"
	"thirdcoast.systems/fgcdesigner/static"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger, err := application.SetupLogger(conf.LogFormat, conf.LogLevel)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}

	slog.Info("starting film grain designer")

	model := fgc.New()
	if conf.InitialConfig != "" {
		model, err = fgc.LoadFile(conf.InitialConfig, model)
		if err != nil {
			slog.Error("failed to load initial config", "path", conf.InitialConfig, "error", err)
			os.Exit(1)
		}
		slog.Info("initial config loaded", "path", conf.InitialConfig)
	}

	layout := conf.Layout()
	synth := &vfgs.Synthesizer{Binary: conf.SynthBinary, WorkDir: conf.WorkDir, Logger: logger}
	previewer := preview.New(synth, preview.Options{
		Source:   conf.SourcePath,
		Layout:   layout,
		Debounce: conf.PreviewDebounce(),
		Timeout:  conf.PreviewTimeout(),
		Logger:   logger,
	})

	frameCount := 0
	if previewer.Available() {
		frameCount, err = previewer.FrameCount()
		if err != nil {
			slog.Error("failed to read source video", "path", conf.SourcePath, "error", err)
			os.Exit(1)
		}
		slog.Info("source video",
			"path", conf.SourcePath,
			"layout", layout.Format.String(),
			"frames", frameCount,
			"frame_size", humanize.Bytes(uint64(layout.FrameBytes())),
		)
	} else {
		slog.Warn("preview disabled", "reason", previewer.State().Reason)
	}

	session := designer.New(model, previewer, designer.Options{
		Frame:      min(conf.FrameIndex, max(frameCount-1, 0)),
		FrameCount: frameCount,
		Seed:       conf.GrainSeed,
		BitDepth:   conf.SourceBitDepth,
		Logger:     logger,
	})

	var store *presets.Store
	if conf.DatabaseDSN != "" {
		dbc, err := openPresets(ctx, *conf)
		if err != nil {
			slog.Error("failed to open preset database", "error", err)
			os.Exit(1)
		}
		defer dbc.Close()
		store = presets.NewStore(dbc.Queries(ctx), logger)
	} else {
		slog.Info("presets disabled (no DATABASE_DSN)")
	}

	deps := web.Deps{
		Session: session,
		Preview: previewer,
		Presets: store,
		Static:  static.FS,
		Source:  conf.SourcePath,
	}
	if svc, err := display.Native(); err == nil {
		deps.Displays = svc
	} else {
		slog.Info("display listing unavailable", "reason", err)
	}

	server, err := web.NewWebserver(deps)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := previewer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("previewer stopped", "error", err)
		}
	}()
	session.Refresh()

	addr := ":" + strconv.Itoa(conf.WebServerPort)
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if conf.PreviewWindow {
		// SDL wants the main thread.
		if err := display.RunViewer(ctx, "Film Grain Preview", previewImages(ctx, previewer)); err != nil {
			slog.Warn("preview window unavailable", "error", err)
		}
	}

	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok && err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func openPresets(ctx context.Context, conf config.Config) (*db.DatabaseConnection, error) {
	pool, err := application.OpenDBPoolWithRetry(ctx, conf)
	if err != nil {
		return nil, err
	}
	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := dbc.Migrate(ctx); err != nil {
		dbc.Close()
		return nil, err
	}
	return dbc, nil
}

// previewImages forwards every newly rendered preview to the native window.
func previewImages(ctx context.Context, p *preview.Previewer) <-chan image.Image {
	out := make(chan image.Image, 1)
	updates, unsubscribe := p.Subscribe()
	go func() {
		defer unsubscribe()
		defer close(out)
		var last uint64
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-updates:
				if !ok {
					return
				}
				if st.Status != preview.StatusReady || st.Seq == last {
					continue
				}
				last = st.Seq
				img, ok := p.Image()
				if !ok {
					continue
				}
				select {
				case out <- img:
				default:
					// viewer busy; the next state brings a newer frame
				}
			}
		}
	}()
	return out
}
