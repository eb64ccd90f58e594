package web

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/api/editor_api"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/api/preset_api"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/api/preview_api"
	"thirdcoast.systems/fgcdesigner/internal/designer"
	"thirdcoast.systems/fgcdesigner/internal/display"
	"thirdcoast.systems/fgcdesigner/internal/presets"
	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

// Deps are the collaborators of the web service. Displays and Presets are
// optional.
type Deps struct {
	Session  *designer.Session
	Preview  preview_api.Preview
	Displays display.Lister
	Presets  *presets.Store
	Static   fs.FS
	// Source is recorded in saved presets.
	Source string
}

type Webserver struct {
	*echo.Echo
	deps        Deps
	staticCache *StaticCache
}

func NewWebserver(deps Deps) (*Webserver, error) {
	if deps.Session == nil || deps.Preview == nil {
		return nil, errors.New("web: session and preview are required")
	}
	if deps.Static == nil {
		return nil, errors.New("web: static filesystem is required")
	}

	staticCache, err := NewStaticCache(deps.Static)
	if err != nil {
		return nil, err
	}

	webserver := &Webserver{
		Echo:        echo.New(),
		deps:        deps,
		staticCache: staticCache,
	}

	if err = webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	if err = webserver.registerRoutes(); err != nil {
		return nil, err
	}

	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// websocket hijacks the connection; images are already compressed
			switch c.Path() {
			case "/ws/editor", "/api/preview.png", "/api/preview.webp", "/api/source.png":
				return true
			}
			return false
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/api/preview/stream", "/ws/editor":
				return true
			default:
				return false
			}
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))
	return nil
}

func (s *Webserver) registerRoutes() error {
	d := s.deps

	s.GET("/", func(c echo.Context) error {
		return s.staticCache.ServeFile(c, "dist/index.html")
	})
	s.GET("/static/*", s.staticCache.ServeStaticFile())

	// Editor
	s.GET("/api/state", editor_api.HandleState(d.Session))
	s.POST("/api/component", editor_api.HandleComponent(d.Session))
	s.POST("/api/frame", editor_api.HandleFrame(d.Session))
	s.POST("/api/gain", editor_api.HandleGain(d.Session))
	s.POST("/api/seed", editor_api.HandleSeed(d.Session))
	s.POST("/api/reset", editor_api.HandleReset(d.Session))
	s.POST("/api/split", editor_api.HandleSplit(d.Session))
	s.POST("/api/enable", editor_api.HandleEnable(d.Session))
	s.GET("/api/config", editor_api.HandleGetConfig(d.Session))
	s.GET("/api/config/preview", editor_api.HandlePreviewConfig(d.Session))
	s.POST("/api/config", editor_api.HandleLoadConfig(d.Session))
	s.GET("/ws/editor", editor_api.HandleEditorSocket(d.Session))

	// Preview
	s.GET("/api/preview.png", preview_api.HandleImage(d.Preview, yuv.EncodingPNG))
	s.GET("/api/preview.webp", preview_api.HandleImage(d.Preview, yuv.EncodingWebP))
	s.GET("/api/source.png", preview_api.HandleSourceImage(d.Preview, d.Session))
	s.GET("/api/preview/stream", preview_api.HandleStream(d.Preview))
	s.GET("/api/preview/spectrum", preview_api.HandleSpectrum(d.Preview))
	s.GET("/api/displays", preview_api.HandleDisplays(d.Displays))

	// Presets
	s.GET("/api/presets", preset_api.HandleList(d.Presets))
	s.POST("/api/presets", preset_api.HandleSave(d.Presets, d.Session, d.Source))
	s.GET("/api/presets/:id", preset_api.HandleGet(d.Presets))
	s.GET("/api/presets/:id/config", preset_api.HandleDownload(d.Presets))
	s.DELETE("/api/presets/:id", preset_api.HandleDelete(d.Presets))
	s.POST("/api/presets/:id/apply", preset_api.HandleApply(d.Presets, d.Session))

	return nil
}
