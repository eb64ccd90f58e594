package preset_api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/common"
	"thirdcoast.systems/fgcdesigner/internal/db"
	"thirdcoast.systems/fgcdesigner/internal/designer"
	"thirdcoast.systems/fgcdesigner/internal/presets"
)

const noDatabase = "presets need a database (set DATABASE_DSN)"

func storeErr(err error) error {
	switch {
	case errors.Is(err, presets.ErrNotFound):
		return common.ErrNotFound(err.Error())
	case errors.Is(err, presets.ErrInvalid):
		return common.ErrBadRequest(err.Error())
	case errors.Is(err, presets.ErrDuplicateName):
		return common.ErrConflict(err.Error())
	default:
		slog.Error("preset store failed", "error", err)
		return common.ErrInternal("preset storage failed")
	}
}

// HandleList returns the most recently updated presets.
func HandleList(store *presets.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return common.ErrUnavailable(noDatabase)
		}
		limit, err := common.QueryInt(c, "limit", presets.DefaultListLimit)
		if err != nil {
			return err
		}
		list, err := store.List(c.Request().Context(), limit)
		if err != nil {
			return storeErr(err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

type saveRequest struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Notes  string    `json:"notes"`
	Config string    `json:"config"`
}

// HandleSave stores the session's current configuration under a name. A
// config in the body is stored instead when given.
func HandleSave(store *presets.Store, s *designer.Session, source string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return common.ErrUnavailable(noDatabase)
		}
		var req saveRequest
		if err := common.BindJSON(c, &req); err != nil {
			return err
		}

		frame, gain, seed := s.Settings()
		in := presets.Input{
			ID:     req.ID,
			Name:   req.Name,
			Notes:  req.Notes,
			Config: req.Config,
			Meta: db.PresetMeta{
				Frame:  frame,
				Gain:   gain,
				Seed:   seed,
				Source: source,
			},
		}
		if strings.TrimSpace(in.Config) == "" {
			var buf bytes.Buffer
			if err := s.SaveConfig(&buf); err != nil {
				return common.ErrInternal("failed to serialize config")
			}
			in.Config = buf.String()
		}

		p, err := store.Save(c.Request().Context(), in)
		if err != nil {
			return storeErr(err)
		}
		return c.JSON(http.StatusCreated, p)
	}
}

func HandleGet(store *presets.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return common.ErrUnavailable(noDatabase)
		}
		id, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		p, err := store.Get(c.Request().Context(), id)
		if err != nil {
			return storeErr(err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

// HandleDownload returns the stored config as a file attachment.
func HandleDownload(store *presets.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return common.ErrUnavailable(noDatabase)
		}
		id, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		p, err := store.Get(c.Request().Context(), id)
		if err != nil {
			return storeErr(err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", p.FileName()))
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(p.Config))
	}
}

func HandleDelete(store *presets.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return common.ErrUnavailable(noDatabase)
		}
		id, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		if err := store.Delete(c.Request().Context(), id); err != nil {
			return storeErr(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// HandleApply loads a preset into the session, restoring its gain and seed
// and, when still in range, its frame.
func HandleApply(store *presets.Store, s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		if store == nil {
			return common.ErrUnavailable(noDatabase)
		}
		id, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		p, err := store.Get(c.Request().Context(), id)
		if err != nil {
			return storeErr(err)
		}

		if err := s.LoadConfig(strings.NewReader(p.Config)); err != nil {
			return common.ErrInternal("stored preset no longer parses: " + err.Error())
		}
		if p.Meta.Gain > 0 {
			_ = s.SetGain(p.Meta.Gain)
		}
		s.SetSeed(p.Meta.Seed)
		if err := s.SetFrame(p.Meta.Frame); err != nil {
			slog.Debug("preset frame not applied", "preset", p.ID, "error", err)
		}
		slog.Info("preset applied", "preset", p.ID, "name", p.Name)
		return c.JSON(http.StatusOK, s.View())
	}
}
