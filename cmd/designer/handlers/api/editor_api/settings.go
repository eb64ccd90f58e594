package editor_api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/common"
	"thirdcoast.systems/fgcdesigner/internal/designer"
)

// HandleState returns the current plot and model view.
func HandleState(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.View())
	}
}

// sessionErr maps session validation errors to 400 responses.
func sessionErr(err error) error {
	switch {
	case errors.Is(err, designer.ErrComponent),
		errors.Is(err, designer.ErrInterval),
		errors.Is(err, designer.ErrFrame),
		errors.Is(err, designer.ErrGain),
		errors.Is(err, designer.ErrNoChange):
		return common.ErrBadRequest(err.Error())
	default:
		return common.ErrInternal(err.Error())
	}
}

type componentRequest struct {
	Component int `json:"component"`
}

func HandleComponent(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req componentRequest
		if err := common.BindJSON(c, &req); err != nil {
			return err
		}
		if err := s.SetComponent(req.Component); err != nil {
			return sessionErr(err)
		}
		return c.JSON(http.StatusOK, s.View())
	}
}

type frameRequest struct {
	Frame int `json:"frame"`
}

func HandleFrame(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req frameRequest
		if err := common.BindJSON(c, &req); err != nil {
			return err
		}
		if err := s.SetFrame(req.Frame); err != nil {
			return sessionErr(err)
		}
		return c.JSON(http.StatusOK, s.View())
	}
}

type gainRequest struct {
	Gain int `json:"gain"`
}

func HandleGain(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req gainRequest
		if err := common.BindJSON(c, &req); err != nil {
			return err
		}
		if err := s.SetGain(req.Gain); err != nil {
			return sessionErr(err)
		}
		return c.JSON(http.StatusOK, s.View())
	}
}

type seedRequest struct {
	Seed uint32 `json:"seed"`
}

func HandleSeed(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req seedRequest
		if err := common.BindJSON(c, &req); err != nil {
			return err
		}
		s.SetSeed(req.Seed)
		return c.JSON(http.StatusOK, s.View())
	}
}

func HandleReset(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.Reset()
		return c.JSON(http.StatusOK, s.View())
	}
}

type splitRequest struct {
	Interval int `json:"interval"`
	At       int `json:"at"`
}

// HandleSplit splits an interval of the active component.
func HandleSplit(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req splitRequest
		if err := common.BindJSON(c, &req); err != nil {
			return err
		}
		if err := s.Split(req.Interval, req.At); err != nil {
			return sessionErr(err)
		}
		return c.JSON(http.StatusOK, s.View())
	}
}

type enableRequest struct {
	Interval int  `json:"interval"`
	Enabled  bool `json:"enabled"`
}

// HandleEnable enables or disables an interval of the active component.
func HandleEnable(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req enableRequest
		if err := common.BindJSON(c, &req); err != nil {
			return err
		}
		if err := s.SetEnabled(req.Interval, req.Enabled); err != nil {
			return sessionErr(err)
		}
		return c.JSON(http.StatusOK, s.View())
	}
}
