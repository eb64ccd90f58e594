package editor_api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/common"
	"thirdcoast.systems/fgcdesigner/internal/designer"
	"thirdcoast.systems/fgcdesigner/pkg/fgc"
)

const configFileName = "fgc.cfg"

// HandleGetConfig returns the saved form of the configuration, disabled
// intervals included. ?download=1 serves it as an attachment.
func HandleGetConfig(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var buf bytes.Buffer
		if err := s.SaveConfig(&buf); err != nil {
			return common.ErrInternal("failed to serialize config")
		}
		if c.QueryParam("download") == "1" {
			c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+configFileName+`"`)
		}
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
	}
}

// HandlePreviewConfig returns the configuration passed to the synthesizer.
func HandlePreviewConfig(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, s.PreviewConfig())
	}
}

// HandleLoadConfig replaces the model with the config text in the request
// body. A parse error leaves the model untouched and is reported as 400.
func HandleLoadConfig(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := s.LoadConfig(c.Request().Body)
		if err != nil {
			var pe *fgc.ParseError
			if errors.As(err, &pe) {
				return common.ErrBadRequest(pe.Error())
			}
			return common.ErrBadRequest("failed to read config: " + err.Error())
		}
		return c.JSON(http.StatusOK, s.View())
	}
}
