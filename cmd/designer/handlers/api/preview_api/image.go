package preview_api

import (
	"bytes"
	"errors"
	"image"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/common"
	"thirdcoast.systems/fgcdesigner/internal/designer"
	"thirdcoast.systems/fgcdesigner/internal/preview"
	"thirdcoast.systems/fgcdesigner/pkg/grain"
	"thirdcoast.systems/fgcdesigner/pkg/yuv"
)

// MaxWidth bounds the ?w= scaling parameter.
const MaxWidth = 8192

// Preview is the part of *preview.Previewer the handlers use.
type Preview interface {
	State() preview.State
	Image() (image.Image, bool)
	Subscribe() (<-chan preview.State, func())
	SourceImage(index int) (image.Image, error)
	Spectrum() (grain.Spectrum, error)
}

func writeImage(c echo.Context, img image.Image, enc yuv.Encoding) error {
	w, err := common.QueryInt(c, "w", 0)
	if err != nil {
		return err
	}
	if w < 0 || w > MaxWidth {
		return common.ErrBadRequest("invalid w")
	}

	var buf bytes.Buffer
	if err := yuv.EncodeImage(&buf, yuv.Scale(img, w), enc); err != nil {
		return common.ErrInternal("failed to encode image")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, enc.ContentType(), buf.Bytes())
}

// HandleImage serves the latest rendered preview.
func HandleImage(p Preview, enc yuv.Encoding) echo.HandlerFunc {
	return func(c echo.Context) error {
		img, ok := p.Image()
		if !ok {
			st := p.State()
			msg := "no preview rendered yet"
			if st.Reason != "" {
				msg += ": " + st.Reason
			}
			return common.ErrNotFound(msg)
		}
		c.Response().Header().Set("X-Preview-Seq", strconv.FormatUint(p.State().Seq, 10))
		return writeImage(c, img, enc)
	}
}

// HandleSourceImage serves a clean source frame, by default the frame the
// session previews.
func HandleSourceImage(p Preview, s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		frame, _, _ := s.Settings()
		frame, err := common.QueryInt(c, "frame", frame)
		if err != nil {
			return err
		}
		if frame < 0 {
			return common.ErrBadRequest("invalid frame")
		}

		img, err := p.SourceImage(frame)
		if err != nil {
			var re *yuv.ReadError
			switch {
			case errors.Is(err, preview.ErrNoSource):
				return common.ErrUnavailable(err.Error())
			case errors.As(err, &re):
				return common.ErrNotFound(err.Error())
			default:
				return common.ErrInternal(err.Error())
			}
		}
		return writeImage(c, img, yuv.EncodingPNG)
	}
}

// HandleSpectrum returns the grain spectrum of the latest preview.
func HandleSpectrum(p Preview) echo.HandlerFunc {
	return func(c echo.Context) error {
		sp, err := p.Spectrum()
		if err != nil {
			if errors.Is(err, grain.ErrPlaneMismatch) {
				return common.ErrInternal(err.Error())
			}
			return common.ErrNotFound(err.Error())
		}
		return c.JSON(http.StatusOK, sp)
	}
}
