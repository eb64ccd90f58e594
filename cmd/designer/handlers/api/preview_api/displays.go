package preview_api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/common"
	"thirdcoast.systems/fgcdesigner/internal/display"
)

type displayEntry struct {
	Index int    `json:"index"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	W     int    `json:"w"`
	H     int    `json:"h"`
	Label string `json:"label"`
}

// HandleDisplays lists the attached displays. l may be nil when the binary
// was built without native display support.
func HandleDisplays(l display.Lister) echo.HandlerFunc {
	return func(c echo.Context) error {
		if l == nil {
			return common.ErrNotImplemented(display.ErrUnsupported.Error())
		}
		rects, err := l.ListDisplays()
		if err != nil {
			if errors.Is(err, display.ErrUnsupported) {
				return common.ErrNotImplemented(err.Error())
			}
			return common.ErrInternal(err.Error())
		}
		out := make([]displayEntry, 0, len(rects))
		for i, r := range rects {
			out = append(out, displayEntry{Index: i, X: r.X, Y: r.Y, W: r.W, H: r.H, Label: r.String()})
		}
		return c.JSON(http.StatusOK, out)
	}
}
