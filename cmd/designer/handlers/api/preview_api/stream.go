package preview_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"
	"thirdcoast.systems/fgcdesigner/cmd/designer/handlers/common"
	"thirdcoast.systems/fgcdesigner/internal/preview"
)

// streamKeepAlive is how often the current state is re-sent so proxies
// keep the stream open. Subscribers may miss states when their buffer is
// full, so the keepalive reads the previewer instead of the last update.
var streamKeepAlive = 25 * time.Second

type previewSignal struct {
	Seq       uint64  `json:"seq"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason"`
	Frame     int     `json:"frame"`
	HasImage  bool    `json:"hasImage"`
	ElapsedMs float64 `json:"elapsedMs"`
	URL       string  `json:"url"`
}

func signalsFor(st preview.State) ([]byte, error) {
	sig := previewSignal{
		Seq:       st.Seq,
		Status:    string(st.Status),
		Reason:    st.Reason,
		Frame:     st.Frame,
		HasImage:  st.HasImage,
		ElapsedMs: float64(st.Elapsed.Microseconds()) / 1000,
	}
	if st.HasImage {
		// seq busts the browser cache whenever a new frame is rendered
		sig.URL = fmt.Sprintf("/api/preview.webp?seq=%d", st.Seq)
	}
	return json.Marshal(map[string]any{"preview": sig})
}

// HandleStream patches the $preview signals on every preview state change.
func HandleStream(p Preview) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := c.Response().Writer.(http.Flusher); !ok {
			return common.ErrInternal("streaming unsupported")
		}

		updates, unsubscribe := p.Subscribe()
		defer unsubscribe()

		common.SetSSEHeaders(c)
		sse := datastar.NewSSE(c.Response(), c.Request())

		send := func(st preview.State) error {
			data, err := signalsFor(st)
			if err != nil {
				return err
			}
			return sse.PatchSignals(data)
		}

		last := p.State()
		if err := send(last); err != nil {
			return nil
		}

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case st, ok := <-updates:
				if !ok {
					// hub full or closed
					return nil
				}
				last = st
			case <-keepAlive.C:
				last = p.State()
			}
			if sse.IsClosed() {
				return nil
			}
			if err := send(last); err != nil {
				return nil
			}
		}
	}
}
