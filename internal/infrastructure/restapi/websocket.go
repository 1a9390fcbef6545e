package restapi

import (
	"context"
	"net/http"
	"time"

	"crosschain_portfolio/internal/app/port"
	"crosschain_portfolio/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PortfolioStreamHandler upgrades to a websocket and pushes the screen after every
// session event, starting with the current one.
func (h *PortfolioHandler) PortfolioStreamHandler(c *gin.Context) {
	session := sessionFrom(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := session.Subscribe()
	defer session.Unsubscribe(events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The reader only handles control frames and notices the client going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.pushScreen(ctx, conn, session); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || ev.Kind == entity.EventClosed {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := h.pushScreen(ctx, conn, session); err != nil {
				h.logger.Debug("WebSocket write failed", "session", session.ID(), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *PortfolioHandler) pushScreen(ctx context.Context, conn *websocket.Conn, session port.PortfolioSession) error {
	screen, err := h.presenter.Screen(ctx, h.landingPath, session, false)
	resp := APIScreenResponse{Data: screen}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(resp)
}
