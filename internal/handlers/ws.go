// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"

	"github.com/averyhall/warcouncil/internal/events"
)

// wsWritePump drains out onto the socket until the context ends or the
// channel closes. Slow readers surface as write timeouts, not publisher
// stalls: the bus handler already dropped into a buffered channel.
func (s *Server) wsWritePump(ctx context.Context, c *websocket.Conn, out <-chan events.Event) {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-out:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Warnf("marshal outbound event: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// wsSendError pushes a one-off error message to this client only.
func (s *Server) wsSendError(ctx context.Context, c *websocket.Conn, msg string) {
	data, _ := json.Marshal(map[string]string{"type": "error", "message": msg})
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	c.Write(writeCtx, websocket.MessageText, data)
}
