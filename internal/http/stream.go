package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const streamWriteWait = 10 * time.Second

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
	// Projection screens load the console from arbitrary local origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Stream upgrades to a WebSocket and pushes the current state followed by
// one message per store change until either side goes away.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.log(ctx, "Stream")

	// The upgrader writes its own response, so the request id is carried over.
	header := http.Header{}
	if id := w.Header().Get(RequestIDHeader); id != "" {
		header.Set(RequestIDHeader, id)
	}
	conn, err := streamUpgrader.Upgrade(w, r, header)
	if err != nil {
		logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.state.Subscribe()
	defer cancel()
	logger.InfoContext(ctx, "stream opened")
	defer logger.InfoContext(ctx, "stream closed")

	// The peer never sends data; reading only surfaces close frames.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeSnapshot(conn, toStateDTO(h.state.Snapshot())); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "view closed"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := writeSnapshot(conn, toStateDTO(snap)); err != nil {
				logger.DebugContext(ctx, "stream write failed", "error", err)
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, dto stateDTO) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(dto)
}
