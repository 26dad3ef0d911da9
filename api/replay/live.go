package replay

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	corereplay "github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/infra/logger"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// NewLiveHandler streams every frame published on frames to websocket
// clients of GET /api/replay/live. A client that falls behind loses frames
// rather than slowing the simulator down.
func NewLiveHandler(frames *eventbus.TypedBus[corereplay.Frame], token string) http.Handler {
	log := logger.New("replay_live")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("upgrade: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		sub := frames.Subscribe()
		defer frames.Unsubscribe(sub)

		// the read loop only serves control frames and detects the close
		closed := make(chan struct{})
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case f, ok := <-sub:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"), time.Now().Add(writeWait))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(f); err != nil {
					log.Debugf("live client gone: %v", err)
					return
				}
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	})
}
