package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const eventWriteTimeout = 10 * time.Second

// upgrader accepts any origin: the server binds to loopback and has no
// cross-origin story.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents streams pipeline events over a websocket. A client may pass
// ?since=<seq> to replay the buffered events it missed before going live.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	since := int64(0)
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		since = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Subscribe before replaying so no event can fall between the two.
	live, cancel := s.deps.Bus.Subscribe()
	defer cancel()

	lastSeq := since
	for _, event := range s.deps.Bus.Since(since) {
		if err := writeEvent(conn, event); err != nil {
			return
		}
		lastSeq = event.Seq
	}

	// The read loop only exists to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case event, ok := <-live:
			if !ok {
				return
			}
			// Replay may already have covered this event.
			if event.Seq <= lastSeq {
				continue
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
			lastSeq = event.Seq
		}
	}
}

func writeEvent(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	return conn.WriteJSON(v)
}
