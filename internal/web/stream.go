package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jaminalder/hyperxo/internal/app"
)

var heartbeatInterval = 15 * time.Second

// events streams state snapshots as server-sent events named "state".
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		h.writeError(w, app.ErrNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// Non-EventSource requests only get the headers.
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer unsub()
	// Snapshot after subscribing so no update falls between the two.
	snap, ok := h.svc.Get(id)
	if !ok {
		return
	}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	writeEvent(w, renderState(*snap))
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, b)
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: state\n")
	_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
}

type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ws streams state snapshots over a WebSocket. Incoming text frames of type
// "request_state" trigger an immediate snapshot.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		h.writeError(w, app.ErrNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("game", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	updates, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		return
	}
	defer unsub()
	snap, ok := h.svc.Get(id)
	if !ok {
		return
	}

	send := make(chan []byte, 8)
	send <- stateMessage(renderState(*snap))
	requests := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "request_state" {
				select {
				case requests <- struct{}{}:
				default:
				}
			}
		}
	}()

	writeErr := make(chan error, 1)
	go func() { writeErr <- writeWSWithHeartbeat(conn, send) }()
	defer close(send)

	for {
		select {
		case <-done:
			return
		case err := <-writeErr:
			if err != nil {
				h.log.Debug().Err(err).Str("game", id).Msg("websocket write failed")
			}
			return
		case b, ok := <-updates:
			if !ok {
				return
			}
			enqueue(send, stateMessage(b))
		case <-requests:
			if cur, ok := h.svc.Get(id); ok {
				enqueue(send, stateMessage(renderState(*cur)))
			}
		}
	}
}

func stateMessage(state []byte) []byte {
	return mustMarshal(wsMessage{Type: "state", Payload: json.RawMessage(state)})
}

func enqueue(send chan<- []byte, msg []byte) {
	select {
	case send <- msg:
	default:
	}
}

const wsIdlePingInterval = 30 * time.Second

// writeWSWithHeartbeat drains send onto conn, writing a ping message when
// the connection has been idle for wsIdlePingInterval.
func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
