package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event,omitempty"`
}

// handleWS streams routed events to a single observer. Recent events are
// replayed first; a newer observer displaces this one.
func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	writeMsg := func(msg wsMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	tap := h.macro.Tap()
	outChan := make(chan []byte, 256)
	kick := tap.SetClient(outChan)
	defer tap.ClearClient(outChan)

	for _, rec := range tap.Recent() {
		if err := writeMsg(wsMessage{Type: "event", Event: rec}); err != nil {
			log.Printf("WS replay error: %v", err)
			return
		}
	}

	// Exits when ClearClient closes outChan.
	go func() {
		for data := range outChan {
			if err := writeMsg(wsMessage{Type: "event", Event: data}); err != nil {
				return
			}
		}
	}()

	connDone := make(chan struct{})
	go func() {
		select {
		case <-h.done:
			writeMsg(wsMessage{Type: "closed"}) //nolint:errcheck
			conn.Close()
		case <-kick:
			conn.Close()
		case <-connDone:
		}
	}()
	defer close(connDone)

	// Observers only listen; reading keeps control frames flowing and
	// notices the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
