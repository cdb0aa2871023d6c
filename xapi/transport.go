package xapi

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport carries whole JSON-RPC messages to and from the codec.
type Transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// WebSocketConfig describes how to reach the codec's /ws endpoint.
type WebSocketConfig struct {
	Host     string
	Username string
	Password string
	Insecure bool   // accept self-signed certificates
	Scheme   string // "wss" unless overridden
}

// URL returns the endpoint dialed by DialWebSocket.
func (c WebSocketConfig) URL() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: c.Host, Path: "/ws"}
	return u.String()
}

type wsTransport struct {
	conn *websocket.Conn
	// gorilla/websocket forbids concurrent writers.
	writeMu sync.Mutex
}

// DialWebSocket opens a JSON-RPC WebSocket session using HTTP basic auth.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig) (Transport, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: cfg.Insecure}, //nolint:gosec
	}
	header := http.Header{}
	if cfg.Username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		header.Set("Authorization", "Basic "+creds)
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.URL(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("xapi: dial %s: %w (status %d)", cfg.URL(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("xapi: dial %s: %w", cfg.URL(), err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
