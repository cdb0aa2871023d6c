// Package xapi is a JSON-RPC 2.0 client for the codec's remote control API.
// Commands map to "xCommand/<Path>" methods, configuration writes to "xSet",
// status reads to "xGet" and event subscriptions to "xFeedback/Subscribe".
package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned for calls made after the transport has gone away.
var ErrClosed = errors.New("xapi: connection closed")

// RPCError is a JSON-RPC error object returned by the codec.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("xapi: rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type feedback struct {
	path []string
	fn   func(json.RawMessage)
}

// Client multiplexes calls and feedback notifications over one Transport.
type Client struct {
	t      Transport
	logger *log.Logger

	mu       sync.Mutex
	pending  map[string]chan *message
	feedback map[int]feedback
	closed   bool
	err      error
	done     chan struct{}
}

// NewClient starts reading from t. The client owns t from here on.
func NewClient(t Transport, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		t:        t,
		logger:   logger,
		pending:  make(map[string]chan *message),
		feedback: make(map[int]feedback),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Done is closed once the transport fails or Close is called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err reports why the client stopped, or nil while it is running.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the transport down and fails every in-flight call.
func (c *Client) Close() error {
	err := c.t.Close()
	c.shutdown(ErrClosed)
	return err
}

// Call sends method with params and decodes the result into result (if non-nil).
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	id := uuid.New().String()
	ch := make(chan *message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	data, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		c.forget(id)
		return fmt.Errorf("xapi: encode %s: %w", method, err)
	}
	if err := c.t.WriteMessage(data); err != nil {
		c.forget(id)
		return fmt.Errorf("xapi: send %s: %w", method, err)
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return msg.Error
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return fmt.Errorf("xapi: decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// Subscribe registers fn for feedback on path. fn runs on the read goroutine
// and must not block.
func (c *Client) Subscribe(ctx context.Context, path []string, fn func(json.RawMessage)) (int, error) {
	var res struct {
		ID Int `json:"Id"`
	}
	params := map[string]any{"Query": path, "NotifyCurrentValue": false}
	if err := c.Call(ctx, "xFeedback/Subscribe", params, &res); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.feedback[int(res.ID)] = feedback{path: append([]string(nil), path...), fn: fn}
	c.mu.Unlock()
	return int(res.ID), nil
}

// Unsubscribe drops a feedback registration made by Subscribe.
func (c *Client) Unsubscribe(ctx context.Context, id int) error {
	c.mu.Lock()
	delete(c.feedback, id)
	c.mu.Unlock()
	return c.Call(ctx, "xFeedback/Unsubscribe", map[string]any{"Id": id}, nil)
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	c.pending = make(map[string]chan *message)
	close(c.done)
}

func (c *Client) readLoop() {
	for {
		data, err := c.t.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Printf("WARN xapi: dropping malformed message: %v", err)
			continue
		}
		if msg.Method != "" {
			c.notify(&msg)
			continue
		}

		var id string
		if err := json.Unmarshal(msg.ID, &id); err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if ok {
			ch <- &msg
		}
	}
}

func (c *Client) notify(msg *message) {
	if msg.Method != "xFeedback/Event" {
		return
	}
	var head struct {
		ID Int `json:"Id"`
	}
	if err := json.Unmarshal(msg.Params, &head); err != nil {
		return
	}

	c.mu.Lock()
	sub, ok := c.feedback[int(head.ID)]
	c.mu.Unlock()
	if !ok {
		return
	}

	payload, ok := descend(msg.Params, sub.path)
	if !ok {
		c.logger.Printf("WARN xapi: feedback %d does not contain %v", head.ID, sub.path)
		return
	}
	sub.fn(payload)
}

// descend walks raw along path, one object key per element.
func descend(raw json.RawMessage, path []string) (json.RawMessage, bool) {
	for _, key := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		raw = next
	}
	return raw, true
}
