package macro

import (
	"encoding/json"
	"sync"
	"time"
)

const maxRecent = 100

// Record is one routed event as seen by an observer.
type Record struct {
	Time    time.Time       `json:"time"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Tap keeps the most recent records and forwards new ones to at most one
// live observer.
type Tap struct {
	mu       sync.Mutex
	recent   [][]byte
	max      int
	outChan  chan []byte
	kickChan chan struct{}
}

func NewTap() *Tap {
	return &Tap{max: maxRecent}
}

// Publish stores rec and forwards it without blocking; a slow observer
// misses records rather than stalling the dispatch loop.
func (t *Tap) Publish(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recent = append(t.recent, data)
	if len(t.recent) > t.max {
		t.recent = t.recent[len(t.recent)-t.max:]
	}
	if t.outChan != nil {
		select {
		case t.outChan <- data:
		default:
		}
	}
}

// Recent returns copies of the retained records, oldest first.
func (t *Tap) Recent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.recent))
	for i, r := range t.recent {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

// SetClient makes ch the live observer. A previous observer is kicked: its
// kick channel is closed. The returned channel is closed if this observer is
// displaced in turn.
func (t *Tap) SetClient(ch chan []byte) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.kickChan != nil {
		close(t.kickChan)
	}
	kick := make(chan struct{})
	t.kickChan = kick
	t.outChan = ch
	return kick
}

// ClearClient detaches ch if it is still the current observer, and always
// closes it so the pump goroutine exits.
func (t *Tap) ClearClient(ch chan []byte) {
	t.mu.Lock()
	if t.outChan == ch {
		t.outChan = nil
		t.kickChan = nil
	}
	t.mu.Unlock()
	close(ch)
}

// Connected reports whether an observer is attached.
func (t *Tap) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outChan != nil
}
