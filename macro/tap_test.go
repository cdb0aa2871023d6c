package macro

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestSetClientConnected(t *testing.T) {
	tap := NewTap()
	ch := make(chan []byte, 1)
	kick := tap.SetClient(ch)
	if !tap.Connected() {
		t.Fatal("expected Connected to be true after SetClient")
	}
	if kick == nil {
		t.Fatal("expected non-nil kick channel")
	}
}

func TestSetClientKicksPrior(t *testing.T) {
	tap := NewTap()
	kick1 := tap.SetClient(make(chan []byte, 1))
	_ = tap.SetClient(make(chan []byte, 1))

	select {
	case <-kick1:
	default:
		t.Fatal("first observer's kick channel was not closed on displacement")
	}
}

func TestClearClientOwnershipGuard(t *testing.T) {
	tap := NewTap()
	ch1 := make(chan []byte, 1)
	_ = tap.SetClient(ch1)
	ch2 := make(chan []byte, 1)
	_ = tap.SetClient(ch2)

	tap.ClearClient(ch1)
	if !tap.Connected() {
		t.Fatal("ClearClient with displaced channel should not detach the observer")
	}
	tap.ClearClient(ch2)
	if tap.Connected() {
		t.Fatal("ClearClient with current channel should detach the observer")
	}
	if _, ok := <-ch2; ok {
		t.Fatal("expected channel to be closed")
	}
}

func TestPublishForwardsToObserver(t *testing.T) {
	tap := NewTap()
	ch := make(chan []byte, 1)
	tap.SetClient(ch)

	tap.Publish(Record{Name: "PanelClicked"})
	select {
	case data := <-ch:
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Name != "PanelClicked" {
			t.Fatalf("unexpected record %+v", rec)
		}
	default:
		t.Fatal("record was not forwarded")
	}

	// Buffer full: publish must not block.
	tap.Publish(Record{Name: "a"})
	tap.Publish(Record{Name: "b"})
}

func TestRecentIsCapped(t *testing.T) {
	tap := NewTap()
	for i := 0; i < maxRecent+10; i++ {
		tap.Publish(Record{Name: fmt.Sprintf("ev%d", i)})
	}
	recent := tap.Recent()
	if len(recent) != maxRecent {
		t.Fatalf("expected %d records, got %d", maxRecent, len(recent))
	}
	var first Record
	json.Unmarshal(recent[0], &first)
	if first.Name != "ev10" {
		t.Fatalf("expected oldest retained record ev10, got %s", first.Name)
	}
}
