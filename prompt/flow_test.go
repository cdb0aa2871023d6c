package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"reflect"
	"strings"
	"testing"
	"time"

	"preset-panels/xapi"
	"preset-panels/xapi/xapitest"
)

func newTestFlow(timeout time.Duration) (*Flow, *xapitest.Fake, *bytes.Buffer) {
	var buf bytes.Buffer
	dev := xapitest.New()
	return NewFlow(dev, log.New(&buf, "", 0), timeout), dev, &buf
}

func TestShowDisplaysPrompt(t *testing.T) {
	f, dev, _ := newTestFlow(0)
	if err := f.Show(context.Background()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	calls := dev.Calls("DisplayPrompt")
	if len(calls) != 1 {
		t.Fatalf("expected one DisplayPrompt, got %d", len(calls))
	}
	p := calls[0].Args[0].(xapi.Prompt)
	if !strings.HasPrefix(p.FeedbackID, FeedbackPrefix) {
		t.Fatalf("feedback id %q lacks prefix", p.FeedbackID)
	}
	want := []string{"Content Only", "Video Only", "Normal View 1", "Normal View 2"}
	if !reflect.DeepEqual(p.Options, want) {
		t.Fatalf("expected options %v, got %v", want, p.Options)
	}
	if p.Title != "Monitor Select Options" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if !strings.Contains(p.Text, "Normal View 1: Content left") {
		t.Fatalf("unexpected text %q", p.Text)
	}

	st, id := f.State()
	if st != Awaiting || id != p.FeedbackID {
		t.Fatalf("expected awaiting %q, got %v %q", p.FeedbackID, st, id)
	}
}

func TestShowWhileAwaitingIsRefused(t *testing.T) {
	f, dev, logs := newTestFlow(0)
	f.Show(context.Background())
	err := f.Show(context.Background())
	if !errors.Is(err, ErrActive) {
		t.Fatalf("expected ErrActive, got %v", err)
	}
	if len(dev.Calls("DisplayPrompt")) != 1 {
		t.Fatal("a second prompt must not be displayed")
	}
	if !strings.Contains(logs.String(), "WARN") {
		t.Fatalf("expected a warning, got %q", logs.String())
	}
}

func TestShowAfterTimeoutClearsExpiredPrompt(t *testing.T) {
	f, dev, _ := newTestFlow(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	f.Show(context.Background())
	_, first := f.State()
	now = now.Add(2 * time.Minute)

	if st, _ := f.State(); st != Idle {
		t.Fatalf("expected an expired prompt to read as idle, got %v", st)
	}
	if err := f.Show(context.Background()); err != nil {
		t.Fatalf("Show after timeout: %v", err)
	}

	calls := dev.Calls("DisplayPrompt", "ClearPrompt")
	if len(calls) != 3 {
		t.Fatalf("expected display, clear, display; got %v", calls)
	}
	if calls[1].Method != "ClearPrompt" || calls[1].Args[0] != first {
		t.Fatalf("expected the expired prompt %q to be cleared before showing again, got %v", first, calls[1])
	}
	for _, i := range []int{0, 2} {
		p := calls[i].Args[0].(xapi.Prompt)
		if p.Duration != 60 {
			t.Fatalf("expected the codec to dismiss the prompt after 60s, got Duration=%d", p.Duration)
		}
	}
	if _, second := f.State(); second == first {
		t.Fatal("expected a fresh correlation id")
	}
}

func TestShowWithoutTimeoutHasNoDuration(t *testing.T) {
	f, dev, _ := newTestFlow(0)
	f.Show(context.Background())
	p := dev.Calls("DisplayPrompt")[0].Args[0].(xapi.Prompt)
	if p.Duration != 0 {
		t.Fatalf("expected no duration, got %d", p.Duration)
	}
	if len(dev.Calls("ClearPrompt")) != 0 {
		t.Fatal("nothing to clear on a first show")
	}
}

// slowDisplay blocks DisplayPrompt until release is closed.
type slowDisplay struct {
	*xapitest.Fake
	entered chan struct{}
	release chan struct{}
}

func (d *slowDisplay) DisplayPrompt(ctx context.Context, p xapi.Prompt) error {
	close(d.entered)
	<-d.release
	return d.Fake.DisplayPrompt(ctx, p)
}

func TestStateReadableDuringDisplay(t *testing.T) {
	dev := &slowDisplay{Fake: xapitest.New(), entered: make(chan struct{}), release: make(chan struct{})}
	f := NewFlow(dev, log.New(io.Discard, "", 0), 0)

	shown := make(chan error, 1)
	go func() { shown <- f.Show(context.Background()) }()
	<-dev.entered

	got := make(chan State, 1)
	go func() {
		st, _ := f.State()
		got <- st
	}()
	select {
	case st := <-got:
		if st != Awaiting {
			t.Fatalf("expected awaiting while the prompt is being displayed, got %v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("State blocked on the device call")
	}
	if err := f.Show(context.Background()); !errors.Is(err, ErrActive) {
		t.Fatalf("expected a concurrent Show to be refused, got %v", err)
	}

	close(dev.release)
	if err := <-shown; err != nil {
		t.Fatalf("Show: %v", err)
	}
}

func TestMatchesMarkerAnywhere(t *testing.T) {
	if !Matches("Room1~" + FeedbackPrefix + "~abc") {
		t.Fatal("expected the marker to match inside the id")
	}
	if Matches("CAC~CAC~Other") {
		t.Fatal("unrelated id must not match")
	}
}

func TestShowFailureStaysIdle(t *testing.T) {
	f, dev, _ := newTestFlow(0)
	dev.FailOn("DisplayPrompt", errors.New("busy"))
	if err := f.Show(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if st, _ := f.State(); st != Idle {
		t.Fatalf("expected idle after failed display, got %v", st)
	}
}

func TestRespondAndClear(t *testing.T) {
	f, _, _ := newTestFlow(0)
	f.Show(context.Background())
	_, id := f.State()

	l, ok := f.Respond(id, 3)
	if !ok || l.Label != "Normal View 1" {
		t.Fatalf("expected Normal View 1, got %+v ok=%v", l, ok)
	}
	if st, _ := f.State(); st != Idle {
		t.Fatalf("expected idle after response, got %v", st)
	}

	f.Show(context.Background())
	_, id = f.State()
	if !f.Clear(id) {
		t.Fatal("expected clear to match")
	}
	if st, _ := f.State(); st != Idle {
		t.Fatalf("expected idle after clear, got %v", st)
	}
}

func TestRespondUnmatched(t *testing.T) {
	f, _, _ := newTestFlow(0)
	f.Show(context.Background())

	if _, ok := f.Respond("SomeOtherMacro~1", 1); ok {
		t.Fatal("foreign correlation id must not match")
	}
	if st, _ := f.State(); st != Awaiting {
		t.Fatal("foreign response must not change state")
	}
	if _, ok := f.Respond(FeedbackPrefix, 9); ok {
		t.Fatal("unknown option must not produce a layout")
	}
	if f.Clear("SomeOtherMacro~1") {
		t.Fatal("foreign clear must not match")
	}
}

func TestApplyVideoOnly(t *testing.T) {
	f, dev, _ := newTestFlow(0)
	l, _ := LayoutFor(2)
	if err := f.Apply(context.Background(), l); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []xapitest.Call{
		{Method: "SetMonitors", Args: []any{xapi.MonitorsTriple}},
		{Method: "SetMonitorRole", Args: []any{1, xapi.RoleFirst}},
		{Method: "SetMonitorRole", Args: []any{2, xapi.RoleFirst}},
		{Method: "SetMonitorRole", Args: []any{3, xapi.RoleSecond}},
	}
	if got := dev.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestApplyContinuesAfterFailure(t *testing.T) {
	f, dev, _ := newTestFlow(0)
	boom := errors.New("config locked")
	dev.FailOn("SetMonitors", boom)

	l, _ := LayoutFor(1)
	err := f.Apply(context.Background(), l)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if n := len(dev.Calls("SetMonitorRole")); n != 3 {
		t.Fatalf("expected all roles still set, got %d", n)
	}
}

func TestLayoutTable(t *testing.T) {
	cases := []struct {
		option   int
		monitors xapi.MonitorMode
		roles    [3]xapi.MonitorRole
	}{
		{1, xapi.MonitorsSingle, [3]xapi.MonitorRole{xapi.RolePresentationOnly, xapi.RolePresentationOnly, xapi.RolePresentationOnly}},
		{2, xapi.MonitorsTriple, [3]xapi.MonitorRole{xapi.RoleFirst, xapi.RoleFirst, xapi.RoleSecond}},
		{3, xapi.MonitorsTriple, [3]xapi.MonitorRole{xapi.RoleSecond, xapi.RoleFirst, xapi.RoleAuto}},
		{4, xapi.MonitorsTriple, [3]xapi.MonitorRole{xapi.RoleFirst, xapi.RoleSecond, xapi.RoleAuto}},
	}
	for _, tc := range cases {
		l, ok := LayoutFor(tc.option)
		if !ok {
			t.Fatalf("option %d missing", tc.option)
		}
		if l.Monitors != tc.monitors || l.Roles != tc.roles {
			t.Fatalf("option %d: got %s %v", tc.option, l.Monitors, l.Roles)
		}
	}
	if _, ok := LayoutFor(0); ok {
		t.Fatal("option 0 should not exist")
	}
}
