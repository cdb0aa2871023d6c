// Package xapitest provides an in-memory codec for tests.
package xapitest

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"preset-panels/xapi"
)

// Call records one method invocation on the fake.
type Call struct {
	Method string
	Args   []any
}

// Fake implements the device methods used by the builder, router and prompt
// flow. Saved panels are kept so that Panels reflects earlier saves.
type Fake struct {
	mu sync.Mutex

	CameraList []xapi.Camera
	PresetList []xapi.Preset

	calls  []Call
	panels map[string][]byte
	errs   map[string]error
	subs   map[int]listener
	nextID int
}

type listener struct {
	path string
	fn   func(json.RawMessage)
}

func New() *Fake {
	return &Fake{
		panels: make(map[string][]byte),
		errs:   make(map[string]error),
		subs:   make(map[int]listener),
	}
}

// FailOn makes every later call to method return err. A nil err clears it.
func (f *Fake) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// AddPanel seeds a panel as if an earlier run (or another macro) saved it.
func (f *Fake) AddPanel(id string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panels[id] = body
}

// Calls returns the recorded calls, optionally filtered by method name.
func (f *Fake) Calls(methods ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(methods) == 0 {
		return append([]Call(nil), f.calls...)
	}
	var out []Call
	for _, c := range f.calls {
		for _, m := range methods {
			if c.Method == m {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Reset forgets recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// PanelIDs returns the ids of all saved panels, sorted.
func (f *Fake) PanelIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.panels))
	for id := range f.panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PanelBody returns the saved definition for id.
func (f *Fake) PanelBody(id string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.panels[id]
	return b, ok
}

// Subscriptions reports how many listeners are registered on path.
func (f *Fake) Subscriptions(path []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.Join(path, "/")
	n := 0
	for _, l := range f.subs {
		if l.path == key {
			n++
		}
	}
	return n
}

// Emit delivers payload to every listener on path.
func (f *Fake) Emit(path []string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	key := strings.Join(path, "/")
	f.mu.Lock()
	ids := make([]int, 0, len(f.subs))
	for id, l := range f.subs {
		if l.path == key {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	fns := make([]func(json.RawMessage), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.subs[id].fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(data)
	}
	return nil
}

func (f *Fake) record(method string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	return f.errs[method]
}

func (f *Fake) Cameras(ctx context.Context) ([]xapi.Camera, error) {
	if err := f.record("Cameras"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]xapi.Camera(nil), f.CameraList...), nil
}

func (f *Fake) Presets(ctx context.Context) ([]xapi.Preset, error) {
	if err := f.record("Presets"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]xapi.Preset(nil), f.PresetList...), nil
}

func (f *Fake) Panels(ctx context.Context) ([]xapi.Panel, error) {
	if err := f.record("Panels"); err != nil {
		return nil, err
	}
	ids := f.PanelIDs()
	out := make([]xapi.Panel, 0, len(ids))
	for _, id := range ids {
		out = append(out, xapi.Panel{PanelID: id, ActivityType: "Custom"})
	}
	return out, nil
}

func (f *Fake) ActivatePreset(ctx context.Context, presetID int) error {
	return f.record("ActivatePreset", presetID)
}

func (f *Fake) SetMainVideoSource(ctx context.Context, connectorID int) error {
	return f.record("SetMainVideoSource", connectorID)
}

func (f *Fake) SetMonitors(ctx context.Context, mode xapi.MonitorMode) error {
	return f.record("SetMonitors", mode)
}

func (f *Fake) SetMonitorRole(ctx context.Context, connector int, role xapi.MonitorRole) error {
	return f.record("SetMonitorRole", connector, role)
}

func (f *Fake) DisplayPrompt(ctx context.Context, p xapi.Prompt) error {
	return f.record("DisplayPrompt", p)
}

func (f *Fake) ClearPrompt(ctx context.Context, feedbackID string) error {
	return f.record("ClearPrompt", feedbackID)
}

func (f *Fake) SavePanel(ctx context.Context, panelID string, body []byte) error {
	if err := f.record("SavePanel", panelID, string(body)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panels[panelID] = append([]byte(nil), body...)
	return nil
}

func (f *Fake) RemovePanel(ctx context.Context, panelID string) error {
	if err := f.record("RemovePanel", panelID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.panels, panelID)
	return nil
}

func (f *Fake) Subscribe(ctx context.Context, path []string, fn func(json.RawMessage)) (int, error) {
	if err := f.record("Subscribe", strings.Join(path, "/")); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.subs[f.nextID] = listener{path: strings.Join(path, "/"), fn: fn}
	return f.nextID, nil
}

func (f *Fake) Unsubscribe(ctx context.Context, id int) error {
	if err := f.record("Unsubscribe", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
	return nil
}
