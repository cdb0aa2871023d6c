package panel_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"preset-panels/panel"
)

func TestNewStoreEmpty(t *testing.T) {
	st := panel.NewStore()
	snap := st.Snapshot()
	if len(snap.Targets) != 0 || len(snap.Connectors) != 0 {
		t.Fatalf("expected empty store, got %+v", snap)
	}
	if _, ok := st.Resolve(panel.MonitorSelectID); ok {
		t.Fatal("expected no targets before the first build")
	}
}

func TestResolvePresetAndMonitor(t *testing.T) {
	snap := panel.NewSnapshot()
	id, err := snap.AddPreset("Desk", 3, "1")
	if err != nil {
		t.Fatalf("AddPreset: %v", err)
	}
	if id != "pre_action_button_Desk" {
		t.Fatalf("unexpected panel id %q", id)
	}
	snap.AddMonitorSelect()
	snap.SetConnector("1", 2)

	st := panel.NewStore()
	st.Replace(snap)

	target, ok := st.Resolve(id)
	if !ok || target.Kind != panel.KindPresetButton {
		t.Fatalf("expected preset target, got %+v ok=%v", target, ok)
	}
	if target.Preset.PresetID != 3 || target.Preset.CameraID != "1" {
		t.Fatalf("unexpected preset entry %+v", *target.Preset)
	}
	if conn, ok := st.Connector("1"); !ok || conn != 2 {
		t.Fatalf("expected connector 2, got %d ok=%v", conn, ok)
	}

	target, ok = st.Resolve(panel.MonitorSelectID)
	if !ok || target.Kind != panel.KindMonitorSelect || target.Preset != nil {
		t.Fatalf("expected monitor target, got %+v", target)
	}
}

func TestResolveUnknownID(t *testing.T) {
	st := panel.NewStore()
	snap := panel.NewSnapshot()
	snap.AddPreset("Desk", 1, "1")
	st.Replace(snap)

	if _, ok := st.Resolve("pre_action_button_Gone"); ok {
		t.Fatal("expected unknown id to miss")
	}
	if _, ok := st.Connector("9"); ok {
		t.Fatal("expected unknown camera to miss")
	}
}

func TestAddPresetTrailingSpaceIsDistinct(t *testing.T) {
	snap := panel.NewSnapshot()
	a, err := snap.AddPreset("Desk", 1, "1")
	if err != nil {
		t.Fatalf("AddPreset Desk: %v", err)
	}
	b, err := snap.AddPreset("Desk ", 2, "1")
	if err != nil {
		t.Fatalf("AddPreset 'Desk ': %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct ids, both %q", a)
	}
	if len(snap.PresetButtons()) != 2 {
		t.Fatalf("expected 2 preset buttons, got %d", len(snap.PresetButtons()))
	}
}

func TestAddPresetDuplicateNameRejected(t *testing.T) {
	snap := panel.NewSnapshot()
	if _, err := snap.AddPreset("Desk", 1, "1"); err != nil {
		t.Fatalf("first AddPreset: %v", err)
	}
	_, err := snap.AddPreset("Desk", 2, "2")
	if !errors.Is(err, panel.ErrDuplicatePanel) {
		t.Fatalf("expected ErrDuplicatePanel, got %v", err)
	}
	if got := snap.PresetButtons()["pre_action_button_Desk"]; got.PresetID != 1 {
		t.Fatalf("first preset should be kept, got %+v", got)
	}
}

func TestReplaceDiscardsOldEntries(t *testing.T) {
	st := panel.NewStore()
	first := panel.NewSnapshot()
	first.AddPreset("Old", 1, "1")
	first.SetConnector("1", 1)
	st.Replace(first)

	second := panel.NewSnapshot()
	second.AddPreset("New", 2, "2")
	st.Replace(second)

	if _, ok := st.Resolve("pre_action_button_Old"); ok {
		t.Fatal("old preset should not survive a replace")
	}
	if _, ok := st.Connector("1"); ok {
		t.Fatal("old connector should not survive a replace")
	}
	if _, ok := st.Resolve("pre_action_button_New"); !ok {
		t.Fatal("new preset missing after replace")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	st := panel.NewStore()
	snap := panel.NewSnapshot()
	snap.AddPreset("Desk", 1, "1")
	st.Replace(snap)

	// Mutating the caller's snapshot after Replace must not leak in.
	snap.Targets["pre_action_button_Desk"].Preset.PresetID = 42

	got := st.Snapshot()
	got.Targets["pre_action_button_Desk"].Preset.PresetID = 99
	delete(got.Connectors, "1")

	target, _ := st.Resolve("pre_action_button_Desk")
	if target.Preset.PresetID != 1 {
		t.Fatalf("store was mutated through a copy: %+v", *target.Preset)
	}
}

func TestPanelIDsSorted(t *testing.T) {
	snap := panel.NewSnapshot()
	snap.AddPreset("b", 2, "1")
	snap.AddPreset("a", 1, "1")
	snap.AddMonitorSelect()

	want := []string{"monitors_select_panel", "pre_action_button_a", "pre_action_button_b"}
	if got := snap.PanelIDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestIsGenerated(t *testing.T) {
	if !panel.IsGenerated("pre_action_button_Desk") {
		t.Fatal("expected generated id")
	}
	if panel.IsGenerated(panel.MonitorSelectID) || panel.IsGenerated("other_macro_panel") {
		t.Fatal("unexpected generated id")
	}
}

func TestConcurrentReplaceAndResolve(t *testing.T) {
	st := panel.NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			snap := panel.NewSnapshot()
			snap.AddPreset("p", n, "1")
			st.Replace(snap)
		}(i)
		go func() {
			defer wg.Done()
			st.Resolve("pre_action_button_p")
			st.Snapshot()
		}()
	}
	wg.Wait()
}
