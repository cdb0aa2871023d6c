package panel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// PresetPrefix is reserved for panels generated from camera presets.
	PresetPrefix = "pre_action_button_"
	// MonitorSelectID is the fixed id of the monitor layout panel.
	MonitorSelectID = "monitors_select_panel"
)

var ErrDuplicatePanel = errors.New("panel id already in use")

// Kind tags what a panel id was created for.
type Kind int

const (
	KindPresetButton Kind = iota + 1
	KindMonitorSelect
)

func (k Kind) String() string {
	switch k {
	case KindPresetButton:
		return "preset_button"
	case KindMonitorSelect:
		return "monitor_select"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PresetButton is the action bound to a preset panel.
type PresetButton struct {
	PresetID int    `json:"presetId"`
	CameraID string `json:"cameraId"`
}

// Target is what a panel id resolves to. Preset is only set for
// KindPresetButton.
type Target struct {
	Kind   Kind          `json:"kind"`
	Preset *PresetButton `json:"preset,omitempty"`
}

// Snapshot is the full mapping state produced by one UI build.
type Snapshot struct {
	Targets    map[string]Target `json:"targets"`
	Connectors map[string]int    `json:"connectors"` // camera id -> video input connector
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Targets:    make(map[string]Target),
		Connectors: make(map[string]int),
	}
}

// PresetPanelID derives the panel id for a preset name. The prefix is fixed,
// so distinct names always give distinct ids.
func PresetPanelID(name string) string {
	return PresetPrefix + name
}

// IsGenerated reports whether id carries the reserved preset prefix.
func IsGenerated(id string) bool {
	return strings.HasPrefix(id, PresetPrefix)
}

// AddPreset registers a preset button and returns its panel id. Two presets
// with the same name collide and the second is rejected.
func (s *Snapshot) AddPreset(name string, presetID int, cameraID string) (string, error) {
	id := PresetPanelID(name)
	if _, ok := s.Targets[id]; ok {
		return "", fmt.Errorf("%w: %q", ErrDuplicatePanel, id)
	}
	s.Targets[id] = Target{
		Kind:   KindPresetButton,
		Preset: &PresetButton{PresetID: presetID, CameraID: cameraID},
	}
	return id, nil
}

// AddMonitorSelect registers the monitor layout panel.
func (s *Snapshot) AddMonitorSelect() string {
	s.Targets[MonitorSelectID] = Target{Kind: KindMonitorSelect}
	return MonitorSelectID
}

func (s *Snapshot) SetConnector(cameraID string, connector int) {
	s.Connectors[cameraID] = connector
}

// PresetButtons returns only the preset entries, keyed by panel id.
func (s Snapshot) PresetButtons() map[string]PresetButton {
	out := make(map[string]PresetButton)
	for id, t := range s.Targets {
		if t.Kind == KindPresetButton && t.Preset != nil {
			out[id] = *t.Preset
		}
	}
	return out
}

// PanelIDs returns every registered panel id, sorted.
func (s Snapshot) PanelIDs() []string {
	ids := make([]string, 0, len(s.Targets))
	for id := range s.Targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s Snapshot) clone() Snapshot {
	c := NewSnapshot()
	for id, t := range s.Targets {
		if t.Preset != nil {
			p := *t.Preset
			t.Preset = &p
		}
		c.Targets[id] = t
	}
	for cam, conn := range s.Connectors {
		c.Connectors[cam] = conn
	}
	return c
}
