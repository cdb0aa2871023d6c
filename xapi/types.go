package xapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Int is an integer that the codec may send either as a JSON number or as a
// quoted string ("1").
type Int int

func (i *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("xapi: invalid integer %q", s)
		}
		*i = Int(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*i = Int(n)
	return nil
}

// ID is an identifier that the codec may send as a string or a number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Camera is one entry of Status/Cameras/Camera.
type Camera struct {
	ID                ID     `json:"id"`
	Connected         string `json:"Connected,omitempty"`
	DetectedConnector *Int   `json:"DetectedConnector,omitempty"`
	Model             string `json:"Model,omitempty"`
}

// Preset is one entry of the Camera/Preset/List result.
type Preset struct {
	PresetID Int    `json:"PresetId"`
	Name     string `json:"Name"`
	CameraID ID     `json:"CameraId"`
}

// Panel is one custom UI extension panel reported by the codec.
type Panel struct {
	PanelID      string `json:"PanelId"`
	Name         string `json:"Name,omitempty"`
	ActivityType string `json:"ActivityType,omitempty"`
}

// MonitorMode is the value of Configuration/Video/Monitors.
type MonitorMode string

const (
	MonitorsAuto                   MonitorMode = "Auto"
	MonitorsSingle                 MonitorMode = "Single"
	MonitorsDual                   MonitorMode = "Dual"
	MonitorsDualPresentationOnly   MonitorMode = "DualPresentationOnly"
	MonitorsTriple                 MonitorMode = "Triple"
	MonitorsTriplePresentationOnly MonitorMode = "TriplePresentationOnly"
)

// MonitorRole is the value of Configuration/Video/Output/Connector[n]/MonitorRole.
type MonitorRole string

const (
	RoleAuto             MonitorRole = "Auto"
	RoleFirst            MonitorRole = "First"
	RoleSecond           MonitorRole = "Second"
	RoleThird            MonitorRole = "Third"
	RolePresentationOnly MonitorRole = "PresentationOnly"
	RoleRecorder         MonitorRole = "Recorder"
)

// Prompt describes a modal prompt shown on the touch panel.
type Prompt struct {
	Title      string
	Text       string
	FeedbackID string
	Options    []string // at most five
	Duration   int      // seconds, 0 keeps the prompt until answered
}

// Event names delivered to the router.
const (
	EventPanelClicked   = "PanelClicked"
	EventPromptResponse = "PromptResponse"
	EventPromptClear    = "PromptClear"
	EventTextResponse   = "TextResponse"
	EventWidgetAction   = "WidgetAction"
)

// Event is a device notification tagged with the subscription that produced it.
type Event struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// PanelClicked is Event/UserInterface/Extensions/Panel/Clicked.
type PanelClicked struct {
	PanelID string `json:"PanelId"`
}

// WidgetAction is Event/UserInterface/Extensions/Widget/Action.
type WidgetAction struct {
	WidgetID string `json:"WidgetId"`
	Type     string `json:"Type"`
	Value    string `json:"Value,omitempty"`
}

// PromptResponse is Event/UserInterface/Message/Prompt/Response.
type PromptResponse struct {
	FeedbackID string `json:"FeedbackId"`
	OptionID   Int    `json:"OptionId"`
}

// PromptCleared is Event/UserInterface/Message/Prompt/Cleared.
type PromptCleared struct {
	FeedbackID string `json:"FeedbackId"`
}

// TextInputResponse is Event/UserInterface/Message/TextInput/Response.
type TextInputResponse struct {
	FeedbackID string `json:"FeedbackId"`
	Text       string `json:"Text"`
}

// Feedback query paths for the events above.
var (
	PathPanelClicked   = []string{"Event", "UserInterface", "Extensions", "Panel", "Clicked"}
	PathWidgetAction   = []string{"Event", "UserInterface", "Extensions", "Widget", "Action"}
	PathPromptResponse = []string{"Event", "UserInterface", "Message", "Prompt", "Response"}
	PathPromptCleared  = []string{"Event", "UserInterface", "Message", "Prompt", "Cleared"}
	PathTextResponse   = []string{"Event", "UserInterface", "Message", "TextInput", "Response"}
)
