package xapi

import (
	"context"
	"fmt"
	"strconv"
)

// Cameras reads Status/Cameras/Camera.
func (c *Client) Cameras(ctx context.Context) ([]Camera, error) {
	var cams []Camera
	params := map[string]any{"Path": []string{"Status", "Cameras", "Camera"}}
	if err := c.Call(ctx, "xGet", params, &cams); err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	return cams, nil
}

// Presets runs Camera/Preset/List.
func (c *Client) Presets(ctx context.Context) ([]Preset, error) {
	var res struct {
		Preset []Preset `json:"Preset"`
	}
	if err := c.Call(ctx, "xCommand/Camera/Preset/List", map[string]any{}, &res); err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return res.Preset, nil
}

// Panels lists custom UI extension panels.
func (c *Client) Panels(ctx context.Context) ([]Panel, error) {
	var res struct {
		Extensions struct {
			Panel []Panel `json:"Panel"`
		} `json:"Extensions"`
	}
	params := map[string]any{"ActivityType": "Custom"}
	if err := c.Call(ctx, "xCommand/UserInterface/Extensions/List", params, &res); err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	return res.Extensions.Panel, nil
}

func (c *Client) ActivatePreset(ctx context.Context, presetID int) error {
	if err := c.Call(ctx, "xCommand/Camera/Preset/Activate", map[string]any{"PresetId": presetID}, nil); err != nil {
		return fmt.Errorf("activate preset %d: %w", presetID, err)
	}
	return nil
}

func (c *Client) SetMainVideoSource(ctx context.Context, connectorID int) error {
	params := map[string]any{"ConnectorId": connectorID}
	if err := c.Call(ctx, "xCommand/Video/Input/SetMainVideoSource", params, nil); err != nil {
		return fmt.Errorf("set main video source %d: %w", connectorID, err)
	}
	return nil
}

func (c *Client) SetMonitors(ctx context.Context, mode MonitorMode) error {
	params := map[string]any{
		"Path":  []any{"Configuration", "Video", "Monitors"},
		"Value": string(mode),
	}
	if err := c.Call(ctx, "xSet", params, nil); err != nil {
		return fmt.Errorf("set monitors %s: %w", mode, err)
	}
	return nil
}

func (c *Client) SetMonitorRole(ctx context.Context, connector int, role MonitorRole) error {
	params := map[string]any{
		"Path":  []any{"Configuration", "Video", "Output", "Connector", connector, "MonitorRole"},
		"Value": string(role),
	}
	if err := c.Call(ctx, "xSet", params, nil); err != nil {
		return fmt.Errorf("set connector %d monitor role %s: %w", connector, role, err)
	}
	return nil
}

// DisplayPrompt shows p. Displaying is not idempotent: each call opens a new
// prompt on the panel.
func (c *Client) DisplayPrompt(ctx context.Context, p Prompt) error {
	params := map[string]any{
		"Title":      p.Title,
		"Text":       p.Text,
		"FeedbackId": p.FeedbackID,
	}
	if p.Duration > 0 {
		params["Duration"] = p.Duration
	}
	for i, opt := range p.Options {
		params["Option."+strconv.Itoa(i+1)] = opt
	}
	if err := c.Call(ctx, "xCommand/UserInterface/Message/Prompt/Display", params, nil); err != nil {
		return fmt.Errorf("display prompt %s: %w", p.FeedbackID, err)
	}
	return nil
}

func (c *Client) ClearPrompt(ctx context.Context, feedbackID string) error {
	params := map[string]any{"FeedbackId": feedbackID}
	if err := c.Call(ctx, "xCommand/UserInterface/Message/Prompt/Clear", params, nil); err != nil {
		return fmt.Errorf("clear prompt %s: %w", feedbackID, err)
	}
	return nil
}

// SavePanel stores an extension definition. The XML document travels as the
// multiline command body.
func (c *Client) SavePanel(ctx context.Context, panelID string, body []byte) error {
	params := map[string]any{"PanelId": panelID, "body": string(body)}
	if err := c.Call(ctx, "xCommand/UserInterface/Extensions/Panel/Save", params, nil); err != nil {
		return fmt.Errorf("save panel %s: %w", panelID, err)
	}
	return nil
}

func (c *Client) RemovePanel(ctx context.Context, panelID string) error {
	params := map[string]any{"PanelId": panelID}
	if err := c.Call(ctx, "xCommand/UserInterface/Extensions/Panel/Remove", params, nil); err != nil {
		return fmt.Errorf("remove panel %s: %w", panelID, err)
	}
	return nil
}
