// Package router turns codec UI events into device commands.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"preset-panels/panel"
	"preset-panels/prompt"
	"preset-panels/xapi"
)

// Device is the subset of the codec API used by the panel click handler.
type Device interface {
	ActivatePreset(ctx context.Context, presetID int) error
	SetMainVideoSource(ctx context.Context, connectorID int) error
}

// Router dispatches events by exact name. It holds no state of its own: the
// mapping store and the prompt flow are owned by the caller.
type Router struct {
	dev    Device
	store  *panel.Store
	flow   *prompt.Flow
	logger *log.Logger

	handlers map[string]func(ctx context.Context, payload json.RawMessage) error
}

func New(dev Device, store *panel.Store, flow *prompt.Flow, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	r := &Router{dev: dev, store: store, flow: flow, logger: logger}
	r.handlers = map[string]func(context.Context, json.RawMessage) error{
		xapi.EventPanelClicked:   r.panelClicked,
		xapi.EventPromptResponse: r.promptResponse,
		xapi.EventPromptClear:    r.promptClear,
		xapi.EventTextResponse:   r.textResponse,
		xapi.EventWidgetAction:   r.widgetAction,
	}
	return r
}

// Names lists the events the router handles.
func (r *Router) Names() []string {
	return []string{
		xapi.EventPanelClicked,
		xapi.EventPromptResponse,
		xapi.EventPromptClear,
		xapi.EventTextResponse,
		xapi.EventWidgetAction,
	}
}

// Route handles ev. Unknown event names are ignored. The returned error
// collects device command failures; nothing is retried.
func (r *Router) Route(ctx context.Context, ev xapi.Event) error {
	h, ok := r.handlers[ev.Name]
	if !ok {
		return nil
	}
	return h(ctx, ev.Payload)
}

func (r *Router) panelClicked(ctx context.Context, payload json.RawMessage) error {
	var ev xapi.PanelClicked
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode %s: %w", xapi.EventPanelClicked, err)
	}
	r.logger.Printf("panel clicked: %s", ev.PanelID)

	target, ok := r.store.Resolve(ev.PanelID)
	if !ok {
		return nil
	}
	switch target.Kind {
	case panel.KindPresetButton:
		return r.recallPreset(ctx, *target.Preset)
	case panel.KindMonitorSelect:
		err := r.flow.Show(ctx)
		if errors.Is(err, prompt.ErrActive) {
			return nil
		}
		return err
	}
	return nil
}

// recallPreset activates the preset and then switches the main source to the
// preset's camera. The two commands are independent: a failed activation
// does not stop the switch.
func (r *Router) recallPreset(ctx context.Context, p panel.PresetButton) error {
	var errs []error
	if err := r.dev.ActivatePreset(ctx, p.PresetID); err != nil {
		r.logger.Printf("WARN ActivatePreset %d failed: %v", p.PresetID, err)
		errs = append(errs, err)
	}

	connector, ok := r.store.Connector(p.CameraID)
	if !ok {
		r.logger.Printf("no connector known for camera %s, main source unchanged", p.CameraID)
		return errors.Join(errs...)
	}
	r.logger.Printf("Trying to switch to Connector ID: %d", connector)
	if err := r.dev.SetMainVideoSource(ctx, connector); err != nil {
		r.logger.Printf("WARN SetMainVideoSource %d failed: %v", connector, err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Router) promptResponse(ctx context.Context, payload json.RawMessage) error {
	// Responses to other macros' prompts are ignored before the option is
	// parsed; their OptionId need not be numeric.
	var head struct {
		FeedbackID string `json:"FeedbackId"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return fmt.Errorf("decode %s: %w", xapi.EventPromptResponse, err)
	}
	if !prompt.Matches(head.FeedbackID) {
		return nil
	}

	var ev xapi.PromptResponse
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode %s: %w", xapi.EventPromptResponse, err)
	}
	layout, ok := r.flow.Respond(ev.FeedbackID, int(ev.OptionID))
	if !ok {
		return nil
	}
	return r.flow.Apply(ctx, layout)
}

func (r *Router) promptClear(ctx context.Context, payload json.RawMessage) error {
	var ev xapi.PromptCleared
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode %s: %w", xapi.EventPromptClear, err)
	}
	if r.flow.Clear(ev.FeedbackID) {
		r.logger.Printf("Prompt clear...")
	}
	return nil
}

func (r *Router) textResponse(ctx context.Context, payload json.RawMessage) error {
	var ev xapi.TextInputResponse
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode %s: %w", xapi.EventTextResponse, err)
	}
	r.logger.Printf("text response: %s", ev.FeedbackID)
	return nil
}

func (r *Router) widgetAction(ctx context.Context, payload json.RawMessage) error {
	var ev xapi.WidgetAction
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode %s: %w", xapi.EventWidgetAction, err)
	}
	if ev.Type == "pressed" || ev.Type == "released" {
		r.logger.Printf("widget %s %s", ev.WidgetID, ev.Type)
	}
	return nil
}
