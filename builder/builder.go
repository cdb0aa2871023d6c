// Package builder recreates the preset and monitor panels on the codec and
// derives the mapping snapshot that routes their click events.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log"

	"preset-panels/panel"
	"preset-panels/xapi"
)

// Device is the subset of the codec API used while building.
type Device interface {
	Cameras(ctx context.Context) ([]xapi.Camera, error)
	Presets(ctx context.Context) ([]xapi.Preset, error)
	Panels(ctx context.Context) ([]xapi.Panel, error)
	SavePanel(ctx context.Context, panelID string, body []byte) error
	RemovePanel(ctx context.Context, panelID string) error
}

type Builder struct {
	dev    Device
	store  *panel.Store
	logger *log.Logger
	look   Appearance
}

func New(dev Device, store *panel.Store, logger *log.Logger, look Appearance) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{dev: dev, store: store, logger: logger, look: look}
}

// Build queries the codec, removes panels left by an earlier run, saves one
// panel per preset plus the monitor selector, and replaces the store's
// contents. The steps run in order because each needs the previous result.
// On error the store keeps its previous contents.
func (b *Builder) Build(ctx context.Context) (panel.Snapshot, error) {
	b.logger.Printf("Building UserInterface...")
	snap := panel.NewSnapshot()

	cams, err := b.dev.Cameras(ctx)
	if err != nil {
		return snap, err
	}
	for _, cam := range cams {
		if cam.DetectedConnector == nil {
			b.logger.Printf("camera %s has no detected connector, skipping", cam.ID)
			continue
		}
		snap.SetConnector(string(cam.ID), int(*cam.DetectedConnector))
	}
	b.logger.Printf("cameras: %d, mapped connectors: %v", len(cams), snap.Connectors)

	presets, err := b.dev.Presets(ctx)
	if err != nil {
		return snap, err
	}
	b.logger.Printf("camera presets identified: %d", len(presets))

	if err := b.removeGenerated(ctx); err != nil {
		return snap, err
	}

	for _, p := range presets {
		id, err := snap.AddPreset(p.Name, int(p.PresetID), string(p.CameraID))
		if errors.Is(err, panel.ErrDuplicatePanel) {
			b.logger.Printf("WARN preset %d %q skipped: %v", p.PresetID, p.Name, err)
			continue
		}
		if err := b.save(ctx, id, b.look.PresetIcon, p.Name); err != nil {
			return snap, err
		}
	}

	id := snap.AddMonitorSelect()
	if err := b.save(ctx, id, b.look.MonitorIcon, b.look.MonitorName); err != nil {
		return snap, err
	}

	b.store.Replace(snap)
	b.logger.Printf("UserInterface Built! panels=%v", snap.PanelIDs())
	return snap, nil
}

func (b *Builder) removeGenerated(ctx context.Context) error {
	existing, err := b.dev.Panels(ctx)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if !panel.IsGenerated(p.PanelID) {
			continue
		}
		if err := b.dev.RemovePanel(ctx, p.PanelID); err != nil {
			return err
		}
		b.logger.Printf("removed previous panel: %s", p.PanelID)
	}
	return nil
}

func (b *Builder) save(ctx context.Context, id, icon, name string) error {
	body, err := panelXML(b.look, id, icon, name)
	if err != nil {
		return fmt.Errorf("render panel %s: %w", id, err)
	}
	return b.dev.SavePanel(ctx, id, body)
}
