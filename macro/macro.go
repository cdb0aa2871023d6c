// Package macro wires the panel builder, subscription registrar, event router
// and prompt flow around one codec connection, and runs the single dispatch
// loop that owns them.
package macro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"preset-panels/builder"
	"preset-panels/panel"
	"preset-panels/prompt"
	"preset-panels/router"
	"preset-panels/subscription"
	"preset-panels/xapi"
)

// Device is everything the macro needs from the codec.
type Device interface {
	builder.Device
	router.Device
	prompt.Device
	Subscribe(ctx context.Context, path []string, fn func(json.RawMessage)) (int, error)
	Unsubscribe(ctx context.Context, id int) error
}

// feedbackPaths maps each routed event to the codec feedback it listens on.
var feedbackPaths = map[string][]string{
	xapi.EventPanelClicked:   xapi.PathPanelClicked,
	xapi.EventPromptResponse: xapi.PathPromptResponse,
	xapi.EventPromptClear:    xapi.PathPromptCleared,
	xapi.EventTextResponse:   xapi.PathTextResponse,
	xapi.EventWidgetAction:   xapi.PathWidgetAction,
}

type Options struct {
	Name           string
	CommandTimeout time.Duration
	PromptTimeout  time.Duration
	EventQueue     int
	Panels         builder.Appearance
}

type rebuildReq struct {
	ctx   context.Context
	reply chan rebuildResult
}

type rebuildResult struct {
	snap panel.Snapshot
	err  error
}

// Macro owns the mapping store and every component that reads or writes it.
type Macro struct {
	name    string
	timeout time.Duration
	logger  *log.Logger

	store     *panel.Store
	registrar *subscription.Registrar
	flow      *prompt.Flow
	builder   *builder.Builder
	router    *router.Router
	tap       *Tap

	events   chan xapi.Event
	rebuilds chan rebuildReq

	dev    Device
	mu     sync.Mutex
	subIDs map[string]int // feedback subscription id per event name
}

func New(dev Device, logger *log.Logger, opts Options) (*Macro, error) {
	if logger == nil {
		logger = log.Default()
	}
	if opts.EventQueue <= 0 {
		opts.EventQueue = 64
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}

	store := panel.NewStore()
	flow := prompt.NewFlow(dev, logger, opts.PromptTimeout)
	m := &Macro{
		name:      opts.Name,
		timeout:   opts.CommandTimeout,
		logger:    logger,
		store:     store,
		registrar: subscription.NewRegistrar(logger),
		flow:      flow,
		builder:   builder.New(dev, store, logger, opts.Panels),
		router:    router.New(dev, store, flow, logger),
		tap:       NewTap(),
		events:    make(chan xapi.Event, opts.EventQueue),
		rebuilds:  make(chan rebuildReq),
		dev:       dev,
		subIDs:    make(map[string]int),
	}

	for _, name := range m.router.Names() {
		name, path := name, feedbackPaths[name]
		err := m.registrar.Register(name, func(ctx context.Context) error {
			id, err := dev.Subscribe(ctx, path, m.enqueue(name))
			if err != nil {
				return err
			}
			m.mu.Lock()
			m.subIDs[name] = id
			m.mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Macro) Store() *panel.Store                { return m.store }
func (m *Macro) Registrar() *subscription.Registrar { return m.registrar }
func (m *Macro) Flow() *prompt.Flow                 { return m.flow }
func (m *Macro) Tap() *Tap                          { return m.tap }

// Start builds the UI and then activates every subscription. Any failure
// means the macro must not run.
func (m *Macro) Start(ctx context.Context) error {
	m.logger.Printf("Initializing Macro [%s]...", m.name)
	if _, err := m.builder.Build(ctx); err != nil {
		return err
	}
	if _, err := m.registrar.ActivateAll(ctx); err != nil {
		return err
	}
	m.logger.Printf("Macro [%s] initialization Complete!", m.name)
	return nil
}

// Close releases every feedback subscription made by Start. Failures are
// joined; the remaining subscriptions are still released.
func (m *Macro) Close(ctx context.Context) error {
	m.mu.Lock()
	ids := m.subIDs
	m.subIDs = make(map[string]int)
	m.mu.Unlock()

	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := m.dev.Unsubscribe(ctx, ids[name]); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Run is the dispatch loop. Events and rebuild requests are handled one at a
// time until ctx is done.
func (m *Macro) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			m.dispatch(ctx, ev)
		case req := <-m.rebuilds:
			snap, err := m.builder.Build(req.ctx)
			req.reply <- rebuildResult{snap: snap, err: err}
		}
	}
}

// Rebuild runs the UI builder inside the dispatch loop and waits for it.
func (m *Macro) Rebuild(ctx context.Context) (panel.Snapshot, error) {
	req := rebuildReq{ctx: ctx, reply: make(chan rebuildResult, 1)}
	select {
	case m.rebuilds <- req:
	case <-ctx.Done():
		return panel.Snapshot{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.snap, res.err
	case <-ctx.Done():
		return panel.Snapshot{}, ctx.Err()
	}
}

// enqueue returns the feedback callback for name. It runs on the transport's
// read goroutine, so it never blocks: a full queue drops the event.
func (m *Macro) enqueue(name string) func(json.RawMessage) {
	return func(payload json.RawMessage) {
		ev := xapi.Event{Name: name, Payload: append(json.RawMessage(nil), payload...)}
		select {
		case m.events <- ev:
		default:
			m.logger.Printf("WARN event queue full, dropping %s", name)
		}
	}
}

func (m *Macro) dispatch(ctx context.Context, ev xapi.Event) {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	rec := Record{Time: time.Now(), Name: ev.Name, Payload: ev.Payload}
	if err := m.router.Route(cctx, ev); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			m.logger.Printf("WARN %s handler timed out after %s: %v", ev.Name, m.timeout, err)
		} else {
			m.logger.Printf("WARN %s handler: %v", ev.Name, err)
		}
		rec.Error = err.Error()
	}
	m.tap.Publish(rec)
}
