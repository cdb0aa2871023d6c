// Package prompt runs the monitor select prompt: display, wait for the
// answer, and apply the chosen layout.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"preset-panels/xapi"
)

// FeedbackPrefix marks correlation ids owned by this flow.
const FeedbackPrefix = "CAC~CAC~MonitorSelect"

const title = "Monitor Select Options"

var ErrActive = errors.New("prompt already awaiting a response")

// State of the flow.
type State int

const (
	Idle State = iota
	Awaiting
)

func (s State) String() string {
	if s == Awaiting {
		return "awaiting-response"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Device is the subset of the codec API the flow needs.
type Device interface {
	DisplayPrompt(ctx context.Context, p xapi.Prompt) error
	ClearPrompt(ctx context.Context, feedbackID string) error
	SetMonitors(ctx context.Context, mode xapi.MonitorMode) error
	SetMonitorRole(ctx context.Context, connector int, role xapi.MonitorRole) error
}

// Flow is the idle/awaiting-response state machine. While awaiting, another
// Show is refused until the prompt is answered, cleared or older than the
// configured timeout.
type Flow struct {
	dev     Device
	logger  *log.Logger
	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	state      State
	feedbackID string
	shownAt    time.Time
}

// NewFlow creates an idle flow. A zero timeout never expires a pending prompt.
func NewFlow(dev Device, logger *log.Logger, timeout time.Duration) *Flow {
	if logger == nil {
		logger = log.Default()
	}
	return &Flow{dev: dev, logger: logger, timeout: timeout, now: time.Now}
}

// Matches reports whether feedbackID belongs to a monitor select prompt.
// The marker may appear anywhere in the id.
func Matches(feedbackID string) bool {
	return strings.Contains(feedbackID, FeedbackPrefix)
}

// Show displays the prompt and moves to Awaiting. An expired prompt is
// cleared on the codec first. With a timeout set, the codec dismisses the
// prompt on its own once the flow would expire it.
func (f *Flow) Show(ctx context.Context) error {
	f.mu.Lock()
	if f.state == Awaiting && !f.expired() {
		open := f.feedbackID
		f.mu.Unlock()
		f.logger.Printf("WARN monitor select prompt %s is still open, not showing another", open)
		return ErrActive
	}
	stale := f.feedbackID
	id := FeedbackPrefix + "~" + uuid.New().String()
	// Reserve the session so a concurrent Show is refused while the device
	// call is in flight.
	f.state = Awaiting
	f.feedbackID = id
	f.shownAt = f.now()
	f.mu.Unlock()

	if stale != "" {
		if err := f.dev.ClearPrompt(ctx, stale); err != nil {
			f.logger.Printf("WARN clearing expired prompt %s: %v", stale, err)
		}
	}

	p := xapi.Prompt{
		Title:      title,
		Text:       promptText(),
		FeedbackID: id,
		Options:    make([]string, 0, len(Layouts)),
		Duration:   int((f.timeout + time.Second - 1) / time.Second),
	}
	for _, l := range Layouts {
		p.Options = append(p.Options, l.Label)
	}

	f.logger.Printf("Monitor Select Options Shown")
	if err := f.dev.DisplayPrompt(ctx, p); err != nil {
		f.mu.Lock()
		if f.feedbackID == id {
			f.state = Idle
			f.feedbackID = ""
		}
		f.mu.Unlock()
		return err
	}
	return nil
}

// Respond handles a prompt answer. It returns the layout to apply, or false
// when the id is not ours or the option is unknown. Any matching id returns
// the flow to Idle.
func (f *Flow) Respond(feedbackID string, option int) (Layout, bool) {
	if !Matches(feedbackID) {
		return Layout{}, false
	}
	f.reset()
	return LayoutFor(option)
}

// Clear handles a dismissed prompt.
func (f *Flow) Clear(feedbackID string) bool {
	if !Matches(feedbackID) {
		return false
	}
	f.reset()
	return true
}

// Apply sets the monitor mode and then the role of connectors 1 to 3. Every
// command is attempted; failures are joined.
func (f *Flow) Apply(ctx context.Context, l Layout) error {
	f.logger.Printf("Setting monitors to %s", l.Label)

	var errs []error
	if err := f.dev.SetMonitors(ctx, l.Monitors); err != nil {
		errs = append(errs, err)
	}
	for i, role := range l.Roles {
		if err := f.dev.SetMonitorRole(ctx, i+1, role); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("apply layout %q: %w", l.Label, err)
	}
	return nil
}

// State returns the current state and the open correlation id, if any.
func (f *Flow) State() (State, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Awaiting && f.expired() {
		return Idle, ""
	}
	return f.state, f.feedbackID
}

func (f *Flow) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Idle
	f.feedbackID = ""
}

// expired must be called with f.mu held.
func (f *Flow) expired() bool {
	return f.timeout > 0 && f.now().Sub(f.shownAt) >= f.timeout
}

func promptText() string {
	lines := make([]string, 0, len(Layouts))
	for _, l := range Layouts {
		lines = append(lines, l.Label+": "+l.Description)
	}
	return strings.Join(lines, "<br>")
}
