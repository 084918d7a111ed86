// Package hotkey turns raw global key transitions into start and stop
// intents according to the configured hotkey mode.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/settings"
)

// Action is a key transition.
type Action int

const (
	KeyDown Action = iota
	KeyUp
)

func (a Action) String() string {
	if a == KeyUp {
		return "up"
	}
	return "down"
}

// KeyEvent is one physical transition. Key holds the canonical id, or ""
// when the backend could not map the key.
type KeyEvent struct {
	Action Action
	Key    string
}

// Source produces global key events. Stop must make the channel returned by
// Start close.
type Source interface {
	Start() (<-chan KeyEvent, error)
	Stop() error
}

// Intent is what the controller asks the orchestrator to do.
type Intent int

const (
	IntentStart Intent = iota
	IntentStop
)

func (i Intent) String() string {
	if i == IntentStop {
		return "stop"
	}
	return "start"
}

type State int

const (
	StateIdle State = iota
	StateListening
)

func (s State) String() string {
	if s == StateListening {
		return "listening"
	}
	return "idle"
}

var ErrAlreadyListening = errors.New("hotkey listener already running")

// SettingsSource is the part of the settings store the controller reads.
type SettingsSource interface {
	Snapshot() settings.Settings
	Subscribe(settings.Observer) *settings.Subscription
}

// Controller owns the listener goroutine and the Toggle/Hold state machine.
type Controller struct {
	settings SettingsSource
	source   Source
	log      *logging.Logger
	intents  chan Intent

	mu         sync.Mutex
	state      State
	holdActive bool
	stop       chan struct{}
	done       chan struct{}

	sub *settings.Subscription
}

// NewController wires a controller to the settings store and a key source.
func NewController(store SettingsSource, source Source, log *logging.Logger) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	c := &Controller{
		settings: store,
		source:   source,
		log:      log,
		intents:  make(chan Intent, 8),
	}
	c.sub = store.Subscribe(c.onSettingsChange)
	return c
}

// Intents delivers start/stop intents in the order keys were pressed.
func (c *Controller) Intents() <-chan Intent { return c.intents }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HoldActive reports whether a Hold-mode press is in progress.
func (c *Controller) HoldActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holdActive
}

// Start begins listening. It moves the controller from Idle to Listening.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateListening {
		return ErrAlreadyListening
	}
	events, err := c.source.Start()
	if err != nil {
		return fmt.Errorf("start key source: %w", err)
	}
	c.state = StateListening
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.listen(events, c.stop, c.done)
	c.log.Verbose("hotkey listener started")
	return nil
}

// Stop releases the key source and waits for the listener goroutine.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateListening {
		c.mu.Unlock()
		return nil
	}
	c.state = StateIdle
	c.holdActive = false
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	err := c.source.Stop()
	<-done
	c.log.Verbose("hotkey listener stopped")
	if err != nil {
		return fmt.Errorf("stop key source: %w", err)
	}
	return nil
}

// Close stops listening and drops the settings subscription.
func (c *Controller) Close() error {
	err := c.Stop()
	c.sub.Unsubscribe()
	return err
}

func (c *Controller) listen(events <-chan KeyEvent, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			intent, ok := c.Handle(ev)
			if !ok {
				continue
			}
			c.log.Debug("hotkey %s %s -> %s", ev.Key, ev.Action, intent)
			select {
			case c.intents <- intent:
			case <-stop:
				return
			}
		}
	}
}

// Handle runs one event through the state machine.
//
//	Toggle: start key down -> start; stop key down -> stop; key ups ignored.
//	Hold:   start key down while released -> start; start key up while held -> stop.
func (c *Controller) Handle(ev KeyEvent) (Intent, bool) {
	if ev.Key == "" {
		return 0, false
	}
	cfg := c.settings.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg.HotkeyMode != settings.HotkeyHold {
		c.holdActive = false
	}

	switch ev.Action {
	case KeyDown:
		if cfg.HotkeyMode == settings.HotkeyToggle {
			switch ev.Key {
			case cfg.StartHotkey:
				return IntentStart, true
			case cfg.StopHotkey:
				return IntentStop, true
			}
			return 0, false
		}
		if ev.Key == cfg.StartHotkey && !c.holdActive {
			c.holdActive = true
			return IntentStart, true
		}
	case KeyUp:
		if cfg.HotkeyMode == settings.HotkeyHold && ev.Key == cfg.StartHotkey && c.holdActive {
			c.holdActive = false
			return IntentStop, true
		}
	}
	return 0, false
}

func (c *Controller) onSettingsChange(ch settings.Change) {
	if ch.Has(settings.KeyHotkeyMode) && ch.Settings.HotkeyMode != settings.HotkeyHold {
		c.mu.Lock()
		c.holdActive = false
		c.mu.Unlock()
	}
}

// Capture waits for the next key press on src and returns its canonical id.
// It is used to record a new hotkey binding.
func Capture(ctx context.Context, src Source) (string, error) {
	events, err := src.Start()
	if err != nil {
		return "", fmt.Errorf("start key source: %w", err)
	}
	defer src.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return "", errors.New("key source closed")
			}
			if ev.Action == KeyDown && ev.Key != "" {
				return ev.Key, nil
			}
		}
	}
}
