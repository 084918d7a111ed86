package hotkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tturner/smiteclick/internal/settings"
)

func down(k string) KeyEvent { return KeyEvent{Action: KeyDown, Key: k} }
func up(k string) KeyEvent   { return KeyEvent{Action: KeyUp, Key: k} }

type step struct {
	ev     KeyEvent
	want   Intent
	emit   bool
	holdOn bool
}

func runSteps(t *testing.T, c *Controller, steps []step) {
	t.Helper()
	for i, s := range steps {
		got, ok := c.Handle(s.ev)
		if ok != s.emit || (ok && got != s.want) {
			t.Errorf("step %d %s %s: got (%s, %v), want (%s, %v)", i, s.ev.Key, s.ev.Action, got, ok, s.want, s.emit)
		}
		if c.HoldActive() != s.holdOn {
			t.Errorf("step %d: hold_active = %v, want %v", i, c.HoldActive(), s.holdOn)
		}
	}
}

func newController(t *testing.T, mode settings.HotkeyMode) (*Controller, *settings.Store) {
	t.Helper()
	store := settings.NewStore(settings.Defaults())
	if err := store.Update("hotkey_mode", string(mode)); err != nil {
		t.Fatal(err)
	}
	c := NewController(store, NewChanSource(), nil)
	t.Cleanup(func() { c.Close() })
	return c, store
}

func TestToggleMode(t *testing.T) {
	c, _ := newController(t, settings.HotkeyToggle)
	runSteps(t, c, []step{
		{ev: down("Key.f6"), want: IntentStart, emit: true},
		{ev: up("Key.f6")},
		{ev: down("Key.f6"), want: IntentStart, emit: true},
		{ev: down("Key.f7"), want: IntentStop, emit: true},
		{ev: up("Key.f7")},
		{ev: down("a")},
		{ev: down(""), emit: false},
	})
}

func TestHoldMode(t *testing.T) {
	c, _ := newController(t, settings.HotkeyHold)
	runSteps(t, c, []step{
		{ev: up("Key.f6")},
		{ev: down("Key.f6"), want: IntentStart, emit: true, holdOn: true},
		// auto-repeat while held
		{ev: down("Key.f6"), holdOn: true},
		{ev: down("Key.f7"), holdOn: true},
		{ev: up("Key.f7"), holdOn: true},
		{ev: up("Key.f6"), want: IntentStop, emit: true},
		{ev: up("Key.f6")},
	})
}

func TestModeChangeResetsHold(t *testing.T) {
	c, store := newController(t, settings.HotkeyHold)
	runSteps(t, c, []step{
		{ev: down("Key.f6"), want: IntentStart, emit: true, holdOn: true},
	})
	if err := store.Update("hotkey_mode", "Toggle"); err != nil {
		t.Fatal(err)
	}
	if c.HoldActive() {
		t.Fatal("hold_active survived switch to Toggle")
	}
	runSteps(t, c, []step{
		{ev: up("Key.f6")},
	})
	if err := store.Update("hotkey_mode", "Hold"); err != nil {
		t.Fatal(err)
	}
	runSteps(t, c, []step{
		{ev: up("Key.f6")},
		{ev: down("Key.f6"), want: IntentStart, emit: true, holdOn: true},
	})
}

func TestReboundHotkeys(t *testing.T) {
	c, store := newController(t, settings.HotkeyToggle)
	if err := store.Update("start_hotkey", "s"); err != nil {
		t.Fatal(err)
	}
	runSteps(t, c, []step{
		{ev: down("Key.f6")},
		{ev: down("s"), want: IntentStart, emit: true},
	})
}

func TestListenerDeliversIntents(t *testing.T) {
	store := settings.NewStore(settings.Defaults())
	src := NewChanSource()
	c := NewController(store, src, nil)
	defer c.Close()

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateListening {
		t.Fatalf("state = %s, want listening", c.State())
	}
	if err := c.Start(); !errors.Is(err, ErrAlreadyListening) {
		t.Errorf("second Start err = %v", err)
	}

	src.Send(down("Key.f6"))
	src.Send(up("Key.f6"))
	src.Send(down("Key.f7"))

	var got []Intent
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case in := <-c.Intents():
			got = append(got, in)
		case <-timeout:
			t.Fatalf("intents = %v, want 2", got)
		}
	}
	if got[0] != IntentStart || got[1] != IntentStop {
		t.Errorf("intents = %v, want [start stop]", got)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %s, want idle", c.State())
	}
	if src.Send(down("Key.f6")) {
		t.Error("source still accepting events after Stop")
	}
	if err := c.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	// restartable
	if err := c.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

type failingSource struct{}

func (failingSource) Start() (<-chan KeyEvent, error) { return nil, errors.New("no hook") }
func (failingSource) Stop() error                     { return nil }

func TestStartSourceFailure(t *testing.T) {
	c := NewController(settings.NewStore(settings.Defaults()), failingSource{}, nil)
	if err := c.Start(); err == nil {
		t.Fatal("expected error")
	}
	if c.State() != StateIdle {
		t.Errorf("state = %s, want idle", c.State())
	}
}

func TestCapture(t *testing.T) {
	src := NewChanSource()
	result := make(chan string, 1)
	go func() {
		k, err := Capture(context.Background(), src)
		if err != nil {
			t.Errorf("Capture: %v", err)
		}
		result <- k
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !src.Send(up("x")) {
		if time.Now().After(deadline) {
			t.Fatal("source never started")
		}
		time.Sleep(time.Millisecond)
	}
	src.Send(KeyEvent{Action: KeyDown})
	src.Send(down("Key.f9"))

	select {
	case k := <-result:
		if k != "Key.f9" {
			t.Errorf("captured %q, want Key.f9", k)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Capture did not return")
	}
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Capture(ctx, NewChanSource()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
