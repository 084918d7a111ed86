package orch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/settings"
	"github.com/tturner/smiteclick/internal/store"
)

type nullPointer struct{}

func (nullPointer) MoveCursor(int, int) error                            { return nil }
func (nullPointer) Click(settings.MouseButton, settings.ClickType) error { return nil }
func (nullPointer) CurrentPosition() (int, int, error)                   { return 0, 0, nil }

type memRecorder struct {
	mu      sync.Mutex
	entries []store.LogEntry
	err     error
}

func (r *memRecorder) AddLog(_ context.Context, e store.LogEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.entries = append(r.entries, e)
	return int64(len(r.entries)), nil
}

func (r *memRecorder) all() []store.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.LogEntry(nil), r.entries...)
}

type countingEngine struct {
	inner  *clicker.Engine
	mu     sync.Mutex
	starts int
}

func (e *countingEngine) Start(src clicker.Snapshotter) *clicker.Session {
	e.mu.Lock()
	e.starts++
	e.mu.Unlock()
	return e.inner.Start(src)
}

func (e *countingEngine) startCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts
}

type fixture struct {
	orch     *Orchestrator
	engine   *countingEngine
	settings *settings.Store
	rec      *memRecorder
	idle     chan Update
}

func newFixture(t *testing.T, rec settings.Record) *fixture {
	t.Helper()
	st := settings.NewStore(settings.Defaults())
	if err := st.LoadProfile(rec); err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		engine:   &countingEngine{inner: clicker.New(nullPointer{}, nil, clicker.Options{})},
		settings: st,
		rec:      &memRecorder{},
		idle:     make(chan Update, 8),
	}
	f.orch = New(f.engine, st, f.rec, DefaultOptions())
	f.orch.OnUpdate(func(u Update) {
		if u.Phase == PhaseIdle {
			f.idle <- u
		}
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		f.orch.Shutdown(ctx)
	})
	return f
}

func (f *fixture) waitIdle(t *testing.T) Update {
	t.Helper()
	select {
	case u := <-f.idle:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("session never finished")
		return Update{}
	}
}

func TestStartWhileActiveIsNoop(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 100})

	if !f.orch.Start() {
		t.Fatal("first Start should start a session")
	}
	if f.orch.Start() {
		t.Error("second Start should be a no-op")
	}
	f.orch.Handle(hotkey.IntentStart)
	if f.engine.startCount() != 1 {
		t.Errorf("engine starts = %d, want 1", f.engine.startCount())
	}
	if st := f.orch.Status(); st.Phase != PhaseRunning || st.SessionID == "" {
		t.Errorf("status = %+v", st)
	}

	f.orch.Handle(hotkey.IntentStop)
	f.waitIdle(t)
	if f.orch.Active() {
		t.Error("session not reclaimed")
	}
}

func TestStopWithoutSessionIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	if f.orch.Stop() {
		t.Error("Stop with no session should report false")
	}
	if st := f.orch.Status(); st.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", st.Phase)
	}
	if len(f.rec.all()) != 0 {
		t.Error("nothing should be recorded")
	}
}

func TestSessionIsRecorded(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 1000, "click_limit_enabled": true, "click_limit_count": 4})

	f.orch.Start()
	u := f.waitIdle(t)
	if u.Result == nil || u.Result.Reason != clicker.ReasonLimit || u.Count != 4 || u.LogID != 1 {
		t.Errorf("idle update = %+v", u)
	}

	entries := f.rec.all()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ClickCount != 4 {
		t.Errorf("click_count = %d, want 4", e.ClickCount)
	}
	if e.EndTime.Before(e.StartTime) || e.DurationSeconds < 0 {
		t.Errorf("entry times = %+v", e)
	}
	if got := e.EndTime.Sub(e.StartTime).Seconds(); got != e.DurationSeconds {
		t.Errorf("duration = %v, want %v", e.DurationSeconds, got)
	}
	if st := f.orch.Status(); st.Last == nil || st.Last.Count != 4 {
		t.Errorf("status.Last = %+v", st.Last)
	}

	// ready for another session
	if !f.orch.Start() {
		t.Fatal("restart after completion failed")
	}
	f.waitIdle(t)
	if len(f.rec.all()) != 2 {
		t.Errorf("entries = %d, want 2", len(f.rec.all()))
	}
}

func TestRecorderFailureStillReclaims(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 1000, "click_limit_enabled": true, "click_limit_count": 1})
	f.rec.err = store.ErrPersistence

	f.orch.Start()
	u := f.waitIdle(t)
	if !errors.Is(u.Err, store.ErrPersistence) {
		t.Errorf("update err = %v, want ErrPersistence", u.Err)
	}
	if f.orch.Active() {
		t.Error("session not reclaimed after record failure")
	}
}

func TestToggle(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 50})
	f.orch.Toggle()
	if !f.orch.Active() {
		t.Fatal("Toggle should start")
	}
	f.orch.Toggle()
	f.waitIdle(t)
	if f.engine.startCount() != 1 {
		t.Errorf("starts = %d", f.engine.startCount())
	}
}

func TestRunConsumesIntents(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 100})
	intents := make(chan hotkey.Intent)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- f.orch.Run(ctx, intents) }()

	intents <- hotkey.IntentStop
	intents <- hotkey.IntentStart
	intents <- hotkey.IntentStart
	intents <- hotkey.IntentStop
	f.waitIdle(t)

	if f.engine.startCount() != 1 {
		t.Errorf("starts = %d, want 1", f.engine.startCount())
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
}

func TestCountUpdatesArePublished(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 1000, "click_limit_enabled": true, "click_limit_count": 3})
	var (
		mu     sync.Mutex
		counts []int64
	)
	f.orch.OnUpdate(func(u Update) {
		if u.Phase == PhaseRunning && u.Count > 0 {
			mu.Lock()
			counts = append(counts, u.Count)
			mu.Unlock()
		}
	})
	f.orch.Start()
	f.waitIdle(t)

	mu.Lock()
	defer mu.Unlock()
	if len(counts) != 3 || counts[2] != 3 {
		t.Errorf("counts = %v, want [1 2 3]", counts)
	}
}

func TestShutdownStopsAndWaits(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 20})
	f.orch.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.orch.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if f.orch.Active() {
		t.Error("still active after Shutdown")
	}
	if len(f.rec.all()) != 1 {
		t.Errorf("entries = %d, want 1", len(f.rec.all()))
	}
}

func TestStoppingNeverFollowsIdle(t *testing.T) {
	f := newFixture(t, settings.Record{"cps": 1000, "click_limit_enabled": true, "click_limit_count": 2})
	var (
		mu     sync.Mutex
		phases = map[string][]Phase{}
	)
	f.orch.OnUpdate(func(u Update) {
		if u.Phase == PhaseRunning {
			return
		}
		mu.Lock()
		phases[u.SessionID] = append(phases[u.SessionID], u.Phase)
		mu.Unlock()
	})

	for i := 0; i < 20; i++ {
		f.orch.Start()
		f.orch.Stop()
		f.waitIdle(t)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(phases) != 20 {
		t.Fatalf("sessions = %d, want 20", len(phases))
	}
	for id, seq := range phases {
		if seq[len(seq)-1] != PhaseIdle {
			t.Errorf("session %s phases = %v, want idle last", id, seq)
		}
		if len(seq) > 2 {
			t.Errorf("session %s phases = %v, want at most stopping then idle", id, seq)
		}
	}
}
