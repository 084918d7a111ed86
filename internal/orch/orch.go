// Package orch binds start/stop intents to the click engine, keeps at most
// one click session alive and records each finished session.
package orch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/store"
)

// Phase is the orchestrator's lifecycle state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseStopping Phase = "stopping"
)

// Engine starts click sessions.
type Engine interface {
	Start(src clicker.Snapshotter) *clicker.Session
}

// Recorder persists finished sessions.
type Recorder interface {
	AddLog(ctx context.Context, entry store.LogEntry) (int64, error)
}

// Options configures the orchestrator.
type Options struct {
	RecordTimeout time.Duration // Bound on a single session-log write
	Logger        *logging.Logger
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		RecordTimeout: 5 * time.Second,
	}
}

// Update is published on every phase change and click count change.
type Update struct {
	Phase     Phase
	SessionID string
	Count     int64
	// Set once a session has ended.
	Result *clicker.Result
	LogID  int64
	Err    error
}

// UpdateCallback receives updates. It runs on the orchestrator's goroutine
// and must not block.
type UpdateCallback func(Update)

// Status is a point-in-time view for control surfaces.
type Status struct {
	Phase     Phase
	SessionID string
	Count     int64
	StartedAt time.Time
	Last      *clicker.Result
}

// Orchestrator enforces the single-session rule.
type Orchestrator struct {
	engine   Engine
	settings clicker.Snapshotter
	recorder Recorder
	opts     Options
	log      *logging.Logger

	mu        sync.Mutex
	session   *clicker.Session
	stopping  bool
	pumpDone  chan struct{}
	last      *clicker.Result
	callbacks []UpdateCallback

	// orders the stopping and idle updates of a session
	phaseMu sync.Mutex
}

// New creates an orchestrator. recorder may be nil to skip session logs.
func New(engine Engine, settings clicker.Snapshotter, recorder Recorder, opts Options) *Orchestrator {
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = DefaultOptions().RecordTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Orchestrator{
		engine:   engine,
		settings: settings,
		recorder: recorder,
		opts:     opts,
		log:      log,
	}
}

// OnUpdate registers a callback for status updates.
func (o *Orchestrator) OnUpdate(cb UpdateCallback) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, cb)
}

// Start begins a session unless one is active. It reports whether a new
// session was started; a start while active is a no-op, never queued.
func (o *Orchestrator) Start() bool {
	o.mu.Lock()
	if o.session != nil {
		id := o.session.ID()
		o.mu.Unlock()
		o.log.Debug("start ignored: session %s active", id)
		return false
	}
	sess := o.engine.Start(o.settings)
	o.session = sess
	o.stopping = false
	o.pumpDone = make(chan struct{})
	done := o.pumpDone
	o.mu.Unlock()

	o.log.Info("click session %s started", sess.ID())
	o.publish(Update{Phase: PhaseRunning, SessionID: sess.ID()})
	go o.pump(sess, done)
	return true
}

// Stop cancels the active session. Without one it is a no-op.
func (o *Orchestrator) Stop() bool {
	o.mu.Lock()
	sess := o.session
	if sess == nil || o.stopping {
		o.mu.Unlock()
		return false
	}
	o.stopping = true
	o.mu.Unlock()

	// A session that already ended on its own has published idle; do not
	// follow that with a stale stopping.
	o.phaseMu.Lock()
	if o.current() == sess {
		o.publish(Update{Phase: PhaseStopping, SessionID: sess.ID(), Count: sess.Count()})
	}
	o.phaseMu.Unlock()
	sess.Stop()
	return true
}

// Toggle starts when idle and stops when running.
func (o *Orchestrator) Toggle() {
	if o.Active() {
		o.Stop()
		return
	}
	o.Start()
}

// Handle applies one hotkey intent.
func (o *Orchestrator) Handle(in hotkey.Intent) {
	switch in {
	case hotkey.IntentStart:
		o.Start()
	case hotkey.IntentStop:
		o.Stop()
	}
}

// Run applies intents until ctx is done or the channel closes.
func (o *Orchestrator) Run(ctx context.Context, intents <-chan hotkey.Intent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-intents:
			if !ok {
				return nil
			}
			o.Handle(in)
		}
	}
}

// Active reports whether a session exists.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session != nil
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{Phase: PhaseIdle, Last: o.last}
	if o.session != nil {
		st.Phase = PhaseRunning
		if o.stopping {
			st.Phase = PhaseStopping
		}
		st.SessionID = o.session.ID()
		st.Count = o.session.Count()
		st.StartedAt = o.session.StartedAt()
	}
	return st
}

// Shutdown stops any session and waits for it to be recorded.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.Stop()
	o.mu.Lock()
	done := o.pumpDone
	active := o.session != nil
	o.mu.Unlock()
	if !active || done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for session shutdown: %w", ctx.Err())
	}
}

// pump forwards click counts, then reclaims the session once the terminal
// event has arrived and the loop goroutine is gone.
func (o *Orchestrator) pump(sess *clicker.Session, done chan struct{}) {
	defer close(done)

	for ev := range sess.Events() {
		if ev.Kind == clicker.EventClick {
			o.publish(Update{Phase: PhaseRunning, SessionID: sess.ID(), Count: ev.Count})
		}
	}
	res := sess.Wait()

	logID, recErr := o.record(res)
	if recErr != nil {
		o.log.Error("record session %s: %v", res.SessionID, recErr)
	}

	err := res.Err
	if err == nil {
		err = recErr
	}

	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()
	o.mu.Lock()
	o.session = nil
	o.stopping = false
	o.last = &res
	o.mu.Unlock()
	o.publish(Update{Phase: PhaseIdle, SessionID: res.SessionID, Count: res.Count, Result: &res, LogID: logID, Err: err})
}

func (o *Orchestrator) current() *clicker.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

func (o *Orchestrator) record(res clicker.Result) (int64, error) {
	if o.recorder == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.opts.RecordTimeout)
	defer cancel()
	return o.recorder.AddLog(ctx, store.LogEntry{
		StartTime:       res.Start,
		EndTime:         res.End,
		DurationSeconds: res.Duration().Seconds(),
		ClickCount:      res.Count,
	})
}

func (o *Orchestrator) publish(u Update) {
	o.mu.Lock()
	cbs := make([]UpdateCallback, len(o.callbacks))
	copy(cbs, o.callbacks)
	o.mu.Unlock()
	for _, cb := range cbs {
		cb(u)
	}
}
