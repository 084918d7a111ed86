// Package clicker runs the click-generation loop.
//
// An Engine owns no state between sessions. Each call to Start launches one
// goroutine that reads a fresh settings snapshot every iteration, so changes
// made while a session runs take effect on the next click.
package clicker

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/settings"
)

// Snapshotter supplies the settings the loop reads each iteration.
type Snapshotter interface {
	Snapshot() settings.Settings
}

// StopReason says why a session ended.
type StopReason string

const (
	ReasonStopped StopReason = "stopped"
	ReasonLimit   StopReason = "limit"
	ReasonZeroCPS StopReason = "zero_cps"
	ReasonFault   StopReason = "fault"
)

type EventKind int

const (
	// EventClick carries the running click count.
	EventClick EventKind = iota
	// EventStopped is the terminal event. It is sent exactly once.
	EventStopped
)

func (k EventKind) String() string {
	if k == EventStopped {
		return "stopped"
	}
	return "click"
}

// Event is emitted on Session.Events.
type Event struct {
	Kind      EventKind
	SessionID string
	Count     int64
	Reason    StopReason
	Err       error
	At        time.Time
}

// Result summarizes a finished session.
type Result struct {
	SessionID string
	Start     time.Time
	End       time.Time
	Count     int64
	Reason    StopReason
	Err       error
}

func (r Result) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Options tunes an Engine.
type Options struct {
	// WindowBackoff is the pause between lookups while the target window
	// is missing.
	WindowBackoff time.Duration
	// EventBuffer is the capacity of each session's event channel.
	EventBuffer int
	// Float64 returns values in [0, 1) for delay jitter.
	Float64 func() float64
	Logger  *logging.Logger
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		WindowBackoff: 100 * time.Millisecond,
		EventBuffer:   64,
		Float64:       rand.Float64,
	}
}

// Engine starts click sessions against a platform backend.
type Engine struct {
	pointer Pointer
	windows WindowFinder
	opts    Options
	log     *logging.Logger
}

// New creates an engine. Zero option fields fall back to DefaultOptions.
func New(pointer Pointer, windows WindowFinder, opts Options) *Engine {
	def := DefaultOptions()
	if opts.WindowBackoff <= 0 {
		opts.WindowBackoff = def.WindowBackoff
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = def.EventBuffer
	}
	if opts.Float64 == nil {
		opts.Float64 = def.Float64
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{pointer: pointer, windows: windows, opts: opts, log: log}
}

// Start launches a session. The caller must drain Session.Events until it is
// closed; the terminal event is the last value before the close.
func (e *Engine) Start(src Snapshotter) *Session {
	s := &Session{
		id:     uuid.NewString(),
		start:  time.Now(),
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
		events: make(chan Event, e.opts.EventBuffer),
	}
	s.running.Store(true)
	e.log.Verbose("session %s started", s.id)
	go e.run(s, src)
	return s
}

// Stop requests cooperative cancellation. It is safe to call repeatedly and
// from any goroutine.
func (e *Engine) Stop(s *Session) {
	if s != nil {
		s.Stop()
	}
}

func (e *Engine) run(s *Session, src Snapshotter) {
	reason, err := e.loop(s, src)

	s.result = Result{
		SessionID: s.id,
		Start:     s.start,
		End:       time.Now(),
		Count:     s.count.Load(),
		Reason:    reason,
		Err:       err,
	}
	s.running.Store(false)
	close(s.done)

	e.log.LogSession(s.id, string(reason), s.result.Count, s.result.Duration(), err)
	s.events <- Event{
		Kind:      EventStopped,
		SessionID: s.id,
		Count:     s.result.Count,
		Reason:    reason,
		Err:       err,
		At:        s.result.End,
	}
	close(s.events)
}

func (e *Engine) loop(s *Session, src Snapshotter) (StopReason, error) {
	var pace pacer
	for {
		if s.cancelled() {
			return ReasonStopped, nil
		}
		cfg := src.Snapshot()

		var window *Rect
		if cfg.WindowTargetingEnabled {
			r, err := e.findWindow(cfg.TargetWindow)
			if errors.Is(err, ErrWindowNotFound) {
				if !s.sleep(e.opts.WindowBackoff) {
					return ReasonStopped, nil
				}
				pace.reset()
				continue
			}
			if err != nil {
				return ReasonFault, err
			}
			window = &r
		}

		x, y := cfg.SpecificPos.X, cfg.SpecificPos.Y
		if cfg.TargetMode != settings.TargetSpecific {
			var err error
			if x, y, err = e.pointer.CurrentPosition(); err != nil {
				return ReasonFault, fmt.Errorf("query cursor: %w", err)
			}
		}

		if window == nil || window.Contains(x, y) {
			if cfg.TargetMode == settings.TargetSpecific {
				if err := e.pointer.MoveCursor(x, y); err != nil {
					return ReasonFault, fmt.Errorf("move cursor to (%d, %d): %w", x, y, err)
				}
			}
			if err := e.pointer.Click(cfg.MouseButton, cfg.ClickType); err != nil {
				return ReasonFault, fmt.Errorf("click %s: %w", cfg.MouseButton, err)
			}
			n := s.count.Add(1)
			s.emit(Event{Kind: EventClick, SessionID: s.id, Count: n, At: time.Now()})

			if cfg.ClickLimitEnabled && n >= int64(cfg.ClickLimitCount) {
				return ReasonLimit, nil
			}
		} else {
			e.log.Debug("session %s: (%d, %d) outside %s, click skipped", s.id, x, y, window)
		}

		if cfg.CPS <= 0 {
			return ReasonZeroCPS, nil
		}
		d := nextDelay(cfg.CPS, cfg.RandomDelay, e.opts.Float64)
		if !s.sleep(pace.schedule(time.Now(), d, minInterval(cfg.CPS))) {
			return ReasonStopped, nil
		}
	}
}

func (e *Engine) findWindow(title string) (Rect, error) {
	if title == "" || e.windows == nil {
		return Rect{}, ErrWindowNotFound
	}
	r, err := e.windows.FindWindowByTitle(title)
	if err != nil {
		if errors.Is(err, ErrWindowNotFound) {
			return Rect{}, ErrWindowNotFound
		}
		return Rect{}, fmt.Errorf("find window %q: %w", title, err)
	}
	return r, nil
}

// nextDelay is 1/cps, offset by up to ±25% when jitter is on, never negative.
func nextDelay(cps float64, jitter bool, float64fn func() float64) time.Duration {
	base := 1 / cps
	if jitter {
		base += (float64fn() - 0.5) * base * 0.5
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base * float64(time.Second))
}

// minInterval is the low end of the jitter band, the shortest gap allowed
// between two clicks at cps.
func minInterval(cps float64) time.Duration {
	return time.Duration(0.75 * float64(time.Second) / cps)
}

// pacer schedules wake-ups against the previous target rather than the
// current time, so loop overhead does not accumulate into the interval.
type pacer struct {
	next time.Time
}

// schedule returns how long to sleep so the next click lands d after the
// previous target. A late iteration is made up only down to floor; more
// than one interval behind, it restarts from now.
func (p *pacer) schedule(now time.Time, d, floor time.Duration) time.Duration {
	if p.next.IsZero() || now.Sub(p.next) > d {
		p.next = now
	}
	p.next = p.next.Add(d)
	if p.next.Sub(now) < floor {
		p.next = now.Add(floor)
	}
	return p.next.Sub(now)
}

func (p *pacer) reset() {
	p.next = time.Time{}
}

// Session is one run of the click loop.
type Session struct {
	id       string
	start    time.Time
	cancel   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	events   chan Event
	count    atomic.Int64
	running  atomic.Bool
	result   Result
}

func (s *Session) ID() string           { return s.id }
func (s *Session) StartedAt() time.Time { return s.start }
func (s *Session) Count() int64         { return s.count.Load() }
func (s *Session) Running() bool        { return s.running.Load() }

// Events delivers click updates and then exactly one EventStopped, after
// which the channel is closed.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the loop has exited and the Result is final.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop signals the loop to exit. The loop notices within one delay interval.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.cancel) })
}

// Wait blocks until the loop exits and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	return s.result
}

func (s *Session) cancelled() bool {
	select {
	case <-s.cancel:
		return true
	default:
		return false
	}
}

// sleep waits d or until Stop; it returns false when stopped.
func (s *Session) sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.cancelled()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.cancel:
		return false
	case <-t.C:
		return true
	}
}

// emit delivers a click update unless the session is being cancelled and
// the consumer is not keeping up.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.cancel:
	}
}
