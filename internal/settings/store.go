package settings

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Source tags where a change came from.
type Source string

const (
	SourceUpdate  Source = "update"
	SourceProfile Source = "profile"
)

// Change describes one applied write.
type Change struct {
	Keys     []Key
	Source   Source
	Settings Settings
	Version  uint64
}

// Has reports whether k was part of the change.
func (c Change) Has(k Key) bool {
	for _, ck := range c.Keys {
		if ck == k {
			return true
		}
	}
	return false
}

// Observer receives change notifications. Observers run on the goroutine
// that performed the write and may call back into the store.
type Observer func(Change)

// Store is the process-wide settings record. Readers get a copy through
// Snapshot and never block writers; writers are serialized and replace the
// record atomically, so a reader never sees a half-applied write.
type Store struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Settings]
	version atomic.Uint64

	subMu  sync.RWMutex
	subs   map[uint64]Observer
	nextID uint64

	qmu      sync.Mutex
	queue    []Change
	draining bool

	// >0 while EnforceModeRange is installed
	modeRange atomic.Int32
}

// NewStore returns a store seeded with initial.
func NewStore(initial Settings) *Store {
	s := &Store{subs: make(map[uint64]Observer)}
	s.current.Store(&initial)
	return s
}

// Snapshot returns an independent copy of the current settings.
func (s *Store) Snapshot() Settings {
	return *s.current.Load()
}

// Version increments once per successful write.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Update validates and applies a single field, then notifies observers.
// On error the store is unchanged and nobody is notified.
func (s *Store) Update(key string, value any) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	next, err := s.Snapshot().Apply(k, value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	changed := []Key{k}
	if k == KeySpecificPos {
		changed = []Key{KeySpecificPosX, KeySpecificPosY}
	}
	next, changed = s.clampMode(next, changed)
	s.commit(next, changed, SourceUpdate)
	s.mu.Unlock()

	s.drain()
	return nil
}

// UpdateRecord validates every entry of rec together, as ApplyRecord does,
// and commits the fields that actually changed in one write with one
// notification. On error nothing is applied. It returns the changed keys;
// when none changed no notification fires.
func (s *Store) UpdateRecord(rec Record) ([]Key, error) {
	s.mu.Lock()
	base := s.Snapshot()
	next, err := base.ApplyRecord(rec)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next, changed := s.clampMode(next, Diff(base, next))
	if len(changed) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.commit(next, changed, SourceUpdate)
	s.mu.Unlock()

	s.drain()
	return changed, nil
}

// LoadProfile replaces the record with the recognized fields of rec. Unknown
// fields are ignored. Recognized fields with bad values are skipped and
// reported in the returned error, while the rest are still applied.
// Exactly one notification fires.
func (s *Store) LoadProfile(rec Record) error {
	s.mu.Lock()
	next := s.Snapshot()
	var (
		changed []Key
		errs    []error
	)
	for _, name := range rec.SortedKeys() {
		k, err := ParseKey(name)
		if err != nil {
			continue
		}
		applied, err := next.Apply(k, rec[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		next = applied
		changed = append(changed, k)
	}
	next, changed = s.clampMode(next, changed)
	s.commit(next, changed, SourceProfile)
	s.mu.Unlock()

	s.drain()
	if len(errs) > 0 {
		return fmt.Errorf("load profile: %w", errors.Join(errs...))
	}
	return nil
}

// Record returns the current settings in persisted form.
func (s *Store) Record() Record {
	return s.Snapshot().Record()
}

// commit must be called with s.mu held.
func (s *Store) commit(next Settings, changed []Key, src Source) {
	s.current.Store(&next)
	v := s.version.Add(1)

	s.qmu.Lock()
	s.queue = append(s.queue, Change{Keys: changed, Source: src, Settings: next, Version: v})
	s.qmu.Unlock()
}

// drain delivers queued changes in order. A write made from inside an
// observer finds draining set, so its change is delivered after the current
// round instead of recursively.
func (s *Store) drain() {
	s.qmu.Lock()
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.notify(c)

		s.qmu.Lock()
	}
	s.draining = false
	s.qmu.Unlock()
}

func (s *Store) notify(c Change) {
	s.subMu.RLock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	s.subMu.RUnlock()
	slices.Sort(ids)

	for _, id := range ids {
		s.subMu.RLock()
		fn, ok := s.subs[id]
		s.subMu.RUnlock()
		if ok {
			fn(c)
		}
	}
}

// Subscription is a handle for removing an observer.
type Subscription struct {
	store   *Store
	id      uint64
	release func()
	once    sync.Once
}

// Subscribe registers fn for every subsequent change. Observers are called
// in subscription order.
func (s *Store) Subscribe(fn Observer) *Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	s.subs[s.nextID] = fn
	return &Subscription{store: s, id: s.nextID}
}

// Unsubscribe is idempotent.
func (sub *Subscription) Unsubscribe() {
	if sub == nil {
		return
	}
	sub.once.Do(func() {
		if sub.release != nil {
			sub.release()
			return
		}
		sub.store.subMu.Lock()
		delete(sub.store.subs, sub.id)
		sub.store.subMu.Unlock()
	})
}

// EnforceModeRange keeps cps inside the band of cps_mode. Every write that
// touches either field is clamped before it is committed, so the clamp is
// part of the same change and notification. Unsubscribe turns it off.
func (s *Store) EnforceModeRange() *Subscription {
	s.modeRange.Add(1)
	return &Subscription{release: func() { s.modeRange.Add(-1) }}
}

// clampMode must be called with s.mu held.
func (s *Store) clampMode(next Settings, changed []Key) (Settings, []Key) {
	if s.modeRange.Load() <= 0 || next.CPS == 0 {
		return next, changed
	}
	if !slices.Contains(changed, KeyCPS) && !slices.Contains(changed, KeyCPSMode) {
		return next, changed
	}
	clamped := ClampToMode(next.CPS, next.CPSMode)
	if clamped == next.CPS {
		return next, changed
	}
	next.CPS = clamped
	if !slices.Contains(changed, KeyCPS) {
		changed = append(changed, KeyCPS)
	}
	return next, changed
}
