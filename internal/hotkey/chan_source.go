package hotkey

import "sync"

// ChanSource is a Source fed by Send. The HTTP API and tests use it to
// inject key events without a global keyboard hook.
type ChanSource struct {
	mu      sync.Mutex
	ch      chan KeyEvent
	started bool
}

func NewChanSource() *ChanSource {
	return &ChanSource{}
}

func (s *ChanSource) Start() (<-chan KeyEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, ErrAlreadyListening
	}
	s.ch = make(chan KeyEvent, 16)
	s.started = true
	return s.ch, nil
}

func (s *ChanSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		close(s.ch)
		s.started = false
	}
	return nil
}

// Send delivers ev if the source is running and has room, and reports
// whether it did.
func (s *ChanSource) Send(ev KeyEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}
