package progress

import "sync"

// ChanSink buffers events for a connection handler to drain. When the buffer
// is full ordinary updates are dropped; a terminal event evicts the oldest
// buffered update so it is never lost.
type ChanSink struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func NewChanSink(size int) *ChanSink {
	if size <= 0 {
		size = 1
	}
	return &ChanSink{ch: make(chan Event, size)}
}

// Events is closed once the sink is closed and drained.
func (s *ChanSink) Events() <-chan Event {
	return s.ch
}

func (s *ChanSink) Deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
		return
	default:
	}
	if !ev.Terminal() {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- ev:
	default:
	}
}

func (s *ChanSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
