package app

import "sync"

// subscribers fans State snapshots out to listeners. Each listener channel
// holds only the newest snapshot; older ones are replaced.
type subscribers struct {
	mu     sync.Mutex
	next   int
	chans  map[int]chan State
	closed bool
}

func (s *subscribers) subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	if s.chans == nil {
		s.chans = make(map[int]chan State)
	}
	id := s.next
	s.next++
	s.chans[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.chans[id]; ok {
			delete(s.chans, id)
			close(c)
		}
	}
}

func (s *subscribers) publish(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.chans {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (s *subscribers) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, ch := range s.chans {
		delete(s.chans, id)
		close(ch)
	}
}
