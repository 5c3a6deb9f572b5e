package app

import "sync"

// mailbox is an unbounded FIFO of functions run by the coordinator loop.
// post never blocks, so goroutines the loop waits on can still post.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

// post enqueues fn. It reports false once the mailbox is closed.
func (m *mailbox) post(fn func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	m.wake()
	return true
}

// next blocks until a function is queued. After close it drains what is
// left and then reports false.
func (m *mailbox) next() (func(), bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			fn := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return fn, true
		}
		if m.closed {
			m.mu.Unlock()
			return nil, false
		}
		m.mu.Unlock()

		<-m.notify
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wake()
}

func (m *mailbox) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
