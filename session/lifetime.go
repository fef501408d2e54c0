package session

import "sync"

// lifetime holds the session's releasable resources and releases them
// once, newest first.
type lifetime struct {
	mu       sync.Mutex
	released bool
	fns      []func()
}

// add registers release. If the lifetime is already over it runs now.
func (l *lifetime) add(release func()) {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		release()
		return
	}
	l.fns = append(l.fns, release)
	l.mu.Unlock()
}

func (l *lifetime) release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	fns := l.fns
	l.fns = nil
	l.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
