package kyc

import "sync"

// visitLocks allows one mutating action per visit at a time.
type visitLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newVisitLocks() *visitLocks {
	return &visitLocks{held: make(map[string]struct{})}
}

// tryLock returns a release func, or false when an action is already running.
func (l *visitLocks) tryLock(visitID string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[visitID]; busy {
		return nil, false
	}
	l.held[visitID] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.held, visitID)
		l.mu.Unlock()
	}, true
}
