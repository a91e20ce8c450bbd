// Package chainlock provides the coarse lock that serializes access to the
// chain state and the structures layered on it.
package chainlock

// ChainLock is the single lock guarding the domain registry, the chain-state
// views built over it, and the mempool bookkeeping. Components beneath it do
// no locking of their own. Methods that require the lock take a *Guard
// parameter, so holding the lock is visible at every call site rather than
// assumed.
type ChainLock struct {
	acquireChan chan struct{}
}

// New returns a new, unheld ChainLock.
func New() *ChainLock {
	lock := &ChainLock{acquireChan: make(chan struct{}, 1)}
	lock.acquireChan <- struct{}{}
	return lock
}

// Acquire blocks until the lock is held and returns a Guard witnessing that
// fact. The returned Guard must be released exactly once.
func (l *ChainLock) Acquire() *Guard {
	<-l.acquireChan
	return &Guard{lock: l}
}

// Guard witnesses that its originating ChainLock is held. A nil or released
// Guard passed to a method that requires the lock is a programming error.
type Guard struct {
	lock *ChainLock
}

// Release returns the lock to its ChainLock. Releasing twice panics.
func (g *Guard) Release() {
	if g.lock == nil {
		panic("release of an already-released chain lock guard")
	}
	lock := g.lock
	g.lock = nil
	lock.acquireChan <- struct{}{}
}

// Held reports whether the guard still witnesses a held lock.
func (g *Guard) Held() bool {
	return g != nil && g.lock != nil
}
