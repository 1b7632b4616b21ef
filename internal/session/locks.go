package session

import "sync"

// Locks hands out one mutex per user.
type Locks struct {
	m sync.Map
}

// Lock acquires the user's mutex and returns its unlock function.
func (l *Locks) Lock(userID string) func() {
	v, _ := l.m.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
