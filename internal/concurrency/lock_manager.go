// Package concurrency provides per-key mutexes. The session registry uses
// one lock per link ID so start/stop/replace on the same link serialize
// while different links proceed independently.
package concurrency

import (
	"sync"
)

// LockManager hands out named locks. Locks are created on first use and
// kept for the manager's lifetime.
type LockManager struct {
	locks sync.Map
}

func NewLockManager() *LockManager {
	return &LockManager{}
}

// GetLock returns the mutex for key, creating it if needed.
func (lm *LockManager) GetLock(key string) *sync.Mutex {
	lock, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
