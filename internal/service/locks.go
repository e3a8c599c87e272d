package service

import "sync"

// RentalLocks serializes all billing mutations per rental id. Requests for
// different rentals proceed independently; two writers on the same rental
// queue up here before opening their transaction. One instance is shared by
// every service that mutates rental-scoped state.
type RentalLocks struct {
	mu    sync.Mutex
	locks map[int64]*rentalLock
}

type rentalLock struct {
	mu   sync.Mutex
	refs int
}

func NewRentalLocks() *RentalLocks {
	return &RentalLocks{locks: make(map[int64]*rentalLock)}
}

// Acquire blocks until the rental's lock is held and returns the release
// function. Lock entries are dropped once the last holder releases.
func (l *RentalLocks) Acquire(rentalID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[rentalID]
	if !ok {
		entry = &rentalLock{}
		l.locks[rentalID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, rentalID)
		}
		l.mu.Unlock()
	}
}
