package sync

import (
	"sort"
	base "sync"
)

const virtualNodesPerLock = 200

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a set of locks. This provides concurrent data access while also
// limiting the total memory footprint.
type StripedLock struct {
	locks    []base.RWMutex
	hashRing *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	return &StripedLock{
		locks:    make([]base.RWMutex, stripes),
		hashRing: newRing(stripes, virtualNodesPerLock),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.Stripe(key)]
}

// Stripe returns the index of the lock guarding key.
func (l *StripedLock) Stripe(key []byte) int {
	return l.hashRing.stripe(key)
}

// LockAll acquires every stripe covering writeKeys for writing and every
// stripe covering readKeys for reading. A stripe covering keys of both sets is
// write locked. Stripes are acquired in index order, so callers locking
// overlapping sets can't deadlock. The returned func releases all of them.
func (l *StripedLock) LockAll(writeKeys, readKeys [][]byte) (unlock func()) {
	modes := make(map[int]bool)
	for _, key := range readKeys {
		modes[l.Stripe(key)] = false
	}
	for _, key := range writeKeys {
		modes[l.Stripe(key)] = true
	}

	stripes := make([]int, 0, len(modes))
	for stripe := range modes {
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)

	for _, stripe := range stripes {
		if modes[stripe] {
			l.locks[stripe].Lock()
		} else {
			l.locks[stripe].RLock()
		}
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			if modes[stripes[i]] {
				l.locks[stripes[i]].Unlock()
			} else {
				l.locks[stripes[i]].RUnlock()
			}
		}
	}
}
