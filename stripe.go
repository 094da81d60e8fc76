package stripemap

import (
	"sync"
	"unsafe"
)

// stripeLock guards every bucket whose index shares its low bits with the
// stripe index.
type stripeLock struct {
	sync.RWMutex

	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(sync.RWMutex{})%CacheLineSize) % CacheLineSize]byte
}

// stripeLocks is the stripe lock array. Its length is a power of two and
// never changes after construction.
//
// Operations that hold more than one stripe at a time must go through
// lockAll/unlockAll: acquisition is ascending and release is descending,
// which rules out circular waits between rehash, Clear and Stats.
type stripeLocks []stripeLock

func newStripeLocks(n int) stripeLocks {
	return make(stripeLocks, n)
}

func (s stripeLocks) lock(i int, write bool) {
	if write {
		s[i].Lock()
	} else {
		s[i].RLock()
	}
}

func (s stripeLocks) unlock(i int, write bool) {
	if write {
		s[i].Unlock()
	} else {
		s[i].RUnlock()
	}
}

func (s stripeLocks) lockAll(write bool) {
	for i := range s {
		s.lock(i, write)
	}
}

func (s stripeLocks) unlockAll(write bool) {
	for i := len(s) - 1; i >= 0; i-- {
		s.unlock(i, write)
	}
}
