package stripemap

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Rehash state bits. They are independent: disabling rehash does not
// interrupt one in flight.
const (
	rehashInProgress uint32 = 1 << iota
	rehashEnabled
)

const (
	resizeWaitInitial = time.Microsecond
	resizeWaitMax     = 500 * time.Microsecond
)

// resizeGuard is held by the single goroutine allowed to replace the
// bucket array or clear the table. release clears the in-progress bit and
// must run on every exit path, so callers defer it right after entering.
type resizeGuard struct {
	state *atomic.Uint32
}

func (g resizeGuard) release() {
	g.state.And(^rehashInProgress)
}

// tryEnterResize sets the in-progress bit if it is clear and, when
// requireEnabled is set, the enabled bit is set. Exactly one of several
// racing callers succeeds.
func tryEnterResize(state *atomic.Uint32, requireEnabled bool) (resizeGuard, bool) {
	for {
		cur := state.Load()
		if cur&rehashInProgress != 0 || requireEnabled && cur&rehashEnabled == 0 {
			return resizeGuard{}, false
		}
		if state.CompareAndSwap(cur, cur|rehashInProgress) {
			return resizeGuard{state: state}, true
		}
	}
}

// enterResize waits, with exponential backoff, until no resize is in
// flight and then claims the in-progress bit regardless of the enabled
// bit.
func (t *Table[K, V]) enterResize() resizeGuard {
	if g, ok := tryEnterResize(&t.state, false); ok {
		return g
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = resizeWaitInitial
	b.MaxInterval = resizeWaitMax
	b.MaxElapsedTime = 0
	b.Reset()
	for {
		time.Sleep(b.NextBackOff())
		if g, ok := tryEnterResize(&t.state, false); ok {
			return g
		}
	}
}

// overloaded reports whether count elements in n buckets exceed the max
// load factor.
func (t *Table[K, V]) overloaded(count int64, n uint64) bool {
	return float64(count) > float64(t.maxLoadFactor)*float64(n)
}

// lenFor returns the smallest valid bucket count that holds count
// elements within the max load factor.
func (t *Table[K, V]) lenFor(count int) int {
	need := int(math.Ceil(float64(count) / float64(t.maxLoadFactor)))
	return max(nextPowOf2(need), len(t.locks), minInitialBuckets)
}

// checkRehash runs after every insert. The load factor is read without
// locks, so the trigger is approximate; the winner rechecks it with every
// stripe held.
func (t *Table[K, V]) checkRehash() {
	if !t.overloaded(t.count.Load(), t.bucketCount.Load()) {
		return
	}
	g, ok := tryEnterResize(&t.state, true)
	if !ok {
		return
	}
	defer g.release()
	t.resize(func(oldLen, count int) int {
		if !t.overloaded(int64(count), uint64(oldLen)) {
			return oldLen
		}
		return max(oldLen<<1, t.lenFor(count))
	})
}

// Rehash grows the bucket array to at least n buckets on the calling
// goroutine. It does nothing if the table already has that many. Rehash
// works whether or not automatic rehash is enabled.
func (t *Table[K, V]) Rehash(n int) {
	if n <= 0 || uint64(n) <= t.bucketCount.Load() {
		return
	}
	g := t.enterResize()
	defer g.release()
	t.resize(func(int, int) int {
		return max(nextPowOf2(n), len(t.locks))
	})
}

// Reserve grows the bucket array so that n elements fit within the max
// load factor.
func (t *Table[K, V]) Reserve(n int) {
	if n <= 0 || !t.overloaded(int64(n), t.bucketCount.Load()) {
		return
	}
	g := t.enterResize()
	defer g.release()
	t.resize(func(int, int) int {
		return t.lenFor(n)
	})
}

// resize replaces the bucket array with one of target(oldLen, count)
// buckets if that is larger. The caller holds the resize guard.
func (t *Table[K, V]) resize(target func(oldLen, count int) int) {
	start := time.Now()
	oldLen, newLen, count := t.relink(target)
	if newLen <= oldLen {
		return
	}
	t.rehashes.Add(1)
	t.log.WithFields(logrus.Fields{
		"old_buckets": oldLen,
		"new_buckets": newLen,
		"elements":    count,
		"duration":    time.Since(start),
	}).Debug("stripemap: rehash completed")
}

// relink moves every node into a new bucket array while all stripes are
// write-locked. The new array is allocated before any node moves, and
// moving a node runs no user code, so relink either completes or leaves
// the table as it was.
func (t *Table[K, V]) relink(target func(oldLen, count int) int) (oldLen, newLen, count int) {
	t.locks.lockAll(true)
	defer t.locks.unlockAll(true)

	oldLen, count = len(t.buckets), int(t.count.Load())
	newLen = target(oldLen, count)
	if newLen <= oldLen {
		return oldLen, oldLen, count
	}

	buckets := make([]bucket[K, V], newLen)
	mask := uint64(newLen - 1)
	for i := range t.buckets {
		for n := t.buckets[i].head; n != nil; {
			next := n.next
			buckets[n.hash&mask].push(n)
			n = next
		}
	}
	t.buckets = buckets
	t.bucketCount.Store(uint64(newLen))
	return oldLen, newLen, count
}

// Clear removes every node. It waits for an in-flight rehash to finish
// and keeps the current bucket count.
func (t *Table[K, V]) Clear() {
	g := t.enterResize()
	defer g.release()
	cleared := t.clearAll()
	t.log.WithField("elements", cleared).Debug("stripemap: table cleared")
}

func (t *Table[K, V]) clearAll() int64 {
	t.locks.lockAll(true)
	defer t.locks.unlockAll(true)
	for i := range t.buckets {
		t.buckets[i].reset()
	}
	return t.count.Swap(0)
}

// EnableRehash turns automatic rehash back on.
func (t *Table[K, V]) EnableRehash() {
	t.state.Or(rehashEnabled)
}

// DisableRehash stops inserts from triggering a rehash. A rehash already
// in flight completes. Rehash and Reserve are not affected.
func (t *Table[K, V]) DisableRehash() {
	t.state.And(^rehashEnabled)
}

// IsRehashEnabled reports whether inserts may trigger a rehash.
func (t *Table[K, V]) IsRehashEnabled() bool {
	return t.state.Load()&rehashEnabled != 0
}

// CanRehash reports whether automatic rehash is enabled and none is in
// flight.
func (t *Table[K, V]) CanRehash() bool {
	return t.state.Load() == rehashEnabled
}
