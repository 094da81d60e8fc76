// Package stripemap provides Table, a concurrent chained hash table that
// guards its buckets with a fixed array of reader-writer locks (stripes)
// and grows online without a table-wide lock.
package stripemap

import (
	"math/bits"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Scope selects whether an operation stops at the first node holding a key
// or processes every node holding it.
type Scope int

const (
	// First acts on one matching node. When a key has duplicates, which
	// one is unspecified.
	First Scope = iota
	// All acts on every matching node.
	All
)

// Multiplicity selects the insert behavior for a key that is already
// present.
type Multiplicity int

const (
	// Unique replaces the value of an existing node.
	Unique Multiplicity = iota
	// Always appends another node, producing duplicate keys.
	Always
)

// Visitor is called with a key and a pointer to its value while the
// stripe holding them is write-locked. Returning false stops visitation.
//
// The stripe locks are not reentrant: a Visitor must not call any method
// of the Table it is visiting, doing so deadlocks.
type Visitor[K, V any] func(key K, value *V) bool

// ReadOnlyVisitor is the read-locked variant of Visitor. The same
// reentrancy rule applies.
type ReadOnlyVisitor[K, V any] func(key K, value V) bool

// Table is a striped hash table with open chaining. It holds unique keys
// or duplicate keys depending on which insert operations are used, see
// Multiplicity.
//
// Buckets are grouped into stripes by the low bits of their index: bucket
// i belongs to stripe i&(NumStripes()-1). Every operation on a key locks
// exactly one stripe, so operations on keys of different stripes run in
// parallel. When an insert pushes the load factor over MaxLoadFactor, the
// inserting goroutine that wins the rehash flag write-locks all stripes in
// ascending order and relinks every node into a bucket array of twice the
// size. Lookups on other stripes keep running until that point.
//
// A Table must not be copied after first use.
type Table[K, V any] struct {
	hash  func(K) uint64
	equal func(a, b K) bool

	locks      stripeLocks
	stripeMask uint64

	// buckets may be read with any stripe locked and is only replaced
	// with every stripe write-locked.
	buckets []bucket[K, V]

	// bucketCount mirrors len(buckets) for lock-free sizing hints.
	bucketCount atomic.Uint64
	count       atomic.Int64
	state       atomic.Uint32
	rehashes    atomic.Uint32

	maxLoadFactor float32
	log           logrus.FieldLogger
}

// New creates a Table that hashes keys with hash and compares them with
// equal. Keys that are equal must hash to the same value; this is not
// checked.
func New[K, V any](
	hash func(K) uint64,
	equal func(a, b K) bool,
	options ...Option,
) (*Table[K, V], error) {
	if hash == nil || equal == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "hash and equal functions are required")
	}
	c := defaultConfig()
	for _, o := range options {
		o(&c)
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}

	t := &Table[K, V]{
		hash:          hash,
		equal:         equal,
		locks:         newStripeLocks(c.Stripes),
		stripeMask:    uint64(c.Stripes - 1),
		buckets:       make([]bucket[K, V], c.InitialBuckets),
		maxLoadFactor: c.MaxLoadFactor,
		log:           c.Logger,
	}
	t.bucketCount.Store(uint64(c.InitialBuckets))
	if !c.RehashDisabled {
		t.state.Store(rehashEnabled)
	}
	return t, nil
}

// MustNew is like New but panics on invalid options.
func MustNew[K, V any](
	hash func(K) uint64,
	equal func(a, b K) bool,
	options ...Option,
) *Table[K, V] {
	t, err := New[K, V](hash, equal, options...)
	if err != nil {
		panic(err)
	}
	return t
}

// lockBucket locks the stripe that owns hash and returns the bucket the
// hash maps to. The stripe depends only on the low bits of the hash, since
// the bucket count is never below the stripe count, so a rehash cannot move
// a key to another stripe. The bucket index is computed from the array
// length read under the lock, and the stripe is rechecked against it
// before returning. Once the stripe is held the bucket array cannot be
// replaced until it is released.
func (t *Table[K, V]) lockBucket(hash uint64, write bool) (int, *bucket[K, V]) {
	for {
		hint := t.bucketCount.Load()
		stripe := int(hash & (hint - 1) & t.stripeMask)
		t.locks.lock(stripe, write)
		bidx := hash & uint64(len(t.buckets)-1)
		if int(bidx&t.stripeMask) == stripe {
			return stripe, &t.buckets[bidx]
		}
		t.locks.unlock(stripe, write)
	}
}

func (t *Table[K, V]) insert(key K, value V, m Multiplicity) bool {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, true)
	defer t.locks.unlock(stripe, true)
	if !b.insert(hash, key, value, t.equal, m) {
		return false
	}
	t.count.Add(1)
	return true
}

// InsertUnique stores value under key, replacing the value of an existing
// node holding key. It reports whether a new node was created.
func (t *Table[K, V]) InsertUnique(key K, value V) (inserted bool) {
	if inserted = t.insert(key, value, Unique); inserted {
		t.checkRehash()
	}
	return inserted
}

// InsertAlways appends a node for key even if the key is already present.
func (t *Table[K, V]) InsertAlways(key K, value V) {
	t.insert(key, value, Always)
	t.checkRehash()
}

// loadOrInsert returns the value of the first node holding key, or inserts
// value when there is none.
func (t *Table[K, V]) loadOrInsert(key K, value V) (actual V, loaded bool) {
	if actual, loaded = t.loadOrPush(key, value); !loaded {
		t.checkRehash()
	}
	return actual, loaded
}

func (t *Table[K, V]) loadOrPush(key K, value V) (V, bool) {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, true)
	defer t.locks.unlock(stripe, true)
	if n := b.find(hash, key, t.equal); n != nil {
		return n.value, true
	}
	b.push(&node[K, V]{hash: hash, key: key, value: value})
	t.count.Add(1)
	return value, false
}

func (t *Table[K, V]) erase(key K, scope Scope, pred func(value V) bool) int {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, true)
	defer t.locks.unlock(stripe, true)
	erased := b.erase(hash, key, t.equal, scope, pred)
	if erased != 0 {
		t.count.Add(-int64(erased))
	}
	return erased
}

// EraseFirst removes one node holding key and reports whether there was
// one.
func (t *Table[K, V]) EraseFirst(key K) bool {
	return t.erase(key, First, nil) != 0
}

// EraseAll removes every node holding key and returns how many there were.
func (t *Table[K, V]) EraseAll(key K) int {
	return t.erase(key, All, nil)
}

// EraseFirstIf removes the first node holding key whose value satisfies
// pred. pred runs with the stripe write-locked.
func (t *Table[K, V]) EraseFirstIf(key K, pred func(value V) bool) bool {
	return t.erase(key, First, pred) != 0
}

// EraseAllIf removes every node holding key whose value satisfies pred and
// returns how many were removed. pred runs with the stripe write-locked.
func (t *Table[K, V]) EraseAllIf(key K, pred func(value V) bool) int {
	return t.erase(key, All, pred)
}

// GetValue returns the value of the first node holding key.
func (t *Table[K, V]) GetValue(key K) (value V, ok bool) {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, false)
	defer t.locks.unlock(stripe, false)
	if n := b.find(hash, key, t.equal); n != nil {
		return n.value, true
	}
	return value, false
}

// GetValues returns the values of every node holding key, in chain order.
// Nodes of one key share a hash and rehash keeps their relative order, so
// chain order is insertion order. It returns nil when key is absent.
func (t *Table[K, V]) GetValues(key K) []V {
	return t.AppendValues(nil, key)
}

// AppendValues appends the values of every node holding key to dst.
func (t *Table[K, V]) AppendValues(dst []V, key K) []V {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, false)
	defer t.locks.unlock(stripe, false)
	b.visit(hash, key, t.equal, All, func(n *node[K, V]) bool {
		dst = append(dst, n.value)
		return true
	})
	return dst
}

// Contains reports whether key is present.
func (t *Table[K, V]) Contains(key K) bool {
	_, ok := t.GetValue(key)
	return ok
}

func (t *Table[K, V]) setValue(key K, value V, scope Scope) int {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, true)
	defer t.locks.unlock(stripe, true)
	return b.visit(hash, key, t.equal, scope, func(n *node[K, V]) bool {
		n.value = value
		return true
	})
}

// SetValueFirst replaces the value of one node holding key. It reports
// false, and stores nothing, when key is absent.
func (t *Table[K, V]) SetValueFirst(key K, value V) bool {
	return t.setValue(key, value, First) != 0
}

// SetValueAll replaces the value of every node holding key and returns how
// many nodes were updated.
func (t *Table[K, V]) SetValueAll(key K, value V) int {
	return t.setValue(key, value, All)
}

func (t *Table[K, V]) setComputedValue(key K, scope Scope, fn Visitor[K, V]) (visited int, inserted bool) {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, true)
	defer func() {
		t.locks.unlock(stripe, true)
		if inserted {
			t.checkRehash()
		}
	}()
	visited = b.visit(hash, key, t.equal, scope, func(n *node[K, V]) bool {
		return fn(n.key, &n.value)
	})
	if visited != 0 {
		return visited, false
	}
	n := &node[K, V]{hash: hash, key: key}
	b.push(n)
	t.count.Add(1)
	inserted = true
	if !fn(n.key, &n.value) {
		return -1, inserted
	}
	return 1, inserted
}

// SetComputedValueFirst runs fn on one node holding key. When key is
// absent, a node holding the zero value is inserted first and fn runs on
// it. visited follows the Visit sign convention.
func (t *Table[K, V]) SetComputedValueFirst(key K, fn Visitor[K, V]) (visited int, inserted bool) {
	return t.setComputedValue(key, First, fn)
}

// SetComputedValueAll runs fn on every node holding key, inserting a
// zero-valued node first when there is none.
func (t *Table[K, V]) SetComputedValueAll(key K, fn Visitor[K, V]) (visited int, inserted bool) {
	return t.setComputedValue(key, All, fn)
}

// Visit runs fn on every node holding key with the stripe write-locked. It
// returns the number of nodes visited, or its negation if fn stopped the
// visitation by returning false.
func (t *Table[K, V]) Visit(key K, fn Visitor[K, V]) int {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, true)
	defer t.locks.unlock(stripe, true)
	return b.visit(hash, key, t.equal, All, func(n *node[K, V]) bool {
		return fn(n.key, &n.value)
	})
}

// VisitReadOnly is like Visit but read-locks the stripe.
func (t *Table[K, V]) VisitReadOnly(key K, fn ReadOnlyVisitor[K, V]) int {
	hash := t.hash(key)
	stripe, b := t.lockBucket(hash, false)
	defer t.locks.unlock(stripe, false)
	return b.visit(hash, key, t.equal, All, func(n *node[K, V]) bool {
		return fn(n.key, n.value)
	})
}

// visitStripe runs fn on every node of stripe with the stripe locked.
func (t *Table[K, V]) visitStripe(stripe int, write bool, fn func(n *node[K, V]) bool) (visited int, stopped bool) {
	t.locks.lock(stripe, write)
	defer t.locks.unlock(stripe, write)
	for i := stripe; i < len(t.buckets); i += len(t.locks) {
		for n := t.buckets[i].head; n != nil; n = n.next {
			visited++
			if !fn(n) {
				return visited, true
			}
		}
	}
	return visited, false
}

func (t *Table[K, V]) visitAll(write bool, fn func(n *node[K, V]) bool) int {
	total := 0
	for stripe := range t.locks {
		visited, stopped := t.visitStripe(stripe, write, fn)
		total += visited
		if stopped {
			return -total
		}
	}
	return total
}

// VisitAll runs fn on every node of the table, write-locking one stripe at
// a time. It is not a snapshot: nodes added to or removed from a stripe
// not yet visited may or may not be seen, but no node is seen twice. The
// result follows the Visit sign convention.
func (t *Table[K, V]) VisitAll(fn Visitor[K, V]) int {
	return t.visitAll(true, func(n *node[K, V]) bool {
		return fn(n.key, &n.value)
	})
}

// VisitAllReadOnly is like VisitAll but read-locks each stripe.
func (t *Table[K, V]) VisitAllReadOnly(fn ReadOnlyVisitor[K, V]) int {
	return t.visitAll(false, func(n *node[K, V]) bool {
		return fn(n.key, n.value)
	})
}

// Size returns the number of nodes in the table.
func (t *Table[K, V]) Size() int {
	return int(t.count.Load())
}

// BucketCount returns the current length of the bucket array.
func (t *Table[K, V]) BucketCount() int {
	return int(t.bucketCount.Load())
}

// LoadFactor returns Size()/BucketCount().
func (t *Table[K, V]) LoadFactor() float32 {
	return float32(float64(t.count.Load()) / float64(t.bucketCount.Load()))
}

// MaxLoadFactor returns the load factor above which inserts trigger a
// rehash.
func (t *Table[K, V]) MaxLoadFactor() float32 {
	return t.maxLoadFactor
}

// NumStripes returns the number of stripe locks.
func (t *Table[K, V]) NumStripes() int {
	return len(t.locks)
}

// BucketSize returns the number of nodes in bucket i. It panics if i is
// not in [0, BucketCount()).
func (t *Table[K, V]) BucketSize(i int) int {
	if i < 0 {
		panic(errors.Errorf("stripemap: bucket index %d out of range", i))
	}
	stripe := int(uint64(i) & t.stripeMask)
	t.locks.lock(stripe, false)
	defer t.locks.unlock(stripe, false)
	if i >= len(t.buckets) {
		panic(errors.Errorf("stripemap: bucket index %d out of range [0, %d)", i, len(t.buckets)))
	}
	return t.buckets[i].size
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
