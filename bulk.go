package stripemap

import (
	"cmp"
	"slices"
)

// Entry is a key/value pair for the bulk insert operations.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// bulkItem is the position of a bulk input together with its hash.
type bulkItem struct {
	hash uint64
	pos  int
}

// sortByStripe hashes n inputs and orders them by stripe. The sort is
// stable, so inputs of one stripe keep their relative order and duplicate
// keys within a bulk are applied in input order.
func (t *Table[K, V]) sortByStripe(n int, keyAt func(i int) K) []bulkItem {
	items := make([]bulkItem, n)
	for i := range items {
		items[i] = bulkItem{hash: t.hash(keyAt(i)), pos: i}
	}
	mask := t.stripeMask
	slices.SortStableFunc(items, func(a, b bulkItem) int {
		return cmp.Compare(a.hash&mask, b.hash&mask)
	})
	return items
}

// forEachStripe locks each stripe referenced by items once, in ascending
// order, and calls fn for each of its items while the lock is held. The
// stripe of an item depends only on the low bits of its hash, so a rehash
// between two stripes does not reorder the remaining work.
func (t *Table[K, V]) forEachStripe(items []bulkItem, fn func(b *bucket[K, V], it bulkItem) int) int {
	total := 0
	for start := 0; start < len(items); {
		stripe := items[start].hash & t.stripeMask
		end := start + 1
		for end < len(items) && items[end].hash&t.stripeMask == stripe {
			end++
		}
		total += t.processStripe(items[start:end], fn)
		start = end
	}
	return total
}

func (t *Table[K, V]) processStripe(items []bulkItem, fn func(b *bucket[K, V], it bulkItem) int) int {
	stripe, _ := t.lockBucket(items[0].hash, true)
	defer t.locks.unlock(stripe, true)
	mask := uint64(len(t.buckets) - 1)
	total := 0
	for _, it := range items {
		total += fn(&t.buckets[it.hash&mask], it)
	}
	if total != 0 {
		t.count.Add(int64(total))
	}
	return total
}

func (t *Table[K, V]) insertBulk(entries []Entry[K, V], m Multiplicity) int {
	if len(entries) == 0 {
		return 0
	}
	items := t.sortByStripe(len(entries), func(i int) K {
		return entries[i].Key
	})
	inserted := t.forEachStripe(items, func(b *bucket[K, V], it bulkItem) int {
		e := &entries[it.pos]
		if b.insert(it.hash, e.Key, e.Value, t.equal, m) {
			return 1
		}
		return 0
	})
	if inserted != 0 {
		t.checkRehash()
	}
	return inserted
}

// InsertBulkUnique applies InsertUnique to every entry, locking each
// stripe once. It returns the number of nodes created. When entries repeat
// a key, the last one wins.
func (t *Table[K, V]) InsertBulkUnique(entries []Entry[K, V]) int {
	return t.insertBulk(entries, Unique)
}

// InsertBulkAlways applies InsertAlways to every entry, locking each stripe
// once.
func (t *Table[K, V]) InsertBulkAlways(entries []Entry[K, V]) {
	t.insertBulk(entries, Always)
}

func (t *Table[K, V]) eraseBulk(keys []K, scope Scope) int {
	if len(keys) == 0 {
		return 0
	}
	items := t.sortByStripe(len(keys), func(i int) K {
		return keys[i]
	})
	return -t.forEachStripe(items, func(b *bucket[K, V], it bulkItem) int {
		return -b.erase(it.hash, keys[it.pos], t.equal, scope, nil)
	})
}

// EraseBulkFirst applies EraseFirst to every key, locking each stripe once.
// It returns the number of nodes removed.
func (t *Table[K, V]) EraseBulkFirst(keys []K) int {
	return t.eraseBulk(keys, First)
}

// EraseBulkAll applies EraseAll to every key, locking each stripe once. It
// returns the number of nodes removed.
func (t *Table[K, V]) EraseBulkAll(keys []K) int {
	return t.eraseBulk(keys, All)
}
