package stripemap

import "iter"

// All returns an iterator over every key/value pair, built on
// VisitAllReadOnly. The loop body runs with a stripe read-locked and must
// not call into the table.
func (t *Table[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t.VisitAllReadOnly(func(key K, value V) bool {
			return yield(key, value)
		})
	}
}

// Keys is the iterator version for iterating over all keys.
func (t *Table[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		t.VisitAllReadOnly(func(key K, _ V) bool {
			return yield(key)
		})
	}
}
