package stripemap

// node is a single key/value cell of a bucket chain. The hash is kept next
// to the key so that scans can skip the equality functor on mismatches and
// so that rehash can relink nodes without calling back into user code.
type node[K, V any] struct {
	hash  uint64
	key   K
	value V
	next  *node[K, V]
}

// bucket is a singly linked chain of nodes. The zero value is an empty
// bucket. All methods must be called with the owning stripe locked, for
// write unless stated otherwise.
type bucket[K, V any] struct {
	head *node[K, V]
	tail *node[K, V]
	size int
}

// push appends n to the end of the chain.
func (b *bucket[K, V]) push(n *node[K, V]) {
	n.next = nil
	if b.tail == nil {
		b.head = n
	} else {
		b.tail.next = n
	}
	b.tail = n
	b.size++
}

// unlink removes n from the chain; prev is its predecessor, or nil when n
// is the head.
func (b *bucket[K, V]) unlink(prev, n *node[K, V]) {
	if prev == nil {
		b.head = n.next
	} else {
		prev.next = n.next
	}
	if b.tail == n {
		b.tail = prev
	}
	n.next = nil
	b.size--
}

func (b *bucket[K, V]) reset() {
	b.head, b.tail, b.size = nil, nil, 0
}

// find returns the first node holding key, or nil. Read lock suffices.
func (b *bucket[K, V]) find(hash uint64, key K, equal func(a, b K) bool) *node[K, V] {
	for n := b.head; n != nil; n = n.next {
		if n.hash == hash && equal(n.key, key) {
			return n
		}
	}
	return nil
}

// insert adds key/value to the chain. With Unique, an existing match has
// its value replaced instead and insert reports false.
func (b *bucket[K, V]) insert(
	hash uint64,
	key K,
	value V,
	equal func(a, b K) bool,
	m Multiplicity,
) bool {
	if m == Unique {
		if n := b.find(hash, key, equal); n != nil {
			n.value = value
			return false
		}
	}
	b.push(&node[K, V]{hash: hash, key: key, value: value})
	return true
}

// visit calls fn on the nodes holding key in chain order. It returns the
// number of nodes visited, negated if fn returned false. Read lock
// suffices when fn does not mutate.
func (b *bucket[K, V]) visit(
	hash uint64,
	key K,
	equal func(a, b K) bool,
	scope Scope,
	fn func(n *node[K, V]) bool,
) int {
	visited := 0
	for n := b.head; n != nil; n = n.next {
		if n.hash != hash || !equal(n.key, key) {
			continue
		}
		visited++
		if !fn(n) {
			return -visited
		}
		if scope == First {
			break
		}
	}
	return visited
}

// erase unlinks the nodes holding key for which pred reports true (every
// match when pred is nil) and returns how many were removed.
func (b *bucket[K, V]) erase(
	hash uint64,
	key K,
	equal func(a, b K) bool,
	scope Scope,
	pred func(value V) bool,
) int {
	erased := 0
	var prev *node[K, V]
	for n := b.head; n != nil; {
		next := n.next
		if n.hash == hash && equal(n.key, key) && (pred == nil || pred(n.value)) {
			b.unlink(prev, n)
			erased++
			if scope == First {
				break
			}
		} else {
			prev = n
		}
		n = next
	}
	return erased
}
