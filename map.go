package stripemap

// Map is a concurrent map with unique keys backed by a Table. Keys are
// compared with == and hashed with DefaultHasher.
type Map[K comparable, V any] struct {
	t *Table[K, V]
}

// NewMap creates a Map. It panics on invalid options.
func NewMap[K comparable, V any](options ...Option) *Map[K, V] {
	return &Map[K, V]{t: MustNew[K, V](DefaultHasher[K](), defaultEqual[K], options...)}
}

// Load returns the value stored for key.
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	return m.t.GetValue(key)
}

// Store sets the value for key.
func (m *Map[K, V]) Store(key K, value V) {
	m.t.InsertUnique(key, value)
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores and returns value. loaded reports whether the value was present.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	return m.t.loadOrInsert(key, value)
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	return m.t.EraseFirst(key)
}

// Range calls fn for each key and value, stopping when fn returns false.
// fn runs with a stripe read-locked and must not call into the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.t.VisitAllReadOnly(fn)
}

// Len returns the number of keys.
func (m *Map[K, V]) Len() int {
	return m.t.Size()
}

// Table returns the underlying table.
func (m *Map[K, V]) Table() *Table[K, V] {
	return m.t
}

// MultiMap is a concurrent map that keeps every value added for a key.
type MultiMap[K comparable, V any] struct {
	t *Table[K, V]
}

// NewMultiMap creates a MultiMap. It panics on invalid options.
func NewMultiMap[K comparable, V any](options ...Option) *MultiMap[K, V] {
	return &MultiMap[K, V]{t: MustNew[K, V](DefaultHasher[K](), defaultEqual[K], options...)}
}

// Add appends value to the values of key.
func (m *MultiMap[K, V]) Add(key K, value V) {
	m.t.InsertAlways(key, value)
}

// Values returns every value of key in the order they were added, as
// Table.GetValues does.
func (m *MultiMap[K, V]) Values(key K) []V {
	return m.t.GetValues(key)
}

// Remove removes the values of key that satisfy pred and returns how many
// were removed.
func (m *MultiMap[K, V]) Remove(key K, pred func(value V) bool) int {
	return m.t.EraseAllIf(key, pred)
}

// RemoveAll removes key with all its values.
func (m *MultiMap[K, V]) RemoveAll(key K) int {
	return m.t.EraseAll(key)
}

// Range calls fn for each key/value pair. A key with several values is
// reported once per value.
func (m *MultiMap[K, V]) Range(fn func(key K, value V) bool) {
	m.t.VisitAllReadOnly(fn)
}

// Len returns the number of key/value pairs.
func (m *MultiMap[K, V]) Len() int {
	return m.t.Size()
}

// Table returns the underlying table.
func (m *MultiMap[K, V]) Table() *Table[K, V] {
	return m.t
}
