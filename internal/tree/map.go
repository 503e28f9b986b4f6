package tree

// Map is a keyed container with deterministic (insertion) key order, used
// for front-matter and for the card store. Mutations fire watchers and
// bubble to the root.
type Map[V any] struct {
	n      *node
	keys   []string
	values map[string]V
}

// NewMap creates an empty Map.
func NewMap[V any]() *Map[V] {
	return &Map[V]{n: newNode(), values: make(map[string]V)}
}

func (m *Map[V]) treeNode() *node { return m.n }

// Get returns the value for key.
func (m *Map[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set inserts or updates key. New keys append to the key order.
func (m *Map[V]) Set(key string, value V) {
	old, existed := m.values[key]
	adopt(m.n, key, value)
	m.values[key] = value
	if existed {
		m.n.emit(OpUpdate, key, old, value)
		return
	}
	m.keys = append(m.keys, key)
	m.n.emit(OpInsert, key, nil, value)
}

// Delete removes key if present.
func (m *Map[V]) Delete(key string) {
	old, existed := m.values[key]
	if !existed {
		return
	}
	orphan(old)
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	m.n.emit(OpRemove, key, old, nil)
}

// Rename moves the value at oldKey to a new key, preserving position. The
// new key is de-duplicated against existing keys; the key actually used is
// returned. A remove and an insert are emitted, in that order.
func (m *Map[V]) Rename(oldKey, newKey string) string {
	value, existed := m.values[oldKey]
	if !existed || oldKey == newKey {
		return oldKey
	}
	newKey = uniqueKey(newKey, func(k string) bool { return k != oldKey && m.Has(k) })
	for i, k := range m.keys {
		if k == oldKey {
			m.keys[i] = newKey
			break
		}
	}
	delete(m.values, oldKey)
	m.values[newKey] = value
	rekey(value, newKey)
	m.n.emit(OpRemove, oldKey, value, nil)
	m.n.emit(OpInsert, newKey, nil, value)
	return newKey
}

// Keys returns the keys in insertion order.
func (m *Map[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Map[V]) Len() int { return len(m.keys) }

// Path returns the dotted path from the root to this container.
func (m *Map[V]) Path() string { return m.n.Path() }

// Watch attaches a watcher for local changes to key.
func (m *Map[V]) Watch(key string, fn WatchFunc) CancelFunc { return m.n.Watch(key, fn) }

// WatchAll attaches a watcher observing every change in this subtree.
func (m *Map[V]) WatchAll(fn WatchFunc) CancelFunc { return m.n.WatchAll(fn) }

// Suppress runs fn with watcher dispatch disabled for the whole tree.
func (m *Map[V]) Suppress(fn func()) { m.n.Suppress(fn) }

// Version returns the subtree change counter.
func (m *Map[V]) Version() uint64 { return m.n.Version() }
