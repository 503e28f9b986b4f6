package tree

// List is an ordered, identifier-keyed sequence, used for the column
// sequence, card-link lists, and document sections. Order is explicit:
// callers insert at positions or reorder wholesale; the identifier scheme
// decides what order means.
type List[V any] struct {
	n      *node
	keys   []string
	values map[string]V
}

// NewList creates an empty List.
func NewList[V any]() *List[V] {
	return &List[V]{n: newNode(), values: make(map[string]V)}
}

func (l *List[V]) treeNode() *node { return l.n }

// Get returns the value for key.
func (l *List[V]) Get(key string) (V, bool) {
	v, ok := l.values[key]
	return v, ok
}

// Has reports whether key is present.
func (l *List[V]) Has(key string) bool {
	_, ok := l.values[key]
	return ok
}

// Put appends a new entry, or updates an existing one in place.
func (l *List[V]) Put(key string, value V) {
	old, existed := l.values[key]
	adopt(l.n, key, value)
	l.values[key] = value
	if existed {
		l.n.emit(OpUpdate, key, old, value)
		return
	}
	l.keys = append(l.keys, key)
	l.n.emit(OpInsert, key, nil, value)
}

// InsertAt inserts a new entry at index. An existing key is an update and
// keeps its position. Indexes beyond the end append.
func (l *List[V]) InsertAt(index int, key string, value V) {
	if l.Has(key) {
		l.Put(key, value)
		return
	}
	if index < 0 {
		index = 0
	}
	if index > len(l.keys) {
		index = len(l.keys)
	}
	adopt(l.n, key, value)
	l.keys = append(l.keys, "")
	copy(l.keys[index+1:], l.keys[index:])
	l.keys[index] = key
	l.values[key] = value
	l.n.emit(OpInsert, key, nil, value)
}

// Delete removes key if present.
func (l *List[V]) Delete(key string) {
	old, existed := l.values[key]
	if !existed {
		return
	}
	orphan(old)
	delete(l.values, key)
	for i, k := range l.keys {
		if k == key {
			l.keys = append(l.keys[:i], l.keys[i+1:]...)
			break
		}
	}
	l.n.emit(OpRemove, key, old, nil)
}

// Rename moves the value at oldKey to newKey, preserving position. The new
// key is de-duplicated; the key actually used is returned.
func (l *List[V]) Rename(oldKey, newKey string) string {
	value, existed := l.values[oldKey]
	if !existed || oldKey == newKey {
		return oldKey
	}
	newKey = uniqueKey(newKey, func(k string) bool { return k != oldKey && l.Has(k) })
	for i, k := range l.keys {
		if k == oldKey {
			l.keys[i] = newKey
			break
		}
	}
	delete(l.values, oldKey)
	l.values[newKey] = value
	rekey(value, newKey)
	l.n.emit(OpRemove, oldKey, value, nil)
	l.n.emit(OpInsert, newKey, nil, value)
	return newKey
}

// RenameFirst renames the first key (a document's title section).
func (l *List[V]) RenameFirst(newKey string) string {
	if len(l.keys) == 0 {
		return ""
	}
	return l.Rename(l.keys[0], newKey)
}

// IndexOf returns the position of key, or -1.
func (l *List[V]) IndexOf(key string) int {
	for i, k := range l.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// At returns the entry at index.
func (l *List[V]) At(index int) (string, V) {
	key := l.keys[index]
	return key, l.values[key]
}

// First returns the first entry, if any.
func (l *List[V]) First() (string, V, bool) {
	if len(l.keys) == 0 {
		var zero V
		return "", zero, false
	}
	k, v := l.At(0)
	return k, v, true
}

// Reorder rearranges entries to match the given key order. The key set must
// be exactly the current one; unknown or missing keys are a no-op. Emits a
// single OpReorder change with the old and new orderings.
func (l *List[V]) Reorder(keys []string) {
	if len(keys) != len(l.keys) {
		return
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !l.Has(k) || seen[k] {
			return
		}
		seen[k] = true
	}
	same := true
	for i, k := range keys {
		if l.keys[i] != k {
			same = false
			break
		}
	}
	if same {
		return
	}
	old := l.Keys()
	l.keys = append(l.keys[:0:0], keys...)
	l.n.emit(OpReorder, "*", old, l.Keys())
}

// Keys returns the keys in order.
func (l *List[V]) Keys() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

// Len returns the number of entries.
func (l *List[V]) Len() int { return len(l.keys) }

// Path returns the dotted path from the root to this container.
func (l *List[V]) Path() string { return l.n.Path() }

// Watch attaches a watcher for local changes to key.
func (l *List[V]) Watch(key string, fn WatchFunc) CancelFunc { return l.n.Watch(key, fn) }

// WatchAll attaches a watcher observing every change in this subtree.
func (l *List[V]) WatchAll(fn WatchFunc) CancelFunc { return l.n.WatchAll(fn) }

// Suppress runs fn with watcher dispatch disabled for the whole tree.
func (l *List[V]) Suppress(fn func()) { l.n.Suppress(fn) }

// Version returns the subtree change counter.
func (l *List[V]) Version() uint64 { return l.n.Version() }
