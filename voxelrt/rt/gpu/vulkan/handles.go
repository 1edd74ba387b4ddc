package vulkan

// table maps opaque gpu handles to native Vulkan objects. Vulkan handles are
// pointers on 64-bit platforms, so they are never exposed directly.
type table[K ~uint64, V any] struct {
	next K
	m    map[K]V
}

func newTable[K ~uint64, V any]() *table[K, V] {
	return &table[K, V]{m: make(map[K]V)}
}

func (t *table[K, V]) put(v V) K {
	t.next++
	t.m[t.next] = v
	return t.next
}

func (t *table[K, V]) get(k K) (V, bool) {
	v, ok := t.m[k]
	return v, ok
}

// take removes and returns the object behind k.
func (t *table[K, V]) take(k K) (V, bool) {
	v, ok := t.m[k]
	if ok {
		delete(t.m, k)
	}
	return v, ok
}

func (t *table[K, V]) len() int { return len(t.m) }
