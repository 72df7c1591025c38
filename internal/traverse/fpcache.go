// Package traverse provides random-access temporal traversal over a
// compressed orderbook transcript, accelerated by a timestamp-keyed
// checkpoint cache.
package traverse

import "sort"

// Cloner is satisfied by values that can produce an independent deep copy
// of themselves.
type Cloner[V any] interface {
	Clone() V
}

// FPCache is an integer-keyed mapping with sorted keys and
// equal-or-predecessor lookup. Stored values are clones of the arguments,
// so callers may freely mutate a value after adding it.
//
// All operations are O(log n) in the number of entries except insertion,
// which shifts; n is bounded by transcript duration over the checkpoint
// interval, so this stays small.
type FPCache[V Cloner[V]] struct {
	keys   []int64
	values []V
}

// NewFPCache creates an empty cache.
func NewFPCache[V Cloner[V]]() *FPCache[V] {
	return &FPCache[V]{}
}

// Len returns the number of entries.
func (c *FPCache[V]) Len() int {
	return len(c.keys)
}

// LastKey returns the greatest key in the cache, or false when empty.
func (c *FPCache[V]) LastKey() (int64, bool) {
	if len(c.keys) == 0 {
		return 0, false
	}
	return c.keys[len(c.keys)-1], true
}

// Add inserts a clone of value at key. Existing keys are left untouched.
// Reports whether an entry was inserted.
func (c *FPCache[V]) Add(key int64, value V) bool {
	idx := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= key })
	if idx < len(c.keys) && c.keys[idx] == key {
		return false
	}

	c.keys = append(c.keys, 0)
	copy(c.keys[idx+1:], c.keys[idx:])
	c.keys[idx] = key

	var zero V
	c.values = append(c.values, zero)
	copy(c.values[idx+1:], c.values[idx:])
	c.values[idx] = value.Clone()
	return true
}

// Get returns the value at key if present, otherwise the value at the
// largest key strictly smaller than key, otherwise false.
func (c *FPCache[V]) Get(key int64) (V, bool) {
	idx := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= key })
	if idx < len(c.keys) && c.keys[idx] == key {
		return c.values[idx], true
	}
	if idx == 0 {
		var zero V
		return zero, false
	}
	return c.values[idx-1], true
}
