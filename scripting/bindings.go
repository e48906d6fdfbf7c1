package scripting

import (
	"slices"
	"sync"
)

// Bindings is a string-keyed variable table.
type Bindings interface {
	// Get returns the value under key and whether key is present.
	Get(key string) (any, bool)
	// Put sets key and returns the previous value.
	Put(key string, value any) any
	// Remove deletes key and returns the previous value.
	Remove(key string) any
	ContainsKey(key string) bool
	Keys() []string
	Len() int
}

// SimpleBindings is a map-backed Bindings safe for concurrent use.
type SimpleBindings struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewSimpleBindings creates empty bindings, optionally seeded from m.
func NewSimpleBindings(m map[string]any) *SimpleBindings {
	b := &SimpleBindings{values: make(map[string]any, len(m))}
	for k, v := range m {
		b.values[k] = v
	}
	return b
}

func (b *SimpleBindings) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

func (b *SimpleBindings) Put(key string, value any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.values[key]
	b.values[key] = value
	return prev
}

func (b *SimpleBindings) Remove(key string) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.values[key]
	delete(b.values, key)
	return prev
}

func (b *SimpleBindings) ContainsKey(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Keys returns the keys in sorted order.
func (b *SimpleBindings) Keys() []string {
	b.mu.RLock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	b.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

func (b *SimpleBindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}
