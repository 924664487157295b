// Package blackboard holds host-supplied values that scripted and expression
// leaves read when they are evaluated. Leaves never write to it, so it does
// not carry data from one node to another within a pass.
package blackboard

import (
	"maps"
	"slices"
	"sync"

	"github.com/dop251/goja"
)

// Blackboard is a thread-safe key-value store written by the host.
//
// Usage: Create with new(Blackboard). The internal map is lazily initialized
// on the first write.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

func (b *Blackboard) init() {
	if b.data == nil {
		b.data = make(map[string]any)
	}
}

// Get retrieves a value, or nil if the key doesn't exist.
func (b *Blackboard) Get(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

// Set stores a value.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	b.data[key] = value
}

// Has returns true if the key exists.
func (b *Blackboard) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	return ok
}

// Keys returns all keys, sorted.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.data))
}

// Len returns the number of keys.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Snapshot returns a shallow copy of the data. It is used as the expression
// environment, so it is never nil.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make(map[string]any, len(b.data))
	maps.Copy(result, b.data)
	return result
}

// ExposeToJS creates a read-only JavaScript view of this blackboard:
//
//	bb.get("key")
//	bb.has("key")
//	bb.keys()
//	bb.len()
func (b *Blackboard) ExposeToJS(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	// Set cannot fail for these keys.
	_ = obj.Set("get", b.Get)
	_ = obj.Set("has", b.Has)
	_ = obj.Set("keys", b.Keys)
	_ = obj.Set("len", b.Len)
	return obj
}
