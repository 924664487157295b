package exprleaf

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize is the default maximum number of compiled programs kept
// by an Evaluator.
const DefaultCacheSize = 256

// ProgramCache is a thread-safe LRU cache of compiled expr-lang programs,
// keyed by expression source.
type ProgramCache struct {
	mu        sync.Mutex
	entries   map[string]*list.Element
	lru       *list.List
	maxSize   int
	hitCount  int64
	missCount int64
}

type entry struct {
	expression string
	program    *vm.Program
}

// NewProgramCache creates a cache holding at most maxSize programs. A
// maxSize below one selects DefaultCacheSize.
func NewProgramCache(maxSize int) *ProgramCache {
	if maxSize < 1 {
		maxSize = DefaultCacheSize
	}
	return &ProgramCache{
		entries: make(map[string]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached program and marks it most recently used.
func (c *ProgramCache) Get(expression string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[expression]
	if !ok {
		c.missCount++
		return nil, false
	}
	c.hitCount++
	c.lru.MoveToFront(elem)
	return elem.Value.(*entry).program, true
}

// Put stores a program, evicting the least recently used entry when full.
func (c *ProgramCache) Put(expression string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[expression]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*entry).program = program
		return
	}
	c.entries[expression] = c.lru.PushFront(&entry{expression: expression, program: program})
	c.evict()
}

// Resize changes the capacity, evicting immediately if it shrank.
func (c *ProgramCache) Resize(maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = max(maxSize, 1)
	c.evict()
}

func (c *ProgramCache) evict() {
	for c.lru.Len() > c.maxSize {
		elem := c.lru.Back()
		delete(c.entries, elem.Value.(*entry).expression)
		c.lru.Remove(elem)
	}
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the cache size and hit/miss counters.
func (c *ProgramCache) Stats() (size int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.hitCount, c.missCount
}

func (c *ProgramCache) String() string {
	size, hits, misses := c.Stats()
	return fmt.Sprintf("ProgramCache{size=%d, hits=%d, misses=%d}", size, hits, misses)
}
