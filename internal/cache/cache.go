package cache

import (
	"sync"

	"github.com/23skdu/longbow-bodkin/internal/device"
)

// ProgramCache defines a generic interface for caching loaded
// programs. Compiled kernels are cached by their callers, not by the
// dispatch engine, so primitives share one program across dispatches.
type ProgramCache interface {
	// Get retrieves a program from the cache.
	Get(key string) (*device.Program, bool)
	// Put stores a program in the cache.
	Put(key string, p *device.Program)
	// Size returns the number of items in the cache.
	Size() int
}

// MapCache is a simple in-memory implementation of ProgramCache.
type MapCache struct {
	data map[string]*device.Program
	mu   sync.RWMutex
}

func NewMapCache() *MapCache {
	return &MapCache{
		data: make(map[string]*device.Program),
	}
}

func (c *MapCache) Get(key string) (*device.Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.data[key]
	return p, ok
}

func (c *MapCache) Put(key string, p *device.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = p
}

func (c *MapCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
