package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/envelope/internal/planner"
)

// Cache holds at most one resolved planner for the process.
//
// The first caller to reach an empty cache builds the instance; concurrent
// callers block on that build and observe the same result. A failed build
// is not kept, so a later caller builds again.
//
// Thread-safety: all methods are safe for concurrent use. Only callers
// racing on an empty cache wait for each other.
type Cache struct {
	slot atomic.Pointer[cacheEntry]
}

type cacheEntry struct {
	name string
	done chan struct{}
	p    planner.Planner
	err  error
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached planner for name, calling build when the cache is
// empty. A cached planner built under another name is a CACHE_CONFLICT.
func (c *Cache) Get(name string, build func() (planner.Planner, error)) (planner.Planner, error) {
	for {
		if e := c.slot.Load(); e != nil {
			<-e.done
			if e.err != nil {
				return nil, e.err
			}
			if e.name != name {
				return nil, &planner.ConfigurationError{
					Code:     planner.ErrCodeCacheConflict,
					Strategy: name,
					Message:  fmt.Sprintf("cache already holds strategy %q", e.name),
				}
			}
			return e.p, nil
		}

		e := &cacheEntry{name: name, done: make(chan struct{})}
		if !c.slot.CompareAndSwap(nil, e) {
			continue
		}

		c.fill(e, build)
		return e.p, e.err
	}
}

// fill runs build for e and releases waiters. A failed or panicking build
// leaves the cache empty.
func (c *Cache) fill(e *cacheEntry, build func() (planner.Planner, error)) {
	defer func() {
		if rec := recover(); rec != nil {
			e.p = nil
			e.err = &planner.ConfigurationError{
				Code:     planner.ErrCodeConstructionFailed,
				Strategy: e.name,
				Message:  fmt.Sprintf("constructor panicked: %v", rec),
			}
		}
		if e.err != nil {
			c.slot.CompareAndSwap(e, nil)
		}
		close(e.done)
	}()
	e.p, e.err = build()
}

// Current returns the cached strategy name and planner, if a build has
// completed successfully.
func (c *Cache) Current() (string, planner.Planner, bool) {
	e := c.slot.Load()
	if e == nil {
		return "", nil, false
	}
	select {
	case <-e.done:
	default:
		return "", nil, false
	}
	if e.err != nil {
		return "", nil, false
	}
	return e.name, e.p, true
}

// Clear empties the cache. The next Get builds a new instance.
func (c *Cache) Clear() {
	c.slot.Store(nil)
}
