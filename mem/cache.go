package mem

// globalFreeCache is the AllocKey -> stack-of-pointers mapping of reusable
// blocks. Pointers here are "reusable now" with no outstanding asynchronous
// use. Protected by the allocator's cache lock; never touched outside it.
type globalFreeCache struct {
	m map[AllocKey][]uintptr
}

func newGlobalFreeCache() *globalFreeCache {
	return &globalFreeCache{m: make(map[AllocKey][]uintptr)}
}

// pop removes and returns the most recently pushed pointer for ai, if any.
// Caller must hold the cache lock.
func (c *globalFreeCache) pop(ai AllocKey) (uintptr, bool) {
	stack := c.m[ai]
	if len(stack) == 0 {
		return 0, false
	}
	ptr := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(c.m, ai)
	} else {
		c.m[ai] = stack
	}
	return ptr, true
}

// push appends ptr onto ai's stack. Caller must hold the cache lock.
func (c *globalFreeCache) push(ai AllocKey, ptr uintptr) {
	c.m[ai] = append(c.m[ai], ptr)
}

// extend appends every pointer in ptrs onto ai's stack. Caller must hold
// the cache lock.
func (c *globalFreeCache) extend(ai AllocKey, ptrs []uintptr) {
	if len(ptrs) == 0 {
		return
	}
	c.m[ai] = append(c.m[ai], ptrs...)
}

// swap replaces the cache contents with an empty map and returns the old
// one, for Trim's swap-then-release pattern. Caller must hold the cache
// lock.
func (c *globalFreeCache) swap() map[AllocKey][]uintptr {
	old := c.m
	c.m = make(map[AllocKey][]uintptr)
	return old
}

// contains reports whether ptr is present anywhere in the cache. Used only
// by tests checking invariant P2 (single-home); O(n) is acceptable there.
func (c *globalFreeCache) contains(ptr uintptr) bool {
	for _, stack := range c.m {
		for _, p := range stack {
			if p == ptr {
				return true
			}
		}
	}
	return false
}
