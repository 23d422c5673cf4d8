// Package sysalloc provides the mem.System collaborator: a real
// 64-byte-aligned host allocator, split by build tag the way the
// teacher splits its memory-mapping helpers.
package sysalloc

import (
	"fmt"
	"sync"
)

// alignment matches mem's size-class floor (cache-line / SIMD alignment).
const alignment = 64

// Allocator is the default mem.System implementation. Every address it
// returns is 64-byte aligned. Safe for concurrent use.
type Allocator struct {
	mu    sync.Mutex
	sizes map[uintptr]uintptr
}

// New returns a ready Allocator.
func New() *Allocator {
	return &Allocator{sizes: make(map[uintptr]uintptr)}
}

// Alloc returns a 64-byte aligned block of at least size bytes.
func (a *Allocator) Alloc(size uintptr) (uintptr, error) {
	if size == 0 {
		return 0, nil
	}
	ptr, mapped, err := platformAlloc(size)
	if err != nil {
		return 0, fmt.Errorf("sysalloc: alloc %d bytes: %w", size, err)
	}
	a.mu.Lock()
	a.sizes[ptr] = mapped
	a.mu.Unlock()
	return ptr, nil
}

// Free releases a block previously returned by Alloc.
func (a *Allocator) Free(ptr uintptr) error {
	if ptr == 0 {
		return nil
	}
	a.mu.Lock()
	mapped, ok := a.sizes[ptr]
	delete(a.sizes, ptr)
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("sysalloc: free %#x: not allocated here", ptr)
	}
	if err := platformFree(ptr, mapped); err != nil {
		return fmt.Errorf("sysalloc: free %#x: %w", ptr, err)
	}
	return nil
}

// alignUp rounds size up to the next multiple of alignment.
func alignUp(size uintptr) uintptr {
	return (size + alignment - 1) &^ (alignment - 1)
}
