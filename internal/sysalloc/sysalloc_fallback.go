//go:build !unix && !windows

package sysalloc

import (
	"sync"
	"unsafe"
)

// pinned keeps fallback-path allocations reachable so the Go garbage
// collector never reclaims memory the caller still holds a raw uintptr
// to.
var (
	pinnedMu sync.Mutex
	pinned   = make(map[uintptr][]byte)
)

// platformAlloc allocates an over-sized slice and returns the first
// 64-byte aligned address strictly past its start, for platforms without
// mmap/VirtualAlloc.
func platformAlloc(size uintptr) (uintptr, uintptr, error) {
	buf := make([]byte, size+alignment)
	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := alignUp(base)
	if aligned == base {
		aligned = base + alignment
	}

	pinnedMu.Lock()
	pinned[aligned] = buf
	pinnedMu.Unlock()

	return aligned, size + alignment, nil
}

func platformFree(ptr uintptr, _ uintptr) error {
	pinnedMu.Lock()
	delete(pinned, ptr)
	pinnedMu.Unlock()
	return nil
}
