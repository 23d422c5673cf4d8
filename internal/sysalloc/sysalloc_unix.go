//go:build unix

package sysalloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// platformAlloc maps an anonymous, page-aligned (hence 64-byte aligned)
// region of at least size bytes and returns its address and the mapped
// length Munmap needs to release it.
func platformAlloc(size uintptr) (uintptr, uintptr, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, 0, err
	}
	return uintptr(unsafe.Pointer(&data[0])), uintptr(len(data)), nil
}

func platformFree(ptr uintptr, mapped uintptr) error {
	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(mapped))
	return unix.Munmap(data)
}
