//go:build windows

package sysalloc

import (
	"golang.org/x/sys/windows"
)

// platformAlloc reserves and commits a page-aligned (hence 64-byte
// aligned) region via VirtualAlloc.
func platformAlloc(size uintptr) (uintptr, uintptr, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, 0, err
	}
	return addr, size, nil
}

func platformFree(ptr uintptr, _ uintptr) error {
	return windows.VirtualFree(ptr, 0, windows.MEM_RELEASE)
}
