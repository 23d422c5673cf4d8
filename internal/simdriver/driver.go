// Package simdriver provides in-process stand-ins for the CUDA-like
// Driver, Stream and TaskQueue collaborators mem.Allocator consumes.
// Device/managed/pinned memory is backed by ordinary Go byte slices so
// MemcpyAsync performs a real, checkable copy; there is no actual GPU.
package simdriver

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/arborsys/asyncmem/mem"
)

// Driver is a simulated mem.Driver. Safe for concurrent use.
type Driver struct {
	mu      sync.Mutex
	regions map[uintptr][]byte
	pinned  map[uintptr]bool
	devices []int

	failNextAllocs int
}

// NewDriver returns a Driver exposing the given device indices (defaults
// to a single device 0 if none are given).
func NewDriver(devices ...int) *Driver {
	if len(devices) == 0 {
		devices = []int{0}
	}
	return &Driver{
		regions: make(map[uintptr][]byte),
		pinned:  make(map[uintptr]bool),
		devices: devices,
	}
}

// FailNextAlloc arms the driver to return ErrOutOfMemory on the next n
// allocation calls (DevAlloc/PinAlloc/ManagedAlloc), then resume
// succeeding. Used to exercise Allocator's trim-and-retry path.
func (d *Driver) FailNextAlloc(n int) {
	d.mu.Lock()
	d.failNextAllocs = n
	d.mu.Unlock()
}

func (d *Driver) alloc(size uintptr) (uintptr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failNextAllocs > 0 {
		d.failNextAllocs--
		return 0, mem.ErrOutOfMemory
	}
	if size == 0 {
		return 0, nil
	}

	buf := make([]byte, size)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	d.regions[ptr] = buf
	return ptr, nil
}

func (d *Driver) free(ptr uintptr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.regions[ptr]; !ok {
		return fmt.Errorf("simdriver: free %#x: not allocated here", ptr)
	}
	delete(d.regions, ptr)
	return nil
}

// DevAlloc implements mem.Driver.
func (d *Driver) DevAlloc(device int, size uintptr) (uintptr, error) { return d.alloc(size) }

// DevFree implements mem.Driver.
func (d *Driver) DevFree(device int, ptr uintptr) error { return d.free(ptr) }

// PinAlloc implements mem.Driver.
func (d *Driver) PinAlloc(size uintptr) (uintptr, error) { return d.alloc(size) }

// PinFree implements mem.Driver.
func (d *Driver) PinFree(ptr uintptr) error { return d.free(ptr) }

// PinRegister implements mem.Driver.
func (d *Driver) PinRegister(ptr uintptr, size uintptr) error {
	d.mu.Lock()
	d.pinned[ptr] = true
	d.mu.Unlock()
	return nil
}

// PinUnregister implements mem.Driver.
func (d *Driver) PinUnregister(ptr uintptr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pinned[ptr] {
		return fmt.Errorf("simdriver: unregister %#x: not registered", ptr)
	}
	delete(d.pinned, ptr)
	return nil
}

// ManagedAlloc implements mem.Driver.
func (d *Driver) ManagedAlloc(size uintptr, attachGlobal bool) (uintptr, error) {
	return d.alloc(size)
}

// MemAdvise implements mem.Driver. It only validates the pointer; read-
// mostly advice has no observable effect on a simulated backing slice.
func (d *Driver) MemAdvise(ptr uintptr, size uintptr, readMostly bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.regions[ptr]; !ok {
		return fmt.Errorf("simdriver: memadvise %#x: not allocated here", ptr)
	}
	return nil
}

// MemcpyAsync implements mem.Driver. dst/src may be driver-owned (device,
// pinned, managed) or plain host addresses from the System collaborator —
// either way they are real, addressable Go memory, so the copy is done
// directly against the raw pointers rather than through the region table.
func (d *Driver) MemcpyAsync(ctx context.Context, dst, src uintptr, size uintptr, s mem.Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stream, ok := s.(*Stream)
	if !ok || stream == nil {
		return fmt.Errorf("simdriver: memcpy: stream is not a simdriver.Stream")
	}
	stream.enqueue(func() {
		if size == 0 {
			return
		}
		dstSlice := unsafe.Slice((*byte)(unsafe.Pointer(dst)), int(size))
		srcSlice := unsafe.Slice((*byte)(unsafe.Pointer(src)), int(size))
		copy(dstSlice, srcSlice)
	})
	return nil
}

// PrefetchAsync implements mem.Driver as a no-op enqueued on the stream,
// solely to preserve ordering relative to other enqueued work.
func (d *Driver) PrefetchAsync(ptr uintptr, size uintptr, device int, s mem.Stream) error {
	stream, ok := s.(*Stream)
	if !ok || stream == nil {
		return fmt.Errorf("simdriver: prefetch: stream is not a simdriver.Stream")
	}
	stream.enqueue(func() {})
	return nil
}

// Devices implements mem.Driver.
func (d *Driver) Devices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.devices))
	copy(out, d.devices)
	return out
}

// Contents returns a copy of ptr's backing bytes, for tests to verify
// migration round-trips without violating the Driver interface boundary.
func (d *Driver) Contents(ptr uintptr) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.regions[ptr]
	if !ok {
		return nil
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

// Write fills ptr's backing bytes with data, for test setup.
func (d *Driver) Write(ptr uintptr, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.regions[ptr]; ok {
		copy(buf, data)
	}
}
