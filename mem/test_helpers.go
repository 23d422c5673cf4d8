package mem

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// fakeSystem is a minimal System backed by a bump counter.
type fakeSystem struct {
	mu   sync.Mutex
	next uintptr
	live map[uintptr]bool
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{next: 0x1000, live: make(map[uintptr]bool)}
}

func (s *fakeSystem) Alloc(size uintptr) (uintptr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr := s.next
	s.next += size + 64
	s.live[ptr] = true
	return ptr, nil
}

func (s *fakeSystem) Free(ptr uintptr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live[ptr] {
		return fmt.Errorf("fakeSystem: free %#x: not allocated here", ptr)
	}
	delete(s.live, ptr)
	return nil
}

// fakeStream is a minimal Stream whose enqueued work runs inline on
// Synchronize, in submission order.
type fakeStream struct {
	cuda   bool
	device int

	mu  sync.Mutex
	ops []func()
}

func newFakeCUDAStream(device int) *fakeStream { return &fakeStream{cuda: true, device: device} }
func newFakeHostAsyncStream() *fakeStream      { return &fakeStream{cuda: false} }

func (s *fakeStream) IsCUDA() bool  { return s.cuda }
func (s *fakeStream) DeviceID() int { return s.device }

func (s *fakeStream) EnqueueHostCallback(fn func()) {
	s.mu.Lock()
	s.ops = append(s.ops, fn)
	s.mu.Unlock()
}

func (s *fakeStream) Synchronize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	ops := s.ops
	s.ops = nil
	s.mu.Unlock()
	for _, op := range ops {
		op()
	}
	return nil
}

// fakeDriver is a minimal Driver backed by Go byte slices, used by
// allocator_test.go and migrate_test.go so those tests exercise real
// copyable memory without depending on internal/simdriver (which itself
// imports mem, and would be an import cycle from a mem-package test file).
type fakeDriver struct {
	mu             sync.Mutex
	regions        map[uintptr][]byte
	pinned         map[uintptr]bool
	devices        []int
	failNextAllocs int
}

func newFakeDriver(devices ...int) *fakeDriver {
	if len(devices) == 0 {
		devices = []int{0, 1}
	}
	return &fakeDriver{
		regions: make(map[uintptr][]byte),
		pinned:  make(map[uintptr]bool),
		devices: devices,
	}
}

func (d *fakeDriver) failNext(n int) {
	d.mu.Lock()
	d.failNextAllocs = n
	d.mu.Unlock()
}

func (d *fakeDriver) alloc(size uintptr) (uintptr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNextAllocs > 0 {
		d.failNextAllocs--
		return 0, ErrOutOfMemory
	}
	buf := make([]byte, size)
	key := fakeDriverNextKey()
	d.regions[key] = buf
	return key, nil
}

var fakeDriverKeyMu sync.Mutex
var fakeDriverKeyNext uintptr = 0x8000

func fakeDriverNextKey() uintptr {
	fakeDriverKeyMu.Lock()
	defer fakeDriverKeyMu.Unlock()
	k := fakeDriverKeyNext
	fakeDriverKeyNext += 0x100
	return k
}

func (d *fakeDriver) free(ptr uintptr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.regions[ptr]; !ok {
		return fmt.Errorf("fakeDriver: free %#x: not allocated here", ptr)
	}
	delete(d.regions, ptr)
	return nil
}

func (d *fakeDriver) DevAlloc(device int, size uintptr) (uintptr, error) { return d.alloc(size) }
func (d *fakeDriver) DevFree(device int, ptr uintptr) error              { return d.free(ptr) }
func (d *fakeDriver) PinAlloc(size uintptr) (uintptr, error)             { return d.alloc(size) }
func (d *fakeDriver) PinFree(ptr uintptr) error                         { return d.free(ptr) }

func (d *fakeDriver) PinRegister(ptr uintptr, size uintptr) error {
	d.mu.Lock()
	d.pinned[ptr] = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDriver) PinUnregister(ptr uintptr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pinned[ptr] {
		return fmt.Errorf("fakeDriver: unregister %#x: not registered", ptr)
	}
	delete(d.pinned, ptr)
	return nil
}

func (d *fakeDriver) ManagedAlloc(size uintptr, attachGlobal bool) (uintptr, error) {
	return d.alloc(size)
}

func (d *fakeDriver) MemAdvise(ptr uintptr, size uintptr, readMostly bool) error {
	return nil
}

func (d *fakeDriver) MemcpyAsync(ctx context.Context, dst, src uintptr, size uintptr, s Stream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs, ok := s.(*fakeStream)
	if !ok || fs == nil {
		return fmt.Errorf("fakeDriver: memcpy: stream is not a fakeStream")
	}
	fs.EnqueueHostCallback(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		// Pinned host pointers registered via PinRegister are not in the
		// region table; copying into/out of them is a no-op in this fake
		// since tests that check byte content use two driver-owned regions.
		if dbuf, ok := d.regions[dst]; ok {
			if sbuf, ok := d.regions[src]; ok {
				copy(dbuf, sbuf)
			}
		}
	})
	return nil
}

func (d *fakeDriver) PrefetchAsync(ptr uintptr, size uintptr, device int, s Stream) error {
	fs, ok := s.(*fakeStream)
	if !ok || fs == nil {
		return fmt.Errorf("fakeDriver: prefetch: stream is not a fakeStream")
	}
	fs.EnqueueHostCallback(func() {})
	return nil
}

func (d *fakeDriver) Devices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.devices))
	copy(out, d.devices)
	return out
}

func (d *fakeDriver) contents(ptr uintptr) []byte {
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

func (d *fakeDriver) write(ptr uintptr, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.regions[ptr]; ok {
		copy(buf, data)
	}
}

func newTestAllocator(t testing.TB, driver Driver) *Allocator {
	t.Helper()
	a, err := New(Config{
		Driver:             driver,
		System:             newFakeSystem(),
		HostAsyncAvailable: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}
