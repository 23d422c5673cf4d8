package mem

import "context"

// Stream is an ordered queue of asynchronous operations. It supports
// enqueuing a host callback that runs only after every operation already
// enqueued on the stream has completed.
type Stream interface {
	// IsCUDA reports whether this stream belongs to the CUDA-like backend
	// (as opposed to the host-async task-queue backend).
	IsCUDA() bool
	// DeviceID returns the device this stream is bound to. Meaningless
	// when IsCUDA is false.
	DeviceID() int
	// EnqueueHostCallback runs fn on some thread after all work enqueued
	// on the stream so far has completed.
	EnqueueHostCallback(fn func())
	// Synchronize blocks until all work enqueued on the stream so far has
	// completed.
	Synchronize(ctx context.Context) error
}

// Driver is the CUDA-like device collaborator. DevAlloc/DevFree manage
// device memory; PinAlloc/PinFree manage host-pinned memory allocated by
// the driver directly; PinRegister/PinUnregister transiently pin
// driver-unmanaged host memory for DMA; ManagedAlloc allocates
// unified/managed memory; MemAdvise and MemcpyAsync/PrefetchAsync mirror
// their CUDA counterparts.
type Driver interface {
	DevAlloc(device int, size uintptr) (uintptr, error)
	DevFree(device int, ptr uintptr) error

	PinAlloc(size uintptr) (uintptr, error)
	PinFree(ptr uintptr) error

	PinRegister(ptr uintptr, size uintptr) error
	PinUnregister(ptr uintptr) error

	ManagedAlloc(size uintptr, attachGlobal bool) (uintptr, error)
	MemAdvise(ptr uintptr, size uintptr, readMostly bool) error

	MemcpyAsync(ctx context.Context, dst, src uintptr, size uintptr, s Stream) error
	PrefetchAsync(ptr uintptr, size uintptr, device int, s Stream) error

	// Devices returns every device index known to the driver, used to fan
	// out Prefetch(ptr, device=-2).
	Devices() []int
}

// System is the plain host allocator: 64-byte aligned allocation and
// free, used for the Host and HostAsync kinds.
type System interface {
	Alloc(size uintptr) (uintptr, error)
	Free(ptr uintptr) error
}

// TaskQueue is the host-async collaborator: the same after-the-fence
// callback contract as Stream.EnqueueHostCallback, but for CPU tasks
// rather than stream work.
type TaskQueue interface {
	Enqueue(fn func())
}

// Logger is the structured trace/debug/warn sink the allocator reports
// through. All three methods must tolerate being called with nil args.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// nopLogger discards everything; the zero-value Config.Logger default.
type nopLogger struct{}

func (nopLogger) Trace(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
