// Package mem implements an asynchronous multi-pool memory allocator with
// deferred reclamation.
//
// # Overview
//
// mem sits between a JIT-style runtime and a set of underlying
// system/device allocators (host RAM, host-pinned RAM, device RAM,
// unified/managed RAM, and a host-asynchronous variant scheduled on a
// task queue). It amortizes expensive underlying allocations by caching
// freed blocks keyed by kind, device and size, and makes it safe to free
// a pointer that may still be in use by an asynchronous kernel enqueued
// on a stream: the pointer returns to the cache only after all
// previously enqueued work on that stream has completed.
//
// # Allocator Interface
//
//   - Alloc(ctx, kind, size): allocate, reusing a cached block when possible
//   - Free(ptr): return a pointer, routed through the active stream's
//     release chain or, failing that, through a full stream sync
//   - Flush(): seal the active stream's release chain for draining
//   - Migrate(ctx, ptr, kind, move): cross-kind transfer
//   - Prefetch(ctx, ptr, device): advise the driver to stage managed memory
//   - Trim(warn): release every cached pointer back to the driver/system
//   - Shutdown(): trim, then report leaked LiveTable entries
//
// # Usage Example
//
//	a, err := mem.New(mem.Config{
//	    Driver: driver,
//	    System: sysalloc.New(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer a.Shutdown()
//
//	a.SetStream(stream) // Device allocations need an active CUDA stream
//	ptr, err := a.Alloc(ctx, mem.Device, 4096)
//	if err != nil {
//	    return err
//	}
//	defer a.Free(ptr)
//
// # Size Classes
//
// Requested sizes round up to the next power of two, with a 64-byte
// floor (matching cache-line and SIMD load alignment). Host and
// host-async kinds widen that floor to vectorWidth*8 bytes when the
// configured vector width is at least 16, to keep packet tails aligned.
//
// # Thread Safety
//
// Allocator is safe for concurrent use. A main lock protects the live
// table and accounting; a cache lock protects the global free cache,
// every stream's release chain, and the unmap queue. The main lock is
// released around any call into Driver/System that may block (device
// allocation, pin registration, memcopies); the cache lock is held only
// for short critical sections and never across a driver call.
//
// # Related Packages
//
//   - github.com/arborsys/asyncmem/internal/sysalloc: System collaborator
//   - github.com/arborsys/asyncmem/internal/simdriver: test/demo Driver
//   - github.com/arborsys/asyncmem/internal/obslog: default Logger
package mem
