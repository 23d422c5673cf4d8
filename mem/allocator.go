package mem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Config configures a new Allocator. All fields except Driver and System
// are optional. Mirrors the teacher's small, explicit, code-constructed
// configuration structs (no config-file loader).
type Config struct {
	// Driver is the CUDA-like device collaborator. Required.
	Driver Driver
	// System is the plain host allocator. Required.
	System System
	// Logger receives trace/debug/warn output. Defaults to a no-op sink.
	Logger Logger
	// VectorWidth is the JIT's advertised SIMD vector width, used to widen
	// the Host/HostAsync size-class floor (spec §4.1). Zero disables
	// packet-aligned widening.
	VectorWidth int
	// HostAsyncAvailable reports whether a host-async task queue backend
	// is configured. When false, HostAsync is silently remapped to Host.
	HostAsyncAvailable bool
	// MetricsRegisterer, if set, receives per-kind usage/watermark gauges.
	MetricsRegisterer prometheus.Registerer
}

// Allocator is the asynchronous multi-pool memory allocator. It is safe
// for concurrent use by multiple goroutines. See the package doc for the
// two-lock protocol.
type Allocator struct {
	cfg Config

	mainMu  sync.Mutex
	cacheMu sync.Mutex

	live   *liveTable
	cache  *globalFreeCache
	chains *streamChains
	unmap  *unmapQueue
	acct   *accounting

	activeStream Stream
	knownStreams map[Stream]struct{}

	trimWarned sync.Once
}

// New constructs an Allocator. The returned value owns no background
// goroutines; Shutdown should be called once the caller is done with it.
func New(cfg Config) (*Allocator, error) {
	if cfg.Driver == nil {
		return nil, errors.New("mem: Config.Driver is required")
	}
	if cfg.System == nil {
		return nil, errors.New("mem: Config.System is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Allocator{
		cfg:          cfg,
		live:         newLiveTable(),
		cache:        newGlobalFreeCache(),
		chains:       newStreamChains(),
		unmap:        newUnmapQueue(),
		acct:         newAccounting(cfg.MetricsRegisterer),
		knownStreams: make(map[Stream]struct{}),
	}, nil
}

// SetStream marks s as the allocator's active stream. The embedding
// runtime calls this whenever it switches the stream it is currently
// enqueuing work on; Alloc/Free/Flush/Migrate/Prefetch consult it rather
// than taking a stream argument directly. Passing nil clears it.
func (a *Allocator) SetStream(s Stream) {
	a.cacheMu.Lock()
	a.activeStream = s
	if s != nil {
		a.knownStreams[s] = struct{}{}
	}
	a.cacheMu.Unlock()
}

func (a *Allocator) currentStream() Stream {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	return a.activeStream
}

// Alloc returns a pointer of the given kind and size, reusing a cached
// block when one of the matching AllocKey is available. Requesting size
// zero returns a null pointer with no side effects.
func (a *Allocator) Alloc(ctx context.Context, kind Kind, size uintptr) (uintptr, error) {
	if size == 0 {
		return 0, nil
	}
	if kind == HostAsync && !a.cfg.HostAsyncAvailable {
		kind = Host
	}

	stream := a.currentStream()
	device := 0

	if kind == Device || kind == HostAsync {
		if stream == nil {
			return 0, fmt.Errorf("mem: alloc %s: %w", kind, ErrNoActiveStream)
		}
		if stream.IsCUDA() != kind.isCUDAKind() {
			return 0, fmt.Errorf("mem: alloc %s: %w", kind, ErrBackendMismatch)
		}
		if kind == Device {
			device = stream.DeviceID()
		}
	}

	rounded := roundSize(kind, size, a.cfg.VectorWidth)
	ai := AllocKey{Kind: kind, Device: normalizeDevice(kind, device), Size: rounded}

	ptr, source, hit := a.reuseFromCache(ai, stream)
	if !hit {
		var err error
		ptr, err = a.allocFresh(ctx, kind, ai)
		if err != nil {
			return 0, err
		}
		source = "new allocation"
	}

	a.mainMu.Lock()
	a.live.insert(ptr, ai)
	a.acct.grow(kind, ai.Size)
	a.mainMu.Unlock()

	a.cfg.Logger.Trace("mem: alloc", "kind", kind, "size", ai.Size, "device", ai.Device, "ptr", ptr, "source", source)
	return ptr, nil
}

// reuseFromCache attempts the per-stream chain, then the global cache.
func (a *Allocator) reuseFromCache(ai AllocKey, stream Stream) (uintptr, string, bool) {
	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()

	if stream != nil && (ai.Kind == Device || ai.Kind == HostAsync) {
		for node := a.chains.head(stream); node != nil; node = node.next {
			if ptr, ok := node.pop(ai); ok {
				return ptr, "reused local", true
			}
		}
	}
	if ptr, ok := a.cache.pop(ai); ok {
		return ptr, "reused global", true
	}
	return 0, "", false
}

// allocFresh calls the underlying driver/system allocator, trimming and
// retrying once on OutOfMemory.
func (a *Allocator) allocFresh(ctx context.Context, kind Kind, ai AllocKey) (uintptr, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ptr, err := a.driverAlloc(kind, ai)
	if err == nil {
		return ptr, nil
	}
	if !errors.Is(err, ErrOutOfMemory) {
		return 0, err
	}

	a.cfg.Logger.Debug("mem: alloc OOM, trimming and retrying", "kind", kind, "size", ai.Size)
	_ = a.Trim(true)

	ptr, err = a.driverAlloc(kind, ai)
	if err != nil {
		return 0, fmt.Errorf("mem: alloc %s size %d after trim: %w", kind, ai.Size, ErrOutOfMemory)
	}
	return ptr, nil
}

// driverAlloc dispatches a fresh allocation to the routine owning kind.
func (a *Allocator) driverAlloc(kind Kind, ai AllocKey) (uintptr, error) {
	switch kind {
	case Host, HostAsync:
		return a.cfg.System.Alloc(ai.Size)
	case HostPinned:
		return a.cfg.Driver.PinAlloc(ai.Size)
	case Device:
		return a.cfg.Driver.DevAlloc(ai.Device, ai.Size)
	case Managed:
		return a.cfg.Driver.ManagedAlloc(ai.Size, true)
	case ManagedReadMostly:
		ptr, err := a.cfg.Driver.ManagedAlloc(ai.Size, true)
		if err != nil {
			return 0, err
		}
		if err := a.cfg.Driver.MemAdvise(ptr, ai.Size, true); err != nil {
			return 0, fmt.Errorf("%w: memadvise: %v", ErrDriver, err)
		}
		return ptr, nil
	default:
		return 0, fmt.Errorf("mem: alloc: unhandled kind %s", kind)
	}
}

// Free returns ptr, routing it through the active stream's release chain
// or, failing that, through a full synchronization of every known stream.
// Null is a no-op.
func (a *Allocator) Free(ptr uintptr) error {
	if ptr == 0 {
		return nil
	}

	a.mainMu.Lock()
	ai, ok := a.live.lookup(ptr)
	if !ok {
		a.mainMu.Unlock()
		return fmt.Errorf("mem: free %#x: %w", ptr, ErrUnknownPointer)
	}
	a.live.remove(ptr)
	a.acct.shrink(ai.Kind, ai.Size)
	a.mainMu.Unlock()

	a.route(ptr, ai)
	a.cfg.Logger.Trace("mem: free", "kind", ai.Kind, "size", ai.Size, "ptr", ptr)
	return nil
}

// route implements spec.md §4.3's free-routing decision.
func (a *Allocator) route(ptr uintptr, ai AllocKey) {
	if ai.Kind == Host {
		a.cacheMu.Lock()
		a.cache.push(ai, ptr)
		a.cacheMu.Unlock()
		return
	}

	a.cacheMu.Lock()
	stream := a.activeStream
	matches := stream != nil && stream.IsCUDA() == ai.Kind.isCUDAKind()
	if matches {
		a.chains.head(stream).push(ai, ptr)
		var drained []unmapEntry
		if stream.IsCUDA() {
			drained = a.unmap.swap()
		}
		a.cacheMu.Unlock()
		a.drainUnmap(drained)
		return
	}
	a.cacheMu.Unlock()

	// Bad path: no compatible stream. Synchronize everything, then the
	// pointer is immediately reusable from any stream.
	a.syncAllStreams(context.Background())

	a.cacheMu.Lock()
	a.cache.push(ai, ptr)
	a.cacheMu.Unlock()
}

// drainUnmap runs PinUnregister on the host thread for each entry,
// recursively freeing any that were registered with move semantics. The
// batch is drained to completion against a local slice before this
// function returns, so no iterator over the unmap queue is ever live
// while a recursive Free call runs (spec.md §9 Open Question, decision a).
func (a *Allocator) drainUnmap(entries []unmapEntry) {
	for _, e := range entries {
		if err := a.cfg.Driver.PinUnregister(e.ptr); err != nil {
			a.cfg.Logger.Warn("mem: pin unregister failed", "ptr", e.ptr, "error", err)
		}
		if e.shouldFree {
			if err := a.Free(e.ptr); err != nil {
				a.cfg.Logger.Warn("mem: free after unregister failed", "ptr", e.ptr, "error", err)
			}
		}
	}
}

// syncAllStreams drains every stream the allocator has ever seen active,
// concurrently.
func (a *Allocator) syncAllStreams(ctx context.Context) error {
	a.cacheMu.Lock()
	streams := make([]Stream, 0, len(a.knownStreams))
	for s := range a.knownStreams {
		streams = append(streams, s)
	}
	a.cacheMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range streams {
		s := s
		g.Go(func() error { return s.Synchronize(gctx) })
	}
	return g.Wait()
}

// Flush seals the active stream's release chain head and enqueues a
// callback that drains it into the global cache once the stream has
// completed every operation enqueued before this call. A no-op if there
// is no active stream or its chain head is empty.
func (a *Allocator) Flush() {
	a.cacheMu.Lock()
	stream := a.activeStream
	if stream == nil {
		a.cacheMu.Unlock()
		return
	}
	sealed := a.chains.seal(stream)
	a.cacheMu.Unlock()
	if sealed == nil {
		return
	}

	stream.EnqueueHostCallback(func() {
		a.cacheMu.Lock()
		for ai, ptrs := range sealed.entries {
			a.cache.extend(ai, ptrs)
		}
		a.chains.detach(stream, sealed)
		a.cacheMu.Unlock()
		a.cfg.Logger.Trace("mem: flush drained", "entries", len(sealed.entries))
	})
}

// Trim releases every cached pointer back to the underlying driver/system
// allocator and drains the unmap queue. Always safe: cached pointers are
// by construction not in use. warn requests a warning log that fires at
// most once per Allocator, the first time it is trimmed with warn set.
func (a *Allocator) Trim(warn bool) error {
	if warn {
		a.trimWarned.Do(func() {
			a.cfg.Logger.Warn("mem: trim invoked, likely memory pressure")
		})
	}

	a.cacheMu.Lock()
	cached := a.cache.swap()
	unmapped := a.unmap.swap()
	a.cacheMu.Unlock()

	a.drainUnmap(unmapped)

	var result *multierror.Error
	for ai, ptrs := range cached {
		for _, ptr := range ptrs {
			if err := a.freeUnderlying(ai.Kind, ai.Device, ptr); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s ptr %#x: %w", ai, ptr, err))
			}
		}
	}
	return result.ErrorOrNil()
}

// freeUnderlying dispatches a cached pointer's release to the routine
// owning kind. Managed and ManagedReadMostly share Device's DevFree, since
// a CUDA-like driver frees managed and device allocations through the
// same call.
func (a *Allocator) freeUnderlying(kind Kind, device int, ptr uintptr) error {
	switch kind {
	case Host, HostAsync:
		return a.cfg.System.Free(ptr)
	case HostPinned:
		return a.cfg.Driver.PinFree(ptr)
	case Device, Managed, ManagedReadMostly:
		return a.cfg.Driver.DevFree(device, ptr)
	default:
		return fmt.Errorf("mem: trim: unhandled kind %s", kind)
	}
}

// LeakReport summarizes LiveTable entries still outstanding at Shutdown,
// per Kind.
type LeakReport struct {
	Counts map[Kind]int
	Bytes  map[Kind]uintptr
}

// Empty reports whether no leaks were found.
func (r LeakReport) Empty() bool {
	return len(r.Counts) == 0
}

// Shutdown trims every cache, then reports any remaining LiveTable
// entries as leaks.
func (a *Allocator) Shutdown() LeakReport {
	if err := a.Trim(false); err != nil {
		a.cfg.Logger.Warn("mem: shutdown trim encountered errors", "error", err)
	}

	a.mainMu.Lock()
	leaked := a.live.snapshot()
	a.mainMu.Unlock()

	report := LeakReport{Counts: make(map[Kind]int), Bytes: make(map[Kind]uintptr)}
	for _, ai := range leaked {
		report.Counts[ai.Kind]++
		report.Bytes[ai.Kind] += ai.Size
	}
	for kind, n := range report.Counts {
		a.cfg.Logger.Warn("mem: leak at shutdown", "kind", kind, "count", n, "bytes", report.Bytes[kind])
	}
	return report
}
