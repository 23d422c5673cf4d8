package mem

import "errors"

var (
	// ErrNoActiveStream indicates a Device/HostAsync allocation, a Migrate
	// transfer or a Prefetch was attempted with no active stream set. Free
	// never returns it: with no compatible stream it synchronizes instead.
	ErrNoActiveStream = errors.New("mem: no active stream for this backend")

	// ErrBackendMismatch indicates the active stream's backend (CUDA vs.
	// host-async) does not match the requested/owning Kind.
	ErrBackendMismatch = errors.New("mem: active stream backend does not match allocation kind")

	// ErrUnknownPointer indicates Free/Migrate/Prefetch was called with a
	// pointer not present in the live table.
	ErrUnknownPointer = errors.New("mem: unknown pointer")

	// ErrWrongKindForPrefetch indicates Prefetch was called on a pointer
	// that is not Managed or ManagedReadMostly.
	ErrWrongKindForPrefetch = errors.New("mem: prefetch requires a managed pointer")

	// ErrInvalidDevice indicates a Prefetch named a device index that is
	// not known to the driver.
	ErrInvalidDevice = errors.New("mem: invalid device index")

	// ErrUnsupportedMigration indicates a migration between a host-async
	// kind and any CUDA kind, which is never supported.
	ErrUnsupportedMigration = errors.New("mem: unsupported migration pair")

	// ErrOutOfMemory is what a Driver or System returns (possibly wrapped)
	// for a failed allocation; Alloc then trims and retries once. Alloc
	// itself returns it when both the initial attempt and the retry failed.
	ErrOutOfMemory = errors.New("mem: out of memory")

	// ErrDriver wraps a failed MemAdvise, PinRegister, MemcpyAsync or
	// PrefetchAsync call. Other Driver/System errors from Alloc and Trim
	// are returned as the collaborator reported them.
	ErrDriver = errors.New("mem: driver error")
)
