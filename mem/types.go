package mem

import "fmt"

// Kind is a closed enumeration of memory provenance/classes. Each kind maps
// to a distinct underlying allocator and release routine.
type Kind uint8

const (
	// Host is plain host RAM, allocated via the System collaborator.
	Host Kind = iota
	// HostAsync is host RAM whose release is ordered against a host-async
	// task queue rather than a CUDA stream. Silently remapped to Host when
	// no host-async backend is configured.
	HostAsync
	// HostPinned is page-locked host RAM allocated via the driver.
	HostPinned
	// Device is device-resident RAM.
	Device
	// Managed is unified/managed RAM, migratable between host and device.
	Managed
	// ManagedReadMostly is Managed memory additionally advised read-mostly.
	ManagedReadMostly

	// numKinds is the count of defined Kind values.
	numKinds
)

// String returns the human-readable name used in trace/log output.
func (k Kind) String() string {
	switch k {
	case Host:
		return "host"
	case HostAsync:
		return "host-async"
	case HostPinned:
		return "host-pinned"
	case Device:
		return "device"
	case Managed:
		return "managed"
	case ManagedReadMostly:
		return "managed-read-mostly"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// isCUDAKind reports whether a pointer of this kind is released through a
// CUDA-backed stream's release chain rather than a host-async task queue.
func (k Kind) isCUDAKind() bool {
	switch k {
	case Device, HostPinned, Managed, ManagedReadMostly:
		return true
	default:
		return false
	}
}

// AllocKey is the cache/live-table key: (kind, device, rounded size).
// Two pointers with an equal AllocKey are interchangeable at the cache
// level. Device is normalized to 0 for every kind except Device.
type AllocKey struct {
	Kind   Kind
	Device int
	Size   uintptr
}

func (ai AllocKey) String() string {
	if ai.Kind == Device {
		return fmt.Sprintf("%s/dev%d/%d", ai.Kind, ai.Device, ai.Size)
	}
	return fmt.Sprintf("%s/%d", ai.Kind, ai.Size)
}

// normalizeDevice zeroes the device field for kinds where it is unused.
func normalizeDevice(kind Kind, device int) int {
	if kind == Device {
		return device
	}
	return 0
}
