package mem

import (
	"context"
	"fmt"
)

// isHostFamily reports whether kind is plain host RAM whose bytes are
// addressable identically regardless of scheduling domain.
func isHostFamily(kind Kind) bool {
	return kind == Host || kind == HostAsync
}

// abortMigration frees a freshly allocated destination that a transfer
// step failed to populate, so a failed Migrate never leaves newPtr live
// in LiveTable with no caller able to reach it (spec.md §7: the API
// never surfaces partial state). Returns err unchanged for the caller to
// propagate.
func (a *Allocator) abortMigration(newPtr uintptr, err error) error {
	if ferr := a.Free(newPtr); ferr != nil {
		a.cfg.Logger.Warn("mem: migrate cleanup free failed", "ptr", newPtr, "error", ferr)
	}
	return err
}

// Migrate transfers ptr to new_kind, returning the (possibly identical)
// resulting pointer. move_semantics frees the source once the transfer
// is safely ordered.
func (a *Allocator) Migrate(ctx context.Context, ptr uintptr, newKind Kind, move bool) (uintptr, error) {
	a.mainMu.Lock()
	ai, ok := a.live.lookup(ptr)
	a.mainMu.Unlock()
	if !ok {
		return 0, fmt.Errorf("mem: migrate %#x: %w", ptr, ErrUnknownPointer)
	}

	// Trivial relabel: Host and HostAsync share the same bytes, only the
	// scheduling domain changes.
	if move && isHostFamily(ai.Kind) && isHostFamily(newKind) && ai.Kind != newKind {
		a.mainMu.Lock()
		a.live.relabelKind(ptr, newKind)
		a.mainMu.Unlock()
		a.cfg.Logger.Trace("mem: migrate relabel", "ptr", ptr, "from", ai.Kind, "to", newKind)
		return ptr, nil
	}

	stream := a.currentStream()

	// No-op: already the right kind, and (for Device) already on the
	// active device.
	if ai.Kind == newKind {
		if ai.Kind != Device {
			return ptr, nil
		}
		if stream != nil && stream.DeviceID() == ai.Device {
			return ptr, nil
		}
	}

	// HostAsync and any CUDA-backed kind can never be migrated directly
	// into one another.
	if (ai.Kind == HostAsync && newKind.isCUDAKind()) || (ai.Kind.isCUDAKind() && newKind == HostAsync) {
		return 0, fmt.Errorf("mem: migrate %s -> %s: %w", ai.Kind, newKind, ErrUnsupportedMigration)
	}

	// Every remaining path below issues a MemcpyAsync on the active
	// stream, matching original_source/src/malloc.cpp:369's entry check.
	if stream == nil {
		return 0, fmt.Errorf("mem: migrate %s -> %s: %w", ai.Kind, newKind, ErrNoActiveStream)
	}

	newPtr, err := a.Alloc(ctx, newKind, ai.Size)
	if err != nil {
		return 0, err
	}

	switch {
	case isHostFamily(ai.Kind) && !isHostFamily(newKind):
		// Host -> Device/Managed*: pin the source, copy, and defer the
		// unregister to the host thread once the copy has completed.
		if err := a.cfg.Driver.PinRegister(ptr, ai.Size); err != nil {
			return 0, a.abortMigration(newPtr, fmt.Errorf("%w: pin register: %v", ErrDriver, err))
		}
		if err := a.cfg.Driver.MemcpyAsync(ctx, newPtr, ptr, ai.Size, stream); err != nil {
			return 0, a.abortMigration(newPtr, fmt.Errorf("%w: memcpy: %v", ErrDriver, err))
		}
		stream.EnqueueHostCallback(func() {
			a.cacheMu.Lock()
			a.unmap.push(unmapEntry{shouldFree: move, ptr: ptr})
			a.cacheMu.Unlock()
		})

	case !isHostFamily(ai.Kind) && isHostFamily(newKind):
		// Device/Managed* -> Host: pin the destination, copy, defer the
		// unregister, and if this is a move immediately free the source
		// (it is device-kind, so Free correctly orders it after the copy
		// via the stream's release chain).
		if err := a.cfg.Driver.PinRegister(newPtr, ai.Size); err != nil {
			return 0, a.abortMigration(newPtr, fmt.Errorf("%w: pin register: %v", ErrDriver, err))
		}
		if err := a.cfg.Driver.MemcpyAsync(ctx, newPtr, ptr, ai.Size, stream); err != nil {
			return 0, a.abortMigration(newPtr, fmt.Errorf("%w: memcpy: %v", ErrDriver, err))
		}
		stream.EnqueueHostCallback(func() {
			a.cacheMu.Lock()
			a.unmap.push(unmapEntry{shouldFree: false, ptr: newPtr})
			a.cacheMu.Unlock()
		})
		if move {
			if err := a.Free(ptr); err != nil {
				return 0, err
			}
		}

	default:
		// Device<->Device, Managed*<->Device, or same host family across
		// devices: a plain copy, with an ordered free on move.
		if err := a.cfg.Driver.MemcpyAsync(ctx, newPtr, ptr, ai.Size, stream); err != nil {
			return 0, a.abortMigration(newPtr, fmt.Errorf("%w: memcpy: %v", ErrDriver, err))
		}
		if move {
			if err := a.Free(ptr); err != nil {
				return 0, err
			}
		}
	}

	a.cfg.Logger.Trace("mem: migrate", "ptr", ptr, "newPtr", newPtr, "from", ai.Kind, "to", newKind, "move", move)
	return newPtr, nil
}

// Prefetch advises the driver to stage a Managed/ManagedReadMostly
// pointer toward device (-1: host, -2: every known device, otherwise a
// device index), issued on the active stream.
func (a *Allocator) Prefetch(ctx context.Context, ptr uintptr, device int) error {
	a.mainMu.Lock()
	ai, ok := a.live.lookup(ptr)
	a.mainMu.Unlock()
	if !ok {
		return fmt.Errorf("mem: prefetch %#x: %w", ptr, ErrUnknownPointer)
	}
	if ai.Kind != Managed && ai.Kind != ManagedReadMostly {
		return fmt.Errorf("mem: prefetch %#x: %w", ptr, ErrWrongKindForPrefetch)
	}

	stream := a.currentStream()
	if stream == nil {
		return fmt.Errorf("mem: prefetch %#x: %w", ptr, ErrNoActiveStream)
	}

	if device == -2 {
		for _, d := range a.cfg.Driver.Devices() {
			if err := a.cfg.Driver.PrefetchAsync(ptr, ai.Size, d, stream); err != nil {
				return fmt.Errorf("%w: prefetch device %d: %v", ErrDriver, d, err)
			}
		}
		return nil
	}

	if device != -1 && !knownDevice(a.cfg.Driver.Devices(), device) {
		return fmt.Errorf("mem: prefetch %#x to device %d: %w", ptr, device, ErrInvalidDevice)
	}

	if err := a.cfg.Driver.PrefetchAsync(ptr, ai.Size, device, stream); err != nil {
		return fmt.Errorf("%w: prefetch: %v", ErrDriver, err)
	}
	return nil
}

func knownDevice(devices []int, device int) bool {
	for _, d := range devices {
		if d == device {
			return true
		}
	}
	return false
}
