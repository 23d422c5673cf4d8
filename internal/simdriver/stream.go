package simdriver

import (
	"context"
	"sync"
)

// Stream is a simulated mem.Stream. A CUDA-style stream keeps its own
// ordered queue of closures (standing in for kernels, copies and host
// callbacks); a host-async stream instead forwards enqueued work onto a
// TaskQueue so it actually runs off the calling goroutine. Either way,
// Synchronize blocks until everything enqueued before the call has run,
// matching the real ordering contract.
type Stream struct {
	cuda   bool
	device int
	tq     *TaskQueue

	mu  sync.Mutex
	ops []func()
}

// NewCUDAStream returns a simulated CUDA-backed stream bound to device.
func NewCUDAStream(device int) *Stream {
	return &Stream{cuda: true, device: device}
}

// NewHostAsyncStream returns a simulated host-async stream whose enqueued
// work runs on tq.
func NewHostAsyncStream(tq *TaskQueue) *Stream {
	return &Stream{cuda: false, tq: tq}
}

// IsCUDA implements mem.Stream.
func (s *Stream) IsCUDA() bool { return s.cuda }

// DeviceID implements mem.Stream.
func (s *Stream) DeviceID() int { return s.device }

// EnqueueHostCallback implements mem.Stream.
func (s *Stream) EnqueueHostCallback(fn func()) { s.enqueue(fn) }

// enqueue is the single ordered entry point used both by
// EnqueueHostCallback and by Driver's MemcpyAsync/PrefetchAsync, so a
// callback enqueued after a copy always observes the copy's effects.
func (s *Stream) enqueue(fn func()) {
	if s.tq != nil {
		s.tq.Enqueue(fn)
		return
	}
	s.mu.Lock()
	s.ops = append(s.ops, fn)
	s.mu.Unlock()
}

// Synchronize implements mem.Stream.
func (s *Stream) Synchronize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tq != nil {
		s.tq.Wait()
		return nil
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
