package simdriver

import "sync"

// TaskQueue is a simulated mem.TaskQueue: a single worker goroutine that
// runs enqueued functions strictly in submission order, giving host-async
// streams a real (if trivial) asynchronous execution domain distinct
// from the CUDA-sim streams' inline ops queue.
type TaskQueue struct {
	tasks chan func()
	wg    sync.WaitGroup
	done  chan struct{}
}

// NewTaskQueue starts a TaskQueue's worker goroutine.
func NewTaskQueue() *TaskQueue {
	tq := &TaskQueue{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	go tq.run()
	return tq
}

func (tq *TaskQueue) run() {
	for {
		select {
		case fn := <-tq.tasks:
			fn()
			tq.wg.Done()
		case <-tq.done:
			return
		}
	}
}

// Enqueue implements mem.TaskQueue.
func (tq *TaskQueue) Enqueue(fn func()) {
	tq.wg.Add(1)
	tq.tasks <- fn
}

// Wait blocks until every task enqueued so far has run.
func (tq *TaskQueue) Wait() {
	tq.wg.Wait()
}

// Close stops the worker goroutine. Safe to call once, after all callers
// are done enqueuing work.
func (tq *TaskQueue) Close() {
	close(tq.done)
}
