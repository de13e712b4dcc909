package redisbackend

import (
	"context"
	"sync"
)

// job is one unit of dispatched backend work: a context carried alongside
// the closure that performs it, so a worker can honor cancellation without
// the dispatcher needing to know anything about Redis.
type job struct {
	ctx context.Context
	run func(context.Context)
}

// dispatcher bounds how many Redis calls redisbackend issues concurrently,
// the same fixed-worker-pool-over-a-buffered-channel shape used to bound
// concurrent page fetches against a rate-limited upstream.
type dispatcher struct {
	jobs chan job
	wg   sync.WaitGroup
}

// newDispatcher starts a pool of workers pulling jobs off a buffered
// channel. A workers or queueDepth of zero or less selects the default of
// 8 workers or a queue depth of 256 respectively.
func newDispatcher(workers, queueDepth int) *dispatcher {
	if workers <= 0 {
		workers = 8
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}

	d := &dispatcher{jobs: make(chan job, queueDepth)}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

func (d *dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		if j.ctx.Err() != nil {
			continue
		}
		j.run(j.ctx)
	}
}

// submit enqueues fn to run on a worker goroutine. It blocks if the queue
// is full, applying backpressure to the caller rather than growing
// unbounded.
func (d *dispatcher) submit(ctx context.Context, fn func(context.Context)) {
	d.jobs <- job{ctx: ctx, run: fn}
}

// stop closes the job queue and waits for in-flight jobs to finish. No
// further submit calls are valid after stop returns.
func (d *dispatcher) stop() {
	close(d.jobs)
	d.wg.Wait()
}
