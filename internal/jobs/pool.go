package jobs

import (
	"context"
	"sync"

	"trustbench/internal/logging"
)

// Pool runs a bounded number of Worker.Run goroutines pulling job IDs
// off a channel, the same fixed-worker-count fan-out shape as
// internal/workflows/runtime's ParallelExecutor, sized instead by
// config.MaxParallelPillars-equivalent concurrency for job execution
// rather than per-run pillar execution.
type Pool struct {
	worker *Worker
	queue  chan string
	wg     sync.WaitGroup
}

// NewPool starts size worker goroutines immediately; callers submit job
// IDs with Submit and call Stop to drain and shut down.
func NewPool(ctx context.Context, worker *Worker, size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{worker: worker, queue: make(chan string, 64)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.loop(ctx)
	}
	return p
}

func (p *Pool) loop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case jobID, ok := <-p.queue:
			if !ok {
				return
			}
			logging.Debug("jobs: pool picked up job", "job_id", jobID)
			p.worker.Run(ctx, jobID)
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues a job ID for processing by the next free worker.
func (p *Pool) Submit(jobID string) {
	p.queue <- jobID
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.queue)
	p.wg.Wait()
}
