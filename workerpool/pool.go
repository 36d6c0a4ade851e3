package workerpool

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultMaxOutstanding is the default number of simultaneously running tasks.
const DefaultMaxOutstanding = 10

// Option configures a Pool.
type Option func(*Pool)

// WithRateLimit throttles task starts to r per second with the given burst.
// The wait happens inside the task's slot, so it counts as outstanding.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(p *Pool) {
		p.limiter = rate.NewLimiter(r, burst)
	}
}

// Pool bounds the number of tasks running at once across every job
// submitted to it.
//
// Jobs are served in submission order: a free slot always goes to the
// earliest job that still has an unscheduled task. A Pool is safe for
// concurrent use. Workers must not block on another job of the same Pool;
// if every slot is held by a waiting worker, nothing can make progress.
type Pool struct {
	mu          sync.Mutex
	max         int
	outstanding int
	peak        int
	jobs        []scheduler
	limiter     *rate.Limiter
}

// New creates a Pool allowing maxOutstanding tasks at once.
// Values <= 0 select DefaultMaxOutstanding.
func New(maxOutstanding int, optFns ...Option) *Pool {
	if maxOutstanding <= 0 {
		maxOutstanding = DefaultMaxOutstanding
	}
	p := &Pool{max: maxOutstanding}
	for _, fn := range optFns {
		fn(p)
	}
	return p
}

// MaxOutstanding returns the configured concurrency ceiling.
func (p *Pool) MaxOutstanding() int { return p.max }

// Stats is a point-in-time view of a Pool.
type Stats struct {
	Outstanding     int // tasks running now
	PeakOutstanding int // highest Outstanding ever observed
	QueuedJobs      int // jobs with unscheduled tasks
}

// Stats returns the current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Outstanding:     p.outstanding,
		PeakOutstanding: p.peak,
		QueuedJobs:      len(p.jobs),
	}
}

// scheduler is the type-erased view of a job the pool pumps.
type scheduler interface {
	// pending reports whether the job has unscheduled tasks.
	pending() bool
	// take claims the next unscheduled task and returns a func running it.
	take() func(ctx context.Context) (finish func())
	context() context.Context
}

func (p *Pool) submit(j scheduler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, j)
	p.pumpLocked()
}

// pumpLocked starts tasks while slots are free. Must hold p.mu.
func (p *Pool) pumpLocked() {
	for p.outstanding < p.max {
		// Drop jobs with nothing left to schedule from the head of the queue.
		var j scheduler
		kept := p.jobs[:0]
		for _, candidate := range p.jobs {
			if !candidate.pending() {
				continue
			}
			kept = append(kept, candidate)
			if j == nil {
				j = candidate
			}
		}
		clear(p.jobs[len(kept):])
		p.jobs = kept
		if j == nil {
			return
		}

		task := j.take()
		p.outstanding++
		p.peak = max(p.peak, p.outstanding)
		go p.run(j.context(), task)
	}
}

func (p *Pool) run(ctx context.Context, task func(ctx context.Context) (finish func())) {
	finish := task(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding--
	finish()
	p.pumpLocked()
}

func (p *Pool) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
