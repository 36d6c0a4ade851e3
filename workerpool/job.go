package workerpool

import (
	"context"
	"reflect"
)

// Worker processes one task.
type Worker[T, R any] func(ctx context.Context, task T) (R, error)

// job is one batch of tasks. All fields are guarded by the owning Pool's mutex.
type job[T, R any] struct {
	ctx        context.Context
	pool       *Pool
	tasks      []T
	worker     Worker[T, R]
	ignoreNull bool

	next     int // index of the next unscheduled task
	finished int
	results  []R
	err      error
	closed   bool
	done     chan struct{}
}

func (j *job[T, R]) pending() bool {
	return !j.closed && j.next < len(j.tasks)
}

func (j *job[T, R]) context() context.Context { return j.ctx }

func (j *job[T, R]) take() func(ctx context.Context) (finish func()) {
	task := j.tasks[j.next]
	j.next++
	return func(ctx context.Context) func() {
		var (
			r   R
			err error
		)
		if err = j.pool.wait(ctx); err == nil {
			r, err = j.worker(ctx, task)
		}
		return func() { j.complete(r, err) }
	}
}

// complete records one task outcome. Outcomes arriving after the job has
// resolved are ignored.
func (j *job[T, R]) complete(r R, err error) {
	if j.closed {
		return
	}
	if err != nil {
		j.failLocked(err)
		return
	}
	j.finished++
	if !j.ignoreNull || !isEmpty(r) {
		j.results = append(j.results, r)
	}
	if j.finished == len(j.tasks) {
		j.closed = true
		close(j.done)
	}
}

// failLocked rejects the job and discards its unscheduled tasks.
func (j *job[T, R]) failLocked(err error) {
	if j.closed {
		return
	}
	j.err = err
	j.next = len(j.tasks)
	j.closed = true
	close(j.done)
}

func runJob[T, R any](ctx context.Context, p *Pool, tasks []T, worker Worker[T, R], ignoreNull bool) ([]R, error) {
	if len(tasks) == 0 {
		return []R{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j := &job[T, R]{
		ctx:        ctx,
		pool:       p,
		tasks:      tasks,
		worker:     worker,
		ignoreNull: ignoreNull,
		results:    make([]R, 0, len(tasks)),
		done:       make(chan struct{}),
	}
	p.submit(j)

	select {
	case <-j.done:
	case <-ctx.Done():
		p.mu.Lock()
		j.failLocked(ctx.Err())
		p.mu.Unlock()
		<-j.done
	}

	if j.err != nil {
		return nil, j.err
	}
	return j.results, nil
}

// RunJob runs worker over every task on p and returns the aggregated results.
//
// The results are in completion order, not task order: callers must not
// assume results[i] belongs to tasks[i].
//
// The first failing task rejects the job: its unscheduled tasks are dropped,
// tasks already running are left to finish and their results are ignored, and
// the task's error is returned as is. Other jobs on the same pool are not
// affected. Cancelling ctx rejects the job the same way with ctx.Err().
func RunJob[T, R any](ctx context.Context, p *Pool, tasks []T, worker Worker[T, R]) ([]R, error) {
	return runJob(ctx, p, tasks, worker, false)
}

// RunJobIgnoreNull is RunJob but drops empty results: nil pointers, interfaces,
// maps, slices, channels and funcs, zero-length maps and slices, and "".
func RunJobIgnoreNull[T, R any](ctx context.Context, p *Pool, tasks []T, worker Worker[T, R]) ([]R, error) {
	return runJob(ctx, p, tasks, worker, true)
}

// Run runs a single job on a one-off pool of the given concurrency.
func Run[T, R any](ctx context.Context, concurrency int, tasks []T, worker Worker[T, R]) ([]R, error) {
	return RunJob(ctx, New(concurrency), tasks, worker)
}

// RunIgnoreNull runs a single RunJobIgnoreNull job on a one-off pool.
func RunIgnoreNull[T, R any](ctx context.Context, concurrency int, tasks []T, worker Worker[T, R]) ([]R, error) {
	return RunJobIgnoreNull(ctx, New(concurrency), tasks, worker)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // other kinds are never empty
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	case reflect.Map, reflect.Slice:
		return rv.IsNil() || rv.Len() == 0
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}
