// Package workerpool runs batches of tasks ("jobs") under one shared
// concurrency ceiling.
//
// Every bulk operation in catdb fans out through a Pool: writing entries,
// fetching index members, scanning source directories. A Pool counts running
// tasks across all of its jobs and hands each free slot to the earliest
// submitted job that still has work.
//
// # Result order
//
// RunJob aggregates results as tasks complete. The returned slice is in
// completion order, not submission order. This is part of the contract;
// callers treat the result as a set.
//
//	pool := workerpool.New(4)
//	sizes, err := workerpool.RunJob(ctx, pool, names, func(ctx context.Context, name string) (int, error) {
//	    data, err := store.Get(ctx, name)
//	    return len(data), err
//	})
//
// # Failure
//
// A failing task rejects its own job only. Unscheduled tasks of that job are
// dropped; running ones are not interrupted and their results are discarded.
// The task's error is returned unchanged.
package workerpool
