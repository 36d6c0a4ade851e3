// Package resource implements the Controller for process-local resource limits.
//
// The Controller provides centralized management of three resource types:
//
//   - Memory: Track and limit memory held by read caches (non-blocking, fail-fast)
//   - File handles: Bound the number of files the local blob store keeps open
//   - IO: Rate-limit read and write throughput with a token bucket
//
// All methods are safe on a nil *Controller, which means "unlimited":
//
//	var rc *resource.Controller
//	_ = rc.AcquireFile(ctx) // no-op
//
// # File handles
//
//	rc := resource.NewController(resource.Config{MaxOpenFiles: 64})
//	if err := rc.AcquireFile(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseFile()
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//	if err := rc.AcquireIO(ctx, len(data)); err != nil {
//	    return err
//	}
package resource
