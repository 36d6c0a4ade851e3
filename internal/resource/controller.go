package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for managed memory (read caches).
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxOpenFiles is the maximum number of files held open at once.
	// If 0, unlimited.
	MaxOpenFiles int64

	// IOLimitBytesPerSec is the maximum read+write throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages process-local resources (memory, file handles, IO).
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// File handles
	fileSem *semaphore.Weighted // nil if unlimited
	open    atomic.Int64

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.MaxOpenFiles > 0 {
		c.fileSem = semaphore.NewWeighted(cfg.MaxOpenFiles)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// TryAcquireMemory attempts to reserve memory without blocking.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// AcquireMemory reserves memory, blocking until it is available.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if bytes > c.cfg.MemoryLimitBytes {
			return ErrMemoryLimitExceeded
		}
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireFile reserves a file handle slot. Blocks if all slots are busy.
func (c *Controller) AcquireFile(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.fileSem != nil {
		if err := c.fileSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.open.Add(1)
	return nil
}

// ReleaseFile releases a file handle slot.
func (c *Controller) ReleaseFile() {
	if c == nil {
		return
	}
	c.open.Add(-1)
	if c.fileSem != nil {
		c.fileSem.Release(1)
	}
}

// OpenFiles returns the number of currently held file handle slots.
func (c *Controller) OpenFiles() int64 {
	if c == nil {
		return 0
	}
	return c.open.Load()
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the bucket are split into burst-sized waits.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// TryAcquireIO attempts to acquire IO tokens without blocking.
func (c *Controller) TryAcquireIO(bytes int) bool {
	if c == nil || c.ioLimiter == nil {
		return true
	}
	return c.ioLimiter.AllowN(time.Now(), bytes)
}
