package catdb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    putCounter   prometheus.Counter
//	    getHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordPut(duration time.Duration, created bool, err error) {
//	    p.putCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordPut is called after each entry written by Put.
	// created is false when an existing file was overwritten.
	RecordPut(duration time.Duration, created bool, err error)

	// RecordBatchPut is called after each Put call.
	// count is the number of entries attempted, failed is 0 or count.
	RecordBatchPut(count, failed int, duration time.Duration)

	// RecordGet is called after each lookup that reaches the store.
	RecordGet(duration time.Duration, found bool, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordIndex is called after each index file mutation.
	// op is "add" or "remove".
	RecordIndex(op string, err error)

	// RecordLoad is called after each directory load.
	RecordLoad(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPut(time.Duration, bool, error)   {}
func (NoopMetricsCollector) RecordBatchPut(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordGet(time.Duration, bool, error)   {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)      {}
func (NoopMetricsCollector) RecordIndex(string, error)              {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PutCount       atomic.Int64
	PutCreated     atomic.Int64
	PutErrors      atomic.Int64
	PutTotalNanos  atomic.Int64
	BatchPutCount  atomic.Int64
	BatchPutItems  atomic.Int64
	BatchPutFailed atomic.Int64
	GetCount       atomic.Int64
	GetMisses      atomic.Int64
	GetErrors      atomic.Int64
	GetTotalNanos  atomic.Int64
	DeleteCount    atomic.Int64
	DeleteErrors   atomic.Int64
	IndexAdds      atomic.Int64
	IndexRemoves   atomic.Int64
	IndexErrors    atomic.Int64
	LoadCount      atomic.Int64
	LoadedObjects  atomic.Int64
	LoadErrors     atomic.Int64
}

// RecordPut implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPut(duration time.Duration, created bool, err error) {
	b.PutCount.Add(1)
	b.PutTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.PutErrors.Add(1)
	case created:
		b.PutCreated.Add(1)
	}
}

// RecordBatchPut implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchPut(count, failed int, _ time.Duration) {
	b.BatchPutCount.Add(1)
	b.BatchPutItems.Add(int64(count))
	b.BatchPutFailed.Add(int64(failed))
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(duration time.Duration, found bool, err error) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	switch {
	case err != nil:
		b.GetErrors.Add(1)
	case !found:
		b.GetMisses.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(_ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndex(op string, err error) {
	if err != nil {
		b.IndexErrors.Add(1)
		return
	}
	if op == "remove" {
		b.IndexRemoves.Add(1)
	} else {
		b.IndexAdds.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(count int, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.LoadedObjects.Add(int64(count))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		PutCount:       b.PutCount.Load(),
		PutCreated:     b.PutCreated.Load(),
		PutErrors:      b.PutErrors.Load(),
		PutAvgNanos:    avg(b.PutTotalNanos.Load(), b.PutCount.Load()),
		BatchPutCount:  b.BatchPutCount.Load(),
		BatchPutItems:  b.BatchPutItems.Load(),
		BatchPutFailed: b.BatchPutFailed.Load(),
		GetCount:       b.GetCount.Load(),
		GetMisses:      b.GetMisses.Load(),
		GetErrors:      b.GetErrors.Load(),
		GetAvgNanos:    avg(b.GetTotalNanos.Load(), b.GetCount.Load()),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		IndexAdds:      b.IndexAdds.Load(),
		IndexRemoves:   b.IndexRemoves.Load(),
		IndexErrors:    b.IndexErrors.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadedObjects:  b.LoadedObjects.Load(),
		LoadErrors:     b.LoadErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PutCount       int64
	PutCreated     int64
	PutErrors      int64
	PutAvgNanos    int64
	BatchPutCount  int64
	BatchPutItems  int64
	BatchPutFailed int64
	GetCount       int64
	GetMisses      int64
	GetErrors      int64
	GetAvgNanos    int64
	DeleteCount    int64
	DeleteErrors   int64
	IndexAdds      int64
	IndexRemoves   int64
	IndexErrors    int64
	LoadCount      int64
	LoadedObjects  int64
	LoadErrors     int64
}
