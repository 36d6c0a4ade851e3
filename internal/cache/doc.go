// Package cache provides a byte-budgeted LRU for whole blobs.
//
// The LRU backs blobstore.CachingStore. Values are whole file contents keyed by
// blob name; the budget is counted in bytes and optionally reported to a
// resource.Controller so the read cache shares one memory limit with the rest
// of the process.
package cache
