// Package cache provides ResultCache, an in-process key/value cache with a
// per-entry time-to-live, used to memoize expensive idempotent reads.
//
// Expired entries are treated as absent on read and removed lazily, and a
// background sweep evicts them proactively. The cache is not write-through:
// callers that change the underlying data must Delete the affected keys.
package cache
