// Package metrics holds the session engine's counters and its validate
// latency histogram.
//
// Each counter lives in its own padded slot and is bumped with an atomic add,
// so recording never takes a lock or allocates. The histogram has eight fixed
// buckets from 5ms up to +Inf.
//
// Snapshot copies every value at once. Exporters under metrics/export read
// snapshots; this package does no I/O and imports nothing from the module.
package metrics
