// Package cursor implements per-filter dedup state for the poller.
//
// For each filter the store keeps:
//   - a monotonically non-decreasing watermark of the newest event time
//     already delivered
//   - a bounded map of recently seen event IDs with their first-seen
//     wall-clock time, for duplicate suppression inside the watermark window
//
// State lives in memory only. A process restart loses all dedup history.
package cursor
