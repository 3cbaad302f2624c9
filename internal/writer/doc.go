// Package writer implements the optional Postgres event archive.
//
// The EventWriter consumes delivered batches through a queue, so the
// poller's delivery callback returns immediately, and flushes rows in
// batches with ON CONFLICT DO NOTHING. The archive stores delivered
// events only; it is not a cursor checkpoint and plays no part in dedup.
package writer
