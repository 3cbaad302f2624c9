// Package poller implements the ledger event polling engine.
//
// The engine:
//   - Queries the ledger's event endpoint for every configured filter on
//     a fixed interval, starting with an immediate first cycle
//   - Deduplicates results against per-filter cursor state (watermark +
//     recently seen IDs), so overlapping query windows deliver each event
//     at most once per process lifetime
//   - Merges each cycle's new events across filters, sorts them by event
//     time, and delivers them as a single batch
//   - Runs an independent eviction cycle every 5 minutes to bound the
//     dedup state's memory footprint
//
// Cursor state is in-memory only; restarts lose dedup history.
package poller
