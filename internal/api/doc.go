// Package api provides the REST client for the ledger's event-query
// endpoint.
//
// The endpoint is stateless per call: it has no server-side subscription
// or cursor, and repeated queries may return overlapping result windows.
// The client only fetches; dedup and ordering are the poller's job.
package api
