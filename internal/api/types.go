package api

import "encoding/json"

// EventsResponse from GET /events/query
type EventsResponse struct {
	Events []APIEvent `json:"events"`
}

// APIEvent represents an event as returned by the ledger query API.
type APIEvent struct {
	TxRef       string          `json:"tx_ref"`
	Seq         int64           `json:"seq"`
	TimestampMs Millis          `json:"timestamp_ms"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
}
