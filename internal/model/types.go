package model

import (
	"encoding/json"
	"fmt"
)

// Event represents a single ledger event observed through the query endpoint.
// Events are immutable once observed.
type Event struct {
	ID          string          // Composite key: TxRef + "-" + Seq
	TxRef       string          // Transaction reference on the ledger
	Seq         int64           // Sequence number within the transaction
	TimestampMs int64           // Event time (ms since epoch)
	Type        string          // Event type as reported by the ledger
	Payload     json.RawMessage // Opaque event body, passed through unmodified
}

// EventID builds the composite event identifier from a transaction
// reference and a sequence number.
func EventID(txRef string, seq int64) string {
	return fmt.Sprintf("%s-%d", txRef, seq)
}
