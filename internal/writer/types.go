package writer

import "time"

// Config contains configuration for the batch event writer.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of the intake queue.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// eventRow represents a row to be inserted into the ledger_events table.
type eventRow struct {
	EventID    string // Composite key: tx_ref + "-" + seq
	TxRef      string
	Seq        int64
	EventTs    int64 // Milliseconds
	ReceivedAt int64 // Milliseconds
	EventType  string
	Payload    []byte // JSONB
}

// Metrics holds counters for a writer.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
