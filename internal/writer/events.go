package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/ledgerwatch/internal/buffer"
	"github.com/rickgao/ledgerwatch/internal/model"
)

// DB is the subset of pgxpool.Pool the writer needs.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// EventWriter archives delivered event batches to the ledger_events
// table. It implements the poller's batch handler: HandleBatch only
// enqueues, so delivery never waits on the database.
type EventWriter struct {
	cfg    Config
	logger *slog.Logger

	// Intake from the poller's delivery callback
	input *buffer.Queue[model.Event]

	// Database
	db DB

	// Batching
	batch       []eventRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics Metrics
}

// NewEventWriter creates a new EventWriter.
func NewEventWriter(cfg Config, db DB, logger *slog.Logger) *EventWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  buffer.NewQueue[model.Event](cfg.BufferSize),
		batch:  make([]eventRow, 0, cfg.BatchSize),
	}
}

// HandleBatch enqueues a delivered batch for archiving.
func (w *EventWriter) HandleBatch(events []model.Event) {
	for _, ev := range events {
		w.input.Push(ev)
	}
}

// Start begins consuming queued events and writing to the database.
func (w *EventWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("event writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer, flushing whatever remains. The
// final flush runs under ctx, not the lifecycle context, which Stop has
// already cancelled.
func (w *EventWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping event writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("event writer stopped")
	case <-ctx.Done():
		w.logger.Warn("event writer stop timed out")
	}

	// Drain stragglers and final flush
	for _, ev := range w.input.Drain(0) {
		w.append(ctx, w.transform(ev))
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *EventWriter) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop drains the intake queue and accumulates batches.
func (w *EventWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		events := w.input.Drain(w.cfg.BatchSize)
		if len(events) == 0 {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
				continue
			}
		}

		for _, ev := range events {
			w.append(w.ctx, w.transform(ev))
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *EventWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// append adds a row to the batch, flushing when the batch fills.
func (w *EventWriter) append(ctx context.Context, row eventRow) {
	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(ctx)
	}
}

// transform converts a model.Event to an eventRow.
func (w *EventWriter) transform(ev model.Event) eventRow {
	return eventRow{
		EventID:    ev.ID,
		TxRef:      ev.TxRef,
		Seq:        ev.Seq,
		EventTs:    ev.TimestampMs,
		ReceivedAt: time.Now().UnixMilli(),
		EventType:  ev.Type,
		Payload:    []byte(ev.Payload),
	}
}

// flush writes the current batch to the database.
func (w *EventWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]eventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
// Re-archiving an event the poller re-delivered after a restart is a
// conflict, not an error.
func (w *EventWriter) batchInsert(ctx context.Context, rows []eventRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO ledger_events (event_id, tx_ref, seq, event_ts, received_at, event_type, payload)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.TxRef, r.Seq, r.EventTs, r.ReceivedAt, r.EventType, r.Payload)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
