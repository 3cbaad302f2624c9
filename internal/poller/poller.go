package poller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/ledgerwatch/internal/cursor"
	"github.com/rickgao/ledgerwatch/internal/model"
)

// PageSize is the fixed number of events requested per filter per cycle.
// Each cycle is a single-page snapshot, not a history crawl.
const PageSize = 50

// EvictionInterval is the fixed cadence of the dedup-state eviction
// cycle. Not user-configurable.
const EvictionInterval = 5 * time.Minute

// EventSource queries the ledger for events matching a filter, most
// recent first, bounded to limit. Must be idempotent and side-effect
// free from the poller's perspective.
type EventSource interface {
	QueryEvents(ctx context.Context, filter model.Filter, limit int) ([]model.Event, error)
}

// BatchHandler receives each cycle's new events, sorted ascending by
// event time. Called at most once per cycle.
type BatchHandler interface {
	HandleBatch(events []model.Event)
}

// BatchHandlerFunc is a function adapter for BatchHandler.
type BatchHandlerFunc func([]model.Event)

func (f BatchHandlerFunc) HandleBatch(events []model.Event) {
	f(events)
}

// ErrorHandler receives recoverable failures: per-filter query errors
// and anything that escapes delivery. The engine itself never stops on
// them.
type ErrorHandler interface {
	HandleError(err error)
}

// ErrorHandlerFunc is a function adapter for ErrorHandler.
type ErrorHandlerFunc func(error)

func (f ErrorHandlerFunc) HandleError(err error) {
	f(err)
}

// Config holds poller configuration.
type Config struct {
	Interval        time.Duration // Poll interval (default: 5s)
	Timeout         time.Duration // Per-filter query timeout (default: 10s)
	MemoryWindow    time.Duration // Max age of dedup entries (default: 1h)
	MaxStoredEvents int           // Max dedup entries per filter after eviction (default: 1000)
	ReplayHistory   bool          // Start watermarks at epoch 0 instead of now
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Second,
		Timeout:         10 * time.Second,
		MemoryWindow:    time.Hour,
		MaxStoredEvents: 1000,
	}
}

func (c *Config) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = 5 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MemoryWindow == 0 {
		c.MemoryWindow = time.Hour
	}
	if c.MaxStoredEvents == 0 {
		c.MaxStoredEvents = 1000
	}
}

// Poller drives the fetch/dedup/deliver cycle and the independent
// eviction cycle against a fixed set of filters.
type Poller struct {
	cfg     Config
	source  EventSource
	filters []model.Filter
	handler BatchHandler
	errs    ErrorHandler
	store   *cursor.Store
	logger  *slog.Logger

	startMs int64 // initial watermark (ms since epoch)

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// New creates a new Poller. Filters sharing a canonical key are
// collapsed into one. A nil handler is a no-op; a nil error handler
// logs to standard error.
func New(cfg Config, source EventSource, filters []model.Filter, handler BatchHandler, errs ErrorHandler, logger *slog.Logger) (*Poller, error) {
	if source == nil {
		return nil, fmt.Errorf("event source is required")
	}
	if len(filters) == 0 {
		return nil, fmt.Errorf("at least one filter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	if handler == nil {
		handler = BatchHandlerFunc(func([]model.Event) {})
	}
	if errs == nil {
		stderr := slog.New(slog.NewTextHandler(os.Stderr, nil))
		errs = ErrorHandlerFunc(func(err error) {
			stderr.Error("poll error", "error", err)
		})
	}

	var startMs int64
	if !cfg.ReplayHistory {
		startMs = time.Now().UnixMilli()
	}

	// Collapse filters with identical canonical serialization so they
	// share cursor state and are queried once.
	var unique []model.Filter
	keys := make([]string, 0, len(filters))
	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		key := f.Key()
		if seen[key] {
			logger.Warn("duplicate filter collapsed", "filter", key)
			continue
		}
		seen[key] = true
		unique = append(unique, f)
		keys = append(keys, key)
	}

	return &Poller{
		cfg:     cfg,
		source:  source,
		filters: unique,
		handler: handler,
		errs:    errs,
		store:   cursor.NewStore(keys, startMs),
		logger:  logger,
		startMs: startMs,
	}, nil
}

// Start transitions the poller to Running: one immediate fetch cycle,
// then recurring fetch and eviction cycles on independent timers.
// Calling Start while running is a logged no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.logger.Warn("poller already running, start ignored")
		return
	}
	done := make(chan struct{})
	p.done = done
	p.running = true
	p.mu.Unlock()

	go p.fetchLoop(ctx, done)
	go p.evictLoop(ctx, done)

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"filters", len(p.filters),
		"start_watermark_ms", p.startMs,
	)
}

// Stop halts both timers and transitions to Stopped. Outstanding
// queries are not aborted: an in-flight cycle keeps the context given to
// Start, finishes, and its callbacks may still fire once after Stop
// returns. No further cycles run. Calling Stop while stopped is a
// logged no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		p.logger.Warn("poller not running, stop ignored")
		return
	}
	p.running = false
	close(p.done)
	p.done = nil
	p.mu.Unlock()

	p.logger.Info("poller stopped")
}

// Status is a read-only snapshot of the poller's state.
type Status struct {
	IsPolling   bool
	Filters     []model.Filter
	Interval    time.Duration
	StartTimeMs int64
	MemoryUsage string
}

// Status reports the current state without mutating anything.
func (p *Poller) Status() Status {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	return Status{
		IsPolling:   running,
		Filters:     append([]model.Filter(nil), p.filters...),
		Interval:    p.cfg.Interval,
		StartTimeMs: p.startMs,
		MemoryUsage: fmt.Sprintf("%d tracked event ids", p.store.TrackedIDs()),
	}
}

// fetchLoop runs fetch cycles: one immediately, then on the interval.
// done only stops the scheduling; queries keep ctx so Stop never aborts
// an outstanding call.
func (p *Poller) fetchLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			p.runCycle(ctx)
		}
	}
}

// evictLoop bounds dedup state on a fixed cadence, independent of the
// fetch timer.
func (p *Poller) evictLoop(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(EvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			p.store.Evict(time.Now().UnixMilli(), p.cfg.MemoryWindow.Milliseconds(), p.cfg.MaxStoredEvents)
			p.logger.Debug("eviction cycle complete", "tracked_ids", p.store.TrackedIDs())
		}
	}
}

// runCycle executes one fetch cycle: concurrent per-filter queries,
// dedup, merge, sort, deliver.
func (p *Poller) runCycle(ctx context.Context) {
	start := time.Now()

	results := make([][]model.Event, len(p.filters))
	var wg sync.WaitGroup

	for i, f := range p.filters {
		wg.Add(1)
		go func(i int, f model.Filter) {
			defer wg.Done()

			fresh, err := p.fetchFilter(ctx, f)
			if err != nil {
				// The parent context ending is shutdown, not a poll
				// failure; don't surface it to the error handler.
				if ctx.Err() != nil {
					return
				}
				// One filter's failure never blocks or fails the others.
				p.reportError(fmt.Errorf("query events for filter %q: %w", f.Key(), err))
				return
			}
			results[i] = fresh
		}(i, f)
	}

	wg.Wait()

	var batch []model.Event
	for _, fresh := range results {
		batch = append(batch, fresh...)
	}
	if len(batch) == 0 {
		return
	}

	// Stable sort preserves the underlying response order for events
	// sharing a timestamp.
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].TimestampMs < batch[j].TimestampMs
	})

	p.deliver(batch)

	p.logger.Debug("fetch cycle complete",
		"new_events", len(batch),
		"duration", time.Since(start),
	)
}

// fetchFilter queries one filter and returns its not-yet-delivered
// events, recording them in cursor state.
func (p *Poller) fetchFilter(ctx context.Context, f model.Filter) ([]model.Event, error) {
	qctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	events, err := p.source.QueryEvents(qctx, f, PageSize)
	if err != nil {
		return nil, err
	}

	key := f.Key()
	var fresh []model.Event
	// Classification runs before Record, so a page repeating an ID would
	// pass IsNew twice; collected guards within the page itself.
	collected := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if _, dup := collected[ev.ID]; dup {
			continue
		}
		if p.store.IsNew(key, ev.ID, ev.TimestampMs) {
			fresh = append(fresh, ev)
			collected[ev.ID] = struct{}{}
		}
	}

	// Record only after the whole page classified cleanly, so the
	// watermark never advances on a failed fetch.
	nowMs := time.Now().UnixMilli()
	for _, ev := range fresh {
		p.store.Record(key, ev.ID, ev.TimestampMs, nowMs)
	}

	return fresh, nil
}

// deliver invokes the batch handler, containing anything it throws so a
// misbehaving callback cannot kill the timers.
func (p *Poller) deliver(batch []model.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.reportError(fmt.Errorf("batch delivery panicked: %v", r))
		}
	}()
	p.handler.HandleBatch(batch)
}

// reportError routes an error to the handler, containing handler panics
// so a bad error callback cannot take the engine down either.
func (p *Poller) reportError(err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("error handler panicked", "error", err, "panic", r)
		}
	}()
	p.errs.HandleError(err)
}
