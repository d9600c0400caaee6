package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message is one received payload queued for archival.
type Message struct {
	ID         uuid.UUID // Assigned at receipt
	Payload    string    // Raw message text
	ReceivedAt time.Time // Local receive timestamp
}

// Config tunes the archiver.
type Config struct {
	InstanceID    string        // Relay instance writing the rows
	BatchSize     int           // Rows per batch insert
	FlushInterval time.Duration // Max time a row waits before flush
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
	}
}

// Metrics counts archiver activity.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// Archiver consumes messages from its input channel and writes them to
// the messages table in batches.
type Archiver struct {
	cfg    Config
	logger *slog.Logger

	input <-chan Message
	db    *pgxpool.Pool

	// Batching
	batch       []messageRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// messageRow is the database representation of a Message.
type messageRow struct {
	ID         uuid.UUID
	Instance   string
	ReceivedAt int64 // Unix microseconds
	Payload    string
}

// New creates an archiver reading from input.
func New(cfg Config, input <-chan Message, db *pgxpool.Pool, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]messageRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming messages and writing to the database.
func (a *Archiver) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.flushTicker = time.NewTicker(a.cfg.FlushInterval)

	a.wg.Add(1)
	go a.consumeLoop()

	a.wg.Add(1)
	go a.flushLoop()

	a.logger.Info("archiver started",
		"batch_size", a.cfg.BatchSize,
		"flush_interval", a.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the archiver. The consumer exits as soon
// as the lifecycle context is cancelled, so messages still buffered in
// the input channel are drained here; the final flush runs on the
// caller's ctx, not the cancelled lifecycle one, so the tail batch is
// actually written.
func (a *Archiver) Stop(ctx context.Context) error {
	a.logger.Info("stopping archiver")

	if a.cancel != nil {
		a.cancel()
	}
	if a.flushTicker != nil {
		a.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("archiver stop timed out")
	}

	a.drainInput(ctx)
	a.flush(ctx)

	a.logger.Info("archiver stopped")
	return nil
}

// drainInput pulls whatever the consumer left behind in the input
// channel into the batch.
func (a *Archiver) drainInput(ctx context.Context) {
	for {
		select {
		case msg := <-a.input:
			a.handleMessage(ctx, msg)
		default:
			return
		}
	}
}

// Stats returns current metrics.
func (a *Archiver) Stats() Metrics {
	a.batchMu.Lock()
	defer a.batchMu.Unlock()
	return a.metrics
}

// consumeLoop reads from the input channel and accumulates batches.
func (a *Archiver) consumeLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case msg, ok := <-a.input:
			if !ok {
				return
			}
			a.handleMessage(a.ctx, msg)
		}
	}
}

// flushLoop periodically flushes the batch.
func (a *Archiver) flushLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flushTicker.C:
			a.flush(a.ctx)
		}
	}
}

// handleMessage transforms and adds a message to the batch.
func (a *Archiver) handleMessage(ctx context.Context, msg Message) {
	row := a.transform(msg)

	a.batchMu.Lock()
	a.batch = append(a.batch, row)
	shouldFlush := len(a.batch) >= a.cfg.BatchSize
	a.batchMu.Unlock()

	if shouldFlush {
		a.flush(ctx)
	}
}

// transform converts a Message to a messageRow.
func (a *Archiver) transform(msg Message) messageRow {
	return messageRow{
		ID:         msg.ID,
		Instance:   a.cfg.InstanceID,
		ReceivedAt: msg.ReceivedAt.UnixMicro(),
		Payload:    msg.Payload,
	}
}

// flush writes the current batch to the database.
func (a *Archiver) flush(ctx context.Context) {
	a.batchMu.Lock()
	if len(a.batch) == 0 {
		a.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := a.batch
	a.batch = make([]messageRow, 0, a.cfg.BatchSize)
	a.batchMu.Unlock()

	start := time.Now()

	conflicts, err := a.batchInsert(ctx, batch)
	if err != nil {
		a.logger.Error("batch insert failed", "error", err, "count", len(batch))
		a.batchMu.Lock()
		a.metrics.Errors++
		a.batchMu.Unlock()
		return
	}

	a.batchMu.Lock()
	a.metrics.Inserts += int64(len(batch) - conflicts)
	a.metrics.Conflicts += int64(conflicts)
	a.metrics.Flushes++
	a.batchMu.Unlock()

	a.logger.Debug("flushed messages",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (a *Archiver) batchInsert(ctx context.Context, rows []messageRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO messages (id, instance, received_at, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.Instance, r.ReceivedAt, r.Payload)
	}

	results := a.db.SendBatch(ctx, batch)
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
