package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/audit"
	"fastx-gateway/internal/config"
	"fastx-gateway/internal/monitor"
)

// RecordStore persists audit records.
type RecordStore interface {
	LogRecord(ctx context.Context, rec audit.Record) error
}

// AuditWriter archives audit records in the background. It is an
// audit.Sink: Log never blocks, and records arriving while the buffer is
// full are dropped and counted.
type AuditWriter struct {
	store        RecordStore
	ch           chan audit.Record
	wg           sync.WaitGroup
	done         chan struct{}
	stopOnce     sync.Once
	attempts     uint
	writeTimeout time.Duration
	baseDelay    time.Duration
	metrics      *monitor.Metrics
	dropped      atomic.Int64
	written      atomic.Int64
}

// NewAuditWriter creates a writer. metrics may be nil.
func NewAuditWriter(store RecordStore, bufferSize int, cfg config.DatabaseConfig, metrics *monitor.Metrics) *AuditWriter {
	if bufferSize < 1 {
		bufferSize = 10000
	}
	attempts := cfg.WriteAttempts
	if attempts == 0 {
		attempts = 4
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuditWriter{
		store:        store,
		ch:           make(chan audit.Record, bufferSize),
		done:         make(chan struct{}),
		attempts:     attempts,
		writeTimeout: timeout,
		baseDelay:    100 * time.Millisecond,
		metrics:      metrics,
	}
}

func (w *AuditWriter) Start() {
	w.wg.Add(1)
	go w.processLoop()
}

// Log queues rec for archiving.
func (w *AuditWriter) Log(rec audit.Record) {
	select {
	case w.ch <- rec:
	default:
		w.dropped.Add(1)
		if w.metrics != nil {
			w.metrics.AuditArchiveDrops.Inc()
		}
		log.Warn().Str("record_id", rec.ID).Msg("audit archive buffer full, dropping record")
	}
}

// Dropped reports records discarded because the buffer was full.
func (w *AuditWriter) Dropped() int64 { return w.dropped.Load() }

// Written reports records successfully archived.
func (w *AuditWriter) Written() int64 { return w.written.Load() }

// Flush stops accepting work and waits up to timeout for queued records.
func (w *AuditWriter) Flush(timeout time.Duration) {
	w.stopOnce.Do(func() { close(w.done) })

	doneCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Int64("written", w.written.Load()).Msg("audit writer flushed")
	case <-time.After(timeout):
		log.Warn().Int("pending", len(w.ch)).Msg("audit writer flush timed out")
	}
}

func (w *AuditWriter) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case rec := <-w.ch:
			w.writeWithRetry(rec)
		case <-w.done:
			// Drain remaining entries
			for {
				select {
				case rec := <-w.ch:
					w.writeWithRetry(rec)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWriter) writeWithRetry(rec audit.Record) {
	attempt := 0
	err := retry.New(
		retry.Context(context.Background()),
		retry.Attempts(w.attempts),
		retry.Delay(w.baseDelay),
		retry.DelayType(retry.BackOffDelay),
	).Do(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
		defer cancel()

		err := w.store.LogRecord(ctx, rec)
		if err != nil && uint(attempt) < w.attempts {
			log.Warn().
				Err(err).
				Str("record_id", rec.ID).
				Int("attempt", attempt).
				Msg("audit archive write failed, retrying")
		}
		return err
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("record_id", rec.ID).
			Msg("audit archive write failed permanently after retries")
		return
	}
	w.written.Add(1)
}
