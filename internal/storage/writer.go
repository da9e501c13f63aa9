package storage

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultAuditBuffer bounds the in-flight queue; at roughly 1 KB per
// truncated execution record this caps the writer near 4 MB of memory.
const defaultAuditBuffer = 4096

// AuditWriter queues execution records and writes them to the database
// asynchronously so the run path never blocks on Postgres. Records are
// dropped, not queued unbounded, when the database falls behind.
type AuditWriter struct {
	db      *DB
	ch      chan *Execution
	wg      sync.WaitGroup
	done    chan struct{}
	dropped atomic.Int64
}

func NewAuditWriter(db *DB, bufferSize int) *AuditWriter {
	if bufferSize < 1 {
		bufferSize = defaultAuditBuffer
	}
	return &AuditWriter{
		db:   db,
		ch:   make(chan *Execution, bufferSize),
		done: make(chan struct{}),
	}
}

func (w *AuditWriter) Start() {
	w.wg.Add(1)
	go w.processLoop()
}

// Log enqueues an execution record without blocking. A full buffer means
// the record is lost; the run result already went back to the caller, so
// losing the audit row is preferable to stalling the pipeline.
func (w *AuditWriter) Log(exec *Execution) {
	select {
	case w.ch <- exec:
	default:
		log.Warn().
			Str("exec_id", exec.ID).
			Str("status", exec.Status).
			Int64("dropped_total", w.dropped.Add(1)).
			Msg("audit buffer full, dropping execution record")
	}
}

// Flush stops the writer and drains queued records, giving up after timeout.
func (w *AuditWriter) Flush(timeout time.Duration) {
	close(w.done)

	doneCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Int64("dropped_total", w.dropped.Load()).Msg("audit writer drained")
	case <-time.After(timeout):
		log.Warn().Int("pending", len(w.ch)).Msg("audit writer flush timed out")
	}
}

func (w *AuditWriter) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case exec := <-w.ch:
			w.writeWithRetry(exec)
		case <-w.done:
			for {
				select {
				case exec := <-w.ch:
					w.writeWithRetry(exec)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWriter) writeWithRetry(exec *Execution) {
	const maxRetries = 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := w.db.LogExecution(ctx, exec)
		cancel()

		if err == nil {
			return
		}

		if attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			log.Warn().
				Err(err).
				Str("exec_id", exec.ID).
				Str("code_hash", exec.CodeHash).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("audit write failed, retrying")
			time.Sleep(backoff)
		} else {
			log.Error().
				Err(err).
				Str("exec_id", exec.ID).
				Str("code_hash", exec.CodeHash).
				Msg("execution record lost after retries")
		}
	}
}
