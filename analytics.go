package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	historyQueueSize  = 64
	historyBatchSize  = 16
	historyFlushEvery = 5 * time.Second
)

// History persists finished matches with batched background writes, so
// the game lock is never held across database I/O
type History struct {
	db     *DB
	log    *zap.Logger
	events chan MatchRecord
	stop   chan struct{}
	wg     sync.WaitGroup

	mu       sync.RWMutex
	recorded int
	dropped  int
}

// NewHistory creates and starts the history background writer
func NewHistory(db *DB, log *zap.Logger) *History {
	h := &History{
		db:     db,
		log:    log,
		events: make(chan MatchRecord, historyQueueSize),
		stop:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.writer()
	return h
}

// Record enqueues a match for async persistence (non-blocking)
func (h *History) Record(rec MatchRecord) {
	select {
	case h.events <- rec:
	default:
		// Queue full, never block the game
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.log.Warn("history queue full, dropping match", zap.String("match_id", rec.ID))
	}
}

// Counts returns how many matches were written and dropped so far
func (h *History) Counts() (recorded, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recorded, h.dropped
}

// Stop flushes pending records and shuts down the writer
func (h *History) Stop() {
	close(h.stop)
	h.wg.Wait()
}

// writer is the background goroutine that batches and writes records to DB
func (h *History) writer() {
	defer h.wg.Done()

	batch := make([]MatchRecord, 0, historyBatchSize)
	ticker := time.NewTicker(historyFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case rec := <-h.events:
			batch = append(batch, rec)
			if len(batch) >= historyBatchSize {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-h.stop:
			// Drain remaining records
			for {
				select {
				case rec := <-h.events:
					batch = append(batch, rec)
				default:
					if len(batch) > 0 {
						h.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (h *History) flush(batch []MatchRecord) {
	if h.db == nil || len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.db.InsertMatches(ctx, batch); err != nil {
		h.log.Error("history flush failed", zap.Int("matches", len(batch)), zap.Error(err))
		return
	}
	h.mu.Lock()
	h.recorded += len(batch)
	h.mu.Unlock()
}
