package journal

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/signtype/pkg/log"
)

const (
	// DefaultBufferSize is the capacity of the writer queue.
	DefaultBufferSize = 1024

	maxBatch = 64
)

// Writer appends entries to a Store from its own goroutine. Record never
// blocks; entries are dropped with a warning when the queue is full.
type Writer struct {
	store   *Store
	logger  log.Logger
	entries chan Entry
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewWriter starts a writer over store.
func NewWriter(store *Store, bufferSize int, logger log.Logger) *Writer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	w := &Writer{
		store:   store,
		logger:  log.With(logger, log.String("component", "journal")),
		entries: make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Record queues e for writing.
func (w *Writer) Record(e Entry) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.entries <- e:
		return true
	default:
		w.logger.Warn("journal queue full, dropping commit",
			log.String("session_id", e.SessionID),
			log.String("kind", e.Kind))
		return false
	}
}

// Close stops accepting entries, flushes the queue and waits for the writer
// goroutine until ctx is done.
func (w *Writer) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.entries)
		w.mu.Unlock()
	})
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)

	batch := make([]Entry, 0, maxBatch)
	for e := range w.entries {
		batch = append(batch[:0], e)
		// Drain whatever is already queued into the same transaction.
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-w.entries:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		w.flush(batch)
	}
}

func (w *Writer) flush(batch []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.Insert(ctx, batch...); err != nil {
		w.logger.Error("failed to write journal entries",
			log.Int("count", len(batch)), log.Err(err))
		return
	}
	w.logger.Debug("journal entries written", log.Int("count", len(batch)))
}
