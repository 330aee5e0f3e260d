package batch

import (
	"context"
	"fmt"
	"sync"

	"sheetbridge/internal/domain"
)

// LoadRecorder counts successful source loads. Satisfied by
// metrics.Recorder; nil is fine.
type LoadRecorder interface {
	RecordSourceLoad()
}

// Cache holds the full batch set for the lifetime of the process. The
// first reader populates it; later readers and concurrent first readers
// observe the same slice without re-fetching. There is no refresh path:
// staleness is accepted in exchange for a single fetch.
type Cache struct {
	source   Source
	recorder LoadRecorder

	mu      sync.Mutex
	batches []domain.Batch
	loaded  bool
}

// NewCache wraps a Source in a get-or-populate cell.
func NewCache(source Source, recorder LoadRecorder) *Cache {
	return &Cache{source: source, recorder: recorder}
}

// GetOrLoad returns the cached batch set, fetching it from the source on
// first use. The lock is held across the fetch so concurrent first callers
// cannot race two populations; a failed fetch leaves the cache unloaded and
// each caller gets the error to retry independently.
func (c *Cache) GetOrLoad(ctx context.Context) ([]domain.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		batches, err := c.source.Batches(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: load batches: %v", domain.ErrSourceUnavailable, err)
		}
		c.batches = batches
		c.loaded = true
		if c.recorder != nil {
			c.recorder.RecordSourceLoad()
		}
	}
	out := make([]domain.Batch, len(c.batches))
	copy(out, c.batches)
	return out, nil
}
