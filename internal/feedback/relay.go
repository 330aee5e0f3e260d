// Package feedback forwards the external feedback export unchanged.
package feedback

import (
	"context"
	"fmt"
	"time"

	"sheetbridge/internal/domain"
)

// Entry is one audit record from the feedback export, payload included
// verbatim.
type Entry struct {
	Program    string      `json:"program"`
	Payload    domain.Nest `json:"payload"`
	ExportedAt time.Time   `json:"exportedAt"`
}

// Exporter is the external aggregation job producing feedback entries.
type Exporter interface {
	Export(ctx context.Context) ([]Entry, error)
}

// Relay invokes the exporter and returns its result with no
// transformation, filtering or caching.
type Relay struct {
	Exporter Exporter
}

// List forwards the exporter result verbatim.
func (r *Relay) List(ctx context.Context) ([]Entry, error) {
	entries, err := r.Exporter.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: export feedback: %v", domain.ErrSourceUnavailable, err)
	}
	return entries, nil
}
