package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"sheetbridge/internal/domain"
)

// FileSource reads the batch set from a JSON array on disk, typically an
// export dropped by the shop-floor system.
type FileSource struct {
	path string
}

// NewFileSource points a source at a JSON batch export.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Batches(context.Context) ([]domain.Batch, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var batches []domain.Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("decode batch file %s: %w", f.path, err)
	}
	return batches, nil
}
