// Package batch owns the process-lifetime batch cache and the pluggable
// sources that feed it.
package batch

import (
	"context"
	"fmt"
	"os"

	"sheetbridge/internal/domain"
)

// Source produces the current full set of sheet batches. Implementations
// may be expensive; callers go through Cache rather than hitting a Source
// directly.
type Source interface {
	Batches(ctx context.Context) ([]domain.Batch, error)
}

// Driver names a batch source implementation.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
	DriverS3     Driver = "s3"
	DriverStatic Driver = "static"
)

// Open selects a Source implementation using environment variables.
//
//	SHEETBRIDGE_BATCH_SOURCE: file|sqlite|s3|static (default file)
//	SHEETBRIDGE_BATCH_FILE:   path when driver=file (default batches.json)
//	SHEETBRIDGE_BATCH_SQLITE: path when driver=sqlite
//	(S3 specific variables documented in s3.go)
func Open(ctx context.Context) (Source, error) {
	driver := os.Getenv("SHEETBRIDGE_BATCH_SOURCE")
	if driver == "" {
		driver = string(DriverFile)
	}
	switch Driver(driver) {
	case DriverFile:
		path := os.Getenv("SHEETBRIDGE_BATCH_FILE")
		if path == "" {
			path = "batches.json"
		}
		return NewFileSource(path), nil
	case DriverSQLite:
		return OpenSQLiteSource(os.Getenv("SHEETBRIDGE_BATCH_SQLITE"))
	case DriverS3:
		return OpenS3SourceFromEnv(ctx)
	case DriverStatic:
		return StaticSource(nil), nil
	default:
		return nil, fmt.Errorf("unknown batch source driver %s", driver)
	}
}

// StaticSource serves a fixed batch slice. Used by tests and demos.
type StaticSource []domain.Batch

func (s StaticSource) Batches(context.Context) ([]domain.Batch, error) {
	out := make([]domain.Batch, len(s))
	copy(out, s)
	return out, nil
}
