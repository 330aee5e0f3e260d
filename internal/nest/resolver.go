// Package nest resolves cut programs to their sheet assignment and to the
// cached batches physically on the same sheet.
package nest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"sheetbridge/internal/batch"
	"sheetbridge/internal/domain"
	"sheetbridge/internal/infra/db"
)

const nestQuery = `
SELECT p.ProgramName, s.SheetName, s.Material, s.Thickness, s.Qty, p.UsedArea, p.ScrapFraction
FROM Program AS p
INNER JOIN Stock AS s ON s.SheetName = p.SheetName
WHERE p.ProgramName = $1`

// Resolver joins per-program nest rows against the batch cache.
type Resolver struct {
	DB      *sql.DB
	Batches *batch.Cache
	Log     *slog.Logger
}

// Get fetches the sheet assignment for program. Returns
// domain.ErrNotFound when no row matches.
func (r *Resolver) Get(ctx context.Context, program string) (domain.Nest, error) {
	ctx, cancel := db.WithAcquire(ctx)
	defer cancel()
	var n domain.Nest
	row := r.DB.QueryRowContext(ctx, nestQuery, program)
	err := row.Scan(&n.Program, &n.Sheet.SheetName, &n.Sheet.Material, &n.Sheet.Thickness,
		&n.Sheet.Qty, &n.NestedArea, &n.ScrapFraction)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Nest{}, fmt.Errorf("%w: program %s", domain.ErrNotFound, program)
	}
	if err != nil {
		return domain.Nest{}, fmt.Errorf("%w: query nest for %s: %v", domain.ErrDatabase, program, err)
	}
	return n, nil
}

// BatchesForProgram returns the cached batches on the same sheet as the
// program's nest, in cache order. The cache loads before the nest query so
// a missing program never leaves a half-populated response.
func (r *Resolver) BatchesForProgram(ctx context.Context, program string) ([]domain.Batch, error) {
	batches, err := r.Batches.GetOrLoad(ctx)
	if err != nil {
		return nil, err
	}
	n, err := r.Get(ctx, program)
	if err != nil {
		return nil, err
	}
	if n.Sheet.Qty == 1 {
		// Singleton sheets have no shared-stock batches to reconcile;
		// the general filter below still runs. Resolution for this
		// case is an open question with the shop-floor side.
		r.logger().Warn("program nested on singleton sheet; batch reconciliation unhandled",
			"program", program, "sheet", n.Sheet.SheetName)
	}
	matched := make([]domain.Batch, 0)
	for _, b := range batches {
		if b.SheetName == n.Sheet.SheetName {
			matched = append(matched, b)
		}
	}
	return matched, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
