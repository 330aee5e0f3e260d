package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sheetbridge/internal/infra/db"
)

// completedQuery aggregates recorded SN70 completions back into nest form
// for downstream auditing.
const completedQuery = `
SELECT t.ProgramName, s.SheetName, s.Material, s.Thickness, s.Qty, p.UsedArea, p.ScrapFraction
FROM TransAct AS t
INNER JOIN Program AS p
	ON p.ProgramName = t.ProgramName AND p.RepeatID = t.ProgramRepeat
INNER JOIN Stock AS s ON s.SheetName = p.SheetName
WHERE t.TransType = 'SN70'`

// SQLExporter is the default exporter: it reads completion transactions
// out of the system of record.
type SQLExporter struct {
	DB *sql.DB
}

func (e *SQLExporter) Export(ctx context.Context) ([]Entry, error) {
	ctx, cancel := db.WithAcquire(ctx)
	defer cancel()
	rows, err := e.DB.QueryContext(ctx, completedQuery)
	if err != nil {
		return nil, fmt.Errorf("query completed programs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	now := time.Now().UTC()
	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		n := &entry.Payload
		if err := rows.Scan(&n.Program, &n.Sheet.SheetName, &n.Sheet.Material,
			&n.Sheet.Thickness, &n.Sheet.Qty, &n.NestedArea, &n.ScrapFraction); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		entry.Program = n.Program
		entry.ExportedAt = now
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return entries, nil
}
