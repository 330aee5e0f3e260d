// Package listing serves the read-only machine and program projections.
package listing

import (
	"context"
	"database/sql"
	"fmt"

	"sheetbridge/internal/domain"
	"sheetbridge/internal/infra/db"
)

const machinesQuery = `SELECT DISTINCT MachineName FROM ProgramMachine`

// programsQuery counts only repeats with no SN70 completion transaction,
// so a fully-completed program drops out of the listing.
const programsQuery = `
SELECT DISTINCT pm.ProgramName, pm.CuttingTime, rpt.Repeats
FROM ProgramMachine AS pm
INNER JOIN (
	SELECT ProgramName AS p, COUNT(RepeatID) AS Repeats
	FROM Program
	WHERE NOT EXISTS (
		SELECT 1
		FROM TransAct
		WHERE TransType = 'SN70'
		AND TransAct.ProgramName = Program.ProgramName
		AND TransAct.ProgramRepeat = Program.RepeatID
	)
	GROUP BY ProgramName
) AS rpt ON rpt.p = pm.ProgramName
WHERE pm.MachineName = $1
AND rpt.Repeats > 0`

// Service runs the listing projections. No caching, no state.
type Service struct {
	DB *sql.DB
}

// Machines lists the distinct machine names known to the nesting database.
// Zero machines is an empty slice, not an error.
func (s *Service) Machines(ctx context.Context) ([]string, error) {
	ctx, cancel := db.WithAcquire(ctx)
	defer cancel()
	rows, err := s.DB.QueryContext(ctx, machinesQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: query machines: %v", domain.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()
	machines := make([]string, 0)
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan machine: %v", domain.ErrDatabase, err)
		}
		machines = append(machines, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate machines: %v", domain.ErrDatabase, err)
	}
	return machines, nil
}

// Programs lists programs with uncompleted repeats for one machine.
func (s *Service) Programs(ctx context.Context, machine string) ([]domain.ProgramSummary, error) {
	ctx, cancel := db.WithAcquire(ctx)
	defer cancel()
	rows, err := s.DB.QueryContext(ctx, programsQuery, machine)
	if err != nil {
		return nil, fmt.Errorf("%w: query programs for %s: %v", domain.ErrDatabase, machine, err)
	}
	defer func() { _ = rows.Close() }()
	programs := make([]domain.ProgramSummary, 0)
	for rows.Next() {
		var p domain.ProgramSummary
		if err := rows.Scan(&p.Program, &p.CuttingTime, &p.Repeats); err != nil {
			return nil, fmt.Errorf("%w: scan program: %v", domain.ErrDatabase, err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate programs: %v", domain.ErrDatabase, err)
	}
	return programs, nil
}
