// Package lifecycle dispatches client-asserted program state transitions
// and performs the completion write-through to the system of record.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"sheetbridge/internal/domain"
	"sheetbridge/internal/infra/db"
)

// completionInsert records an SN70 transaction against the program's
// current repeat. No dedup: a repeated Complete inserts a second row.
const completionInsert = `
INSERT INTO TransAct (TransType, District, ProgramName, ProgramRepeat)
SELECT 'SN70', 1, ProgramName, RepeatID
FROM Program
WHERE ProgramName = $1
LIMIT 1`

// Recorder counts completion write outcomes. Satisfied by
// metrics.Recorder; nil is fine.
type Recorder interface {
	RecordCompletion(ok bool)
}

// Transition is one client-asserted state change for a program.
type Transition struct {
	Program string
	Batch   string
	State   domain.ProgramState
}

// Handler applies transitions. It is stateless across calls: it does not
// read the program's prior state before acting.
type Handler struct {
	DB  *sql.DB
	Log *slog.Logger
	// BestEffortRecord makes a failed completion write log-and-swallow
	// so the operator acknowledgment is never blocked on bookkeeping.
	BestEffortRecord bool
	Metrics          Recorder
}

// Apply dispatches on the asserted state. Only Complete has a side effect.
func (h *Handler) Apply(ctx context.Context, t Transition) error {
	switch t.State {
	case domain.StateInitiated:
		h.logger().Debug("program initiated", "program", t.Program)
	case domain.StateProcessing:
		// NC program movement to the machine controller is deferred.
		h.logger().Debug("program processing", "program", t.Program, "batch", t.Batch)
	case domain.StateComplete:
		h.logger().Info("program complete", "program", t.Program, "batch", t.Batch)
		return h.recordCompletion(ctx, t.Program)
	case domain.StateCancelled:
		h.logger().Debug("program cancelled", "program", t.Program)
	default:
		return fmt.Errorf("unknown program state %q", t.State)
	}
	return nil
}

func (h *Handler) recordCompletion(ctx context.Context, program string) error {
	ctx, cancel := db.WithAcquire(ctx)
	defer cancel()
	_, err := h.DB.ExecContext(ctx, completionInsert, program)
	if h.Metrics != nil {
		h.Metrics.RecordCompletion(err == nil)
	}
	if err == nil {
		return nil
	}
	if h.BestEffortRecord {
		h.logger().Error("failed to record program completion", "program", program, "err", err)
		return nil
	}
	return fmt.Errorf("%w: record completion for %s: %v", domain.ErrDatabase, program, err)
}

func (h *Handler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
