// Package httpapi adapts the batch, nest, lifecycle, listing and feedback
// services onto the machine-facing HTTP surface.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"sheetbridge/internal/domain"
	"sheetbridge/internal/feedback"
	"sheetbridge/internal/infra/db"
	"sheetbridge/internal/lifecycle"
)

// BatchCache serves the process-lifetime batch set.
type BatchCache interface {
	GetOrLoad(ctx context.Context) ([]domain.Batch, error)
}

// NestService resolves programs to nests and co-located batches.
type NestService interface {
	Get(ctx context.Context, program string) (domain.Nest, error)
	BatchesForProgram(ctx context.Context, program string) ([]domain.Batch, error)
}

// Lifecycle applies program state transitions.
type Lifecycle interface {
	Apply(ctx context.Context, t lifecycle.Transition) error
}

// Listing serves the read-only machine and program projections.
type Listing interface {
	Machines(ctx context.Context) ([]string, error)
	Programs(ctx context.Context, machine string) ([]domain.ProgramSummary, error)
}

// FeedbackLister forwards the external feedback export.
type FeedbackLister interface {
	List(ctx context.Context) ([]feedback.Entry, error)
}

// Handler routes the machine-facing API.
type Handler struct {
	DB       *sql.DB
	Batches  BatchCache
	Nests    NestService
	Programs Lifecycle
	Listing  Listing
	Feedback FeedbackLister
	Log      *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "/machines":
		h.handleMachines(w, r)
	case r.Method == http.MethodGet && path == "/batches":
		h.handleBatches(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/batches/"):
		h.handleBatchesForProgram(w, r, strings.TrimPrefix(path, "/batches/"))
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/programs/"):
		h.handlePrograms(w, r, strings.TrimPrefix(path, "/programs/"))
	case strings.HasPrefix(path, "/nest/"):
		h.handleNest(w, r, strings.TrimPrefix(path, "/nest/"))
	case r.Method == http.MethodGet && path == "/feedback":
		h.handleFeedback(w, r)
	case r.Method == http.MethodGet && path == "/healthz":
		h.handleHealth(w, r)
	case r.Method == http.MethodGet && isMachinePath(path):
		h.handlePrograms(w, r, strings.TrimPrefix(path, "/"))
	default:
		http.NotFound(w, r)
	}
}

// isMachinePath matches the bare single-segment machine listing route,
// e.g. GET /Plasma-1. The named routes above win because the switch is
// ordered; /programs/{machine} stays as an alias.
func isMachinePath(path string) bool {
	return len(path) > 1 && strings.Count(path, "/") == 1
}

func (h *Handler) handleMachines(w http.ResponseWriter, r *http.Request) {
	h.logger().Debug("requested machines list")
	machines, err := h.Listing.Machines(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

func (h *Handler) handleBatches(w http.ResponseWriter, r *http.Request) {
	h.logger().Debug("requested batches list")
	batches, err := h.Batches.GetOrLoad(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) handleBatchesForProgram(w http.ResponseWriter, r *http.Request, program string) {
	h.logger().Debug("requested batches list for program", "program", program)
	batches, err := h.Nests.BatchesForProgram(r.Context(), program)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) handlePrograms(w http.ResponseWriter, r *http.Request, machine string) {
	h.logger().Debug("requested programs for machine", "machine", machine)
	programs, err := h.Listing.Programs(r.Context(), machine)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

// transitionRequest is the POST /nest/{program} payload.
type transitionRequest struct {
	Batch string              `json:"batch"`
	State domain.ProgramState `json:"state"`
}

func (h *Handler) handleNest(w http.ResponseWriter, r *http.Request, program string) {
	if program == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.logger().Debug("requested nest", "program", program)
		nest, err := h.Nests.Get(r.Context(), program)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nest)
	case http.MethodPost:
		var req transitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid transition payload")
			return
		}
		if req.State == "" {
			writeError(w, http.StatusBadRequest, "state required")
			return
		}
		err := h.Programs.Apply(r.Context(), lifecycle.Transition{
			Program: program,
			Batch:   req.Batch,
			State:   req.State,
		})
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		// Client intent accepted; null body matches the source contract.
		writeJSON(w, http.StatusCreated, nil)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	h.logger().Debug("requested feedback")
	entries, err := h.Feedback.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := db.WithAcquire(r.Context())
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger().Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
