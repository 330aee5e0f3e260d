package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sheetbridge/internal/domain"
	"sheetbridge/internal/feedback"
	"sheetbridge/internal/lifecycle"
)

type fakeCache struct {
	batches []domain.Batch
	err     error
}

func (f *fakeCache) GetOrLoad(context.Context) ([]domain.Batch, error) {
	return f.batches, f.err
}

type fakeNests struct {
	nest    domain.Nest
	batches []domain.Batch
	err     error
}

func (f *fakeNests) Get(context.Context, string) (domain.Nest, error) {
	return f.nest, f.err
}

func (f *fakeNests) BatchesForProgram(context.Context, string) ([]domain.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.batches, nil
}

type fakeLifecycle struct {
	applied []lifecycle.Transition
	err     error
}

func (f *fakeLifecycle) Apply(_ context.Context, t lifecycle.Transition) error {
	f.applied = append(f.applied, t)
	return f.err
}

type fakeListing struct {
	machines []string
	programs []domain.ProgramSummary
	err      error
}

func (f *fakeListing) Machines(context.Context) ([]string, error) {
	return f.machines, f.err
}

func (f *fakeListing) Programs(context.Context, string) ([]domain.ProgramSummary, error) {
	return f.programs, f.err
}

type fakeFeedback struct {
	entries []feedback.Entry
	err     error
}

func (f *fakeFeedback) List(context.Context) ([]feedback.Entry, error) {
	return f.entries, f.err
}

func newHandler() (*Handler, *fakeLifecycle) {
	lc := &fakeLifecycle{}
	return &Handler{
		Batches: &fakeCache{batches: []domain.Batch{{SheetName: "S1"}}},
		Nests: &fakeNests{
			nest:    domain.Nest{Program: "47122", Sheet: domain.Sheet{SheetName: "S1"}},
			batches: []domain.Batch{{SheetName: "S1"}},
		},
		Programs: lc,
		Listing:  &fakeListing{machines: []string{"Plasma-1"}},
		Feedback: &fakeFeedback{},
	}, lc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMachinesRoute(t *testing.T) {
	h, _ := newHandler()
	rec := do(t, h, http.MethodGet, "/machines", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var machines []string
	if err := json.Unmarshal(rec.Body.Bytes(), &machines); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(machines) != 1 || machines[0] != "Plasma-1" {
		t.Fatalf("unexpected machines: %v", machines)
	}
}

func TestMachinesFailureIsInternalError(t *testing.T) {
	h, _ := newHandler()
	h.Listing = &fakeListing{err: fmt.Errorf("%w: boom", domain.ErrDatabase)}
	rec := do(t, h, http.MethodGet, "/machines", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBatchesRoutes(t *testing.T) {
	h, _ := newHandler()
	if rec := do(t, h, http.MethodGet, "/batches", ""); rec.Code != http.StatusOK {
		t.Fatalf("batches: expected 200, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/batches/47122", ""); rec.Code != http.StatusOK {
		t.Fatalf("batches for program: expected 200, got %d", rec.Code)
	}
}

func TestBatchesSourceFailure(t *testing.T) {
	h, _ := newHandler()
	h.Batches = &fakeCache{err: fmt.Errorf("%w: export offline", domain.ErrSourceUnavailable)}
	rec := do(t, h, http.MethodGet, "/batches", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestNestNotFoundMapsTo404(t *testing.T) {
	h, _ := newHandler()
	h.Nests = &fakeNests{err: fmt.Errorf("%w: program x", domain.ErrNotFound)}
	if rec := do(t, h, http.MethodGet, "/nest/x", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("nest: expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/batches/x", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("batches: expected 404, got %d", rec.Code)
	}
}

func TestMachineWildcardRoute(t *testing.T) {
	h, _ := newHandler()
	h.Listing = &fakeListing{programs: []domain.ProgramSummary{
		{Program: "47122", Repeats: 2, CuttingTime: 4.5},
	}}

	for _, path := range []string{"/Plasma-1", "/programs/Plasma-1"} {
		rec := do(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 program listing, got %d", path, rec.Code)
		}
		var programs []domain.ProgramSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &programs); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if len(programs) != 1 || programs[0].Program != "47122" {
			t.Fatalf("%s: unexpected listing: %+v", path, programs)
		}
	}
}

func TestTransitionAccepted(t *testing.T) {
	h, lc := newHandler()
	rec := do(t, h, http.MethodPost, "/nest/47122", `{"batch":"B1","state":"Complete"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "null" {
		t.Fatalf("expected null body, got %q", body)
	}
	if len(lc.applied) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(lc.applied))
	}
	got := lc.applied[0]
	if got.Program != "47122" || got.Batch != "B1" || got.State != domain.StateComplete {
		t.Fatalf("unexpected transition: %+v", got)
	}
}

func TestTransitionRejectsUnknownState(t *testing.T) {
	h, lc := newHandler()
	rec := do(t, h, http.MethodPost, "/nest/47122", `{"batch":"B1","state":"Finished"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(lc.applied) != 0 {
		t.Fatalf("expected no transitions, got %d", len(lc.applied))
	}
}

func TestTransitionRequiresState(t *testing.T) {
	h, lc := newHandler()
	rec := do(t, h, http.MethodPost, "/nest/47122", `{"batch":"B1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(lc.applied) != 0 {
		t.Fatalf("expected no transitions, got %d", len(lc.applied))
	}
}

func TestFeedbackRoute(t *testing.T) {
	h, _ := newHandler()
	rec := do(t, h, http.MethodGet, "/feedback", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h, _ := newHandler()
	if rec := do(t, h, http.MethodGet, "/unknown/deep/path", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/nest/47122", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

type fakeRequestRecorder struct {
	routes map[string]int
}

func (f *fakeRequestRecorder) RecordRequest(route, status string) {
	if f.routes == nil {
		f.routes = map[string]int{}
	}
	f.routes[route+" "+status]++
}

func TestInstrumentCountsRequests(t *testing.T) {
	h, _ := newHandler()
	rec := &fakeRequestRecorder{}
	wrapped := Instrument(rec, h)

	do(t, wrapped, http.MethodGet, "/machines", "")
	do(t, wrapped, http.MethodGet, "/machines", "")
	do(t, wrapped, http.MethodGet, "/Plasma-1", "")
	do(t, wrapped, http.MethodGet, "/no/such/path", "")
	do(t, wrapped, http.MethodGet, "/another/missing", "")

	if rec.routes["machines 200"] != 2 {
		t.Fatalf("expected 2 machine requests, got %v", rec.routes)
	}
	if rec.routes["machine 200"] != 1 {
		t.Fatalf("expected 1 wildcard listing request, got %v", rec.routes)
	}
	// Unmatched paths share one label instead of minting one per path.
	if rec.routes["unknown 404"] != 2 {
		t.Fatalf("expected 2 unknown requests, got %v", rec.routes)
	}
}
