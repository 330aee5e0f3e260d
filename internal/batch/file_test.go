package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSourceReadsExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.json")
	payload := `[
		{"sheetName":"S1","materialMaster":"A36-10GA","qty":4},
		{"sheetName":"S2","materialMaster":"A36-10GA","qty":1}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	batches, err := NewFileSource(path).Batches(context.Background())
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].SheetName != "S1" || batches[0].Qty != 4 {
		t.Fatalf("unexpected first batch: %+v", batches[0])
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "absent.json")).Batches(context.Background()); err == nil {
		t.Fatal("expected error for missing export")
	}
}

func TestFileSourceBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := NewFileSource(path).Batches(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
