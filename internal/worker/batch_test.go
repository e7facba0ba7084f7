package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/prasadk/complyscan/internal/model"
)

type stubValidator struct {
	fail map[string]bool
}

func (s *stubValidator) Validate(ctx context.Context, documentID, framework string) (*model.ValidationRun, error) {
	if s.fail[documentID] {
		return nil, fmt.Errorf("document %q has no extracted segments", documentID)
	}
	return &model.ValidationRun{
		ID:         "run-" + documentID,
		DocumentID: documentID,
		Framework:  framework,
		Score:      model.Score{Value: 100},
	}, nil
}

func TestBatchProcessor_Process(t *testing.T) {
	processor := NewBatchProcessor(&stubValidator{}, 3)

	results := processor.Process(context.Background(), []string{"a", "b", "c", "d"}, "ind_as")
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	var ids []string
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("unexpected error for %s: %v", r.DocumentID, r.Error)
		}
		if r.Run == nil || r.Run.Framework != "ind_as" {
			t.Errorf("unexpected run for %s: %+v", r.DocumentID, r.Run)
		}
		ids = append(ids, r.DocumentID)
	}
	sort.Strings(ids)
	if fmt.Sprint(ids) != "[a b c d]" {
		t.Errorf("unexpected document ids %v", ids)
	}
}

func TestBatchProcessor_PartialFailure(t *testing.T) {
	processor := NewBatchProcessor(&stubValidator{fail: map[string]bool{"b": true}}, 2)

	results := processor.Process(context.Background(), []string{"a", "b", "c"}, "sebi")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	var failed int
	for _, r := range results {
		if r.Error != nil {
			failed++
			if r.DocumentID != "b" {
				t.Errorf("wrong document failed: %s", r.DocumentID)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&stubValidator{}, 2)
	if results := processor.Process(context.Background(), nil, "rbi"); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestReadDocumentIDsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	content := `# quarterly filings
doc-1
doc-2

doc-1
  doc-3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := ReadDocumentIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadDocumentIDsFromFile failed: %v", err)
	}
	want := []string{"doc-1", "doc-2", "doc-3"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestReadDocumentIDsFromFile_Missing(t *testing.T) {
	if _, err := ReadDocumentIDsFromFile("/nonexistent/manifest.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
