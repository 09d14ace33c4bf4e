package flipper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	matcher, err := NewMatcher(Rules(), NewResultCache())
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}
	return NewIndexer(t.TempDir(), NewFileFilter(0), matcher)
}

func writeWorkspaceFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	fullPath := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func searchFlag(t *testing.T, index bleve.Index, flag string) *bleve.SearchResult {
	t.Helper()
	query := bleve.NewTermQuery(flag)
	query.SetField(domain.UsageFieldFlag)
	req := bleve.NewSearchRequest(query)
	req.Fields = []string{domain.UsageFieldFilePath, domain.UsageFieldFlag}
	results, err := index.Search(req)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	return results
}

func TestDocumentsFor(t *testing.T) {
	indexer := newTestIndexer(t)

	content := "export class A {\n  gate = this.flipperService.flipperEnabled('zuora_maintenance');\n}\n"
	docs := indexer.DocumentsFor("src/a.ts", content)

	if len(docs) == 0 {
		t.Fatal("Expected documents for flag-bearing content")
	}
	doc := docs[0]
	if doc.Flag != "zuora_maintenance" {
		t.Errorf("Expected flag 'zuora_maintenance', got %q", doc.Flag)
	}
	if doc.FilePath != "src/a.ts" {
		t.Errorf("Expected file path 'src/a.ts', got %q", doc.FilePath)
	}
	if doc.Extension != "ts" {
		t.Errorf("Expected extension 'ts', got %q", doc.Extension)
	}
	if doc.Line != 2 {
		t.Errorf("Expected line 2, got %d", doc.Line)
	}
	if !strings.HasPrefix(doc.ID, "src/a.ts:2:") {
		t.Errorf("Unexpected document ID: %q", doc.ID)
	}
}

func TestDocumentsFor_NoFlagDetections(t *testing.T) {
	indexer := newTestIndexer(t)

	// Import and config-call detections carry no flag and produce no
	// documents.
	docs := indexer.DocumentsFor("src/a.ts", `import { FlipperService } from '@core/flipper';`)
	if len(docs) != 0 {
		t.Errorf("Expected no documents for flag-less detections, got %d", len(docs))
	}
}

func TestIndexer_OpenAndExists(t *testing.T) {
	indexer := newTestIndexer(t)

	if indexer.IndexExists() {
		t.Error("Expected no index before first open")
	}

	index, err := indexer.Open()
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	defer func() { _ = index.Close() }()

	if !indexer.IndexExists() {
		t.Error("Expected index to exist after open")
	}
}

func TestIndexer_DeleteIndex(t *testing.T) {
	indexer := newTestIndexer(t)

	index, err := indexer.Open()
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	if err := index.Close(); err != nil {
		t.Fatalf("Failed to close index: %v", err)
	}

	if err := indexer.DeleteIndex(); err != nil {
		t.Fatalf("Failed to delete index: %v", err)
	}
	if indexer.IndexExists() {
		t.Error("Expected index to be gone after delete")
	}
}

func TestIndexer_FullIndex(t *testing.T) {
	indexer := newTestIndexer(t)
	workspace := t.TempDir()

	writeWorkspaceFile(t, workspace, "src/billing.ts",
		"gate = this.flipperService.flipperEnabled('zuora_maintenance');\n")
	writeWorkspaceFile(t, workspace, "src/checkout.html",
		`<div *ngIf="flipperService.flipperEnabled('new_checkout_flow')"></div>`+"\n")
	// Not indexed: wrong extension and skipped directory.
	writeWorkspaceFile(t, workspace, "README.md", "'zuora_maintenance'\n")
	writeWorkspaceFile(t, workspace, "node_modules/lib/index.ts",
		"x = this.flipperService.flipperEnabled('sepa_mandates');\n")

	index, err := indexer.Open()
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	defer func() { _ = index.Close() }()

	count, err := indexer.FullIndex(index, workspace)
	if err != nil {
		t.Fatalf("FullIndex failed: %v", err)
	}
	if count == 0 {
		t.Fatal("Expected indexed documents")
	}

	if results := searchFlag(t, index, "zuora_maintenance"); results.Total == 0 {
		t.Error("Expected hits for 'zuora_maintenance'")
	}
	if results := searchFlag(t, index, "new_checkout_flow"); results.Total == 0 {
		t.Error("Expected hits for 'new_checkout_flow'")
	}
	if results := searchFlag(t, index, "sepa_mandates"); results.Total != 0 {
		t.Error("Expected node_modules to be skipped")
	}
}

func TestIndexer_FullIndex_RespectsMaxFileSize(t *testing.T) {
	matcher, err := NewMatcher(Rules(), NewResultCache())
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}
	indexer := NewIndexer(t.TempDir(), NewFileFilter(16), matcher)
	workspace := t.TempDir()

	writeWorkspaceFile(t, workspace, "src/big.ts",
		"gate = this.flipperService.flipperEnabled('zuora_maintenance');\n")

	index, err := indexer.Open()
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	defer func() { _ = index.Close() }()

	count, err := indexer.FullIndex(index, workspace)
	if err != nil {
		t.Fatalf("FullIndex failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected oversized file to be skipped, indexed %d documents", count)
	}
}

func TestIndexer_ReindexFile(t *testing.T) {
	indexer := newTestIndexer(t)
	workspace := t.TempDir()

	writeWorkspaceFile(t, workspace, "src/a.ts",
		"gate = this.flipperService.flipperEnabled('zuora_maintenance');\n")

	index, err := indexer.Open()
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	defer func() { _ = index.Close() }()

	if _, err := indexer.FullIndex(index, workspace); err != nil {
		t.Fatalf("FullIndex failed: %v", err)
	}
	if results := searchFlag(t, index, "zuora_maintenance"); results.Total == 0 {
		t.Fatal("Expected initial hits")
	}

	// The flag usage is removed from the file: reindexing must drop the
	// stale documents.
	writeWorkspaceFile(t, workspace, "src/a.ts", "export const clean = true;\n")
	if err := indexer.ReindexFile(index, workspace, "src/a.ts"); err != nil {
		t.Fatalf("ReindexFile failed: %v", err)
	}
	if results := searchFlag(t, index, "zuora_maintenance"); results.Total != 0 {
		t.Errorf("Expected stale documents to be removed, got %d hits", results.Total)
	}
}

func TestIndexer_ReindexFile_RemovedFile(t *testing.T) {
	indexer := newTestIndexer(t)
	workspace := t.TempDir()

	writeWorkspaceFile(t, workspace, "src/a.ts",
		"gate = this.flipperService.flipperEnabled('sepa_mandates');\n")

	index, err := indexer.Open()
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	defer func() { _ = index.Close() }()

	if _, err := indexer.FullIndex(index, workspace); err != nil {
		t.Fatalf("FullIndex failed: %v", err)
	}

	if err := os.Remove(filepath.Join(workspace, "src", "a.ts")); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	if err := indexer.ReindexFile(index, workspace, "src/a.ts"); err != nil {
		t.Fatalf("ReindexFile failed: %v", err)
	}
	if results := searchFlag(t, index, "sepa_mandates"); results.Total != 0 {
		t.Errorf("Expected documents for a removed file to be dropped, got %d hits", results.Total)
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{".ts", "ts"},
		{"TS", "ts"},
		{".HTML", "html"},
		{"vue", "vue"},
	}

	for _, tt := range tests {
		if got := normalizeExtension(tt.input); got != tt.expected {
			t.Errorf("normalizeExtension(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
