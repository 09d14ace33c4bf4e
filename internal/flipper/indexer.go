package flipper

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

const (
	// IndexDirName is the name of the usage index directory.
	IndexDirName = "usage.bleve"

	// MaxBatchSize is the maximum number of documents per batch.
	MaxBatchSize = 100
)

// skipDirs are directory names never walked during workspace indexing.
var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"dist":         {},
	"coverage":     {},
}

// Indexer maintains the Bleve index of flag usages across the workspace.
// The index is a derived, rebuildable artifact: it persists between runs
// only as an optimization and can always be rebuilt from the workspace.
type Indexer struct {
	indexDir string
	filter   *FileFilter
	matcher  *Matcher
}

// NewIndexer creates a new usage indexer.
func NewIndexer(indexDir string, filter *FileFilter, matcher *Matcher) *Indexer {
	return &Indexer{
		indexDir: indexDir,
		filter:   filter,
		matcher:  matcher,
	}
}

func (i *Indexer) indexPath() string {
	return filepath.Join(i.indexDir, IndexDirName)
}

// CreateIndexMapping creates the Bleve index mapping for flag usage documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Flag - keyword (not analyzed) so exact flag names match
	flagField := bleve.NewTextFieldMapping()
	flagField.Analyzer = keyword.Name
	flagField.Store = true
	docMapping.AddFieldMappingsAt(domain.UsageFieldFlag, flagField)

	// Category - keyword, stored
	categoryField := bleve.NewTextFieldMapping()
	categoryField.Analyzer = keyword.Name
	categoryField.Store = true
	docMapping.AddFieldMappingsAt(domain.UsageFieldCategory, categoryField)

	// Extension - keyword, stored
	extField := bleve.NewTextFieldMapping()
	extField.Analyzer = keyword.Name
	extField.Store = true
	docMapping.AddFieldMappingsAt(domain.UsageFieldExtension, extField)

	// FilePath - keyword, stored
	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt(domain.UsageFieldFilePath, pathField)

	// Context - analyzed for full-text snippet search
	contextField := bleve.NewTextFieldMapping()
	contextField.Analyzer = standard.Name
	contextField.Store = true
	contextField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.UsageFieldContext, contextField)

	// Line - stored numeric
	lineField := bleve.NewNumericFieldMapping()
	lineField.Store = true
	docMapping.AddFieldMappingsAt(domain.UsageFieldLine, lineField)

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.UsageFieldID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Open opens or creates the usage index.
func (i *Indexer) Open() (bleve.Index, error) {
	index, err := bleve.Open(i.indexPath())
	if err == nil {
		return index, nil
	}

	index, err = bleve.New(i.indexPath(), CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create usage index: %w", err)
	}
	return index, nil
}

// IndexExists checks whether a usage index is already on disk.
func (i *Indexer) IndexExists() bool {
	_, err := os.Stat(i.indexPath())
	return err == nil
}

// DeleteIndex removes the usage index from disk.
func (i *Indexer) DeleteIndex() error {
	return os.RemoveAll(i.indexPath())
}

// FullIndex walks the workspace and indexes every flag-bearing detection in
// files passing the extension filter. Returns the number of documents
// indexed.
func (i *Indexer) FullIndex(index bleve.Index, workspaceDir string) (count int, err error) {
	batch := index.NewBatch()
	batchSize := 0
	total := 0

	err = filepath.WalkDir(workspaceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files with errors
		}

		relPath, err := filepath.Rel(workspaceDir, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}

		if !i.filter.ShouldAnalyze(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if maxSize := i.filter.MaxFileSize(); maxSize > 0 && info.Size() > maxSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		docs := i.DocumentsFor(relPath, string(content))
		for _, doc := range docs {
			if err := batch.Index(doc.ID, doc); err != nil {
				return fmt.Errorf("failed to batch document %s: %w", doc.ID, err)
			}
			batchSize++
			total++
			if batchSize >= MaxBatchSize {
				if err := index.Batch(batch); err != nil {
					return fmt.Errorf("failed to flush index batch: %w", err)
				}
				batch = index.NewBatch()
				batchSize = 0
			}
		}
		return nil
	})
	if err != nil {
		return total, err
	}

	if batchSize > 0 {
		if err := index.Batch(batch); err != nil {
			return total, fmt.Errorf("failed to flush index batch: %w", err)
		}
	}
	return total, nil
}

// ReindexFile replaces the indexed detections for one file. An unreadable
// or filtered-out file simply has its documents removed.
func (i *Indexer) ReindexFile(index bleve.Index, workspaceDir, relPath string) error {
	relPath = filepath.ToSlash(relPath)
	if err := i.deleteFileDocs(index, relPath); err != nil {
		return err
	}

	if !i.filter.ShouldAnalyze(relPath) {
		return nil
	}

	content, err := os.ReadFile(filepath.Join(workspaceDir, filepath.FromSlash(relPath)))
	if err != nil {
		return nil // Removed or unreadable file: documents already deleted
	}

	batch := index.NewBatch()
	for _, doc := range i.DocumentsFor(relPath, string(content)) {
		if err := batch.Index(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to batch document %s: %w", doc.ID, err)
		}
	}
	return index.Batch(batch)
}

// DocumentsFor runs the matcher on content and converts every flag-bearing
// detection into an index document.
func (i *Indexer) DocumentsFor(relPath, content string) []domain.FlagUsageDocument {
	analysis := i.matcher.Analyze(content)

	var docs []domain.FlagUsageDocument
	for _, detection := range analysis.Detections {
		if detection.FlagName == "" {
			continue
		}
		docs = append(docs, domain.FlagUsageDocument{
			ID:        fmt.Sprintf("%s:%d:%d", relPath, detection.Line, detection.Column),
			FilePath:  relPath,
			Extension: Extension(relPath),
			Flag:      detection.FlagName,
			Category:  string(detection.Category),
			Line:      detection.Line,
			Context:   detection.Context,
		})
	}
	return docs
}

// deleteFileDocs removes every document belonging to relPath.
func (i *Indexer) deleteFileDocs(index bleve.Index, relPath string) error {
	pathQuery := bleve.NewTermQuery(relPath)
	pathQuery.SetField(domain.UsageFieldFilePath)

	req := bleve.NewSearchRequest(pathQuery)
	req.Size = 1000
	req.Fields = []string{domain.UsageFieldFilePath}

	results, err := index.Search(req)
	if err != nil {
		return fmt.Errorf("failed to find documents for %s: %w", relPath, err)
	}

	batch := index.NewBatch()
	for _, hit := range results.Hits {
		batch.Delete(hit.ID)
	}
	if batch.Size() == 0 {
		return nil
	}
	return index.Batch(batch)
}

// normalizeExtension strips a leading dot and lower-cases an extension
// filter argument.
func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
