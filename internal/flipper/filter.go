package flipper

import (
	"path/filepath"
	"strings"
)

// DefaultAllowedExtensions lists the file extensions that are analyzed for
// flag usage: source and template files only. Documentation and style files
// are excluded on purpose; missing an unlisted extension is an accepted
// false negative, which beats noisy matches in non-code files.
var DefaultAllowedExtensions = []string{
	"ts", "tsx", "mts", "cts",
	"js", "jsx",
	"html", "htm",
	"vue",
}

// FileFilter decides which changed files are worth analyzing.
type FileFilter struct {
	allowed     map[string]struct{}
	maxFileSize int64
}

// NewFileFilter creates a FileFilter with the default extension allow-list.
func NewFileFilter(maxFileSize int64) *FileFilter {
	return NewFileFilterWithExtensions(DefaultAllowedExtensions, maxFileSize)
}

// NewFileFilterWithExtensions creates a FileFilter with a custom allow-list.
func NewFileFilterWithExtensions(extensions []string, maxFileSize int64) *FileFilter {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &FileFilter{
		allowed:     allowed,
		maxFileSize: maxFileSize,
	}
}

// ShouldAnalyze returns true if the given path carries an allow-listed
// extension.
func (f *FileFilter) ShouldAnalyze(path string) bool {
	return f.allowedExtension(Extension(path))
}

func (f *FileFilter) allowedExtension(ext string) bool {
	_, ok := f.allowed[ext]
	return ok
}

// MaxFileSize returns the maximum file size for workspace indexing.
func (f *FileFilter) MaxFileSize() int64 {
	return f.maxFileSize
}

// Extension returns the lower-cased extension of path without the leading
// dot, or an empty string when the path has none.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
