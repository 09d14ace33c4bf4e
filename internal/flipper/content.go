package flipper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceContentSource reads current file content from the workspace
// root. It backs the fallback path of diff analysis when a diff's
// reconstructed content is empty (e.g., a rename without content hunks).
type WorkspaceContentSource struct {
	root        string
	maxFileSize int64
}

// NewWorkspaceContentSource creates a content source rooted at dir.
func NewWorkspaceContentSource(root string, maxFileSize int64) *WorkspaceContentSource {
	return &WorkspaceContentSource{
		root:        root,
		maxFileSize: maxFileSize,
	}
}

// ReadFile returns the current text of the file at the given workspace
// relative path.
func (s *WorkspaceContentSource) ReadFile(_ context.Context, path string) (string, error) {
	if err := validateRelativePath(path); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.root, filepath.Clean(path))

	info, err := os.Stat(fullPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory: %s", path)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return "", fmt.Errorf("file too large: %d bytes", info.Size())
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// validateRelativePath performs security validation on the path.
func validateRelativePath(path string) error {
	cleaned := filepath.Clean(path)

	if filepath.IsAbs(cleaned) {
		return fmt.Errorf("absolute paths are not allowed")
	}

	if strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "/..") || strings.Contains(cleaned, "\\..") {
		return fmt.Errorf("path traversal is not allowed")
	}

	return nil
}
