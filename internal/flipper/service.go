package flipper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/gregkdunn/flipper-mcp/internal/config"
	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

// Service coordinates the matcher, diff analysis, the workspace usage index
// and cache invalidation.
type Service struct {
	settings *config.ScannerSettings
	cache    *ResultCache
	matcher  *Matcher
	filter   *FileFilter
	analyzer *DiffAnalyzer
	git      *GitClient
	indexer  *Indexer
	watcher  *Watcher

	index bleve.Index
	ready bool
	mu    sync.RWMutex
}

// NewService creates a new scanner service around the default rule registry.
func NewService(settings *config.ScannerSettings) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	cache := NewResultCache()
	matcher, err := NewMatcherWithRadius(Rules(), cache, settings.ContextRadius)
	if err != nil {
		return nil, err
	}

	filter := NewFileFilter(settings.MaxFileSize)
	source := NewWorkspaceContentSource(settings.WorkspaceDir, settings.MaxFileSize)
	analyzer := NewDiffAnalyzer(matcher, filter, source)
	indexer := NewIndexer(settings.IndexDir, filter, matcher)

	return &Service{
		settings: settings,
		cache:    cache,
		matcher:  matcher,
		filter:   filter,
		analyzer: analyzer,
		git:      NewGitClient(),
		indexer:  indexer,
	}, nil
}

// Initialize builds the usage index and starts the invalidation watcher,
// according to the settings. Matching and diff analysis work without either.
func (s *Service) Initialize(ctx context.Context) error {
	if s.settings.IndexEnabled {
		if err := os.MkdirAll(s.settings.IndexDir, 0755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}

		needsBuild := !s.indexer.IndexExists()
		index, err := s.indexer.Open()
		if err != nil {
			return fmt.Errorf("failed to open usage index: %w", err)
		}

		if needsBuild {
			slog.Info("Building usage index", "workspace", s.settings.WorkspaceDir)
			count, err := s.indexer.FullIndex(index, s.settings.WorkspaceDir)
			if err != nil {
				_ = index.Close()
				return fmt.Errorf("failed to build usage index: %w", err)
			}
			slog.Info("Usage index ready", "documents", count)
		}

		s.mu.Lock()
		s.index = index
		s.ready = true
		s.mu.Unlock()
	}

	if s.settings.WatchEnabled {
		watcher, err := NewWatcher(s.settings.WorkspaceDir, s.OnWorkspaceChange)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		s.watcher = watcher
		slog.Info("Workspace watcher started", "workspace", s.settings.WorkspaceDir)
	}

	return nil
}

// OnWorkspaceChange is the cache-invalidation entry point. Cached analysis
// results are computed from file content, so any content change drops the
// whole cache; index documents are replaced per file.
func (s *Service) OnWorkspaceChange(paths []string) {
	s.cache.Clear()
	slog.Debug("Result cache cleared", "changed_files", len(paths))

	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()
	if index == nil {
		return
	}

	for _, path := range paths {
		if err := s.indexer.ReindexFile(index, s.settings.WorkspaceDir, path); err != nil {
			slog.Warn("Failed to reindex changed file", "path", path, "error", err)
		}
	}
}

// Analyze runs the content matcher over raw text.
func (s *Service) Analyze(text string) *domain.AnalysisResult {
	return s.matcher.Analyze(text)
}

// AnalyzeDiff runs the full diff analysis pipeline.
func (s *Service) AnalyzeDiff(ctx context.Context, diffText string) *domain.DiffAnalysisResult {
	return s.analyzer.AnalyzeDiff(ctx, diffText)
}

// WorkspaceDiff returns the unified diff of uncommitted workspace changes.
func (s *Service) WorkspaceDiff(ctx context.Context, staged bool) (string, error) {
	if !s.git.IsGitRepository(ctx, s.settings.WorkspaceDir) {
		return "", fmt.Errorf("workspace is not a git repository: %s", s.settings.WorkspaceDir)
	}
	return s.git.WorkingDiff(ctx, s.settings.WorkspaceDir, staged)
}

// WorkspaceDiffAgainst returns the unified diff between the given ref and
// the working tree, e.g. to scan a whole branch before merging.
func (s *Service) WorkspaceDiffAgainst(ctx context.Context, ref string) (string, error) {
	if !s.git.IsGitRepository(ctx, s.settings.WorkspaceDir) {
		return "", fmt.Errorf("workspace is not a git repository: %s", s.settings.WorkspaceDir)
	}
	return s.git.DiffAgainst(ctx, s.settings.WorkspaceDir, ref)
}

// IsReady returns true if the usage index is available for search.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Index returns the usage index for searching.
func (s *Service) Index() (bleve.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready || s.index == nil {
		return nil, fmt.Errorf("usage index not ready")
	}
	return s.index, nil
}

// Cache exposes the result cache, primarily for the external
// cache-invalidation contract and for tests.
func (s *Service) Cache() *ResultCache {
	return s.cache
}

// Settings returns the service settings.
func (s *Service) Settings() *config.ScannerSettings {
	return s.settings
}

// SetGitClient allows injecting a custom git client for testing.
func (s *Service) SetGitClient(client *GitClient) {
	s.git = client
}

// Close releases the watcher and the usage index.
func (s *Service) Close() error {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
		s.watcher = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return fmt.Errorf("failed to close usage index: %w", err)
		}
		s.index = nil
	}
	s.ready = false
	return nil
}
