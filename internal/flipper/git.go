package flipper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its combined output.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error message for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// GitClient obtains unified-diff text from a local workspace.
type GitClient struct {
	executor CommandExecutor
}

// NewGitClient creates a new GitClient with the default command executor.
func NewGitClient() *GitClient {
	return &GitClient{
		executor: &DefaultExecutor{},
	}
}

// NewGitClientWithExecutor creates a GitClient with a custom executor (for testing).
func NewGitClientWithExecutor(executor CommandExecutor) *GitClient {
	return &GitClient{
		executor: executor,
	}
}

// WorkingDiff returns the unified diff of uncommitted changes in the
// workspace. When staged is true, only staged changes are included.
func (g *GitClient) WorkingDiff(ctx context.Context, workspaceDir string, staged bool) (string, error) {
	args := []string{"diff"}
	if staged {
		args = append(args, "--cached")
	}

	output, err := g.executor.Run(ctx, workspaceDir, "git", args...)
	if err != nil {
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	return string(output), nil
}

// DiffAgainst returns the unified diff between the given ref and the
// working tree, e.g. "origin/main" or a commit SHA.
func (g *GitClient) DiffAgainst(ctx context.Context, workspaceDir, ref string) (string, error) {
	output, err := g.executor.Run(ctx, workspaceDir, "git", "diff", ref)
	if err != nil {
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	return string(output), nil
}

// IsGitRepository checks if the given directory is a git repository.
func (g *GitClient) IsGitRepository(ctx context.Context, dir string) bool {
	_, err := g.executor.Run(ctx, dir, "git", "rev-parse", "--git-dir")
	return err == nil
}
