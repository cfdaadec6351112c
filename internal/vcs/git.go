// Package vcs runs the git collaborator: a stage → commit → push chain per
// created or migrated item. Every call is attempted exactly once; the first
// failure aborts the rest of the chain and is reported, with no rollback of
// files already written.
package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// Runner executes one external command in dir and returns combined output.
// Tests substitute a fake; the default shells out.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Git operates on one working tree.
type Git struct {
	dir string
	run Runner
}

// New creates a Git bound to the given working tree.
func New(dir string) *Git {
	return &Git{dir: dir, run: execRunner}
}

// NewWithRunner creates a Git with a custom command runner, for tests.
func NewWithRunner(dir string, run Runner) *Git {
	return &Git{dir: dir, run: run}
}

// Status returns the porcelain status output scoped to pathspec
// (empty output means a clean tree).
func (g *Git) Status(ctx context.Context, pathspec string) (string, error) {
	args := []string{"status", "--porcelain"}
	if pathspec != "" {
		args = append(args, pathspec)
	}
	out, err := g.run(ctx, g.dir, "git", args...)
	if err != nil {
		return "", fmt.Errorf("git status: %s: %w", strings.TrimSpace(string(out)), apperr.ErrCollaborator)
	}
	return string(out), nil
}

// CommitAndPush stages the given paths, commits with message, and pushes.
// The three calls run sequentially; any failure aborts the remaining chain.
func (g *Git) CommitAndPush(ctx context.Context, paths []string, message string) error {
	addArgs := append([]string{"add", "--"}, paths...)
	steps := [][]string{
		addArgs,
		{"commit", "-m", message},
		{"push"},
	}
	for _, args := range steps {
		out, err := g.run(ctx, g.dir, "git", args...)
		if err != nil {
			return fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), apperr.ErrCollaborator)
		}
	}
	return nil
}

// CommitMessage builds the conventional per-item commit message, truncating
// long titles at 50 characters.
func CommitMessage(verb, collection, title string) string {
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}
	return fmt.Sprintf("%s %s: %s", verb, collection, title)
}
