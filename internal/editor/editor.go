// Package editor invokes the user's text editor as a blocking foreground
// process. Exit status is not checked; callers re-read content from disk
// after the process returns.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// Editor wraps one editor command.
type Editor struct {
	command string
}

// Resolve picks the editor: explicit config value, then $EDITOR, then vim.
func Resolve(configured string) Editor {
	if configured != "" {
		return Editor{command: configured}
	}
	if env := os.Getenv("EDITOR"); env != "" {
		return Editor{command: env}
	}
	return Editor{command: "vim"}
}

// Command returns the resolved editor command.
func (e Editor) Command() string {
	return e.command
}

// Open runs the editor on path and blocks until it exits, with the
// terminal attached.
func (e Editor) Open(ctx context.Context, path string) error {
	parts := strings.Fields(e.command)
	args := append(parts[1:], path)
	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q: %v: %w", e.command, err, apperr.ErrCollaborator)
	}
	return nil
}

// Compose writes template to a temporary .md file, opens it in the editor,
// and returns the edited content with comment lines (leading '#') removed.
func (e Editor) Compose(ctx context.Context, template string) (string, error) {
	tmp, err := os.CreateTemp("", "ansuz-*.md")
	if err != nil {
		return "", fmt.Errorf("editor: create temp: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.WriteString(template); err != nil {
		tmp.Close()
		return "", fmt.Errorf("editor: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("editor: close temp: %w", err)
	}

	if err := e.Open(ctx, name); err != nil {
		return "", err
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("editor: read back: %w", err)
	}
	return StripComments(string(data)), nil
}

// StripComments removes lines starting with '#' and trims the result.
func StripComments(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
