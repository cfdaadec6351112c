// Package agent shells out to an AI agent CLI for content classification
// and commit delegation.
package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
)

// classifyBodyLimit bounds how much email body is sent to the model.
const classifyBodyLimit = 1000

// Runner executes one agent CLI invocation and returns stdout.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.Output()
}

// Client wraps the configured agent command.
type Client struct {
	command string
	model   string
	logger  *slog.Logger
	run     Runner
}

func New(command, model string, logger *slog.Logger) *Client {
	return NewWithRunner(command, model, logger, execRunner)
}

func NewWithRunner(command, model string, logger *slog.Logger, run Runner) *Client {
	return &Client{command: command, model: model, logger: logger, run: run}
}

// Classify asks the model which collection an email belongs to. The
// response is matched against registry names; anything unmatched falls
// back to fallback.
func (c *Client) Classify(ctx context.Context, candidate models.EmailCandidate, reg *registry.Registry, fallback string) (string, error) {
	body := candidate.Body
	if runes := []rune(body); len(runes) > classifyBodyLimit {
		body = string(runes[:classifyBodyLimit])
	}
	prompt := fmt.Sprintf("%s\n\nSubject: %s\n\nBody:\n%s\n\nClassify this content:",
		reg.ClassificationPrompt(), candidate.Subject, body)

	out, err := c.run(ctx, "", c.command, "-p", prompt, "--model", c.model, "--max-turns", "1")
	if err != nil {
		return "", fmt.Errorf("agent classify: %v: %w", err, apperr.ErrCollaborator)
	}
	return MatchCategory(string(out), reg.Names(), fallback), nil
}

// MatchCategory resolves a model response to a collection name. Names
// are checked in registry order by uppercase containment; a response
// that names no collection resolves to fallback.
func MatchCategory(response string, names []string, fallback string) string {
	upper := strings.ToUpper(strings.TrimSpace(response))
	for _, name := range names {
		if strings.Contains(upper, strings.ToUpper(name)) {
			return name
		}
	}
	return fallback
}

// StreamEvent is one line of agent progress handed to the caller.
type StreamEvent struct {
	Text   string
	Result bool
}

// Run delegates a task to the agent with streamed JSON output, emitting
// assistant text and the final result through sink. It returns the
// session id reported by the agent, if any.
func (c *Client) Run(ctx context.Context, dir, prompt string, sink func(StreamEvent)) (string, error) {
	cmd := exec.CommandContext(ctx, c.command, "-p", prompt, "--output-format", "stream-json", "--verbose")
	cmd.Dir = dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("agent run: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("agent run: %v: %w", err, apperr.ErrCollaborator)
	}

	sessionID := ParseStream(stdout, sink)

	if err := cmd.Wait(); err != nil {
		return sessionID, fmt.Errorf("agent run: %v: %w", err, apperr.ErrCollaborator)
	}
	return sessionID, nil
}

type streamLine struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Result    string `json:"result"`
	Message   struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// ParseStream reads agent stream-json lines, forwarding assistant text
// blocks and the result line to sink. Lines that are not JSON are
// skipped. The last seen session id is returned.
func ParseStream(r io.Reader, sink func(StreamEvent)) string {
	var sessionID string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var data streamLine
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}
		if data.SessionID != "" {
			sessionID = data.SessionID
		}
		switch data.Type {
		case "assistant":
			for _, block := range data.Message.Content {
				if block.Type == "text" && block.Text != "" {
					sink(StreamEvent{Text: block.Text})
				}
			}
		case "result":
			if data.Result != "" {
				sink(StreamEvent{Text: data.Result, Result: true})
			}
		}
	}
	return sessionID
}
