// Package mail fetches inbox messages through an external mail CLI that
// speaks JSON on stdout.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const archiveTimeout = 30 * time.Second

// Runner executes one mail CLI invocation and returns combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Client wraps the configured mail command.
type Client struct {
	command string
	logger  *slog.Logger
	run     Runner
}

func New(command string, logger *slog.Logger) *Client {
	return NewWithRunner(command, logger, execRunner)
}

func NewWithRunner(command string, logger *slog.Logger, run Runner) *Client {
	return &Client{command: command, logger: logger, run: run}
}

type searchEnvelope struct {
	Emails []searchResult `json:"emails"`
}

type searchResult struct {
	MessageID string   `json:"message_id"`
	Subject   string   `json:"subject"`
	From      string   `json:"from"`
	Date      string   `json:"date"`
	Labels    []string `json:"labels"`
}

type readResult struct {
	BodyPlain string `json:"body_plain"`
	Body      string `json:"body"`
}

// Search lists inbox messages addressed to address, newest first as the
// mail CLI returns them. Drafts and messages without a subject are
// skipped. The message listing is a hard failure; fetching an
// individual body is not, a message with an unreadable body is returned
// with an empty one.
func (c *Client) Search(ctx context.Context, address string, max int) ([]models.EmailCandidate, error) {
	out, err := c.run(ctx, c.command,
		"search", "to:"+address,
		"--folder", "INBOX",
		"--max", strconv.Itoa(max),
		"--output-format", "json")
	if err != nil {
		return nil, fmt.Errorf("mail search: %v: %w", err, apperr.ErrCollaborator)
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(out, &envelope); err != nil {
		return nil, fmt.Errorf("mail search: decode output: %v: %w", err, apperr.ErrCollaborator)
	}

	var candidates []models.EmailCandidate
	for _, r := range envelope.Emails {
		if strings.TrimSpace(r.Subject) == "" || isDraft(r.Labels) {
			continue
		}
		candidates = append(candidates, models.EmailCandidate{
			MessageID: r.MessageID,
			Subject:   strings.TrimSpace(r.Subject),
			Sender:    r.From,
			Date:      r.Date,
			Body:      c.readBody(ctx, r.MessageID),
		})
	}
	return candidates, nil
}

func (c *Client) readBody(ctx context.Context, id string) string {
	out, err := c.run(ctx, c.command, "read", id, "--full", "--output-format", "json")
	if err != nil {
		c.logger.Warn("mail read failed", "id", id, "error", err)
		return ""
	}
	var r readResult
	if err := json.Unmarshal(out, &r); err != nil {
		c.logger.Warn("mail read returned bad json", "id", id, "error", err)
		return ""
	}
	if r.BodyPlain != "" {
		return strings.TrimSpace(r.BodyPlain)
	}
	return strings.TrimSpace(r.Body)
}

// Archive moves a processed message out of the inbox.
func (c *Client) Archive(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	if _, err := c.run(ctx, c.command, "archive", id); err != nil {
		return fmt.Errorf("mail archive %s: %v: %w", id, err, apperr.ErrCollaborator)
	}
	return nil
}

func isDraft(labels []string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, "DRAFT") {
			return true
		}
	}
	return false
}
