// Package models defines the domain types shared across the application.
package models

import "time"

// Item is one stored content entry: a front-matter-tagged Markdown file in a
// collection's directory. Slug is derived from the filename and stable once
// created; Fields holds the collection-specific extra front-matter values.
type Item struct {
	Collection string            `json:"collection"`
	Slug       string            `json:"slug"`
	Path       string            `json:"path"`
	Title      string            `json:"title"`
	Date       string            `json:"date"`
	Fields     map[string]string `json:"fields,omitempty"`
	Body       string            `json:"body,omitempty"`
	// Partial is set when the item's front matter required the fallback
	// parser; its fields may be incomplete.
	Partial bool `json:"partial,omitempty"`
}

// FileMeta is a lightweight representation returned by storage listings.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailCandidate is an ephemeral in-memory entry fetched from the mail
// collaborator; it is consumed once into an Item or discarded, never stored.
type EmailCandidate struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Date      string `json:"date"`
	Sender    string `json:"from"`
}
