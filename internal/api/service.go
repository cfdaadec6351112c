package api

import (
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
)

// EngineFactory builds a collection engine for a config.
type EngineFactory func(cfg *registry.CollectionConfig) (*collection.Engine, error)

// Service coordinates registry, engines and index for the API layer.
// All operations are read-only; mutation happens through the CLI.
type Service struct {
	reg     *registry.Registry
	factory EngineFactory
	db      index.ItemIndex
	baseURL string
}

// NewService creates a new API service.
func NewService(reg *registry.Registry, factory EngineFactory, db index.ItemIndex, baseURL string) *Service {
	return &Service{reg: reg, factory: factory, db: db, baseURL: baseURL}
}

// CollectionInfo describes one collection in list responses.
type CollectionInfo struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Tagline string `json:"tagline,omitempty"`
	Dir     string `json:"dir"`
	Count   int    `json:"count"`
}

// ItemListEntry is a lightweight item in a list response.
type ItemListEntry struct {
	Path      string    `json:"path"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Date      string    `json:"date,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemDetail is the full item response, read live from disk.
type ItemDetail struct {
	models.Item
	URL string `json:"url"`
}

// Collections lists every registered collection with its indexed item
// count, in declaration order.
func (s *Service) Collections() ([]CollectionInfo, error) {
	out := make([]CollectionInfo, 0, len(s.reg.Names()))
	for _, name := range s.reg.Names() {
		cfg := s.reg.Get(name)
		_, total, err := s.db.ListItems(name, 1, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, CollectionInfo{
			Name:    cfg.Name,
			Label:   cfg.Label,
			Tagline: cfg.Tagline,
			Dir:     cfg.DirName,
			Count:   total,
		})
	}
	return out, nil
}

// Items returns a page of indexed items for one collection.
func (s *Service) Items(name string, limit, offset int) ([]ItemListEntry, int, error) {
	if s.reg.Get(name) == nil {
		return nil, 0, fmt.Errorf("collection %q: %w", name, apperr.ErrUnknownCollection)
	}
	rows, total, err := s.db.ListItems(name, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ItemListEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, ItemListEntry{
			Path:      r.Path,
			Slug:      r.Slug,
			Title:     r.Title,
			Date:      r.Date,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, total, nil
}

// Item reads one item live from disk and decorates it with its site URL.
func (s *Service) Item(name, slug string) (*ItemDetail, error) {
	cfg := s.reg.Get(name)
	if cfg == nil {
		return nil, fmt.Errorf("collection %q: %w", name, apperr.ErrUnknownCollection)
	}
	eng, err := s.factory(cfg)
	if err != nil {
		return nil, err
	}
	item, err := eng.Get(slug)
	if err != nil {
		return nil, err
	}
	return &ItemDetail{Item: *item, URL: eng.ItemURL(item.Slug)}, nil
}

// Search runs a full-text query, optionally scoped to one collection.
func (s *Service) Search(query, name string, limit int) ([]index.SearchResult, error) {
	if name != "" && s.reg.Get(name) == nil {
		return nil, fmt.Errorf("collection %q: %w", name, apperr.ErrUnknownCollection)
	}
	return s.db.Search(query, name, limit)
}
