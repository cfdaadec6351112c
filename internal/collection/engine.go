// Package collection implements the engine behind every content verb: one
// Engine instance is bound to one collection's config and directory and
// performs listing, creation, lookup, deletion and email ingestion on it.
package collection

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/slug"
	"github.com/starford/ansuz/internal/storage"
)

// DateFormat is the front-matter date layout: local time with a numeric
// zone offset.
const DateFormat = "2006-01-02 15:04:05 -0700"

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// FirstURL returns the first well-formed URL in text, or "".
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}

// Engine operates on a single collection. The storage directory is
// resolved once at construction and never changes for the instance's
// lifetime.
type Engine struct {
	cfg     *registry.CollectionConfig
	store   storage.Provider
	dirName string
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

type settings struct {
	dirOverride string
	lookupEnv   func(string) string
	now         func() time.Time
}

// Option adjusts engine construction.
type Option func(*settings)

// WithDir overrides directory resolution with an explicit path.
func WithDir(dir string) Option {
	return func(s *settings) { s.dirOverride = dir }
}

// WithEnvLookup replaces the environment lookup used for the
// per-collection directory variable.
func WithEnvLookup(fn func(string) string) Option {
	return func(s *settings) { s.lookupEnv = fn }
}

// WithClock replaces the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *settings) { s.now = fn }
}

// NewEngine resolves the collection directory and binds an engine to it.
// Resolution order: explicit override, then the <NAME>_DIR environment
// variable, then the conventional subdirectory of the working directory,
// then fallbackRoot. The directory itself may not exist yet; its parent
// must.
func NewEngine(cfg *registry.CollectionConfig, fallbackRoot, baseURL string, logger *slog.Logger, opts ...Option) (*Engine, error) {
	s := settings{
		lookupEnv: os.Getenv,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}

	dir := s.dirOverride
	if dir == "" {
		envVar := strings.ToUpper(cfg.Name) + "_DIR"
		dir = s.lookupEnv(envVar)
	}
	if dir == "" {
		if cwd, err := os.Getwd(); err == nil {
			candidate := filepath.Join(cwd, cfg.DirName)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				dir = candidate
			}
		}
	}
	if dir == "" {
		dir = filepath.Join(fallbackRoot, cfg.DirName)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("collection %s: resolve dir: %w", cfg.Name, err)
	}
	store, err := storage.NewFS(filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", cfg.Name, err)
	}

	return &Engine{
		cfg:     cfg,
		store:   store,
		dirName: filepath.Base(abs),
		baseURL: baseURL,
		logger:  logger,
		now:     s.now,
	}, nil
}

// Config returns the bound collection config.
func (e *Engine) Config() *registry.CollectionConfig {
	return e.cfg
}

// Store exposes the underlying storage provider, rooted at the project
// directory (the parent of the collection directory).
func (e *Engine) Store() storage.Provider {
	return e.store
}

// DirName is the collection directory name relative to the project root.
func (e *Engine) DirName() string {
	return e.dirName
}

// AbsDir is the absolute collection directory path.
func (e *Engine) AbsDir() string {
	return filepath.Join(e.store.Root(), e.dirName)
}

// ItemURL is the public site URL for a slug.
func (e *Engine) ItemURL(itemSlug string) string {
	return strings.TrimRight(e.cfg.SiteURL(e.baseURL), "/") + "/" + itemSlug + "/"
}

// List returns all items sorted by filename descending. Filenames are
// slug- or date-prefixed, so this approximates recency. A missing
// directory yields an empty list.
func (e *Engine) List() ([]models.Item, error) {
	metas, err := e.store.List(e.dirName)
	if err != nil {
		return nil, err
	}
	sort.Slice(metas, func(i, j int) bool {
		return filepath.Base(metas[i].Path) > filepath.Base(metas[j].Path)
	})

	items := make([]models.Item, 0, len(metas))
	for _, meta := range metas {
		item, err := e.readItem(meta.Path)
		if err != nil {
			e.logger.Warn("skipping unreadable item", "path", meta.Path, "error", err)
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

// Get loads one item by slug, accepting date-prefixed filename matches.
func (e *Engine) Get(itemSlug string) (*models.Item, error) {
	rel, err := e.findFile(itemSlug)
	if err != nil {
		return nil, err
	}
	return e.readItem(rel)
}

// Exists reports whether any file matches the slug, including
// date-prefixed variants.
func (e *Engine) Exists(itemSlug string) bool {
	_, err := e.findFile(itemSlug)
	return err == nil
}

// EditPath returns the absolute file path for a slug, for handing to an
// external editor.
func (e *Engine) EditPath(itemSlug string) (string, error) {
	rel, err := e.findFile(itemSlug)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.store.Root(), rel), nil
}

// Resolve maps a slug to its file path relative to the project root.
func (e *Engine) Resolve(itemSlug string) (string, error) {
	return e.findFile(itemSlug)
}

// findFile locates the file for a slug: exact filename first, then a
// suffix match for date-prefixed names.
func (e *Engine) findFile(itemSlug string) (string, error) {
	exact := path.Join(e.dirName, itemSlug+".md")
	if e.store.Exists(exact) {
		return exact, nil
	}
	metas, err := e.store.List(e.dirName)
	if err != nil {
		return "", err
	}
	for _, meta := range metas {
		if strings.HasSuffix(filepath.Base(meta.Path), "-"+itemSlug+".md") {
			return meta.Path, nil
		}
	}
	return "", fmt.Errorf("%s/%s.md: %w", e.dirName, itemSlug, apperr.ErrNotFound)
}

func (e *Engine) readItem(rel string) (*models.Item, error) {
	data, err := e.store.Read(rel)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(rel), ".md")

	item := &models.Item{
		Collection: e.cfg.Name,
		Slug:       name,
		Path:       rel,
	}

	doc, err := frontmatter.Decode(data)
	if err != nil {
		if errors.Is(err, apperr.ErrParse) {
			item.Body = strings.TrimSpace(string(data))
			item.Partial = true
			return item, nil
		}
		return nil, err
	}

	item.Title = doc.GetString("title")
	item.Date = doc.GetString("date")
	item.Body = doc.Body
	item.Partial = doc.Partial
	for _, f := range doc.Fields {
		if f.Key == "title" || f.Key == "date" {
			continue
		}
		if item.Fields == nil {
			item.Fields = make(map[string]string)
		}
		item.Fields[f.Key] = fmt.Sprint(f.Value)
	}
	return item, nil
}

// Create validates input, writes a new item file and returns its
// descriptor. An existing file with the same slug is never overwritten.
func (e *Engine) Create(title, slugOverride string, extra map[string]string, body string) (*models.Item, error) {
	title = strings.TrimSpace(title)
	if err := validation.Validate(title, validation.Required); err != nil {
		return nil, fmt.Errorf("title: %v: %w", err, apperr.ErrValidation)
	}
	for _, name := range e.cfg.RequiredFields() {
		if name == "title" {
			continue
		}
		if err := validation.Validate(strings.TrimSpace(extra[name]), validation.Required); err != nil {
			return nil, fmt.Errorf("field %s: %v: %w", name, err, apperr.ErrValidation)
		}
	}

	itemSlug := slug.Default(title)
	if slugOverride != "" {
		itemSlug = slug.Default(slugOverride)
	}
	if itemSlug == "" {
		return nil, fmt.Errorf("title %q yields an empty slug: %w", title, apperr.ErrValidation)
	}

	rel := path.Join(e.dirName, itemSlug+".md")
	if e.store.Exists(rel) {
		return nil, fmt.Errorf("%s.md: %w", itemSlug, apperr.ErrDuplicate)
	}

	date := e.now().Format(DateFormat)
	fields := []frontmatter.Field{
		{Key: "title", Value: title},
		{Key: "date", Value: date},
	}
	for _, name := range e.cfg.ExtraFieldNames() {
		if val := strings.TrimSpace(extra[name]); val != "" {
			fields = append(fields, frontmatter.Field{Key: name, Value: val})
		}
	}

	content, err := frontmatter.Encode(fields, body)
	if err != nil {
		return nil, err
	}
	if err := e.store.Write(rel, content); err != nil {
		return nil, err
	}

	e.logger.Info("item created", "collection", e.cfg.Name, "slug", itemSlug)
	return &models.Item{
		Collection: e.cfg.Name,
		Slug:       itemSlug,
		Path:       rel,
		Title:      title,
		Date:       date,
		Body:       strings.TrimSpace(body),
	}, nil
}

// Delete removes an item. Unless force is set, confirm is consulted
// first; declining returns ErrCancelled and leaves the file in place.
func (e *Engine) Delete(itemSlug string, force bool, confirm func(prompt string) bool) error {
	rel, err := e.findFile(itemSlug)
	if err != nil {
		return err
	}
	if !force {
		if confirm == nil || !confirm(fmt.Sprintf("Delete %s?", filepath.Base(rel))) {
			return apperr.ErrCancelled
		}
	}
	if err := e.store.Delete(rel); err != nil {
		return err
	}
	e.logger.Info("item deleted", "collection", e.cfg.Name, "slug", itemSlug)
	return nil
}

// Ingest converts an email candidate into a stored item. Filename
// collisions get a numeric suffix until unique; the layout field is
// written so the generated page renders with the collection's template.
func (e *Engine) Ingest(candidate models.EmailCandidate) (*models.Item, error) {
	itemSlug := slug.Default(candidate.Subject)
	if itemSlug == "" {
		return nil, fmt.Errorf("subject %q yields an empty slug: %w", candidate.Subject, apperr.ErrValidation)
	}

	date := e.parseCandidateDate(candidate.Date)
	filename, uniqueSlug := e.uniqueFilename(itemSlug, date)

	fields := []frontmatter.Field{
		{Key: "layout", Value: e.cfg.Layout},
		{Key: "title", Value: candidate.Subject},
		{Key: "date", Value: date.Format(DateFormat)},
	}
	for _, f := range e.cfg.Fields {
		if f.Name == "url_link" {
			if url := FirstURL(candidate.Body); url != "" {
				fields = append(fields, frontmatter.Field{Key: "url_link", Value: url})
				continue
			}
		}
		if f.Default != nil {
			fields = append(fields, frontmatter.Field{Key: f.Name, Value: f.Default})
		}
	}

	content, err := frontmatter.Encode(fields, candidate.Body)
	if err != nil {
		return nil, err
	}
	rel := path.Join(e.dirName, filename)
	if err := e.store.Write(rel, content); err != nil {
		return nil, err
	}

	e.logger.Info("item ingested", "collection", e.cfg.Name, "slug", uniqueSlug, "message_id", candidate.MessageID)
	return &models.Item{
		Collection: e.cfg.Name,
		Slug:       strings.TrimSuffix(filename, ".md"),
		Path:       rel,
		Title:      candidate.Subject,
		Date:       date.Format(DateFormat),
		Body:       strings.TrimSpace(candidate.Body),
	}, nil
}

// uniqueFilename builds the target filename per the collection's naming
// convention, appending -1, -2, ... while the name is taken.
func (e *Engine) uniqueFilename(itemSlug string, date time.Time) (filename, finalSlug string) {
	build := func(s string) string {
		if e.cfg.DatePrefix {
			return date.Format("2006-01-02") + "-" + s + ".md"
		}
		return s + ".md"
	}
	finalSlug = itemSlug
	filename = build(finalSlug)
	for i := 1; e.store.Exists(path.Join(e.dirName, filename)); i++ {
		finalSlug = fmt.Sprintf("%s-%d", itemSlug, i)
		filename = build(finalSlug)
	}
	return filename, finalSlug
}

func (e *Engine) parseCandidateDate(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, DateFormat, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return e.now()
}
