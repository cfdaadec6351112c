// Package migrate moves an item between collections, reconciling its
// front matter with the target's schema on the way.
package migrate

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/registry"
)

var datePrefixPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// EngineFactory builds a collection engine for a resolved config. The
// migrator uses it for both endpoints so directory resolution stays in
// one place.
type EngineFactory func(cfg *registry.CollectionConfig) (*collection.Engine, error)

// Prompter asks the user for a required field value during migration.
type Prompter func(prompt string) (string, error)

// Result describes a completed migration.
type Result struct {
	Title      string
	Slug       string
	SourcePath string
	TargetPath string
	// AutoFilled records field values extracted from the body instead
	// of prompted for.
	AutoFilled map[string]string
}

// Migrator relocates items between collections. The move is two file
// operations, write then delete, deliberately in that order: a crash in
// between leaves a duplicate, never a lost item.
type Migrator struct {
	reg     *registry.Registry
	factory EngineFactory
	logger  *slog.Logger
	now     func() time.Time
}

func New(reg *registry.Registry, factory EngineFactory, logger *slog.Logger) *Migrator {
	return &Migrator{reg: reg, factory: factory, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for missing date prefixes.
func (m *Migrator) WithClock(fn func() time.Time) *Migrator {
	m.now = fn
	return m
}

// Migrate moves slug from the source collection to the target one.
// Required target fields absent from the source are auto-extracted for
// URL fields and otherwise requested through prompt. The source file is
// only removed after the target write succeeds.
func (m *Migrator) Migrate(itemSlug, source, target string, prompt Prompter) (*Result, error) {
	if source == target {
		return nil, fmt.Errorf("source and target are both %q: %w", source, apperr.ErrValidation)
	}
	srcCfg := m.reg.Get(source)
	if srcCfg == nil {
		return nil, fmt.Errorf("source collection %q: %w", source, apperr.ErrUnknownCollection)
	}
	tgtCfg := m.reg.Get(target)
	if tgtCfg == nil {
		return nil, fmt.Errorf("target collection %q: %w", target, apperr.ErrUnknownCollection)
	}

	srcEng, err := m.factory(srcCfg)
	if err != nil {
		return nil, err
	}
	tgtEng, err := m.factory(tgtCfg)
	if err != nil {
		return nil, err
	}

	srcRel, err := srcEng.Resolve(itemSlug)
	if err != nil {
		return nil, err
	}
	data, err := srcEng.Store().Read(srcRel)
	if err != nil {
		return nil, err
	}
	doc, err := frontmatter.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", srcRel, err)
	}

	doc.Set("layout", tgtCfg.Layout)

	autoFilled := make(map[string]string)
	for _, field := range tgtCfg.Fields {
		if !field.Required {
			continue
		}
		if _, ok := doc.Get(field.Name); ok {
			continue
		}
		value := ""
		if field.Name == "url_link" {
			value = collection.FirstURL(doc.Body)
		}
		if value != "" {
			autoFilled[field.Name] = value
		} else {
			if prompt == nil {
				return nil, fmt.Errorf("required field %s has no value: %w", field.Name, apperr.ErrValidation)
			}
			value, err = prompt(field.Prompt)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(value) == "" {
				return nil, fmt.Errorf("required field %s has no value: %w", field.Name, apperr.ErrValidation)
			}
		}
		doc.Set(field.Name, value)
	}

	cleanSlug := datePrefixPattern.ReplaceAllString(
		strings.TrimSuffix(filepath.Base(srcRel), ".md"), "")

	filename := cleanSlug + ".md"
	if tgtCfg.DatePrefix {
		filename = m.datePrefix(doc.GetString("date")) + "-" + cleanSlug + ".md"
	}
	tgtRel := path.Join(tgtEng.DirName(), filename)
	if tgtEng.Store().Exists(tgtRel) {
		return nil, fmt.Errorf("%s already exists in %s: %w", filename, target, apperr.ErrDuplicate)
	}

	content, err := frontmatter.Encode(doc.Fields, doc.Body)
	if err != nil {
		return nil, err
	}
	if err := tgtEng.Store().Write(tgtRel, content); err != nil {
		return nil, err
	}
	if err := srcEng.Store().Delete(srcRel); err != nil {
		return nil, fmt.Errorf("target written but source not removed, duplicate present: %w", err)
	}

	title := doc.GetString("title")
	if title == "" {
		title = cleanSlug
	}
	m.logger.Info("item migrated",
		"slug", cleanSlug, "from", source, "to", target, "path", tgtRel)

	return &Result{
		Title:      title,
		Slug:       cleanSlug,
		SourcePath: srcRel,
		TargetPath: tgtRel,
		AutoFilled: autoFilled,
	}, nil
}

// datePrefix derives the YYYY-MM-DD prefix from a front-matter date,
// falling back to today when it cannot be parsed.
func (m *Migrator) datePrefix(raw string) string {
	for _, layout := range []string{collection.DateFormat, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return m.now().Format("2006-01-02")
}
