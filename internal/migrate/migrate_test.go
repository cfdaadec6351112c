package migrate

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/registry"
)

const registryYAML = `collections:
  sentences: {}
  links:
    fields:
      - name: url_link
        required: true
        prompt: URL
  random: {}
  posts:
    date_prefix: true
`

type fixture struct {
	m       *Migrator
	project string
	engines map[string]*collection.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := registry.Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}
	project := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{project: project, engines: make(map[string]*collection.Engine)}
	factory := func(cfg *registry.CollectionConfig) (*collection.Engine, error) {
		if eng, ok := f.engines[cfg.Name]; ok {
			return eng, nil
		}
		eng, err := collection.NewEngine(cfg, project, "http://localhost:4000", logger,
			collection.WithDir(filepath.Join(project, cfg.DirName)))
		if err != nil {
			return nil, err
		}
		f.engines[cfg.Name] = eng
		return eng, nil
	}
	f.m = New(reg, factory, logger).WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	})

	for _, name := range reg.Names() {
		if _, err := factory(reg.Get(name)); err != nil {
			t.Fatalf("engine %s: %v", name, err)
		}
	}
	return f
}

func (f *fixture) write(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(f.project, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(full, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) read(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.project, dir, name))
	if err != nil {
		t.Fatalf("read %s/%s: %v", dir, name, err)
	}
	return string(data)
}

func TestMigrateExactlyOneLiveCopy(t *testing.T) {
	f := newFixture(t)
	f.write(t, "_random", "x.md", "---\ntitle: X\ndate: 2025-01-10 09:00:00 -0500\n---\n\nsome thought\n")

	res, err := f.m.Migrate("x", "random", "sentences", nil)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.project, "_random", "x.md")); !os.IsNotExist(err) {
		t.Error("source file still present")
	}
	content := f.read(t, "_sentences", "x.md")
	if !strings.Contains(content, "layout: sentences") {
		t.Errorf("layout not substituted:\n%s", content)
	}
	if !strings.Contains(content, "title: X") || !strings.Contains(content, "some thought") {
		t.Errorf("content lost:\n%s", content)
	}
	if res.Slug != "x" || res.TargetPath != "_sentences/x.md" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestMigrateUnknownCollections(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.Migrate("x", "nope", "random", nil); !errors.Is(err, apperr.ErrUnknownCollection) {
		t.Errorf("unknown source: got %v", err)
	}
	if _, err := f.m.Migrate("x", "random", "nope", nil); !errors.Is(err, apperr.ErrUnknownCollection) {
		t.Errorf("unknown target: got %v", err)
	}
	if _, err := f.m.Migrate("x", "random", "random", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("same collection: got %v", err)
	}
}

func TestMigrateNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.Migrate("missing", "random", "sentences", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrateDuplicateTargetUntouchedSource(t *testing.T) {
	f := newFixture(t)
	src := "---\ntitle: X\n---\n\nbody\n"
	f.write(t, "_random", "x.md", src)
	f.write(t, "_sentences", "x.md", "---\ntitle: Other\n---\n\nexisting\n")

	_, err := f.m.Migrate("x", "random", "sentences", nil)
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if got := f.read(t, "_random", "x.md"); got != src {
		t.Error("source modified by rejected migration")
	}
	if got := f.read(t, "_sentences", "x.md"); !strings.Contains(got, "existing") {
		t.Error("target overwritten by rejected migration")
	}
}

func TestMigrateAutoExtractsURL(t *testing.T) {
	f := newFixture(t)
	f.write(t, "_random", "x.md", "---\ntitle: X\n---\n\nread https://example.com/a today\n")

	res, err := f.m.Migrate("x", "random", "links", nil)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if res.AutoFilled["url_link"] != "https://example.com/a" {
		t.Errorf("AutoFilled = %+v", res.AutoFilled)
	}
	if content := f.read(t, "_links", "x.md"); !strings.Contains(content, "url_link: https://example.com/a") {
		t.Errorf("url_link missing:\n%s", content)
	}
}

func TestMigratePromptsForMissingField(t *testing.T) {
	f := newFixture(t)
	f.write(t, "_random", "x.md", "---\ntitle: X\n---\n\nno links in here\n")

	var asked string
	res, err := f.m.Migrate("x", "random", "links", func(prompt string) (string, error) {
		asked = prompt
		return "https://manual.example.com", nil
	})
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if asked != "URL" {
		t.Errorf("prompt = %q", asked)
	}
	if content := f.read(t, "_links", "x.md"); !strings.Contains(content, "https://manual.example.com") {
		t.Errorf("prompted value missing:\n%s", content)
	}
	if len(res.AutoFilled) != 0 {
		t.Errorf("prompted value should not count as auto-filled: %+v", res.AutoFilled)
	}
}

func TestMigrateMissingFieldNoPrompter(t *testing.T) {
	f := newFixture(t)
	f.write(t, "_random", "x.md", "---\ntitle: X\n---\n\nnothing\n")
	if _, err := f.m.Migrate("x", "random", "links", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.project, "_random", "x.md")); err != nil {
		t.Error("source removed despite failed migration")
	}
}

func TestMigrateDatePrefixHandling(t *testing.T) {
	f := newFixture(t)

	// into a date-prefixed collection: prefix derived from the date field
	f.write(t, "_random", "essay.md", "---\ntitle: Essay\ndate: 2025-01-10 09:00:00 -0500\n---\n\ntext\n")
	res, err := f.m.Migrate("essay", "random", "posts", nil)
	if err != nil {
		t.Fatalf("Migrate to posts: %v", err)
	}
	if res.TargetPath != "_posts/2025-01-10-essay.md" {
		t.Errorf("TargetPath = %q", res.TargetPath)
	}

	// out of a date-prefixed collection: prefix stripped, bare slug lookup
	res, err = f.m.Migrate("essay", "posts", "random", nil)
	if err != nil {
		t.Fatalf("Migrate back: %v", err)
	}
	if res.TargetPath != "_random/essay.md" {
		t.Errorf("TargetPath = %q", res.TargetPath)
	}
}

func TestMigrateDatePrefixFallsBackToClock(t *testing.T) {
	f := newFixture(t)
	f.write(t, "_random", "undated.md", "---\ntitle: Undated\n---\n\ntext\n")
	res, err := f.m.Migrate("undated", "random", "posts", nil)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if res.TargetPath != "_posts/2025-03-01-undated.md" {
		t.Errorf("TargetPath = %q", res.TargetPath)
	}
}
