package collection

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
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
)

const registryYAML = `collections:
  sentences:
    tagline: Quotes worth keeping
  links:
    fields:
      - name: url_link
        required: true
        prompt: URL
      - name: via
        prompt: Via
  random: {}
  posts:
    date_prefix: true
    fields:
      - name: categories
        default: [writing]
`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}
	return reg
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 10, 30, 0, 0, time.FixedZone("EST", -5*3600))
}

func newTestEngine(t *testing.T, name string) (*Engine, string) {
	t.Helper()
	reg := testRegistry(t)
	cfg := reg.Get(name)
	if cfg == nil {
		t.Fatalf("no collection %q", name)
	}
	project := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := NewEngine(cfg, project, "http://localhost:4000", logger,
		WithDir(filepath.Join(project, cfg.DirName)),
		WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, project
}

func TestCreateAndList(t *testing.T) {
	eng, project := newTestEngine(t, "sentences")

	item, err := eng.Create("The best code is no code at all", "", nil, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Slug != "the-best-code-is-no-code-at-all" {
		t.Errorf("slug = %q", item.Slug)
	}

	data, err := os.ReadFile(filepath.Join(project, "_sentences", item.Slug+".md"))
	if err != nil {
		t.Fatalf("read created file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "title: The best code is no code at all") {
		t.Errorf("missing title line:\n%s", content)
	}
	if !strings.Contains(content, "date: 2025-03-01 10:30:00 -0500") {
		t.Errorf("missing date line:\n%s", content)
	}
	if strings.Contains(content, "layout:") {
		t.Errorf("create must not write a layout field:\n%s", content)
	}

	items, err := eng.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Slug != item.Slug || items[0].Title != "The best code is no code at all" {
		t.Errorf("unexpected listing: %+v", items)
	}
}

func TestCreateDuplicateLeavesFileUnchanged(t *testing.T) {
	eng, project := newTestEngine(t, "random")

	if _, err := eng.Create("Hello World", "", nil, "original body"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	path := filepath.Join(project, "_random", "hello-world.md")
	before, _ := os.ReadFile(path)

	_, err := eng.Create("Hello, World!", "", nil, "other body")
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("existing file was modified by rejected create")
	}
}

func TestCreateValidation(t *testing.T) {
	eng, project := newTestEngine(t, "links")

	_, err := eng.Create("Some link", "", nil, "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing required field: expected ErrValidation, got %v", err)
	}
	if entries, _ := os.ReadDir(filepath.Join(project, "_links")); len(entries) != 0 {
		t.Error("rejected create wrote a file")
	}

	if _, err := eng.Create("   ", "", nil, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank title: expected ErrValidation, got %v", err)
	}
	if _, err := eng.Create("!!!", "", map[string]string{"url_link": "https://x.y"}, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty slug: expected ErrValidation, got %v", err)
	}
}

func TestCreateSlugOverrideAndExtraFields(t *testing.T) {
	eng, _ := newTestEngine(t, "links")

	item, err := eng.Create("A Great Read", "Short Name", map[string]string{
		"url_link": "https://example.com/post",
		"via":      "",
	}, "worth it")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Slug != "short-name" {
		t.Errorf("slug override: got %q", item.Slug)
	}

	got, err := eng.Get("short-name")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields["url_link"] != "https://example.com/post" {
		t.Errorf("url_link not stored: %+v", got.Fields)
	}
	if _, ok := got.Fields["via"]; ok {
		t.Error("empty optional field should be omitted")
	}
	if got.Body != "worth it" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestListEmptyAndMissingDir(t *testing.T) {
	eng, _ := newTestEngine(t, "random")
	items, err := eng.List()
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty list, got %d items", len(items))
	}
}

func TestListSortsByFilenameDescending(t *testing.T) {
	eng, project := newTestEngine(t, "posts")
	dir := filepath.Join(project, "_posts")
	os.MkdirAll(dir, 0o755)
	for _, name := range []string{"2025-01-05-older.md", "2025-02-10-newer.md"} {
		os.WriteFile(filepath.Join(dir, name), []byte("---\ntitle: x\n---\n\nbody\n"), 0o644)
	}
	items, err := eng.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if items[0].Slug != "2025-02-10-newer" || items[1].Slug != "2025-01-05-older" {
		t.Errorf("unexpected order: %s, %s", items[0].Slug, items[1].Slug)
	}
}

func TestGetSuffixMatch(t *testing.T) {
	eng, project := newTestEngine(t, "posts")
	dir := filepath.Join(project, "_posts")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "2025-02-10-my-post.md"),
		[]byte("---\ntitle: My Post\ndate: 2025-02-10 08:00:00 -0500\n---\n\nhello\n"), 0o644)

	got, err := eng.Get("my-post")
	if err != nil {
		t.Fatalf("Get by bare slug: %v", err)
	}
	if got.Title != "My Post" {
		t.Errorf("title = %q", got.Title)
	}

	if _, err := eng.Get("absent"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	eng, project := newTestEngine(t, "random")
	if _, err := eng.Create("Throwaway", "", nil, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	path := filepath.Join(project, "_random", "throwaway.md")

	err := eng.Delete("throwaway", false, func(string) bool { return false })
	if !errors.Is(err, apperr.ErrCancelled) {
		t.Fatalf("declined confirm: expected ErrCancelled, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("cancelled delete removed the file")
	}

	if err := eng.Delete("throwaway", true, nil); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after delete")
	}

	if err := eng.Delete("throwaway", true, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIngestNumericSuffixDedup(t *testing.T) {
	eng, _ := newTestEngine(t, "random")
	candidate := models.EmailCandidate{
		MessageID: "m1",
		Subject:   "Same Thought",
		Body:      "first",
		Date:      "2025-03-01T09:00:00-05:00",
	}

	slugs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		item, err := eng.Ingest(candidate)
		if err != nil {
			t.Fatalf("Ingest %d: %v", i, err)
		}
		slugs = append(slugs, item.Slug)
	}
	want := []string{"same-thought", "same-thought-1", "same-thought-2"}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slug[%d] = %q, want %q", i, slugs[i], want[i])
		}
	}
}

func TestIngestDatePrefixAndLayout(t *testing.T) {
	eng, project := newTestEngine(t, "posts")
	item, err := eng.Ingest(models.EmailCandidate{
		MessageID: "m2",
		Subject:   "A New Post",
		Body:      "content here",
		Date:      "2025-02-14T12:00:00-05:00",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if item.Slug != "2025-02-14-a-new-post" {
		t.Errorf("slug = %q", item.Slug)
	}
	data, err := os.ReadFile(filepath.Join(project, "_posts", "2025-02-14-a-new-post.md"))
	if err != nil {
		t.Fatalf("read ingested file: %v", err)
	}
	if !strings.Contains(string(data), "layout: posts") {
		t.Errorf("layout not written:\n%s", data)
	}
	if !strings.Contains(string(data), "categories: [writing]") {
		t.Errorf("field default not written:\n%s", data)
	}
}

func TestIngestExtractsURL(t *testing.T) {
	eng, _ := newTestEngine(t, "links")
	item, err := eng.Ingest(models.EmailCandidate{
		MessageID: "m3",
		Subject:   "Check this out",
		Body:      "found at https://example.com/article?id=7 today",
		Date:      "bogus date",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	got, err := eng.Get(item.Slug)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields["url_link"] != "https://example.com/article?id=7" {
		t.Errorf("url_link = %q", got.Fields["url_link"])
	}
	// unparseable candidate date falls back to the clock
	if !strings.HasPrefix(got.Date, "2025-03-01") {
		t.Errorf("date fallback: %q", got.Date)
	}
}

func TestEnvDirResolution(t *testing.T) {
	reg := testRegistry(t)
	cfg := reg.Get("random")
	project := t.TempDir()
	custom := filepath.Join(project, "elsewhere")
	os.MkdirAll(custom, 0o755)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := NewEngine(cfg, t.TempDir(), "http://localhost:4000", logger,
		WithEnvLookup(func(key string) string {
			if key == "RANDOM_DIR" {
				return custom
			}
			return ""
		}))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if eng.AbsDir() != custom {
		t.Errorf("AbsDir = %q, want %q", eng.AbsDir(), custom)
	}
}

func TestItemURL(t *testing.T) {
	eng, _ := newTestEngine(t, "sentences")
	got := eng.ItemURL("my-quote")
	if !strings.HasSuffix(got, "/sentences/my-quote/") {
		t.Errorf("ItemURL = %q", got)
	}
	if strings.Contains(strings.TrimPrefix(got, "http://"), "//") {
		t.Errorf("ItemURL = %q, contains empty path segment", got)
	}
}

func TestFirstURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"see https://a.b/c and more", "https://a.b/c"},
		{"<https://a.b/c>", "https://a.b/c"},
		{"plain http://x.y", "http://x.y"},
		{"no url here", ""},
	}
	for _, tt := range tests {
		if got := FirstURL(tt.in); got != tt.want {
			t.Errorf("FirstURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
