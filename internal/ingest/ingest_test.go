package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/models"
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
`

type fakeFetcher struct {
	candidates []models.EmailCandidate
	searchErr  error
	archived   []string
}

func (f *fakeFetcher) Search(ctx context.Context, address string, max int) ([]models.EmailCandidate, error) {
	return f.candidates, f.searchErr
}

func (f *fakeFetcher) Archive(ctx context.Context, id string) error {
	f.archived = append(f.archived, id)
	return nil
}

type fakeClassifier struct {
	answers map[string]string
	calls   int
}

func (f *fakeClassifier) Classify(ctx context.Context, c models.EmailCandidate, reg *registry.Registry, fallback string) (string, error) {
	f.calls++
	if name, ok := f.answers[c.Subject]; ok {
		return name, nil
	}
	return fallback, nil
}

type fakePusher struct {
	pushed [][]string
	err    error
}

func (f *fakePusher) CommitAndPush(ctx context.Context, paths []string, message string) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, paths)
	return nil
}

type fixture struct {
	puller     *Puller
	fetcher    *fakeFetcher
	classifier *fakeClassifier
	pusher     *fakePusher
	project    string
}

func newFixture(t *testing.T, candidates []models.EmailCandidate) *fixture {
	t.Helper()
	reg, err := registry.Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}
	project := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engines := make(map[string]*collection.Engine)
	factory := func(cfg *registry.CollectionConfig) (*collection.Engine, error) {
		if eng, ok := engines[cfg.Name]; ok {
			return eng, nil
		}
		eng, err := collection.NewEngine(cfg, project, "http://localhost:4000", logger,
			collection.WithDir(filepath.Join(project, cfg.DirName)))
		if err != nil {
			return nil, err
		}
		engines[cfg.Name] = eng
		return eng, nil
	}

	f := &fixture{
		fetcher:    &fakeFetcher{candidates: candidates},
		classifier: &fakeClassifier{answers: map[string]string{}},
		pusher:     &fakePusher{},
		project:    project,
	}
	f.puller = New(reg, f.fetcher, f.classifier, factory,
		func(dir string) Pusher { return f.pusher },
		logger, "notes@example.com", 50, "random")
	return f
}

func TestPullAutoCreatesAndArchives(t *testing.T) {
	f := newFixture(t, []models.EmailCandidate{
		{MessageID: "m1", Subject: "A wise quote", Body: "so wise", Date: "2025-03-01T09:00:00-05:00"},
		{MessageID: "m2", Subject: "Nice site", Body: "see https://example.com", Date: "2025-03-01T10:00:00-05:00"},
	})
	f.classifier.answers["A wise quote"] = "sentences"
	f.classifier.answers["Nice site"] = "links"

	sum, err := f.puller.Pull(context.Background(), ModeAuto, Hooks{})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if sum.Created != 2 || sum.Skipped != 0 || sum.Fetched != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(f.project, "_sentences", "a-wise-quote.md")); err != nil {
		t.Error("sentences item not written")
	}
	if _, err := os.Stat(filepath.Join(f.project, "_links", "nice-site.md")); err != nil {
		t.Error("links item not written")
	}
	if len(f.fetcher.archived) != 2 {
		t.Errorf("archived = %v", f.fetcher.archived)
	}
	if len(f.pusher.pushed) != 2 {
		t.Errorf("pushed = %v", f.pusher.pushed)
	}
}

func TestPullAutoSkipsExistingSlugs(t *testing.T) {
	f := newFixture(t, []models.EmailCandidate{
		{MessageID: "m1", Subject: "Already Here", Body: "dup"},
	})
	dir := filepath.Join(f.project, "_random")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "already-here.md"), []byte("---\ntitle: x\n---\n\n"), 0o644)

	sum, err := f.puller.Pull(context.Background(), ModeAuto, Hooks{})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if sum.Created != 0 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if f.classifier.calls != 0 {
		t.Error("duplicate candidate should not reach the classifier")
	}
	if len(f.fetcher.archived) != 0 {
		t.Error("skipped candidate must stay in the inbox")
	}
}

func TestPullAutoDeclinedConfirm(t *testing.T) {
	f := newFixture(t, []models.EmailCandidate{
		{MessageID: "m1", Subject: "A thought", Body: "hm"},
	})
	sum, err := f.puller.Pull(context.Background(), ModeAuto, Hooks{
		Confirm: func([]Classified) bool { return false },
	})
	if !errors.Is(err, apperr.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if sum.Created != 0 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	entries, _ := os.ReadDir(filepath.Join(f.project, "_random"))
	if len(entries) != 0 {
		t.Error("declined batch wrote files")
	}
}

func TestPullDryRunWritesNothing(t *testing.T) {
	f := newFixture(t, []models.EmailCandidate{
		{MessageID: "m1", Subject: "A thought", Body: "hm"},
	})
	var displayed []Classified
	sum, err := f.puller.Pull(context.Background(), ModeDryRun, Hooks{
		Display: func(c Classified, i, n int) { displayed = append(displayed, c) },
	})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if sum.Created != 0 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(displayed) != 1 || displayed[0].Collection != "random" {
		t.Errorf("displayed = %+v", displayed)
	}
	if len(f.pusher.pushed) != 0 || len(f.fetcher.archived) != 0 {
		t.Error("dry run must not push or archive")
	}
}

func TestPullInteractive(t *testing.T) {
	f := newFixture(t, []models.EmailCandidate{
		{MessageID: "m1", Subject: "Keep this", Body: "yes"},
		{MessageID: "m2", Subject: "Drop this", Body: "no"},
	})
	sum, err := f.puller.Pull(context.Background(), ModeInteractive, Hooks{
		Choose: func(c models.EmailCandidate, names []string) (string, bool) {
			if strings.HasPrefix(c.Subject, "Keep") {
				return "sentences", true
			}
			return SkipCollection, true
		},
	})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if sum.Created != 1 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if f.classifier.calls != 0 {
		t.Error("interactive mode should not call the classifier")
	}
}

func TestPullFailedPushKeepsFileAndEmail(t *testing.T) {
	f := newFixture(t, []models.EmailCandidate{
		{MessageID: "m1", Subject: "A thought", Body: "hm"},
	})
	f.pusher.err = errors.New("remote rejected")

	sum, err := f.puller.Pull(context.Background(), ModeAuto, Hooks{})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if sum.Created != 0 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(f.project, "_random", "a-thought.md")); err != nil {
		t.Error("file should remain after failed push")
	}
	if len(f.fetcher.archived) != 0 {
		t.Error("email must not be archived after failed push")
	}
}

func TestPullEmptyInbox(t *testing.T) {
	f := newFixture(t, nil)
	sum, err := f.puller.Pull(context.Background(), ModeAuto, Hooks{})
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if sum.Fetched != 0 || sum.Created != 0 {
		t.Errorf("summary = %+v", sum)
	}
}
