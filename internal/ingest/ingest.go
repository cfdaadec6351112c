// Package ingest turns inbox email into collection items: fetch,
// deduplicate, classify, create, push, archive.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/slug"
	"github.com/starford/ansuz/internal/vcs"
)

// Mode selects how candidates are classified and whether files are
// written at all.
type Mode string

const (
	// ModeAuto classifies every candidate with the AI agent, then
	// creates all of them after one confirmation.
	ModeAuto Mode = "auto"
	// ModeInteractive asks the user to pick a collection per candidate.
	ModeInteractive Mode = "interactive"
	// ModeDryRun classifies and reports without writing anything.
	ModeDryRun Mode = "dry-run"
)

// SkipCollection is the sentinel choice that drops a candidate.
const SkipCollection = "skip"

// Fetcher is the mail collaborator surface the puller needs.
type Fetcher interface {
	Search(ctx context.Context, address string, max int) ([]models.EmailCandidate, error)
	Archive(ctx context.Context, id string) error
}

// Classifier resolves a candidate to a collection name.
type Classifier interface {
	Classify(ctx context.Context, candidate models.EmailCandidate, reg *registry.Registry, fallback string) (string, error)
}

// Pusher commits and pushes created files.
type Pusher interface {
	CommitAndPush(ctx context.Context, paths []string, message string) error
}

// EngineFactory builds a collection engine for a config.
type EngineFactory func(cfg *registry.CollectionConfig) (*collection.Engine, error)

// Classified pairs a candidate with its resolved collection.
type Classified struct {
	Candidate  models.EmailCandidate
	Collection string
	Duplicate  bool
}

// Hooks let the command layer drive the interactive parts. Any nil hook
// falls back to a non-interactive default.
type Hooks struct {
	// Display shows one candidate with its classification.
	Display func(c Classified, index, total int)
	// Choose picks a collection for one candidate in interactive mode.
	// Returning SkipCollection or ok=false drops the candidate.
	Choose func(candidate models.EmailCandidate, names []string) (string, bool)
	// Confirm approves the batch before creation in auto mode.
	Confirm func(batch []Classified) bool
}

// Summary reports what a pull did.
type Summary struct {
	Fetched int
	Created int
	Skipped int
}

// Puller orchestrates one pull operation.
type Puller struct {
	reg        *registry.Registry
	fetcher    Fetcher
	classifier Classifier
	factory    EngineFactory
	gitFor     func(dir string) Pusher
	logger     *slog.Logger
	address    string
	max        int
	fallback   string
}

func New(
	reg *registry.Registry,
	fetcher Fetcher,
	classifier Classifier,
	factory EngineFactory,
	gitFor func(dir string) Pusher,
	logger *slog.Logger,
	address string,
	max int,
	fallback string,
) *Puller {
	return &Puller{
		reg:        reg,
		fetcher:    fetcher,
		classifier: classifier,
		factory:    factory,
		gitFor:     gitFor,
		logger:     logger,
		address:    address,
		max:        max,
		fallback:   fallback,
	}
}

// Pull fetches candidates and processes them per mode. Candidates whose
// slug already exists in some collection are flagged duplicate and
// skipped before classification.
func (p *Puller) Pull(ctx context.Context, mode Mode, hooks Hooks) (Summary, error) {
	var sum Summary

	candidates, err := p.fetcher.Search(ctx, p.address, p.max)
	if err != nil {
		return sum, err
	}
	sum.Fetched = len(candidates)
	if len(candidates) == 0 {
		return sum, nil
	}

	switch mode {
	case ModeInteractive:
		return p.pullInteractive(ctx, candidates, hooks, sum)
	case ModeAuto, ModeDryRun:
		return p.pullClassified(ctx, mode, candidates, hooks, sum)
	default:
		return sum, fmt.Errorf("unknown pull mode %q: %w", mode, apperr.ErrValidation)
	}
}

func (p *Puller) pullClassified(ctx context.Context, mode Mode, candidates []models.EmailCandidate, hooks Hooks, sum Summary) (Summary, error) {
	batch := make([]Classified, 0, len(candidates))
	for i, candidate := range candidates {
		entry := Classified{Candidate: candidate}
		if dup, err := p.slugTaken(candidate.Subject); err != nil {
			return sum, err
		} else if dup {
			entry.Duplicate = true
		} else {
			name, err := p.classifier.Classify(ctx, candidate, p.reg, p.fallback)
			if err != nil {
				return sum, err
			}
			entry.Collection = name
		}
		if hooks.Display != nil {
			hooks.Display(entry, i+1, len(candidates))
		}
		batch = append(batch, entry)
	}

	if mode == ModeDryRun {
		sum.Skipped = len(batch)
		return sum, nil
	}
	if hooks.Confirm != nil && !hooks.Confirm(batch) {
		sum.Skipped = len(batch)
		return sum, apperr.ErrCancelled
	}

	for _, entry := range batch {
		if entry.Duplicate {
			sum.Skipped++
			continue
		}
		if p.createOne(ctx, entry.Candidate, entry.Collection) {
			sum.Created++
		} else {
			sum.Skipped++
		}
	}
	return sum, nil
}

func (p *Puller) pullInteractive(ctx context.Context, candidates []models.EmailCandidate, hooks Hooks, sum Summary) (Summary, error) {
	if hooks.Choose == nil {
		return sum, fmt.Errorf("interactive pull needs a chooser: %w", apperr.ErrValidation)
	}
	names := p.reg.Names()
	for i, candidate := range candidates {
		if hooks.Display != nil {
			hooks.Display(Classified{Candidate: candidate}, i+1, len(candidates))
		}
		name, ok := hooks.Choose(candidate, names)
		if !ok || name == SkipCollection {
			sum.Skipped++
			continue
		}
		if p.reg.Get(name) == nil {
			return sum, fmt.Errorf("collection %q: %w", name, apperr.ErrUnknownCollection)
		}
		if p.createOne(ctx, candidate, name) {
			sum.Created++
		} else {
			sum.Skipped++
		}
	}
	return sum, nil
}

// createOne writes the item, pushes it and archives the source email.
// A failed push leaves the file on disk and counts the candidate as
// skipped; the email stays in the inbox for a retry.
func (p *Puller) createOne(ctx context.Context, candidate models.EmailCandidate, name string) bool {
	eng, err := p.factory(p.reg.Get(name))
	if err != nil {
		p.logger.Error("engine construction failed", "collection", name, "error", err)
		return false
	}
	item, err := eng.Ingest(candidate)
	if err != nil {
		p.logger.Error("ingest failed", "collection", name, "subject", candidate.Subject, "error", err)
		return false
	}

	message := vcs.CommitMessage("New", name, candidate.Subject)
	git := p.gitFor(eng.Store().Root())
	if err := git.CommitAndPush(ctx, []string{item.Path}, message); err != nil {
		p.logger.Error("push failed, file kept on disk", "path", item.Path, "error", err)
		return false
	}

	if err := p.fetcher.Archive(ctx, candidate.MessageID); err != nil {
		p.logger.Warn("archive failed", "message_id", candidate.MessageID, "error", err)
	}
	return true
}

// slugTaken reports whether a subject's slug already exists in any
// collection.
func (p *Puller) slugTaken(subject string) (bool, error) {
	s := slug.Default(subject)
	if s == "" {
		return false, nil
	}
	for _, name := range p.reg.Names() {
		eng, err := p.factory(p.reg.Get(name))
		if err != nil {
			return false, err
		}
		if eng.Exists(s) {
			return true, nil
		}
	}
	return false, nil
}
