package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/jobdesk/internal/generator"
	"github.com/JonMunkholm/jobdesk/internal/logging"
	"github.com/JonMunkholm/jobdesk/internal/sheet"
	"github.com/JonMunkholm/jobdesk/internal/source"
	"github.com/JonMunkholm/jobdesk/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidID is returned for fiche IDs that are not UUIDs.
var ErrInvalidID = errors.New("invalid fiche ID")

// FicheGenerator produces fiche and outreach text. Satisfied by
// *generator.Generator.
type FicheGenerator interface {
	Fiche(ctx context.Context, userPrompt string, req sheet.Requisition) (string, error)
	Outreach(ctx context.Context, title, fiche string) (string, error)
}

// Options tune a Service. Zero values pick defaults.
type Options struct {
	// Concurrency is the number of rows generated in parallel (default 4).
	Concurrency int
	// Aliases maps sheet headers to fields (default sheet.DefaultAliases).
	Aliases sheet.AliasTable
	// Limiter gates whole batches (default: one batch, 10s wait).
	Limiter *BatchLimiter
}

// Service provides fiche generation, lookup and export.
type Service struct {
	source      source.Source
	store       store.Store
	gen         FicheGenerator
	aliases     sheet.AliasTable
	concurrency int
	limiter     *BatchLimiter
}

// NewService creates a Service.
func NewService(src source.Source, st store.Store, gen FicheGenerator, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Aliases == nil {
		opts.Aliases = sheet.DefaultAliases
	}
	if opts.Limiter == nil {
		opts.Limiter = NewBatchLimiter(1, 0)
	}
	return &Service{
		source:      src,
		store:       st,
		gen:         gen,
		aliases:     opts.Aliases,
		concurrency: opts.Concurrency,
		limiter:     opts.Limiter,
	}
}

// WaitForBatches blocks until running generation batches finish.
func (s *Service) WaitForBatches(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ActiveBatches returns the number of running generation batches.
func (s *Service) ActiveBatches() int {
	return s.limiter.Active()
}

// Generate fetches the sheet and generates one fiche per non-blank row.
//
// Each fiche is saved as soon as its row completes, so fiches survive an
// interrupted batch. Fiches come back in recency order. A row whose
// completion fails, or that never ran because ctx ended, is listed in
// Failed. Failing to read the sheet returns no result; failing to save a
// fiche stops the remaining rows and returns the partial result with the
// error.
func (s *Service) Generate(ctx context.Context, userPrompt string) (*GenerateResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	started := time.Now()
	log := logging.WithFields(ctx, "source", s.source.Name())

	grid, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}

	reqs := sheet.Requisitions(grid, s.aliases)
	log.Info("generation started", "rows", len(reqs), "concurrency", s.concurrency)

	saved := make([]*store.Fiche, len(reqs))
	errs := make([]error, len(reqs))
	// Completions already paid for are kept even once ctx ends.
	saveCtx := context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			content, err := s.gen.Fiche(gctx, userPrompt, req)
			log.Debug("row generated", "line", req.Line, "ok", err == nil)
			if err != nil {
				errs[i] = err
				return nil
			}

			f := &store.Fiche{
				Title:   req.Get(sheet.FieldTitle, generator.DefaultTitle),
				Content: content,
				Fields:  fieldsOf(req),
				Line:    req.Line,
				Prompt:  userPrompt,
				// Earlier rows are more recent and must list first.
				CreatedAt: started.UTC().Add(time.Duration(len(reqs)-i) * time.Microsecond),
			}
			if err := s.store.SaveFiche(saveCtx, f); err != nil {
				errs[i] = err
				return fmt.Errorf("save fiche for line %d: %w", req.Line, err)
			}
			saved[i] = f
			return nil
		})
	}
	saveErr := g.Wait()

	result := &GenerateResult{Source: s.source.Name(), Rows: len(reqs)}
	for i, req := range reqs {
		if saved[i] != nil {
			result.Fiches = append(result.Fiches, *saved[i])
			continue
		}
		title := req.Get(sheet.FieldTitle, generator.DefaultTitle)
		log.Warn("row failed", "line", req.Line, "title", title, "error", errs[i])
		result.Failed = append(result.Failed, FailedRow{Line: req.Line, Title: title, Reason: errs[i].Error()})
	}

	result.Duration = time.Since(started)
	if saveErr != nil {
		log.Error("generation aborted", "saved", len(result.Fiches), "error", saveErr)
		return result, saveErr
	}
	if err := ctx.Err(); err != nil {
		log.Warn("generation interrupted", "saved", len(result.Fiches), "error", err)
	}
	log.Info("generation finished",
		"generated", len(result.Fiches),
		"failed", len(result.Failed),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func fieldsOf(req sheet.Requisition) map[string]string {
	out := make(map[string]string, len(req.Fields))
	for f, v := range req.Fields {
		if v != "" {
			out[string(f)] = v
		}
	}
	return out
}

// Fiches lists stored fiches, newest first.
func (s *Service) Fiches(ctx context.Context) ([]store.Fiche, error) {
	return s.store.ListFiches(ctx)
}

// Fiche returns one fiche by ID.
func (s *Service) Fiche(ctx context.Context, id string) (store.Fiche, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return store.Fiche{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return s.store.GetFiche(ctx, uid)
}

// Artifacts lists the fiche's sourcing queries and outreach emails, newest first.
func (s *Service) Artifacts(ctx context.Context, id string) ([]store.Artifact, error) {
	f, err := s.Fiche(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.ListArtifacts(ctx, f.ID)
}

// Candidate gathers a fiche with its sourcing query and latest outreach email.
func (s *Service) Candidate(ctx context.Context, id string) (*Candidate, error) {
	f, err := s.Fiche(ctx, id)
	if err != nil {
		return nil, err
	}
	arts, err := s.store.ListArtifacts(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	c := &Candidate{
		Fiche:         f,
		SourcingQuery: generator.SourcingQuery(f.Title, f.Location()),
		Artifacts:     arts,
	}
	for i := range arts {
		if arts[i].Kind == store.KindOutreachEmail {
			c.Outreach = &arts[i]
			break
		}
	}
	return c, nil
}

// SourcingQuery computes the fiche's boolean search string and records it.
func (s *Service) SourcingQuery(ctx context.Context, id string) (store.Artifact, error) {
	f, err := s.Fiche(ctx, id)
	if err != nil {
		return store.Artifact{}, err
	}
	a := store.Artifact{
		FicheID: f.ID,
		Kind:    store.KindSourcingQuery,
		Content: generator.SourcingQuery(f.Title, f.Location()),
	}
	if err := s.store.SaveArtifact(ctx, &a); err != nil {
		return store.Artifact{}, fmt.Errorf("save sourcing query: %w", err)
	}
	return a, nil
}

// Outreach drafts an outreach email for the fiche and records it.
func (s *Service) Outreach(ctx context.Context, id string) (store.Artifact, error) {
	f, err := s.Fiche(ctx, id)
	if err != nil {
		return store.Artifact{}, err
	}
	text, err := s.gen.Outreach(ctx, f.Title, f.Content)
	if err != nil {
		return store.Artifact{}, fmt.Errorf("outreach: %w", err)
	}

	a := store.Artifact{FicheID: f.ID, Kind: store.KindOutreachEmail, Content: text}
	if err := s.store.SaveArtifact(ctx, &a); err != nil {
		return store.Artifact{}, fmt.Errorf("save outreach: %w", err)
	}
	logging.WithFields(ctx, "fiche_id", f.ID).Info("outreach generated")
	return a, nil
}
