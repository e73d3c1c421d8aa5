// Package pipeline sequences the enrichment stages: ingest listings, persist
// them idempotently, normalize salaries and snippets, then extract keyphrases.
// Stages run strictly in order because each depends on the previous stage's
// rows being durable, and every stage can be re-run safely on its own.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arodionov/vacpipe/internal/model"
	"github.com/arodionov/vacpipe/internal/sanitize"
	"golang.org/x/sync/errgroup"
)

// Pipeline owns the full run: fetch → store → normalize → enrich.
// All collaborators are injected once at construction; there are no package
// globals and no hidden model lifecycle.
type Pipeline struct {
	store     model.VacancyStore
	fetcher   model.ListingFetcher
	converter model.SalaryConverter
	extractor model.KeyphraseExtractor
	workers   int
	logger    *slog.Logger
}

// New creates a Pipeline wired with all its dependencies. workers bounds the
// per-record parallelism of the normalize and enrich stages; values below 1
// mean sequential.
func New(
	store model.VacancyStore,
	fetcher model.ListingFetcher,
	converter model.SalaryConverter,
	extractor model.KeyphraseExtractor,
	workers int,
	logger *slog.Logger,
) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		store:     store,
		fetcher:   fetcher,
		converter: converter,
		extractor: extractor,
		workers:   workers,
		logger:    logger,
	}
}

// Run executes every stage and always returns a Report; no failure escapes
// without a summary. Schema creation failure is the only fatal error. A fetch
// failure after partial collection, and any per-record failure, degrade the
// run to PartialFailure without aborting it.
func (p *Pipeline) Run(ctx context.Context) model.Report {
	report := model.Report{Status: model.StatusSuccess}

	if err := p.store.EnsureSchema(ctx); err != nil {
		p.logger.Error("schema creation failed", "error", err)
		report.Status = model.StatusFailure
		p.logSummary(&report)
		return report
	}

	if err := p.Ingest(ctx, &report); err != nil {
		// Persisting the batch failed; normalize/enrich may still make
		// progress on rows from earlier runs.
		p.logger.Error("ingest stage failed", "error", err)
		report.AddFailure("ingest", "", err)
	}
	if err := p.Normalize(ctx, &report); err != nil {
		p.logger.Error("normalize stage failed", "error", err)
		report.AddFailure("normalize", "", err)
	}
	if err := p.Enrich(ctx, &report); err != nil {
		p.logger.Error("enrich stage failed", "error", err)
		report.AddFailure("enrich", "", err)
	}

	if len(report.Failures) > 0 {
		report.Status = model.StatusPartialFailure
	}
	p.logSummary(&report)
	return report
}

// Ingest fetches listing pages and persists them as one insert-or-ignore
// batch. A fetch failure mid-pagination is recorded but whatever was
// collected before it is still persisted.
func (p *Pipeline) Ingest(ctx context.Context, report *model.Report) error {
	result, fetchErr := p.fetcher.Fetch(ctx)
	report.PagesFetched = result.Pages
	report.Fetched = len(result.Items)
	if fetchErr != nil {
		p.logger.Warn("fetch aborted, persisting partial collection",
			"collected", len(result.Items), "error", fetchErr)
		report.AddFailure("ingest", "", fetchErr)
	}

	inserted, skipped, err := p.store.InsertIgnore(ctx, result.Items)
	if err != nil {
		return fmt.Errorf("persisting batch: %w", err)
	}
	report.Inserted = inserted
	report.DuplicatesSkipped = skipped

	p.logger.Info("ingest complete",
		"pages", result.Pages,
		"fetched", len(result.Items),
		"inserted", inserted,
		"duplicates", skipped,
	)
	return nil
}

// Normalize converts salary bounds to the target currency and sanitizes the
// free-text snippets for every record in the corpus. Each record commits on
// its own; one record's failure is logged, reported and skipped.
func (p *Pipeline) Normalize(ctx context.Context, report *model.Report) error {
	records, err := p.store.SelectForNormalize(ctx)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			salary, err := p.converter.Convert(gCtx, rec)
			if err != nil {
				p.logger.Warn("skipping record, salary conversion failed",
					"id", rec.ID, "error", err)
				mu.Lock()
				report.AddFailure("normalize", rec.ID, err)
				mu.Unlock()
				return nil
			}

			fields := model.NormalizedFields{
				SalaryFrom:            salary.From,
				SalaryTo:              salary.To,
				SalaryCurrency:        salary.Currency,
				SnippetRequirement:    sanitize.CleanPtr(rec.SnippetRequirement),
				SnippetResponsibility: sanitize.CleanPtr(rec.SnippetResponsibility),
			}
			if err := p.store.UpdateNormalized(gCtx, rec.ID, fields); err != nil {
				p.logger.Warn("skipping record, normalize update failed",
					"id", rec.ID, "error", err)
				mu.Lock()
				report.AddFailure("normalize", rec.ID, err)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report.Normalized++
			mu.Unlock()
			return nil
		})
	}

	g.Wait() // workers never return errors; failures are per-record

	p.logger.Info("normalize complete", "records", len(records), "normalized", report.Normalized)
	return nil
}

// Enrich extracts keyphrases for every record still missing them. Same
// per-record failure isolation as Normalize; the shared extractor instance is
// reused across all workers.
func (p *Pipeline) Enrich(ctx context.Context, report *model.Report) error {
	records, err := p.store.SelectForEnrich(ctx)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			requirement, responsibility, err := p.extractPair(gCtx, rec)
			if err == nil {
				err = p.store.UpdateKeyphrases(gCtx, rec.ID, requirement, responsibility)
			}
			if err != nil {
				p.logger.Warn("skipping record, enrichment failed", "id", rec.ID, "error", err)
				mu.Lock()
				report.AddFailure("enrich", rec.ID, err)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			report.Enriched++
			mu.Unlock()
			return nil
		})
	}

	g.Wait()

	p.logger.Info("enrich complete", "records", len(records), "enriched", report.Enriched)
	return nil
}

func (p *Pipeline) logSummary(report *model.Report) {
	p.logger.Info("run summary",
		"status", report.Status,
		"pages", report.PagesFetched,
		"fetched", report.Fetched,
		"inserted", report.Inserted,
		"duplicates", report.DuplicatesSkipped,
		"normalized", report.Normalized,
		"enriched", report.Enriched,
		"failures", len(report.Failures),
	)
	for _, f := range report.Failures {
		p.logger.Warn("record failure", "stage", f.Stage, "id", f.VacancyID, "error", f.Err)
	}
}

// extractPair runs keyphrase extraction over both snippets. Snippets are
// cleaned here before extraction: records without a lower salary bound never
// pass through the normalize stage, so their stored snippets may still carry
// raw markup. Clean is idempotent, so already-sanitized text is unchanged.
// Nil snippets extract to empty strings, which still marks the record as
// processed.
func (p *Pipeline) extractPair(ctx context.Context, rec model.Vacancy) (requirement, responsibility string, err error) {
	requirement, err = p.extractor.Extract(ctx, sanitize.Clean(deref(rec.SnippetRequirement)))
	if err != nil {
		return "", "", err
	}
	responsibility, err = p.extractor.Extract(ctx, sanitize.Clean(deref(rec.SnippetResponsibility)))
	if err != nil {
		return "", "", err
	}
	return requirement, responsibility, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
