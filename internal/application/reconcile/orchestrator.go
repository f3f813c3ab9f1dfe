// Package reconcile runs a batch of booking documents through the one-to-one
// matcher or the ledger candidate selector and persists one result per
// document.
//
// Documents are processed on a bounded pool of workers. A failing document
// is logged and counted; it never stops the rest of the batch. Workers send
// their outcome to a single collector goroutine which owns the summary.
//
// Example usage:
//
//	orch, err := reconcile.NewOrchestrator(reconcile.ConfigFrom(cfg), reconcile.DepsFromRepository(store), logger)
//	summary, err := orch.Run(ctx, reconcile.Options{Mode: model.ModeLedger})
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/gst-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/selector"
)

const tracerName = "github.com/eshaffer321/gst-reconcile/internal/application/reconcile"

// Orchestrator runs reconciliation batches
type Orchestrator struct {
	config  Config
	deps    Deps
	matcher *matcher.Matcher
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewOrchestrator creates a new orchestrator. A non-positive worker count is
// the only configuration error it rejects.
func NewOrchestrator(config Config, deps Deps, logger *slog.Logger) (*Orchestrator, error) {
	if config.Workers <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, config.Workers)
	}
	if deps.Documents == nil {
		return nil, errors.New("reconcile: document source is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("reconcile: result sink is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		config:  config,
		deps:    deps,
		matcher: matcher.NewMatcher(config.Matcher, logger),
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}, nil
}

// Run reconciles one batch. It fails only when the batch cannot start:
// unknown mode, document fetch failure or ledger load failure. A cancelled
// context stops scheduling; documents already running finish.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := o.now()

	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, opts.Mode)
	}

	ctx, span := o.tracer.Start(ctx, "reconcile.Run", trace.WithAttributes(
		attribute.String("reconcile.mode", string(opts.Mode)),
		attribute.Bool("reconcile.dry_run", opts.DryRun),
		attribute.Int("reconcile.workers", o.config.Workers),
	))
	defer span.End()

	o.logger.Debug("Starting reconcile",
		"mode", opts.Mode,
		"workers", o.config.Workers,
		"dry_run", opts.DryRun,
		"document_id", opts.DocumentID,
	)

	// 1. Fetch documents
	docs, err := o.fetchDocuments(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch documents")
		return nil, err
	}

	// 2. Load the ledger once for the whole batch
	var sel *selector.Selector
	if opts.Mode == model.ModeLedger {
		sel, err = o.loadSelector(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "load ledger")
			return nil, err
		}
	}

	summary := &Summary{
		Mode:        opts.Mode,
		DryRun:      opts.DryRun,
		Documents:   len(docs),
		GoodMatches: []model.GoodMatch{},
	}
	summary.RunID = o.startRun(ctx, opts)

	// 3. Fan out one task per document, fan in through the collector
	outcomes := make(chan docOutcome)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		o.collect(summary, outcomes, opts.ProgressCallback)
	}()

	g := new(errgroup.Group)
	g.SetLimit(o.config.Workers)

schedule:
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			o.logger.Warn("Reconcile cancelled, not scheduling remaining documents", "error", ctx.Err())
			break schedule
		default:
		}

		doc := doc
		g.Go(func() error {
			outcomes <- o.processDocument(ctx, opts, sel, doc)
			return nil
		})
	}

	_ = g.Wait()
	close(outcomes)
	<-collected

	sort.Slice(summary.GoodMatches, func(i, j int) bool {
		return summary.GoodMatches[i].DocumentID < summary.GoodMatches[j].DocumentID
	})
	summary.Duration = o.now().Sub(start)

	// 4. Complete run tracking even if the batch was cancelled
	o.completeRun(context.WithoutCancel(ctx), summary)

	span.SetAttributes(
		attribute.Int("reconcile.documents", summary.Documents),
		attribute.Int("reconcile.failed", summary.Failed),
		attribute.Int("reconcile.good_matches", len(summary.GoodMatches)),
	)

	o.logger.Info("Reconcile complete",
		"mode", summary.Mode,
		"documents", summary.Documents,
		"scanned", summary.Scanned,
		"good_matches", len(summary.GoodMatches),
		"matched", summary.Matched,
		"perfect", summary.PerfectMatches,
		"no_match", summary.NoMatches,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("reconcile interrupted: %w", err)
	}
	return summary, nil
}

// fetchDocuments loads the batch and applies the single-document filter
func (o *Orchestrator) fetchDocuments(ctx context.Context, opts Options) ([]model.BookingDocument, error) {
	filter := o.config.DocumentFilter
	if opts.Limit > 0 {
		filter.Limit = opts.Limit
	}

	docs, err := o.deps.Documents.FetchDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}

	if opts.DocumentID != "" {
		var only []model.BookingDocument
		for _, doc := range docs {
			if doc.ID == opts.DocumentID {
				only = append(only, doc)
			}
		}
		o.logger.Debug("Filtered to single document", "document_id", opts.DocumentID, "found", len(only) > 0)
		docs = only
	}

	o.logger.Debug("Fetched documents", "count", len(docs))
	return docs, nil
}

// loadSelector reads the ledger and builds the shared, read-only index
func (o *Orchestrator) loadSelector(ctx context.Context) (*selector.Selector, error) {
	if o.deps.Ledger == nil {
		return nil, errors.New("reconcile: ledger mode needs a ledger source")
	}

	rows, err := o.deps.Ledger.FetchLedger(ctx, o.config.LedgerFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	o.logger.Info("Loaded ledger", "rows", len(rows))
	return selector.New(o.config.Selector, selector.NewLedgerIndex(rows), o.deps.References, o.logger), nil
}

// collect is the only writer of summary
func (o *Orchestrator) collect(summary *Summary, outcomes <-chan docOutcome, progress func(Progress)) {
	for out := range outcomes {
		summary.Scanned += out.scanned

		switch out.disposition {
		case dispositionSkipped:
			summary.Skipped++
		case dispositionFailed:
			summary.Failed++
		default:
			switch out.status {
			case model.StatusPerfectMatch:
				summary.PerfectMatches++
			case model.StatusMatched:
				summary.Matched++
			default:
				summary.NoMatches++
			}
		}

		if out.good != nil {
			summary.GoodMatches = append(summary.GoodMatches, *out.good)
		}

		if progress != nil {
			progress(Progress{
				Total:     summary.Documents,
				Completed: summary.Completed(),
				Failed:    summary.Failed,
			})
		}
	}
}

// startRun records the run; tracking failure shouldn't block the batch
func (o *Orchestrator) startRun(ctx context.Context, opts Options) string {
	if o.deps.Runs == nil {
		return ""
	}
	runID, err := o.deps.Runs.StartRun(ctx, opts.Mode, opts.DryRun)
	if err != nil {
		o.logger.Warn("Failed to start run tracking", "error", err)
		return ""
	}
	return runID
}

func (o *Orchestrator) completeRun(ctx context.Context, summary *Summary) {
	if o.deps.Runs == nil || summary.RunID == "" {
		return
	}
	if err := o.deps.Runs.CompleteRun(ctx, summary.RunID, summary.Totals()); err != nil {
		o.logger.Warn("Failed to complete run tracking", "run_id", summary.RunID, "error", err)
	}
}
