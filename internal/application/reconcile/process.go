package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eshaffer321/gst-reconcile/internal/domain/model"
	"github.com/eshaffer321/gst-reconcile/internal/domain/selector"
)

// processDocument reconciles one document. It never returns an error; the
// outcome carries the disposition the collector counts.
func (o *Orchestrator) processDocument(ctx context.Context, opts Options, sel *selector.Selector, doc model.BookingDocument) docOutcome {
	ctx, span := o.tracer.Start(ctx, "reconcile.Document", trace.WithAttributes(
		attribute.String("document.id", doc.ID),
		attribute.Int("document.bookings", len(doc.Bookings)),
	))
	defer span.End()

	out := o.reconcileDocument(ctx, opts, sel, doc)
	out.documentID = doc.ID

	switch out.disposition {
	case dispositionSkipped:
		o.logger.Warn("Skipping document", "document_id", doc.ID, "reason", out.err)
		span.SetAttributes(attribute.String("reconcile.disposition", "skipped"))
	case dispositionFailed:
		o.logger.Error("Document failed", "document_id", doc.ID, "error", out.err)
		span.RecordError(out.err)
		span.SetStatus(codes.Error, "document failed")
	default:
		span.SetAttributes(attribute.String("reconcile.status", string(out.status)))
	}

	return out
}

func (o *Orchestrator) reconcileDocument(ctx context.Context, opts Options, sel *selector.Selector, doc model.BookingDocument) docOutcome {
	if err := doc.Validate(); err != nil {
		return docOutcome{disposition: dispositionSkipped, err: err}
	}
	// Pairing needs at least one invoice; ledger mode reports its own reason
	if opts.Mode == model.ModeOneToOne && len(doc.InvoiceCandidates()) == 0 {
		return docOutcome{
			disposition: dispositionSkipped,
			err:         fmt.Errorf("%w: document %s has no invoices", model.ErrMalformedDocument, doc.ID),
		}
	}

	if err := o.enrich(ctx, &doc, opts.DryRun); err != nil {
		return docOutcome{disposition: dispositionFailed, err: err}
	}

	var result model.MatchResult
	out := docOutcome{}

	switch opts.Mode {
	case model.ModeLedger:
		outcome, err := o.selectCandidates(ctx, sel, doc)
		if err != nil {
			if errors.Is(err, selector.ErrInvalidAmount) || errors.Is(err, ErrNoParsedInvoice) {
				return docOutcome{disposition: dispositionSkipped, err: err}
			}
			return docOutcome{disposition: dispositionFailed, err: err}
		}
		result = outcome.Result
		out.scanned = outcome.Windowed
		out.good = outcome.Good

		if outcome.Good != nil {
			o.logger.Info("Good match",
				"document_id", doc.ID,
				"max_score", outcome.Good.MaxScore,
				"invoice_number", outcome.Good.Invoice.InvoiceNumber,
				"ledger_invoice", outcome.Good.Against.InvoiceNumber,
			)
		}

	default:
		result = o.pairDocument(doc)
	}

	out.status = result.Status

	if opts.DryRun {
		o.logger.Debug("Dry run, not persisting result", "document_id", doc.ID, "status", result.Status)
		return out
	}

	if err := o.deps.Sink.UpsertResult(ctx, result); err != nil {
		out.disposition = dispositionFailed
		out.err = fmt.Errorf("failed to persist result: %w", err)
		return out
	}

	o.logger.Debug("Reconciled document",
		"document_id", doc.ID,
		"status", result.Status,
		"max_score", result.MaxScore,
	)
	return out
}

// pairDocument runs the one-to-one matcher over a document
func (o *Orchestrator) pairDocument(doc model.BookingDocument) model.MatchResult {
	res := o.matcher.Match(doc.Bookings, doc.InvoiceCandidates())

	result := model.MatchResult{
		DocumentID: doc.ID,
		Mode:       model.ModeOneToOne,
		Status:     model.StatusNoMatch,
		Pairings:   res.Pairings,
		UpdatedAt:  o.now().UTC(),
	}

	for _, p := range res.Pairings {
		if p.Matched() && p.Score != nil && *p.Score > result.MaxScore {
			result.MaxScore = *p.Score
		}
	}
	if res.Matched > 0 {
		result.Status = model.StatusMatched
	}

	if res.SkippedPairs > 0 {
		o.logger.Debug("Pairs left unscored", "document_id", doc.ID, "skipped_pairs", res.SkippedPairs)
	}
	return result
}

// selectCandidates looks up the document's first parsed invoice in the ledger
func (o *Orchestrator) selectCandidates(ctx context.Context, sel *selector.Selector, doc model.BookingDocument) (selector.Outcome, error) {
	for _, invoice := range doc.InvoiceCandidates() {
		details, ok := selector.DetailsFor(invoice)
		if !ok {
			continue
		}
		return sel.Select(ctx, doc.ID, details)
	}
	return selector.Outcome{}, ErrNoParsedInvoice
}

// enrich parses linked invoices that arrived without parsed fields. Any
// enrichment failure ends the document.
func (o *Orchestrator) enrich(ctx context.Context, doc *model.BookingDocument, dryRun bool) error {
	if o.deps.Enricher == nil {
		return nil
	}

	// The batch slice is shared; enrich a private copy
	doc.Invoices = append([]model.InvoiceEvent(nil), doc.Invoices...)

	enriched := 0
	for i := range doc.Invoices {
		invoice := &doc.Invoices[i]
		if invoice.Status() != model.InvoiceInvalidLink {
			continue
		}

		parsed, status, err := o.deps.Enricher.Enrich(ctx, *invoice)
		if err != nil {
			return fmt.Errorf("%w: invoice %s: %w", ErrEnrichmentFailed, invoice.InvoiceNo, err)
		}
		if status != EnrichSucceeded {
			return fmt.Errorf("%w: invoice %s: status %s", ErrEnrichmentFailed, invoice.InvoiceNo, status)
		}

		invoice.Parsed = &parsed
		enriched++
	}

	if enriched == 0 || dryRun {
		return nil
	}

	o.logger.Debug("Enriched invoices", "document_id", doc.ID, "count", enriched)
	if saver, ok := o.deps.Documents.(DocumentSaver); ok {
		if err := saver.SaveDocument(ctx, *doc); err != nil {
			o.logger.Warn("Failed to store enriched document", "document_id", doc.ID, "error", err)
		}
	}
	return nil
}
