package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/eshaffer321/gst-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, mode string, dryRun bool) {
	run := "PRODUCTION"
	if dryRun {
		run = "DRY-RUN"
	}
	fmt.Fprintf(w, "gst-reconcile: %s (%s mode)\n", mode, run)
}

// PrintConfiguration prints the batch configuration
func PrintConfiguration(w io.Writer, cfg reconcile.Config, opts reconcile.Options) {
	fmt.Fprintf(w, "Mode: %s | Workers: %d", opts.Mode, cfg.Workers)
	if opts.DocumentID != "" {
		fmt.Fprintf(w, " | Document: %s", opts.DocumentID)
	} else {
		limit := cfg.DocumentFilter.Limit
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if limit > 0 {
			fmt.Fprintf(w, " | Limit: %d", limit)
		}
	}
	fmt.Fprint(w, "\n\n")
}

// PrintSummary prints the run summary, the good ledger matches and, when
// stats is not nil, the all-time statistics.
func PrintSummary(w io.Writer, summary *reconcile.Summary, stats *storage.Stats) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Documents=%d Matched=%d Perfect=%d NoMatch=%d Skipped=%d Failed=%d (%s)\n",
		summary.Documents,
		summary.Matched,
		summary.PerfectMatches,
		summary.NoMatches,
		summary.Skipped,
		summary.Failed,
		summary.Duration.Round(time.Millisecond))

	if summary.Scanned > 0 {
		fmt.Fprintf(w, "Ledger rows scanned: %d\n", summary.Scanned)
	}

	if len(summary.GoodMatches) > 0 {
		fmt.Fprintln(w, "\nGood matches:")
		for _, gm := range summary.GoodMatches {
			fmt.Fprintf(w, "  - %s  score=%.2f  invoice=%s  against=%s\n",
				gm.DocumentID,
				gm.MaxScore,
				gm.Invoice.InvoiceNumber,
				gm.Against.InvoiceNumber)
		}
	}

	if stats != nil && stats.TotalResults > 0 {
		fmt.Fprintf(w, "\nAll-Time Stats: Results=%d Matched=%d Perfect=%d NoMatch=%d AvgScore=%.1f\n",
			stats.TotalResults,
			stats.MatchedCount,
			stats.PerfectCount,
			stats.NoMatchCount,
			stats.AverageMaxScore)

		modes := make([]string, 0, len(stats.ModeStats))
		for mode := range stats.ModeStats {
			modes = append(modes, mode)
		}
		sort.Strings(modes)
		for _, mode := range modes {
			ms := stats.ModeStats[mode]
			fmt.Fprintf(w, "  %s: %d results, %d matched, avg %.1f\n", mode, ms.Count, ms.MatchedCount, ms.AverageScore)
		}
	}

	if summary.DryRun {
		fmt.Fprintln(w, "\nDry run: no results were written.")
	} else if summary.Failed == 0 {
		fmt.Fprintln(w, "\nReconcile completed successfully.")
	} else {
		fmt.Fprintf(w, "\nReconcile completed with %d failed documents.\n", summary.Failed)
	}
}
