package storage

import (
	"context"
	"fmt"
	"log/slog"

	"legalintel/internal/core"
)

// Seed is the initial data set written into an empty database.
type Seed struct {
	Events     []core.Event
	Loan       core.LoanDetails
	Status     core.CaseStatus
	Financials core.FinancialSeries
	Analyses   []core.POVAnalysis
}

// SeedIfEmpty writes seed when the events table is empty. It reports whether
// anything was written.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, seed Seed) (bool, error) {
	n, err := r.CountEvents(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	for _, e := range core.SortChronological(seed.Events) {
		if _, err := r.AppendEvent(ctx, e); err != nil {
			return false, fmt.Errorf("seed event %q: %w", e.Title, err)
		}
	}
	if err := r.ReplaceFinancials(ctx, seed.Financials); err != nil {
		return false, fmt.Errorf("seed financials: %w", err)
	}
	if err := r.SaveLoanDetails(ctx, seed.Loan); err != nil {
		return false, fmt.Errorf("seed loan: %w", err)
	}
	if err := r.SaveCaseStatus(ctx, seed.Status); err != nil {
		return false, fmt.Errorf("seed case status: %w", err)
	}
	for _, a := range seed.Analyses {
		if err := r.SaveAnalysis(ctx, a); err != nil {
			return false, fmt.Errorf("seed analysis: %w", err)
		}
	}

	slog.InfoContext(ctx, "Seeded empty database",
		"events", len(seed.Events),
		"contributions", len(seed.Financials.CapitalContributions),
		"analyses", len(seed.Analyses))
	return true, nil
}
