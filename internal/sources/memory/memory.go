package memory

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"legalintel/internal/core"
	"legalintel/internal/sources"
)

const fixtureSource = "Local fixture"

var (
	_ sources.Reader      = (*Store)(nil)
	_ sources.EventWriter = (*Store)(nil)
)

type Store struct {
	mu sync.Mutex
	fx Fixture
}

func New(fx Fixture) *Store {
	return &Store{fx: fx}
}

// NewFromFile loads the fixture at path, falling back to DefaultFixture when
// path is empty or unreadable.
func NewFromFile(path string) *Store {
	if path == "" {
		return New(DefaultFixture())
	}
	fx, err := LoadFixture(path)
	if err != nil {
		slog.Warn("Fixture not loaded, using built-in data", "path", path, "error", err)
		return New(DefaultFixture())
	}
	return New(fx)
}

func (s *Store) ReadTimeline(_ context.Context) (sources.TimelinePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sources.TimelinePayload{Events: slices.Clone(s.fx.Events)}, nil
}

func (s *Store) ReadLoanDetails(_ context.Context) (core.LoanDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fx.Loan, nil
}

func (s *Store) ReadCaseStatus(_ context.Context) (core.CaseStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fx.Status, nil
}

// ReadAnalysis returns the stored analysis; perspectives without one get a
// neutral placeholder.
func (s *Store) ReadAnalysis(_ context.Context, p core.Perspective) (core.POVAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.fx.Analyses[p]
	if !ok {
		a = core.POVAnalysis{Analysis: "No analysis recorded for " + p.Label() + " perspective", StrengthScore: 50}
	}
	a.Perspective = p
	a.Findings = slices.Clone(a.Findings)
	if a.Source == "" {
		a.Source = fixtureSource
	}
	if a.LastUpdated.IsZero() {
		a.LastUpdated = s.fx.Loan.LastUpdated
	}
	return a.Normalize(), nil
}

func (s *Store) ReadFinancials(_ context.Context) (sources.FinancialPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sources.FinancialPayload{
		FinancialSeries: core.FinancialSeries{
			CapitalContributions:   cloneSeries(s.fx.Financials.CapitalContributions),
			OutstandingObligations: cloneSeries(s.fx.Financials.OutstandingObligations),
		},
		Source:      fixtureSource,
		LastUpdated: s.fx.Loan.LastUpdated,
	}, nil
}

// cloneSeries copies points; a missing series comes back empty, not nil.
func cloneSeries(points []core.SeriesPoint) []core.SeriesPoint {
	if points == nil {
		return []core.SeriesPoint{}
	}
	return slices.Clone(points)
}

// AppendEvent stores the event with the next free ID.
func (s *Store) AppendEvent(_ context.Context, e core.Event) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var maxID int64
	for _, ev := range s.fx.Events {
		maxID = max(maxID, ev.ID)
	}
	e.ID = maxID + 1
	s.fx.Events = append(s.fx.Events, e)
	return e.ID, nil
}
