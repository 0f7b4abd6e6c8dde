package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"legalintel/internal/core"
	"legalintel/internal/log"
	"legalintel/internal/sources"
)

// Dashboard is the view model of the main page.
type Dashboard struct {
	Now          time.Time
	Loan         core.LoanDetails
	Status       core.CaseStatus
	Metrics      []core.Metric
	Perspectives []core.PerspectiveOption
	Perspective  core.Perspective
	Analysis     core.POVAnalysis
	Filters      []core.TimelineFilter
	ActiveFilter string
	Events       []core.Event
	Chart        ChartModel
	// Degraded names the resources that fell back to empty values.
	Degraded []string
}

// DashboardService assembles the dashboard from a source.
type DashboardService struct {
	reader  sources.Reader
	timeout time.Duration
}

func NewDashboardService(reader sources.Reader, timeout time.Duration) *DashboardService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DashboardService{reader: reader, timeout: timeout}
}

// Load fetches every resource concurrently and builds the view model for
// perspective and filter at time now. A failed fetch degrades to an empty
// value and is logged; Load itself never fails.
func (s *DashboardService) Load(ctx context.Context, now time.Time, perspective core.Perspective, filter string) Dashboard {
	if _, err := core.ParsePerspective(string(perspective)); err != nil {
		perspective = core.PerspectiveAribia
	}
	if filter == "" {
		filter = core.FilterAll
	}

	var (
		timeline   sources.TimelinePayload
		loan       core.LoanDetails
		status     core.CaseStatus
		analysis   core.POVAnalysis
		financials sources.FinancialPayload
		failed     [5]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(slot int, resource string, f func(context.Context) error) {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			if err := f(fctx); err != nil {
				failed[slot] = true
				log.FromContext(ctx).WarnContext(ctx, "Source fetch failed, using empty value",
					log.LogFields{log.FieldResource: resource}.WithError(err).ToSlice()...)
			}
			// a failed fetch must not cancel the others
			return nil
		})
	}

	fetch(0, "timeline", func(ctx context.Context) (err error) {
		timeline, err = s.reader.ReadTimeline(ctx)
		return err
	})
	fetch(1, "loan-details", func(ctx context.Context) (err error) {
		loan, err = s.reader.ReadLoanDetails(ctx)
		return err
	})
	fetch(2, "case-status", func(ctx context.Context) (err error) {
		status, err = s.reader.ReadCaseStatus(ctx)
		return err
	})
	fetch(3, "pov-analysis", func(ctx context.Context) (err error) {
		analysis, err = s.reader.ReadAnalysis(ctx, perspective)
		return err
	})
	fetch(4, "financial-data", func(ctx context.Context) (err error) {
		financials, err = s.reader.ReadFinancials(ctx)
		return err
	})
	_ = g.Wait()

	names := [5]string{"timeline", "loan-details", "case-status", "pov-analysis", "financial-data"}
	d := Dashboard{
		Now:          now,
		Perspectives: core.Perspectives(),
		Perspective:  perspective,
		Filters:      core.TimelineFilters(),
		ActiveFilter: filter,
		Degraded:     []string{},
	}
	for i, f := range failed {
		if f {
			d.Degraded = append(d.Degraded, names[i])
		}
	}

	if failed[1] {
		loan = core.LoanDetails{}
	}
	if failed[2] {
		status = core.CaseStatus{}
	}
	if failed[3] {
		analysis = core.POVAnalysis{}
	}
	d.Loan = loan
	d.Status = status
	d.Metrics = core.CoreMetrics(loan, status)
	d.Analysis = analysis.Normalize()
	d.Analysis.Perspective = perspective

	if failed[0] {
		timeline.Events = nil
	}
	d.Events = TimelineView(timeline.Events, filter)

	if failed[4] {
		financials = sources.FinancialPayload{}
	}
	d.Chart = BuildChart(financials.FinancialSeries)
	return d
}
