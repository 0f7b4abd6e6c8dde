package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"legalintel/internal/cache"
	"legalintel/internal/core"
	"legalintel/internal/sources"
	"legalintel/internal/sources/memory"
)

// stubReader serves fixed data and counts upstream calls.
type stubReader struct {
	timeline   sources.TimelinePayload
	loan       core.LoanDetails
	status     core.CaseStatus
	financials sources.FinancialPayload
	analyses   map[core.Perspective]core.POVAnalysis

	failTimeline   bool
	failFinancials bool
	delay          time.Duration
	calls          atomic.Int64
}

var errUpstream = errors.New("upstream down")

func (s *stubReader) wait(ctx context.Context) error {
	s.calls.Add(1)
	if s.delay == 0 {
		return nil
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubReader) ReadTimeline(ctx context.Context) (sources.TimelinePayload, error) {
	if err := s.wait(ctx); err != nil {
		return sources.TimelinePayload{}, err
	}
	if s.failTimeline {
		return sources.TimelinePayload{}, errUpstream
	}
	return s.timeline, nil
}

func (s *stubReader) ReadLoanDetails(ctx context.Context) (core.LoanDetails, error) {
	return s.loan, s.wait(ctx)
}

func (s *stubReader) ReadCaseStatus(ctx context.Context) (core.CaseStatus, error) {
	return s.status, s.wait(ctx)
}

func (s *stubReader) ReadAnalysis(ctx context.Context, p core.Perspective) (core.POVAnalysis, error) {
	if err := s.wait(ctx); err != nil {
		return core.POVAnalysis{}, err
	}
	return s.analyses[p], nil
}

func (s *stubReader) ReadFinancials(ctx context.Context) (sources.FinancialPayload, error) {
	if err := s.wait(ctx); err != nil {
		return sources.FinancialPayload{}, err
	}
	if s.failFinancials {
		return sources.FinancialPayload{}, errUpstream
	}
	return s.financials, nil
}

func newStub() *stubReader {
	return &stubReader{
		timeline: sources.TimelinePayload{Events: []core.Event{
			{ID: 1, Title: "Formation", Date: core.NewDate(2022, 8, 1), Type: "formation", Color: core.ColorGreen},
			{ID: 2, Title: "Capital call", Date: core.NewDate(2022, 12, 1), Type: "financial", Color: core.ColorBlue},
			{ID: 3, Title: "TRO", Date: core.NewDate(2024, 1, 4), Type: "member", Color: core.ColorRed},
		}},
		loan: core.LoanDetails{
			Principal:    decimal.NewFromInt(100000),
			InterestRate: decimal.RequireFromString("4.66"),
			Status:       "Active - Under TRO",
		},
		status: core.CaseStatus{TRODays: 118, LegalStatus: "Active Litigation"},
		financials: sources.FinancialPayload{FinancialSeries: core.FinancialSeries{
			CapitalContributions:   []core.SeriesPoint{{Date: "2022", Amount: 120000}, {Date: "2023", Amount: 302000}},
			OutstandingObligations: []core.SeriesPoint{{Date: "2022", Amount: 0}, {Date: "2023", Amount: 100000}},
		}},
		analyses: map[core.Perspective]core.POVAnalysis{
			core.PerspectiveAribia: {Perspective: core.PerspectiveAribia, Analysis: "Strong defense", StrengthScore: 95},
			core.PerspectiveLegal:  {Perspective: core.PerspectiveLegal, Analysis: "Balanced", StrengthScore: 150},
		},
	}
}

func TestTimelineView(t *testing.T) {
	events := newStub().timeline.Events

	tests := []struct {
		filter string
		want   []int64
	}{
		{core.FilterAll, []int64{1, 2, 3}},
		{"financial", []int64{2}},
		{"member", []int64{3}},
		{"bankruptcy", nil},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got := TimelineView(events, tt.filter)
			if got == nil {
				t.Fatal("TimelineView must not return nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestChartView(t *testing.T) {
	got := ChartView(core.FinancialSeries{
		CapitalContributions:   []core.SeriesPoint{{Date: "2022", Amount: 120000}, {Date: "2023", Amount: 302000}},
		OutstandingObligations: []core.SeriesPoint{{Date: "2022", Amount: 0}, {Date: "2023", Amount: 100000}},
	})
	want := []core.TimeSeriesPoint{
		{Date: "2022", PrimaryAmount: 120000, SecondaryAmount: 0},
		{Date: "2023", PrimaryAmount: 302000, SecondaryAmount: 100000},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if pts := ChartView(core.FinancialSeries{}); pts == nil || len(pts) != 0 {
		t.Errorf("empty series should pair to an empty slice, got %#v", pts)
	}
}

func TestBuildChart(t *testing.T) {
	m := BuildChart(newStub().financials.FinancialSeries)

	if m.Empty() {
		t.Fatal("chart should not be empty")
	}
	if m.SummaryLabels != (SummaryLabels{InitialCapital: "$120K", TotalContributions: "$302K", ActiveLoan: "$100K"}) {
		t.Errorf("summary labels = %+v", m.SummaryLabels)
	}
	if got := strings.Count(m.PrimaryPath, ","); got != 2 {
		t.Errorf("primary path should have 2 points: %q", m.PrimaryPath)
	}
	if len(m.XTicks) != 2 || m.XTicks[0].Label != "2022" {
		t.Errorf("x ticks = %+v", m.XTicks)
	}
	if len(m.YTicks) != chartYTicks+1 || m.YTicks[0].Label != "$0K" || m.YTicks[chartYTicks].Label != "$302K" {
		t.Errorf("y ticks = %+v", m.YTicks)
	}

	iso := BuildChart(core.FinancialSeries{CapitalContributions: []core.SeriesPoint{{Date: "2022-01-15", Amount: 5}}})
	if iso.XTicks[0].Label != "Jan 22" {
		t.Errorf("iso axis label = %q", iso.XTicks[0].Label)
	}

	empty := BuildChart(core.FinancialSeries{})
	if !empty.Empty() || empty.SummaryLabels.ActiveLoan != "$0K" || empty.PrimaryPath != "" {
		t.Errorf("empty chart = %+v", empty)
	}
}

func TestCachedReader(t *testing.T) {
	stub := newStub()
	stub.delay = 20 * time.Millisecond
	r := NewCachedReader(stub, cache.NewLRUCache[any](16, time.Minute), time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ReadTimeline(ctx); err != nil {
				t.Errorf("ReadTimeline: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := stub.calls.Load(); n != 1 {
		t.Fatalf("concurrent reads hit upstream %d times, want 1", n)
	}

	if _, err := r.ReadTimeline(ctx); err != nil {
		t.Fatal(err)
	}
	if n := stub.calls.Load(); n != 1 {
		t.Fatalf("cached read hit upstream, calls = %d", n)
	}

	a, _ := r.ReadAnalysis(ctx, core.PerspectiveAribia)
	l, _ := r.ReadAnalysis(ctx, core.PerspectiveLegal)
	if a.Analysis == l.Analysis {
		t.Fatal("analyses must be cached per perspective")
	}

	r.Invalidate()
	before := stub.calls.Load()
	if _, err := r.ReadTimeline(ctx); err != nil {
		t.Fatal(err)
	}
	if stub.calls.Load() != before+1 {
		t.Fatal("Invalidate should force a fresh read")
	}
}

func TestCachedReaderDoesNotCacheErrors(t *testing.T) {
	stub := newStub()
	stub.failFinancials = true
	r := NewCachedReader(stub, cache.NewLRUCache[any](16, time.Minute), time.Second)

	if _, err := r.ReadFinancials(context.Background()); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	stub.failFinancials = false
	if _, err := r.ReadFinancials(context.Background()); err != nil {
		t.Fatalf("error should not be cached: %v", err)
	}
}

// gatedReader takes its first timeline snapshot, then holds it until released.
type gatedReader struct {
	sources.Reader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedReader) ReadTimeline(ctx context.Context) (sources.TimelinePayload, error) {
	p, err := g.Reader.ReadTimeline(ctx)
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return p, err
}

func TestCachedReaderWriteDuringFetch(t *testing.T) {
	store := memory.New(memory.DefaultFixture())
	gated := &gatedReader{Reader: store, started: make(chan struct{}), release: make(chan struct{})}
	r := NewCachedReader(gated, cache.NewLRUCache[any](16, time.Minute), time.Second)
	ctx := context.Background()

	before, err := store.ReadTimeline(ctx)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.ReadTimeline(ctx)
		done <- err
	}()
	<-gated.started

	svc := NewEventService(store, nil, r.Invalidate)
	res, err := svc.Ingest(ctx, core.Event{Title: "Bankruptcy filing", Date: core.NewDate(2024, 2, 1), Type: "member"}, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	close(gated.release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight read: %v", err)
	}

	after, err := r.ReadTimeline(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Events) != len(before.Events)+1 {
		t.Fatalf("event %d written, but read returned %d events, want %d", res.ID, len(after.Events), len(before.Events)+1)
	}
}

func TestCachedReaderSharedFetchOutlivesCaller(t *testing.T) {
	stub := newStub()
	stub.delay = 100 * time.Millisecond
	r := NewCachedReader(stub, cache.NewLRUCache[any](16, time.Minute), time.Second)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.ReadTimeline(first)
		firstErr <- err
	}()
	for stub.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	secondErr := make(chan error, 1)
	go func() {
		p, err := r.ReadTimeline(context.Background())
		if err == nil && len(p.Events) != 3 {
			err = errors.New("unexpected timeline")
		}
		secondErr <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: err = %v, want context.Canceled", err)
	}
	if err := <-secondErr; err != nil {
		t.Fatalf("caller with live context: %v", err)
	}
	if n := stub.calls.Load(); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
}

func TestDashboardService_Load(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	svc := NewDashboardService(newStub(), time.Second)

	d := svc.Load(context.Background(), now, core.PerspectiveLegal, "member")

	if !d.Now.Equal(now) || d.Perspective != core.PerspectiveLegal || d.ActiveFilter != "member" {
		t.Fatalf("dashboard header = %+v", d)
	}
	if len(d.Degraded) != 0 {
		t.Fatalf("unexpected degraded resources: %v", d.Degraded)
	}
	if len(d.Events) != 1 || d.Events[0].Title != "TRO" {
		t.Errorf("events = %+v", d.Events)
	}
	if d.Analysis.StrengthScore != 100 {
		t.Errorf("strength score should be clamped, got %d", d.Analysis.StrengthScore)
	}
	wantMetrics := []string{"$100,000", "4.66%", "118 Days", "Active Litigation"}
	for i, want := range wantMetrics {
		if d.Metrics[i].Value != want {
			t.Errorf("metric %d = %q, want %q", i, d.Metrics[i].Value, want)
		}
	}
	if d.Chart.SummaryLabels.TotalContributions != "$302K" {
		t.Errorf("chart summary = %+v", d.Chart.SummaryLabels)
	}
}

func TestDashboardService_LoadDegrades(t *testing.T) {
	stub := newStub()
	stub.failTimeline = true
	stub.failFinancials = true
	svc := NewDashboardService(stub, time.Second)

	d := svc.Load(context.Background(), time.Now(), "nobody", "")

	if d.Perspective != core.PerspectiveAribia || d.ActiveFilter != core.FilterAll {
		t.Errorf("defaults not applied: %s %s", d.Perspective, d.ActiveFilter)
	}
	if d.Events == nil || len(d.Events) != 0 {
		t.Errorf("failed timeline should render as empty, got %+v", d.Events)
	}
	if !d.Chart.Empty() {
		t.Errorf("failed financials should render an empty chart")
	}
	if strings.Join(d.Degraded, ",") != "timeline,financial-data" {
		t.Errorf("degraded = %v", d.Degraded)
	}
	if d.Metrics[0].Value != "$100,000" {
		t.Errorf("healthy resources should still load: %+v", d.Metrics)
	}
}

func TestDashboardService_LoadTimesOut(t *testing.T) {
	stub := newStub()
	stub.delay = time.Second
	svc := NewDashboardService(stub, 20*time.Millisecond)

	start := time.Now()
	d := svc.Load(context.Background(), start, core.PerspectiveAribia, core.FilterAll)
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("Load should honour the source timeout")
	}
	if len(d.Degraded) != 5 {
		t.Errorf("every resource should be degraded, got %v", d.Degraded)
	}
}

type fakeWriter struct {
	events []core.Event
	err    error
}

func (f *fakeWriter) AppendEvent(_ context.Context, e core.Event) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.events = append(f.events, e)
	return int64(len(f.events)), nil
}

type fakePublisher struct {
	published []core.Event
	err       error
}

func (f *fakePublisher) PublishEventIngest(_ context.Context, e core.Event, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, e)
	return nil
}

func TestEventService_Ingest(t *testing.T) {
	valid := core.Event{Title: " Bankruptcy filing ", Date: core.NewDate(2024, 2, 1), Type: " Member "}

	t.Run("direct write", func(t *testing.T) {
		w := &fakeWriter{}
		changed := 0
		svc := NewEventService(w, nil, func() { changed++ })

		res, err := svc.Ingest(context.Background(), valid, "r1")
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		if res.Queued || res.ID != 1 || changed != 1 {
			t.Fatalf("result = %+v, changed = %d", res, changed)
		}
		if w.events[0].Title != "Bankruptcy filing" || w.events[0].Type != "member" {
			t.Fatalf("event not normalized: %+v", w.events[0])
		}
	})

	t.Run("queued", func(t *testing.T) {
		w, p := &fakeWriter{}, &fakePublisher{}
		res, err := NewEventService(w, p, nil).Ingest(context.Background(), valid, "r2")
		if err != nil || !res.Queued {
			t.Fatalf("result = %+v, err = %v", res, err)
		}
		if len(p.published) != 1 || len(w.events) != 0 {
			t.Fatalf("published %d, written %d", len(p.published), len(w.events))
		}
	})

	t.Run("publish failure falls back to writer", func(t *testing.T) {
		w, p := &fakeWriter{}, &fakePublisher{err: errors.New("circuit breaker is open")}
		res, err := NewEventService(w, p, nil).Ingest(context.Background(), valid, "r3")
		if err != nil || res.Queued || len(w.events) != 1 {
			t.Fatalf("result = %+v, err = %v", res, err)
		}
	})

	t.Run("invalid event", func(t *testing.T) {
		_, err := NewEventService(&fakeWriter{}, nil, nil).Ingest(context.Background(), core.Event{Type: "member"}, "")
		if !errors.Is(err, core.ErrInvalidEvent) {
			t.Fatalf("expected ErrInvalidEvent, got %v", err)
		}
	})

	t.Run("read-only backend", func(t *testing.T) {
		svc := NewEventService(nil, nil, nil)
		if svc.Enabled() {
			t.Fatal("service without writer or publisher should be disabled")
		}
		if _, err := svc.Ingest(context.Background(), valid, ""); !errors.Is(err, ErrIngestUnavailable) {
			t.Fatalf("expected ErrIngestUnavailable, got %v", err)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		_, err := NewEventService(&fakeWriter{err: errors.New("disk full")}, nil, nil).Ingest(context.Background(), valid, "")
		if err == nil || !strings.Contains(err.Error(), "store event") {
			t.Fatalf("err = %v", err)
		}
	})
}
