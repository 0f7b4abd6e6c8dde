package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"legalintel/internal/backend"
	"legalintel/internal/core"
	"legalintel/internal/log"
	"legalintel/internal/services"
	"legalintel/internal/sources"
	"legalintel/internal/sources/memory"
)

var errUpstream = errors.New("upstream unavailable")

type failingReader struct{}

func (failingReader) ReadTimeline(context.Context) (sources.TimelinePayload, error) {
	return sources.TimelinePayload{}, errUpstream
}
func (failingReader) ReadLoanDetails(context.Context) (core.LoanDetails, error) {
	return core.LoanDetails{}, errUpstream
}
func (failingReader) ReadAnalysis(context.Context, core.Perspective) (core.POVAnalysis, error) {
	return core.POVAnalysis{}, errUpstream
}
func (failingReader) ReadFinancials(context.Context) (sources.FinancialPayload, error) {
	return sources.FinancialPayload{}, errUpstream
}
func (failingReader) ReadCaseStatus(context.Context) (core.CaseStatus, error) {
	return core.CaseStatus{}, errUpstream
}

type stubPublisher struct {
	err   error
	calls int
}

func (p *stubPublisher) PublishEventIngest(_ context.Context, _ core.Event, _ string) error {
	p.calls++
	return p.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func memoryBackend() *backend.BackendResult {
	store := memory.New(memory.DefaultFixture())
	return &backend.BackendResult{Type: backend.MemoryBackend, Reader: store, Writer: store}
}

func newTestServer(t *testing.T, b *backend.BackendResult, cfg Config) *Server {
	t.Helper()
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := log.New(log.Config{Output: io.Discard})
	srv, err := NewServer(cfg, logger, b)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestDashboardRenders(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{})

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"ARIBIA LLC Case Intelligence",
		"$100,000",
		"4.66%",
		"$4660.00",
		"118 Days",
		"Temporary Restraining Order",
		"bg-red-500",
		"1/4/2024",
		"$302K",
		"Company records show separate funding",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(body, "Some data could not be loaded") {
		t.Error("dashboard should not report degraded sources")
	}
}

func TestDashboardQuery(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{})

	tests := []struct {
		name    string
		target  string
		want    []string
		notWant []string
	}{
		{
			name:    "legal filter",
			target:  "/?filter=member",
			want:    []string{"Member Withdrawal Dispute", "Temporary Restraining Order"},
			notWant: []string{"ARIBIA LLC Formation</h3>"},
		},
		{
			name:   "perspective",
			target: "/?pov=luisa",
			want:   []string{"Claim rests on disputed capital account balances."},
		},
		{
			name:   "unknown perspective falls back",
			target: "/?pov=nobody",
			want:   []string{"Company records show separate funding"},
		},
		{
			name:   "unmatched filter",
			target: "/?filter=probate",
			want:   []string{"No events to show."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			body := rr.Body.String()
			for _, w := range tt.want {
				if !strings.Contains(body, w) {
					t.Errorf("missing %q", w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(body, w) {
					t.Errorf("unexpected %q", w)
				}
			}
		})
	}
}

func TestDashboardDegradesWhenSourcesFail(t *testing.T) {
	srv := newTestServer(t, &backend.BackendResult{Reader: failingReader{}}, Config{})

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Some data could not be loaded", "No events to show.", "No financial data available.", "$0K"} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestTimelineAPI(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{})

	tests := []struct {
		query string
		want  int
	}{
		{"", 6},
		{"?type=all", 6},
		{"?type=financial", 3},
		{"?type=member", 2},
		{"?type=probate", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, "/api/legal/timeline"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), `"events":[`) {
				t.Fatalf("events must be an array: %s", rr.Body.String())
			}
			got := decode[sources.TimelinePayload](t, rr)
			if len(got.Events) != tt.want {
				t.Fatalf("events = %d, want %d", len(got.Events), tt.want)
			}
		})
	}
}

func TestResourceAPIs(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{})

	t.Run("loan details", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/legal/loan-details", "")
		loan := decode[core.LoanDetails](t, rr)
		if !loan.Principal.Equal(decimal.NewFromInt(100000)) || loan.InterestRate.String() != "4.66" {
			t.Fatalf("loan = %+v", loan)
		}
		if loan.Status != "Active - Under TRO" {
			t.Fatalf("status = %q", loan.Status)
		}
	})

	t.Run("pov analysis", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/legal/pov-analysis/ARIBIA", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		a := decode[core.POVAnalysis](t, rr)
		if a.Perspective != core.PerspectiveAribia || a.StrengthScore != 95 || len(a.Findings) != 4 {
			t.Fatalf("analysis = %+v", a)
		}

		rr = do(t, srv, http.MethodGet, "/api/legal/pov-analysis/nobody", "")
		if rr.Code != http.StatusNotFound {
			t.Fatalf("unknown perspective status = %d", rr.Code)
		}
	})

	t.Run("financial data", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/legal/financial-data", "")
		fin := decode[sources.FinancialPayload](t, rr)
		if len(fin.CapitalContributions) != 2 || len(fin.OutstandingObligations) != 2 {
			t.Fatalf("financials = %+v", fin)
		}
		if fin.Source == "" {
			t.Error("financials should carry a source")
		}
	})

	t.Run("case status", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/legal/case-status", "")
		st := decode[core.CaseStatus](t, rr)
		if st.TRODays != 118 || st.LegalStatus != "Active Litigation" {
			t.Fatalf("case status = %+v", st)
		}
	})

	t.Run("chart", func(t *testing.T) {
		rr := do(t, srv, http.MethodGet, "/api/legal/chart", "")
		chart := decode[services.ChartModel](t, rr)
		want := services.SummaryLabels{InitialCapital: "$120K", TotalContributions: "$302K", ActiveLoan: "$100K"}
		if chart.SummaryLabels != want {
			t.Fatalf("summary = %+v, want %+v", chart.SummaryLabels, want)
		}
		if len(chart.Points) != 2 || chart.Points[1].SecondaryAmount != 100000 {
			t.Fatalf("points = %+v", chart.Points)
		}
	})
}

func TestFetchFailuresReturnErrors(t *testing.T) {
	srv := newTestServer(t, &backend.BackendResult{Reader: failingReader{}}, Config{})

	tests := []struct {
		target string
		msg    string
	}{
		{"/api/legal/timeline", "Failed to fetch timeline data"},
		{"/api/legal/loan-details", "Failed to fetch loan details"},
		{"/api/legal/pov-analysis/legal", "Failed to fetch POV analysis"},
		{"/api/legal/financial-data", "Failed to fetch financial data"},
		{"/api/legal/case-status", "Failed to fetch case status"},
		{"/api/legal/chart", "Failed to fetch financial data"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, "")
			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := decode[errorResponse](t, rr); got.Error != tt.msg {
				t.Fatalf("error = %q, want %q", got.Error, tt.msg)
			}
		})
	}
}

const validEvent = `{"title":"Motion to Dissolve TRO","date":"2024-04-15","type":"member","color":"red","description":"Filed by defense"}`

func TestCreateEventDirectWrite(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{})

	// warm the snapshot cache so the write has something to invalidate
	if n := len(decode[sources.TimelinePayload](t, do(t, srv, http.MethodGet, "/api/legal/timeline", "")).Events); n != 6 {
		t.Fatalf("initial events = %d", n)
	}

	rr := do(t, srv, http.MethodPost, "/api/legal/events", validEvent)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	res := decode[services.IngestResult](t, rr)
	if res.ID != 7 || res.Queued {
		t.Fatalf("result = %+v", res)
	}

	got := decode[sources.TimelinePayload](t, do(t, srv, http.MethodGet, "/api/legal/timeline?type=member", ""))
	if len(got.Events) != 3 {
		t.Fatalf("member events after ingest = %d, want 3", len(got.Events))
	}
}

func TestCreateEventValidation(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"title":`},
		{"unknown field", `{"title":"x","date":"2024-01-01","type":"member","id":9}`},
		{"bad date", `{"title":"x","date":"yesterday","type":"member"}`},
		{"missing title", `{"title":"  ","date":"2024-01-01","type":"member"}`},
		{"missing type", `{"title":"x","date":"2024-01-01"}`},
		{"missing date", `{"title":"x","type":"member"}`},
		{"trailing data", validEvent + `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/legal/events", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestCreateEventIngestPaths(t *testing.T) {
	tests := []struct {
		name      string
		publisher *stubPublisher
		withStore bool
		want      int
	}{
		{"queued", &stubPublisher{}, false, http.StatusAccepted},
		{"publish fails without store", &stubPublisher{err: errUpstream}, false, http.StatusServiceUnavailable},
		{"publish fails falls back to store", &stubPublisher{err: errUpstream}, true, http.StatusCreated},
		{"read-only backend", nil, false, http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &backend.BackendResult{Reader: memory.New(memory.DefaultFixture())}
			if tt.publisher != nil {
				b.Publisher = tt.publisher
			}
			if tt.withStore {
				b.Writer = memory.New(memory.DefaultFixture())
			}
			srv := newTestServer(t, b, Config{})

			rr := do(t, srv, http.MethodPost, "/api/legal/events", validEvent)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.publisher != nil && tt.publisher.calls != 1 {
				t.Fatalf("publish calls = %d", tt.publisher.calls)
			}
		})
	}
}

func TestCreateEventRateLimited(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{RateLimitPerMinute: 1})

	if rr := do(t, srv, http.MethodPost, "/api/legal/events", validEvent); rr.Code != http.StatusCreated {
		t.Fatalf("first status = %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/legal/events", validEvent)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	// reads are not limited
	if rr := do(t, srv, http.MethodGet, "/api/legal/timeline", ""); rr.Code != http.StatusOK {
		t.Fatalf("GET after limit = %d", rr.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		srv := newTestServer(t, memoryBackend(), Config{})
		if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	})

	tests := []struct {
		name   string
		pinger backend.Pinger
		want   int
	}{
		{"no pinger", nil, http.StatusOK},
		{"healthy backend", stubPinger{}, http.StatusOK},
		{"backend down", stubPinger{err: errUpstream}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := memoryBackend()
			b.Pinger = tt.pinger
			srv := newTestServer(t, b, Config{})
			rr := do(t, srv, http.MethodGet, "/readyz", "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	srv := newTestServer(t, memoryBackend(), Config{})

	rr := do(t, srv, http.MethodGet, "/api/legal/case-status", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}

	if rr := do(t, srv, http.MethodGet, "/.env", ""); rr.Code != http.StatusNotFound {
		t.Errorf("probe status = %d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/static/app.css", "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Cache-Control"), "public") {
		t.Errorf("static status = %d, Cache-Control = %q", rr.Code, rr.Header().Get("Cache-Control"))
	}

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	for _, want := range []string{"http_requests_total", "snapshot_cache_hits_total", "suspicious_requests_total 1"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
