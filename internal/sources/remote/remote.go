// Package remote reads case data from an upstream service that exposes the
// same /api/legal resources this server does.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"legalintel/internal/core"
	"legalintel/internal/sources"
)

var _ sources.Reader = (*Client)(nil)

// ErrStatus is wrapped by errors for non-2xx upstream responses.
var ErrStatus = errors.New("unexpected upstream status")

type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

// New creates a client for baseURL (e.g. https://legal.example.com).
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url scheme %q: must be http or https", u.Scheme)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "legalintel",
			MaxConnsPerHost:     32,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
	}, nil
}

// getJSON fetches path and decodes the body into dst. The deadline is the
// earlier of ctx's deadline and the client timeout.
func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("get %s: %w %d", path, ErrStatus, code)
	}
	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) ReadTimeline(ctx context.Context) (sources.TimelinePayload, error) {
	var p sources.TimelinePayload
	if err := c.getJSON(ctx, "/api/legal/timeline", &p); err != nil {
		return sources.TimelinePayload{}, err
	}
	if p.Events == nil {
		p.Events = []core.Event{}
	}
	return p, nil
}

func (c *Client) ReadLoanDetails(ctx context.Context) (core.LoanDetails, error) {
	var l core.LoanDetails
	if err := c.getJSON(ctx, "/api/legal/loan-details", &l); err != nil {
		return core.LoanDetails{}, err
	}
	return l, nil
}

func (c *Client) ReadAnalysis(ctx context.Context, p core.Perspective) (core.POVAnalysis, error) {
	var a core.POVAnalysis
	if err := c.getJSON(ctx, "/api/legal/pov-analysis/"+url.PathEscape(string(p)), &a); err != nil {
		return core.POVAnalysis{}, err
	}
	a.Perspective = p
	return a.Normalize(), nil
}

// ReadFinancials treats missing sequences as empty ones.
func (c *Client) ReadFinancials(ctx context.Context) (sources.FinancialPayload, error) {
	var f sources.FinancialPayload
	if err := c.getJSON(ctx, "/api/legal/financial-data", &f); err != nil {
		return sources.FinancialPayload{}, err
	}
	if f.CapitalContributions == nil {
		f.CapitalContributions = []core.SeriesPoint{}
	}
	if f.OutstandingObligations == nil {
		f.OutstandingObligations = []core.SeriesPoint{}
	}
	return f, nil
}

func (c *Client) ReadCaseStatus(ctx context.Context) (core.CaseStatus, error) {
	var s core.CaseStatus
	if err := c.getJSON(ctx, "/api/legal/case-status", &s); err != nil {
		return core.CaseStatus{}, err
	}
	return s, nil
}
