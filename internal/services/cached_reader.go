package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"legalintel/internal/cache"
	"legalintel/internal/core"
	"legalintel/internal/sources"
)

// Snapshot cache keys, one per resource.
const (
	keyTimeline   = "timeline"
	keyLoan       = "loan"
	keyFinancials = "financials"
	keyCaseStatus = "case-status"
	keyAnalysis   = "analysis:"
)

var _ sources.Reader = (*CachedReader)(nil)

// defaultFetchTimeout bounds a shared upstream fetch when no timeout is given.
const defaultFetchTimeout = 10 * time.Second

// CachedReader keeps recent source snapshots and collapses concurrent
// identical fetches into one upstream call.
//
// A shared fetch is detached from the caller that started it, so one
// cancelled request does not fail the others waiting on the same flight.
type CachedReader struct {
	next    sources.Reader
	cache   cache.Cache[any]
	group   singleflight.Group
	timeout time.Duration

	mu  sync.Mutex
	gen uint64 // bumped by Invalidate; fetches started earlier never store
}

// NewCachedReader wraps next. timeout bounds each upstream fetch; zero uses
// defaultFetchTimeout.
func NewCachedReader(next sources.Reader, c cache.Cache[any], timeout time.Duration) *CachedReader {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &CachedReader{next: next, cache: c, timeout: timeout}
}

// Invalidate drops every snapshot, so the next read goes to the source.
// Fetches already in flight still answer their callers but are not cached.
func (r *CachedReader) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.cache.Purge()
}

func (r *CachedReader) generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// store caches v unless an Invalidate happened since gen was read.
func (r *CachedReader) store(key string, gen uint64, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen {
		r.cache.Set(key, v)
	}
}

func (r *CachedReader) ReadTimeline(ctx context.Context) (sources.TimelinePayload, error) {
	return load(ctx, r, keyTimeline, r.next.ReadTimeline)
}

func (r *CachedReader) ReadLoanDetails(ctx context.Context) (core.LoanDetails, error) {
	return load(ctx, r, keyLoan, r.next.ReadLoanDetails)
}

func (r *CachedReader) ReadFinancials(ctx context.Context) (sources.FinancialPayload, error) {
	return load(ctx, r, keyFinancials, r.next.ReadFinancials)
}

func (r *CachedReader) ReadCaseStatus(ctx context.Context) (core.CaseStatus, error) {
	return load(ctx, r, keyCaseStatus, r.next.ReadCaseStatus)
}

func (r *CachedReader) ReadAnalysis(ctx context.Context, p core.Perspective) (core.POVAnalysis, error) {
	return load(ctx, r, keyAnalysis+string(p), func(ctx context.Context) (core.POVAnalysis, error) {
		return r.next.ReadAnalysis(ctx, p)
	})
}

// load serves key from the cache or fetches it once for all concurrent callers.
// Errors are never cached.
func load[T any](ctx context.Context, r *CachedReader, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := r.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := r.generation()
	flight := key + "#" + strconv.FormatUint(gen, 10)
	ch := r.group.DoChan(flight, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		t, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		r.store(key, gen, t)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("snapshot %s has type %T", key, res.Val)
		}
		return t, nil
	}
}
