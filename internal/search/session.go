// Package search accumulates paged search results behind a continuation
// token, capped at a configurable result budget.
package search

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bashir0609/surfe-toolkit/internal/enrich"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

// DefaultMaxResults caps accumulation per session; the vendor's daily search
// quota is in the same range so loading more rarely makes sense.
const DefaultMaxResults = 2000

// DefaultPageSize is the per-page result limit.
const DefaultPageSize = 200

// FetchFunc loads one page for the given continuation token ("" for the
// first page) and returns the results plus the next token, if any.
type FetchFunc func(ctx context.Context, token string) ([]surfe.Entity, string, error)

// Session accumulates pages fetched with immutable criteria. Accumulation is
// monotonic: the total only grows until Reset. A Session is confined to one
// user session and must not be used from concurrent goroutines.
type Session struct {
	fetch      FetchFunc
	maxResults int

	results   []surfe.Entity
	nextToken string
	total     int
	started   bool
	exhausted bool
}

// Option configures a Session.
type Option func(*Session)

// WithMaxResults overrides the accumulation cap.
func WithMaxResults(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// NewSession creates a pagination session over a page fetcher.
func NewSession(fetch FetchFunc, opts ...Option) *Session {
	s := &Session{
		fetch:      fetch,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCompanySession creates a session over the company search endpoint. The
// criteria are copied and stay fixed for the life of the session.
func NewCompanySession(client surfe.Client, filters surfe.CompanyFilters, pageSize int, opts ...Option) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	criteria := surfe.CompanySearchRequest{Filters: filters, Limit: pageSize}

	return NewSession(func(ctx context.Context, token string) ([]surfe.Entity, string, error) {
		req := criteria
		req.NextPageToken = token
		resp, err := client.SearchCompanies(ctx, req)
		if err != nil {
			return nil, "", err
		}
		return resp.Companies, resp.NextPageToken, nil
	}, opts...)
}

// Done reports whether accumulation has halted: either no further page
// exists or the result cap is reached.
func (s *Session) Done() bool {
	if !s.started {
		return false
	}
	return s.exhausted || s.total >= s.maxResults
}

// LoadMore fetches the next page and appends its results. Returns the number
// of results added; zero once the session is done. A page with zero results
// and no error counts as exhaustion.
func (s *Session) LoadMore(ctx context.Context) (int, error) {
	if s.Done() {
		return 0, nil
	}

	results, next, err := s.fetch(ctx, s.nextToken)
	if err != nil {
		return 0, eris.Wrap(err, "search: load page")
	}
	s.started = true

	if len(results) == 0 {
		s.exhausted = true
		s.nextToken = ""
		return 0, nil
	}

	s.results = append(s.results, results...)
	s.total += len(results)
	s.nextToken = next
	if next == "" {
		s.exhausted = true
	}

	zap.L().Debug("search: page loaded",
		zap.Int("added", len(results)),
		zap.Int("total", s.total),
		zap.Bool("more", !s.Done()),
	)
	return len(results), nil
}

// Run loads pages until the session halts or the context is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "search: run")
		}
		if _, err := s.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reset discards all accumulated state. It is the only way the total goes
// back to zero.
func (s *Session) Reset() {
	s.results = nil
	s.nextToken = ""
	s.total = 0
	s.started = false
	s.exhausted = false
}

// Results returns the accumulated result set.
func (s *Session) Results() []surfe.Entity {
	return s.results
}

// TotalLoaded returns how many results have been accumulated.
func (s *Session) TotalLoaded() int {
	return s.total
}

// NextToken returns the current continuation token, "" when none.
func (s *Session) NextToken() string {
	return s.nextToken
}

// FilterBySize applies employee-count size ranges to the accumulated set on
// read. The stored results are never mutated, so changing the filter never
// requires re-fetching. An empty range list passes everything through.
func (s *Session) FilterBySize(ranges []string) []surfe.Entity {
	if len(ranges) == 0 {
		return s.results
	}

	var out []surfe.Entity
	for _, e := range s.results {
		count, ok := employeeCount(e)
		if !ok {
			continue
		}
		for _, r := range ranges {
			if enrich.InSizeRange(count, r) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func employeeCount(e surfe.Entity) (int, bool) {
	switch v := e["employeeCount"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
