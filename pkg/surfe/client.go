// Package surfe is a typed client for the Surfe.com v2 company/people-data
// API: bulk enrichment (start + poll), search, lookalikes and credits.
package surfe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bashir0609/surfe-toolkit/internal/resilience"
)

// Default base URL for the Surfe v2 API.
const defaultBaseURL = "https://api.surfe.com/v2"

const (
	defaultTimeout      = 30 * time.Second
	defaultStartTimeout = 60 * time.Second

	// batchWarnSize is the item count above which a bulk submission gets a
	// non-fatal warning. The API accepts larger batches but they can take
	// several minutes to complete.
	batchWarnSize = 1000
)

// Client defines the Surfe v2 API operations. Each operation is a single
// call; looping (polling, pagination) is layered on top by the caller.
type Client interface {
	StartCompanyEnrichment(ctx context.Context, items []EnrichmentItem) (*Job, error)
	GetCompanyEnrichment(ctx context.Context, jobID string) (*EnrichmentStatus, error)
	StartPeopleEnrichment(ctx context.Context, items []EnrichmentItem) (*Job, error)
	GetPeopleEnrichment(ctx context.Context, jobID string) (*EnrichmentStatus, error)
	SearchCompanies(ctx context.Context, req CompanySearchRequest) (*CompanySearchResponse, error)
	SearchPeople(ctx context.Context, req PeopleSearchRequest) (*PeopleSearchResponse, error)
	CompanyLookalikes(ctx context.Context, domain, country string) (*LookalikesResponse, error)
	CheckCredits(ctx context.Context) (map[string]any, error)
	ValidateKey(ctx context.Context) bool
}

// APIError is returned when Surfe responds with a non-2xx status that is not
// retried (or after retries are exhausted).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("surfe: HTTP %d: %s", e.StatusCode, e.Body)
}

// AuthFailure reports whether the error is an API key problem (401/403).
func (e *APIError) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter replaces the default client-side rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRequestDelay spaces requests at least d apart. A convenience over
// WithLimiter for the user-facing delay setting.
func WithRequestDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	timeout time.Duration
}

// NewClient creates a new Surfe client. The default limiter matches the
// vendor's advisory rate limit of 10 req/s bursting to 20.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(10, 20),
		retry:   resilience.DefaultRetryConfig(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartCompanyEnrichment(ctx context.Context, items []EnrichmentItem) (*Job, error) {
	return c.startEnrichment(ctx, "/companies/enrich", "companies", items)
}

func (c *httpClient) GetCompanyEnrichment(ctx context.Context, jobID string) (*EnrichmentStatus, error) {
	return c.getEnrichment(ctx, fmt.Sprintf("/companies/enrich/%s", jobID), jobID)
}

func (c *httpClient) StartPeopleEnrichment(ctx context.Context, items []EnrichmentItem) (*Job, error) {
	return c.startEnrichment(ctx, "/people/enrich", "people", items)
}

func (c *httpClient) GetPeopleEnrichment(ctx context.Context, jobID string) (*EnrichmentStatus, error) {
	return c.getEnrichment(ctx, fmt.Sprintf("/people/enrich/%s", jobID), jobID)
}

func (c *httpClient) startEnrichment(ctx context.Context, path, field string, items []EnrichmentItem) (*Job, error) {
	if len(items) == 0 {
		return nil, eris.New("surfe: start enrichment: empty batch")
	}
	if len(items) > batchWarnSize {
		zap.L().Warn("large enrichment batch, this may take several minutes",
			zap.Int("items", len(items)),
		)
	}

	var resp startEnrichmentResponse
	if err := c.post(ctx, path, map[string]any{field: items}, defaultStartTimeout, &resp); err != nil {
		return nil, eris.Wrap(err, "surfe: start enrichment")
	}
	id := resp.jobID()
	if id == "" {
		return nil, eris.New("surfe: start enrichment: response carries no job id")
	}
	return &Job{ID: id, SubmittedAt: time.Now()}, nil
}

func (c *httpClient) getEnrichment(ctx context.Context, path, jobID string) (*EnrichmentStatus, error) {
	var status EnrichmentStatus
	if err := c.get(ctx, path, &status); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("surfe: get enrichment %s", jobID))
	}
	status.Status = strings.ToLower(status.Status)
	if status.Status == "" {
		status.Status = StatusProcessing
	}
	return &status, nil
}

func (c *httpClient) SearchCompanies(ctx context.Context, req CompanySearchRequest) (*CompanySearchResponse, error) {
	var resp CompanySearchResponse
	if err := c.post(ctx, "/companies/search", req, c.timeout, &resp); err != nil {
		return nil, eris.Wrap(err, "surfe: search companies")
	}
	return &resp, nil
}

func (c *httpClient) SearchPeople(ctx context.Context, req PeopleSearchRequest) (*PeopleSearchResponse, error) {
	if req.Query.Empty() {
		return nil, eris.New("surfe: search people: at least one criterion required")
	}
	var resp PeopleSearchResponse
	if err := c.post(ctx, "/people/search", req, c.timeout, &resp); err != nil {
		return nil, eris.Wrap(err, "surfe: search people")
	}
	return &resp, nil
}

func (c *httpClient) CompanyLookalikes(ctx context.Context, domain, country string) (*LookalikesResponse, error) {
	if domain == "" {
		return nil, eris.New("surfe: lookalikes: domain required")
	}
	payload := map[string]string{"domain": domain}
	if country != "" {
		payload["country"] = country
	}
	var resp LookalikesResponse
	if err := c.post(ctx, "/organizations/lookalikes", payload, c.timeout, &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("surfe: lookalikes for %s", domain))
	}
	return &resp, nil
}

func (c *httpClient) CheckCredits(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.get(ctx, "/account/credits", &resp); err != nil {
		return nil, eris.Wrap(err, "surfe: check credits")
	}
	return resp, nil
}

// ValidateKey reports whether the API key works, by fetching credits.
func (c *httpClient) ValidateKey(ctx context.Context) bool {
	_, err := c.CheckCredits(ctx)
	return err == nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, timeout time.Duration, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}
	return c.do(ctx, http.MethodPost, path, buf, timeout, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, c.timeout, out)
}

// do runs one logical call: rate-limit, send, classify, decode. Transient
// statuses (429/5xx) are retried per the retry policy; 429 honors the
// server's Retry-After delay.
func (c *httpClient) do(ctx context.Context, method, path string, payload []byte, timeout time.Duration, out any) error {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.attempt(ctx, method, path, payload, timeout, out)
	})
}

func (c *httpClient) attempt(ctx context.Context, method, path string, payload []byte, timeout time.Duration, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limiter wait")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if !resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return apiErr
		}
		te := resilience.NewTransientError(apiErr, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			te.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return te
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return eris.Wrap(err, "decode response")
		}
	}

	return nil
}

// parseRetryAfter reads a Retry-After header value in seconds. Malformed or
// absent values yield zero, letting the generic backoff apply.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
