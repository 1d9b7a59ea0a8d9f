package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bashir0609/surfe-toolkit/internal/enrich"
	"github.com/bashir0609/surfe-toolkit/internal/resilience"
	"github.com/bashir0609/surfe-toolkit/internal/search"
	"github.com/bashir0609/surfe-toolkit/internal/tabular"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

const sessionHeader = "X-Session-ID"

// Server exposes the enrichment and search pipelines over HTTP for
// dashboard-style frontends. All state lives in the session store; the
// server itself is stateless and safe for concurrent use.
type Server struct {
	store          *SessionStore
	pollInterval   time.Duration
	pollTimeout    time.Duration
	allowedOrigins []string
}

// Option customizes a Server.
type Option func(*Server)

// WithPollSettings overrides the job polling cadence used by enrichment
// requests.
func WithPollSettings(interval, timeout time.Duration) Option {
	return func(s *Server) {
		s.pollInterval = interval
		s.pollTimeout = timeout
	}
}

// WithAllowedOrigins restricts CORS to the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// New creates a Server backed by the given session store.
func New(store *SessionStore, opts ...Option) *Server {
	s := &Server{store: store, allowedOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", sessionHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/credits", s.handleCredits)
			r.Post("/enrich", s.handleEnrich)
			r.Get("/enrich/last", s.handleLastJob)
			r.Post("/search", s.handleSearchStart)
			r.Post("/search/more", s.handleSearchMore)
			r.Post("/search/reset", s.handleSearchReset)
			r.Get("/search/results", s.handleSearchResults)
			r.Post("/people/search", s.handlePeopleSearch)
			r.Post("/lookalikes", s.handleLookalikes)
		})
	})
	return r
}

type ctxKey int

const sessionKey ctxKey = 0

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(sessionHeader)
		sess, ok := s.store.Get(id)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown session, create one via POST /api/sessions", "fix-input")
			return
		}
		ctx := contextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}

type createSessionRequest struct {
	APIKey       string  `json:"api_key"`
	DelaySeconds float64 `json:"delay_seconds"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "fix-input")
		return
	}

	sess, err := s.store.Create(req.APIKey, req.DelaySeconds)
	if err != nil {
		writeError(w, http.StatusBadRequest, "api_key is required", "fix-input")
		return
	}

	// Validate the key up front so the frontend can show a clear error
	// before the user uploads anything.
	if !sess.client.ValidateKey(r.Context()) {
		s.store.Delete(sess.ID)
		writeError(w, http.StatusUnauthorized, "API key rejected, check the key and its permissions", "fix-input")
		return
	}

	zap.L().Info("session created", zap.String("session_id", sess.ID))
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": sess.ID})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()

	credits, err := sess.client.CheckCredits(r.Context())
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credits)
}

type enrichRequest struct {
	Kind       string     `json:"kind"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Column     string     `json:"column"`
	DataPoints []string   `json:"data_points"`
}

type enrichResponse struct {
	JobID     string              `json:"job_id"`
	Submitted int                 `json:"submitted"`
	Skipped   int                 `json:"skipped"`
	Returned  int                 `json:"returned"`
	Stats     []enrich.FieldStats `json:"stats"`
	Headers   []string            `json:"headers"`
	Rows      [][]string          `json:"rows"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "fix-input")
		return
	}
	if req.Column == "" {
		writeError(w, http.StatusBadRequest, "column is required", "fix-input")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	table := &tabular.Table{Headers: req.Headers, Rows: req.Rows}
	runner := &enrich.Runner{
		Client:       sess.client,
		PollInterval: s.pollInterval,
		PollTimeout:  s.pollTimeout,
	}

	var (
		res *enrich.Result
		err error
	)
	switch req.Kind {
	case "", "companies":
		res, err = runner.EnrichCompanies(r.Context(), table, req.Column, req.DataPoints)
	case "people":
		res, err = runner.EnrichPeople(r.Context(), table, req.Column, req.DataPoints)
	default:
		writeError(w, http.StatusBadRequest, "kind must be companies or people", "fix-input")
		return
	}
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	sess.lastJobID = res.JobID
	sess.lastJobKind = req.Kind
	if sess.lastJobKind == "" {
		sess.lastJobKind = "companies"
	}
	writeJSON(w, http.StatusOK, enrichResponse{
		JobID:     res.JobID,
		Submitted: res.Submitted,
		Skipped:   res.Skipped,
		Returned:  res.Returned,
		Stats:     res.Stats,
		Headers:   table.Headers,
		Rows:      table.Rows,
	})
}

// handleLastJob re-checks the status of the session's most recent
// enrichment job, for clients that lost the response or want to confirm a
// timed-out job finished on the vendor side.
func (s *Server) handleLastJob(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.lastJobID == "" {
		writeError(w, http.StatusNotFound, "no enrichment job submitted in this session", "fix-input")
		return
	}

	var (
		status *surfe.EnrichmentStatus
		err    error
	)
	if sess.lastJobKind == "people" {
		status, err = sess.client.GetPeopleEnrichment(r.Context(), sess.lastJobID)
	} else {
		status, err = sess.client.GetCompanyEnrichment(r.Context(), sess.lastJobID)
	}
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": sess.lastJobID,
		"kind":   sess.lastJobKind,
		"status": status.Status,
	})
}

type searchStartRequest struct {
	Industries []string `json:"industries"`
	Countries  []string `json:"countries"`
	PageSize   int      `json:"page_size"`
	MaxResults int      `json:"max_results"`
}

func (s *Server) handleSearchStart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req searchStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "fix-input")
		return
	}
	if len(req.Industries) == 0 && len(req.Countries) == 0 {
		writeError(w, http.StatusBadRequest, "at least one of industries or countries is required", "fix-input")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var opts []search.Option
	if req.MaxResults > 0 {
		opts = append(opts, search.WithMaxResults(req.MaxResults))
	}
	sess.search = search.NewCompanySession(sess.client, surfe.CompanyFilters{
		Industries: req.Industries,
		Countries:  req.Countries,
	}, req.PageSize, opts...)

	s.loadMoreLocked(w, r, sess)
}

func (s *Server) handleSearchMore(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.search == nil {
		writeError(w, http.StatusBadRequest, "no search in progress, start one via POST /api/search", "fix-input")
		return
	}
	s.loadMoreLocked(w, r, sess)
}

func (s *Server) loadMoreLocked(w http.ResponseWriter, r *http.Request, sess *Session) {
	n, err := sess.search.LoadMore(r.Context())
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded":    n,
		"total":     sess.search.TotalLoaded(),
		"done":      sess.search.Done(),
		"has_token": sess.search.NextToken() != "",
	})
}

func (s *Server) handleSearchReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.search != nil {
		sess.search.Reset()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchResults(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.search == nil {
		writeError(w, http.StatusBadRequest, "no search in progress", "fix-input")
		return
	}

	results := sess.search.Results()
	if sizes := r.URL.Query()["size"]; len(sizes) > 0 {
		results = sess.search.FilterBySize(sizes)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    sess.search.TotalLoaded(),
		"returned": len(results),
		"results":  results,
	})
}

type peopleSearchRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Title   string `json:"title"`
	Country string `json:"country"`
	Limit   int    `json:"limit"`
}

func (s *Server) handlePeopleSearch(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req peopleSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "fix-input")
		return
	}

	query := surfe.PeopleQuery{
		Name:           req.Name,
		CurrentCompany: req.Company,
		Title:          req.Title,
		Country:        req.Country,
	}
	if query.Empty() {
		writeError(w, http.StatusBadRequest, "at least one search criterion is required", "fix-input")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	resp, err := sess.client.SearchPeople(r.Context(), surfe.PeopleSearchRequest{
		Query: query,
		Limit: req.Limit,
	})
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type lookalikesRequest struct {
	Domain  string `json:"domain"`
	Country string `json:"country"`
}

func (s *Server) handleLookalikes(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req lookalikesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "fix-input")
		return
	}

	domain := enrich.CleanDomain(req.Domain)
	if domain == "" {
		writeError(w, http.StatusBadRequest, "a valid company domain is required", "fix-input")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	resp, err := sess.client.CompanyLookalikes(r.Context(), domain, req.Country)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeAPIError maps pipeline and API errors to HTTP responses with an
// advice hint the frontend can act on: fix-input, retry-later, or
// contact-support.
func (s *Server) writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *surfe.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.AuthFailure():
			writeError(w, http.StatusUnauthorized, "API key rejected, check the key and its permissions", "fix-input")
		case apiErr.StatusCode == http.StatusPaymentRequired:
			writeError(w, http.StatusPaymentRequired, "insufficient credits for this operation", "fix-input")
		case apiErr.StatusCode == http.StatusTooManyRequests:
			writeError(w, http.StatusTooManyRequests, "rate limited by the API, slow down and retry", "retry-later")
		case apiErr.StatusCode >= 500:
			writeError(w, http.StatusBadGateway, "upstream API error, retry shortly", "retry-later")
		default:
			writeError(w, http.StatusBadRequest, "the API rejected the request: "+apiErr.Body, "fix-input")
		}
		return
	}

	var failed *surfe.JobFailedError
	if errors.As(err, &failed) {
		writeError(w, http.StatusBadGateway, "enrichment job failed: "+failed.Reason, "contact-support")
		return
	}
	var timedOut *surfe.JobTimeoutError
	if errors.As(err, &timedOut) {
		writeError(w, http.StatusGatewayTimeout, "enrichment job did not finish in time, retry with a smaller batch", "retry-later")
		return
	}
	var cancelled *surfe.JobCancelledError
	if errors.As(err, &cancelled) {
		writeError(w, 499, "request cancelled", "fix-input")
		return
	}

	if resilience.IsTransient(err) {
		writeError(w, http.StatusServiceUnavailable, "temporary network problem, retry shortly", "retry-later")
		return
	}

	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusBadRequest, err.Error(), "fix-input")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg, advice string) {
	writeJSON(w, status, map[string]string{
		"error":  msg,
		"advice": advice,
	})
}
