package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

type stubClient struct {
	validKey      bool
	credits       map[string]any
	searchPages   []surfe.CompanySearchResponse
	searchCalls   int
	lookalikes    *surfe.LookalikesResponse
	peopleResults *surfe.PeopleSearchResponse
	status        *surfe.EnrichmentStatus
}

func (c *stubClient) StartCompanyEnrichment(ctx context.Context, items []surfe.EnrichmentItem) (*surfe.Job, error) {
	return &surfe.Job{ID: "job-1", SubmittedAt: time.Now()}, nil
}

func (c *stubClient) GetCompanyEnrichment(ctx context.Context, jobID string) (*surfe.EnrichmentStatus, error) {
	return c.status, nil
}

func (c *stubClient) StartPeopleEnrichment(ctx context.Context, items []surfe.EnrichmentItem) (*surfe.Job, error) {
	return &surfe.Job{ID: "job-2", SubmittedAt: time.Now()}, nil
}

func (c *stubClient) GetPeopleEnrichment(ctx context.Context, jobID string) (*surfe.EnrichmentStatus, error) {
	return c.status, nil
}

func (c *stubClient) SearchCompanies(ctx context.Context, req surfe.CompanySearchRequest) (*surfe.CompanySearchResponse, error) {
	if c.searchCalls >= len(c.searchPages) {
		return &surfe.CompanySearchResponse{}, nil
	}
	page := c.searchPages[c.searchCalls]
	c.searchCalls++
	return &page, nil
}

func (c *stubClient) SearchPeople(ctx context.Context, req surfe.PeopleSearchRequest) (*surfe.PeopleSearchResponse, error) {
	return c.peopleResults, nil
}

func (c *stubClient) CompanyLookalikes(ctx context.Context, domain, country string) (*surfe.LookalikesResponse, error) {
	return c.lookalikes, nil
}

func (c *stubClient) CheckCredits(ctx context.Context) (map[string]any, error) {
	return c.credits, nil
}

func (c *stubClient) ValidateKey(ctx context.Context) bool {
	return c.validKey
}

func newTestServer(t *testing.T, stub *stubClient) (*httptest.Server, string) {
	t.Helper()

	store := NewSessionStore(func(apiKey string, delaySecs float64) surfe.Client {
		return stub
	})
	srv := httptest.NewServer(New(store, WithPollSettings(time.Millisecond, time.Second)).Router())
	t.Cleanup(srv.Close)

	body, _ := json.Marshal(map[string]any{"api_key": "sk-test"})
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.SessionID)
	return srv, created.SessionID
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, sessionID string, payload any) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, srv.URL+path, &body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateSessionRejectsBadKey(t *testing.T) {
	store := NewSessionStore(func(apiKey string, delaySecs float64) surfe.Client {
		return &stubClient{validKey: false}
	})
	srv := httptest.NewServer(New(store).Router())
	t.Cleanup(srv.Close)

	body, _ := json.Marshal(map[string]any{"api_key": "bad"})
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, store.Len())
}

func TestCreateSessionRequiresKey(t *testing.T) {
	store := NewSessionStore(func(apiKey string, delaySecs float64) surfe.Client {
		return &stubClient{validKey: true}
	})
	srv := httptest.NewServer(New(store).Router())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequireSessionUnknownID(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{validKey: true})

	resp := doJSON(t, srv, http.MethodGet, "/api/credits", "nope", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubClient{validKey: true})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, float64(1), got["sessions"])
}

func TestCredits(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{
		validKey: true,
		credits:  map[string]any{"enrichmentCredits": float64(950)},
	})

	resp := doJSON(t, srv, http.MethodGet, "/api/credits", sid, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, float64(950), got["enrichmentCredits"])
}

func TestEnrichCompanies(t *testing.T) {
	stub := &stubClient{
		validKey: true,
		status: &surfe.EnrichmentStatus{
			Status: surfe.StatusCompleted,
			Companies: []surfe.Entity{
				{"externalID": "row_0", "name": "Acme", "websites": []any{"acme.com"}},
			},
		},
	}
	srv, sid := newTestServer(t, stub)

	resp := doJSON(t, srv, http.MethodPost, "/api/enrich", sid, map[string]any{
		"kind":        "companies",
		"headers":     []string{"company", "domain"},
		"rows":        [][]string{{"Acme Inc", "https://acme.com"}},
		"column":      "domain",
		"data_points": []string{"name", "website"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got enrichResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, 1, got.Submitted)
	assert.Equal(t, 1, got.Returned)
	assert.Equal(t, []string{"company", "domain", "enriched_name", "enriched_website"}, got.Headers)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "Acme", got.Rows[0][2])
	assert.Equal(t, "acme.com", got.Rows[0][3])
}

func TestEnrichRaggedRows(t *testing.T) {
	stub := &stubClient{
		validKey: true,
		status: &surfe.EnrichmentStatus{
			Status: surfe.StatusCompleted,
			Companies: []surfe.Entity{
				{"externalID": "row_0", "name": "Acme"},
			},
		},
	}
	srv, sid := newTestServer(t, stub)

	// JSON rows arrive without ReadCSV's padding; short rows must still
	// receive their enriched cells.
	resp := doJSON(t, srv, http.MethodPost, "/api/enrich", sid, map[string]any{
		"headers":     []string{"domain", "note"},
		"rows":        [][]string{{"acme.com"}},
		"column":      "domain",
		"data_points": []string{"name"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got enrichResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Rows, 1)
	require.Len(t, got.Rows[0], 3)
	assert.Equal(t, "Acme", got.Rows[0][2])
	require.Len(t, got.Stats, 1)
	assert.Equal(t, 1, got.Stats[0].Populated)
}

func TestLastJobStatus(t *testing.T) {
	stub := &stubClient{
		validKey: true,
		status: &surfe.EnrichmentStatus{
			Status:    surfe.StatusCompleted,
			Companies: []surfe.Entity{{"externalID": "row_0", "name": "Acme"}},
		},
	}
	srv, sid := newTestServer(t, stub)

	// Nothing submitted yet.
	resp := doJSON(t, srv, http.MethodGet, "/api/enrich/last", sid, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/api/enrich", sid, map[string]any{
		"headers": []string{"domain"},
		"rows":    [][]string{{"acme.com"}},
		"column":  "domain",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/api/enrich/last", sid, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "job-1", got["job_id"])
	assert.Equal(t, "companies", got["kind"])
	assert.Equal(t, surfe.StatusCompleted, got["status"])
}

func TestEnrichRequiresColumn(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{validKey: true})

	resp := doJSON(t, srv, http.MethodPost, "/api/enrich", sid, map[string]any{
		"headers": []string{"domain"},
		"rows":    [][]string{{"acme.com"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchFlow(t *testing.T) {
	stub := &stubClient{
		validKey: true,
		searchPages: []surfe.CompanySearchResponse{
			{
				Companies: []surfe.Entity{
					{"name": "A", "employeeCount": float64(8)},
					{"name": "B", "employeeCount": float64(120)},
				},
				NextPageToken: "tok-1",
			},
			{
				Companies: []surfe.Entity{
					{"name": "C", "employeeCount": float64(40)},
				},
			},
		},
	}
	srv, sid := newTestServer(t, stub)

	resp := doJSON(t, srv, http.MethodPost, "/api/search", sid, map[string]any{
		"industries": []string{"Software"},
		"page_size":  100,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, float64(2), page["loaded"])
	assert.Equal(t, true, page["has_token"])

	resp = doJSON(t, srv, http.MethodPost, "/api/search/more", sid, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, float64(1), page["loaded"])
	assert.Equal(t, float64(3), page["total"])
	assert.Equal(t, true, page["done"])

	// Size filter reduces results without discarding loaded data.
	resp = doJSON(t, srv, http.MethodGet, "/api/search/results?size=1-10", sid, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results struct {
		Total    int            `json:"total"`
		Returned int            `json:"returned"`
		Results  []surfe.Entity `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	assert.Equal(t, 3, results.Total)
	assert.Equal(t, 1, results.Returned)
	assert.Equal(t, "A", results.Results[0].String("name"))
}

func TestSearchMoreWithoutSession(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{validKey: true})

	resp := doJSON(t, srv, http.MethodPost, "/api/search/more", sid, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchRequiresFilters(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{validKey: true})

	resp := doJSON(t, srv, http.MethodPost, "/api/search", sid, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPeopleSearchRequiresCriteria(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{validKey: true})

	resp := doJSON(t, srv, http.MethodPost, "/api/people/search", sid, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPeopleSearch(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{
		validKey: true,
		peopleResults: &surfe.PeopleSearchResponse{
			People: []surfe.Entity{{"firstName": "Ada"}},
		},
	})

	resp := doJSON(t, srv, http.MethodPost, "/api/people/search", sid, map[string]any{
		"name": "Ada Lovelace",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got surfe.PeopleSearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.People, 1)
	assert.Equal(t, "Ada", got.People[0].String("firstName"))
}

func TestLookalikesCleansDomain(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{
		validKey: true,
		lookalikes: &surfe.LookalikesResponse{
			Organizations: []surfe.Entity{{"name": "Peer Corp"}},
		},
	})

	resp := doJSON(t, srv, http.MethodPost, "/api/lookalikes", sid, map[string]any{
		"domain": "https://www.acme.com/about",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got surfe.LookalikesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Organizations, 1)
}

func TestLookalikesRejectsInvalidDomain(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{validKey: true})

	resp := doJSON(t, srv, http.MethodPost, "/api/lookalikes", sid, map[string]any{
		"domain": "not a domain",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSession(t *testing.T) {
	srv, sid := newTestServer(t, &stubClient{validKey: true})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/"+sid, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp2 := doJSON(t, srv, http.MethodGet, "/api/credits", sid, nil)
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
