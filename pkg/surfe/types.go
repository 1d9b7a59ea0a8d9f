package surfe

import "time"

// Entity is a raw vendor record. The API returns a superset of fields per
// company or person; callers project out the subset they asked for.
type Entity map[string]any

// String returns the value for key as a string, or "" when absent or not a string.
func (e Entity) String(key string) string {
	s, _ := e[key].(string)
	return s
}

// EnrichmentItem is one entry of a bulk enrichment request. ExternalID is the
// caller-assigned correlation ID used to match results back to source rows.
type EnrichmentItem struct {
	Domain      string `json:"domain,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	ExternalID  string `json:"externalID"`
}

// Job is a handle to a submitted enrichment job.
type Job struct {
	ID          string
	SubmittedAt time.Time
}

// Progress reports how far along a remote enrichment job is.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// EnrichmentStatus is one poll result for an enrichment job. Status is one of
// "pending", "processing", "completed" or "failed"; only the last two are
// terminal.
type EnrichmentStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Progress  *Progress `json:"progress,omitempty"`
	Companies []Entity  `json:"companies,omitempty"`
	People    []Entity  `json:"people,omitempty"`
}

// Terminal reports whether the status is a terminal state.
func (s *EnrichmentStatus) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Enrichment job status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// CompanyFilters narrows a company search.
type CompanyFilters struct {
	Industries []string `json:"industries,omitempty"`
	Countries  []string `json:"countries,omitempty"`
}

// CompanySearchRequest is the body for POST /companies/search. NextPageToken
// carries the continuation cursor from the previous page, if any.
type CompanySearchRequest struct {
	Filters       CompanyFilters `json:"filters"`
	Limit         int            `json:"limit,omitempty"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

// CompanySearchResponse is one page of company search results.
type CompanySearchResponse struct {
	Companies     []Entity `json:"companies"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// PeopleQuery holds people search criteria.
type PeopleQuery struct {
	Name           string `json:"name,omitempty"`
	CurrentCompany string `json:"current_company,omitempty"`
	Title          string `json:"title,omitempty"`
	Country        string `json:"country,omitempty"`
}

// Empty reports whether no criterion is set.
func (q PeopleQuery) Empty() bool {
	return q.Name == "" && q.CurrentCompany == "" && q.Title == "" && q.Country == ""
}

// PeopleSearchRequest is the body for POST /people/search.
type PeopleSearchRequest struct {
	Query PeopleQuery `json:"query"`
	Limit int         `json:"limit,omitempty"`
}

// PeopleSearchResponse holds people search results.
type PeopleSearchResponse struct {
	People []Entity `json:"people"`
}

// LookalikesResponse holds companies similar to the requested domain.
type LookalikesResponse struct {
	Organizations []Entity `json:"organizations"`
}

// startEnrichmentResponse is the raw response from the enrichment start
// endpoints. Older API versions return "id" instead of "enrichmentID".
type startEnrichmentResponse struct {
	EnrichmentID string `json:"enrichmentID"`
	ID           string `json:"id"`
}

func (r startEnrichmentResponse) jobID() string {
	if r.EnrichmentID != "" {
		return r.EnrichmentID
	}
	return r.ID
}
