package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/bashir0609/surfe-toolkit/internal/search"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

// Session is the explicit per-client state object: it owns the API client
// bound to one bearer token, the last submitted job ID, and at most one
// search session. Operations on a session are serialized with its mutex, so
// at most one batch or page fetch is in flight per session.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	client      surfe.Client
	lastJobID   string
	lastJobKind string
	search      *search.Session
}

// ClientFactory builds an API client for a bearer token and optional
// per-request delay in seconds (0 keeps the default rate limiter).
type ClientFactory func(apiKey string, delaySecs float64) surfe.Client

// SessionStore is an in-memory session registry. Sessions live for the
// duration of one dashboard visit and are torn down on delete.
type SessionStore struct {
	mu       sync.RWMutex
	factory  ClientFactory
	sessions map[string]*Session
}

// NewSessionStore creates an empty session registry.
func NewSessionStore(factory ClientFactory) *SessionStore {
	return &SessionStore{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session for the given API key.
func (st *SessionStore) Create(apiKey string, delaySecs float64) (*Session, error) {
	if apiKey == "" {
		return nil, eris.New("server: api key is required")
	}

	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		client:    st.factory(apiKey, delaySecs),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, nil
}

// Get looks up a session by ID.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete tears down a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
