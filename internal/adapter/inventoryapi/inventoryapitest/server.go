package inventoryapitest

import (
	"net/http/httptest"
)

// Server runs an API on a loopback httptest server.
type Server struct {
	*API
	// Store is the in-memory backend, nil when the server was started over
	// another Backend.
	Store *Store

	srv *httptest.Server
}

// NewServer starts a server over an empty in-memory store. Call Close when done.
func NewServer() *Server {
	store := NewStore()
	s := NewServerFor(store)
	s.Store = store
	return s
}

// NewServerFor starts a server over b. Call Close when done.
func NewServerFor(b Backend) *Server {
	api := NewAPI(b)
	return &Server{API: api, srv: httptest.NewServer(api)}
}

// BaseURL is the API root to hand to the client, including Prefix.
func (s *Server) BaseURL() string { return s.srv.URL + Prefix }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }
