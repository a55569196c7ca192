// Package session holds the authenticated state of one funnel pass.
// It is injected everywhere it is needed; nothing reads it ambiently.
package session

import "sync"

// TokenReader is the narrow read capability handed to upstream clients.
type TokenReader interface {
	AccessToken() string
}

// Session carries the auth tokens and customer id for one funnel session.
// All access is through the accessors; the zero value is an
// unauthenticated session.
type Session struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	customerID   string
}

// New returns an unauthenticated session.
func New() *Session {
	return &Session{}
}

// SetTokens stores the access/refresh token pair issued after OTP
// verification.
func (s *Session) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

// SetCustomerID stores the platform customer id.
func (s *Session) SetCustomerID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerID = id
}

// AccessToken returns the current access token, empty when unauthenticated.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// CustomerID returns the platform customer id, empty when unknown.
func (s *Session) CustomerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customerID
}

// Authenticated reports whether an access token is present.
func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

// Clear wipes all tokens and the customer id. Called on logout and on
// 401-class upstream responses.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.customerID = ""
}
