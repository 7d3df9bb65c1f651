// Package credentials holds vendor account credentials per user for the life
// of the process.
package credentials

import (
	"errors"
	"sync"
)

// ErrBound is returned when a user id is already bound by another session.
var ErrBound = errors.New("credentials: user id bound to another session")

// Record is one user's vendor account.
type Record struct {
	UserID   string
	Email    string
	Password string
}

// Valid reports whether both email and password are set.
func (r Record) Valid() bool {
	return r.Email != "" && r.Password != ""
}

// Store is an in-memory credential map guarded by a single mutex. Entries are
// replaced whole and never evicted.
type Store struct {
	mu      sync.Mutex
	records map[string]Record
	owners  map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record), owners: make(map[string]string)}
}

// Get returns the credentials for userID.
func (s *Store) Get(userID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	return r, ok
}

// Set stores credentials for userID, replacing any previous entry.
func (s *Store) Set(userID, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = Record{UserID: userID, Email: email, Password: password}
	s.owners[userID] = userID
}

// Bind stores credentials for userID on behalf of the session owner. An id
// first bound by a different owner is left untouched and ErrBound returned.
func (s *Store) Bind(userID, owner, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.owners[userID]; ok && prev != owner {
		return ErrBound
	}
	s.records[userID] = Record{UserID: userID, Email: email, Password: password}
	s.owners[userID] = owner
	return nil
}

// Has reports whether credentials exist for userID.
func (s *Store) Has(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[userID]
	return ok
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
