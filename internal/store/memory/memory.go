// Package memory provides an in-process principal store for tests and local runs.
package memory

import (
	"context"
	"strings"
	"sync"

	"counselbot.org/internal/auth"
)

type counselor struct {
	auth.Record
}

// Store keeps counselors in memory.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*counselor
	byEmail map[string]int64
}

var _ auth.Provisioner = (*Store)(nil)

func New() *Store {
	return &Store{
		byID:    make(map[int64]*counselor),
		byEmail: make(map[string]int64),
	}
}

func (s *Store) FindByEmail(_ context.Context, email string) (*auth.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	rec := s.byID[id].Record
	return &rec, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return auth.Principal{}, auth.ErrNotFound
	}
	return c.Principal, nil
}

func (s *Store) CreatePrincipal(_ context.Context, reg auth.Registration) (auth.Principal, error) {
	if strings.TrimSpace(reg.Email) == "" || reg.SecretHash == "" {
		return auth.Principal{}, auth.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[reg.Email]; exists {
		return auth.Principal{}, auth.ErrAlreadyExists
	}
	s.nextID++
	c := &counselor{
		Record: auth.Record{
			Principal:  auth.Principal{ID: s.nextID, Name: reg.Name, Email: reg.Email, IsAdmin: reg.IsAdmin},
			SecretHash: reg.SecretHash,
		},
	}
	s.byID[c.ID] = c
	s.byEmail[c.Email] = c.ID
	return c.Principal, nil
}

// UpdatePassword replaces the stored hash.
func (s *Store) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	c.SecretHash = hash
	return nil
}

// SetAdmin toggles the administrator flag.
func (s *Store) SetAdmin(_ context.Context, id int64, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	c.IsAdmin = admin
	return nil
}

// DeleteCounselor removes a counselor; outstanding tokens stop authorizing.
func (s *Store) DeleteCounselor(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return auth.ErrNotFound
	}
	delete(s.byEmail, c.Email)
	delete(s.byID, id)
	return nil
}

// Len reports the number of stored counselors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
