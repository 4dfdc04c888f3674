package auth

import (
	"context"
	"errors"
	"sync"
)

type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*Record
	err     error
	calls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]*Record)}
}

func (s *fakeStore) add(name, email, hash string, admin bool) Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := Principal{ID: s.nextID, Name: name, Email: email, IsAdmin: admin}
	s.records[p.ID] = &Record{Principal: p, SecretHash: hash}
	return p
}

func (s *fakeStore) delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.records {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindByID(_ context.Context, id int64) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return Principal{}, s.err
	}
	r, ok := s.records[id]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return r.Principal, nil
}

func (s *fakeStore) CreatePrincipal(_ context.Context, reg Registration) (Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Email == reg.Email {
			return Principal{}, ErrAlreadyExists
		}
	}
	s.nextID++
	p := Principal{ID: s.nextID, Name: reg.Name, Email: reg.Email, IsAdmin: reg.IsAdmin}
	s.records[p.ID] = &Record{Principal: p, SecretHash: reg.SecretHash}
	return p, nil
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
