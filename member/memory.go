package member

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local directory for tests and load runs.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Member
	byEmail map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Member),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m), nil
}

func (s *MemoryStore) Create(_ context.Context, nm NewMember) (*Member, error) {
	email := NormalizeEmail(nm.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, ErrExists
	}
	m := &Member{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: nm.PasswordHash,
		Authorities:  splitAuthorities(joinAuthorities(nm.Authorities)),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[m.ID] = m
	s.byEmail[email] = m.ID
	return clone(m), nil
}

func (s *MemoryStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.Active = active
	return nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.PasswordHash = hash
	return nil
}

// Delete removes a member. Used to simulate accounts removed after tokens
// were issued.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byEmail, m.Email)
	delete(s.byID, id)
	return nil
}

func clone(m *Member) *Member {
	out := *m
	out.Authorities = append([]string(nil), m.Authorities...)
	return &out
}
