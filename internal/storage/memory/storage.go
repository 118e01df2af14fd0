package memory

import (
	"context"
	"sync"

	"github.com/sporelabs/sporeverse/internal/model"
	"github.com/sporelabs/sporeverse/internal/storage"
)

// Store is an in-memory implementation of the profile store
type Store struct {
	mu       sync.RWMutex
	profiles map[model.Address]model.Profile
}

// New creates a new in-memory profile store
func New() *Store {
	return &Store{
		profiles: make(map[model.Address]model.Profile),
	}
}

// Ensure Store implements the interface
var _ storage.ProfileStore = (*Store)(nil)

func (s *Store) SaveProfile(ctx context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Address] = *profile
	return nil
}

func (s *Store) GetProfile(ctx context.Context, address model.Address) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[address]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	// Copy so callers never share the stored value
	out := profile
	return &out, nil
}
