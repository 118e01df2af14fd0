package storage

import (
	"context"

	"github.com/sporelabs/sporeverse/internal/model"
)

// ProfileStore persists known player profiles: the last label and avatar each
// address used, keyed by canonical address. Room and session state is always
// in-memory; only profiles go through a store so they can survive restarts
// when backed by redis.
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, address model.Address) (*model.Profile, error)
}
