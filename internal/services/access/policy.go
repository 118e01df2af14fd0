package access

import (
	"context"

	"github.com/sporelabs/sporeverse/internal/model"
)

// Policy decides whether an address may enter a room. Implementations never
// return an error: any internal failure must resolve to a deny so a broken
// external check can only keep players out, not take the join flow down.
type Policy interface {
	Allow(ctx context.Context, address model.Address) bool
}

// AllowAll admits every address. It is the behavior of rooms with no policy
// configured.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, model.Address) bool { return true }

// Func adapts a plain function to a Policy
type Func func(ctx context.Context, address model.Address) bool

func (f Func) Allow(ctx context.Context, address model.Address) bool {
	return f(ctx, address)
}

// AnyOf admits an address if any of its policies does
type AnyOf []Policy

func (p AnyOf) Allow(ctx context.Context, address model.Address) bool {
	for _, policy := range p {
		if policy.Allow(ctx, address) {
			return true
		}
	}
	return false
}
