package auth

import (
	"context"

	"userhub/internal/domain"
)

// UserLookup is the slice of the user directory the resolver needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Resolver turns validated token claims into a live user record.
type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// Resolve loads the user named by claims. Lookup is by numeric id, not
// username, so a later username change cannot point a token at another
// account. A missing user is NotFound (deleted after issuance); an inactive
// user is Forbidden, distinct from not being authenticated at all.
func (r *Resolver) Resolve(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := r.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.NewError(domain.KindForbidden, "inactive user")
	}
	return user, nil
}

// Authorize checks user against the required tier. Failure is Forbidden;
// callers must not downgrade it to Unauthorized.
func Authorize(user *domain.User, tier domain.Tier) error {
	if tier == domain.TierSuperuser && !user.IsSuperuser {
		return domain.NewError(domain.KindForbidden, "the user doesn't have enough privileges")
	}
	return nil
}
