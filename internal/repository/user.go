package repository

import (
	"context"

	"userhub/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Uniqueness of username and email is enforced by the storage layer;
// violations surface as Conflict errors.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}
