package domain

import "time"

// User represents a registered account of the system.
type User struct {
	ID           int64
	Email        string
	Username     string
	FullName     string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries a partial update. Nil fields are left untouched.
type UserUpdate struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
	IsActive *bool
}

// Tier is the permission level required by a protected operation.
type Tier int

const (
	// TierAuthenticated admits any active, authenticated user.
	TierAuthenticated Tier = iota
	// TierSuperuser admits only users with the superuser flag set.
	TierSuperuser
)

func (t Tier) String() string {
	if t == TierSuperuser {
		return "superuser"
	}
	return "authenticated"
}
