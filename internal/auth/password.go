package auth

import (
	"golang.org/x/crypto/bcrypt"

	"userhub/internal/domain"
)

// Hasher produces and verifies one-way password hashes. The bcrypt output
// encodes algorithm, cost and salt, so hashes created with older cost
// parameters keep verifying after the cost is raised.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside
// bcrypt's supported range fall back to the default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of secret. A fresh random salt is generated
// on every call.
func (h *Hasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "hash password")
	}
	return string(hash), nil
}

// Verify reports whether secret matches hash. Malformed or unsupported
// hashes verify as false rather than erroring, so callers cannot be used
// as an oracle for stored-hash shape.
func (h *Hasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
