package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"userhub/internal/domain"
)

// Token type tags embedded in the "type" claim. A refresh token must never
// pass where an access token is expected; every call site that decodes a
// token checks the tag against its expected use.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenExpired indicates the token's exp is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenSignature indicates the signature did not verify.
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenMalformed indicates the token or its claims are not well-formed.
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the payload embedded in every issued token.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"type"`
}

// TokenCodecConfig configures a TokenCodec. Loaded once at startup; the
// codec never reads configuration or the wall clock afterwards.
type TokenCodecConfig struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenCodec issues and validates signed, self-contained tokens. Validity
// is determined entirely by signature, expiry and claim shape; nothing is
// stored server-side.
type TokenCodec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec builds a codec for the configured HMAC algorithm. Only the
// HS256/HS384/HS512 family is supported; anything else is rejected here so
// a bad deployment fails at startup, not at first login.
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token signing secret is required")
	}
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	return &TokenCodec{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// IssueAccess signs an access token for user, valid from now until
// now+accessTTL.
func (c *TokenCodec) IssueAccess(user *domain.User, now time.Time) (string, error) {
	return c.issue(user, TokenTypeAccess, now, c.accessTTL)
}

// IssueRefresh signs a refresh token for user, valid from now until
// now+refreshTTL.
func (c *TokenCodec) IssueRefresh(user *domain.User, now time.Time) (string, error) {
	return c.issue(user, TokenTypeRefresh, now, c.refreshTTL)
}

func (c *TokenCodec) issue(user *domain.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    user.ID,
		Username:  user.Username,
		TokenType: tokenType,
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "sign %s token", tokenType)
	}
	return signed, nil
}

// Decode verifies tokenString against the codec's key and now, and returns
// its claims. The distinct failure reasons (expired, signature, malformed)
// are for logging; all of them classify as Unauthorized at the boundary.
// Decode does not check the "type" claim against a usage context; that is
// the caller's responsibility.
func (c *TokenCodec) Decode(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.WrapError(domain.KindUnauthorized, ErrTokenExpired, "authentication failed")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, domain.WrapError(domain.KindUnauthorized, ErrTokenSignature, "authentication failed")
		default:
			return nil, domain.WrapError(domain.KindUnauthorized, ErrTokenMalformed, "authentication failed")
		}
	}
	if !token.Valid {
		return nil, domain.WrapError(domain.KindUnauthorized, ErrTokenMalformed, "authentication failed")
	}
	if claims.UserID <= 0 || claims.Username == "" {
		return nil, domain.WrapError(domain.KindUnauthorized, ErrTokenMalformed, "authentication failed")
	}
	return claims, nil
}
