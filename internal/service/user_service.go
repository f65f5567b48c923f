package service

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"userhub/internal/auth"
	"userhub/internal/domain"
	"userhub/internal/repository"
)

// NewUser is the input for registration.
type NewUser struct {
	Email    string
	Username string
	FullName string
	Password string
}

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService describes user lifecycle and authentication operations.
type UserService interface {
	Register(ctx context.Context, input NewUser) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	users  repository.UserRepository
	hasher *auth.Hasher
	codec  *auth.TokenCodec
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, hasher *auth.Hasher, codec *auth.TokenCodec) UserService {
	return &userService{
		users:  users,
		hasher: hasher,
		codec:  codec,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) Register(ctx context.Context, input NewUser) (*domain.User, error) {
	username, err := normalizeUsername(input.Username)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	// Advisory pre-checks for friendlier conflicts; the UNIQUE constraints
	// in the users table remain the arbiter under concurrent registration.
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.NewError(domain.KindConflict, "user with username %q already exists", username)
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.NewError(domain.KindConflict, "user with email %q already exists", email)
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		IsActive:     true,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues an access/refresh token pair.
// Unknown username, wrong password and inactive account all fail with the
// same generic Unauthorized to prevent user enumeration.
func (s *userService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	invalid := func() error {
		return domain.NewError(domain.KindUnauthorized, "incorrect username or password")
	}

	user, err := s.users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, invalid()
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, invalid()
	}
	if !user.IsActive {
		return nil, invalid()
	}

	now := s.now()
	access, err := s.codec.IssueAccess(user, now)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(user, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) Update(ctx context.Context, id int64, update domain.UserUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		username, err := normalizeUsername(*update.Username)
		if err != nil {
			return nil, err
		}
		if username != user.Username {
			if _, err := s.users.GetByUsername(ctx, username); err == nil {
				return nil, domain.NewError(domain.KindConflict, "user with username %q already exists", username)
			} else if !domain.IsKind(err, domain.KindNotFound) {
				return nil, err
			}
			user.Username = username
		}
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return nil, err
		}
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, domain.NewError(domain.KindConflict, "user with email %q already exists", email)
			} else if !domain.IsKind(err, domain.KindNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}
	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.Password != nil {
		if err := validatePassword(*update.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

// normalizeUsername validates and case-folds a username: 3-50 chars,
// letters/digits plus _ and -, stored lowercase.
func normalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) < 3 || len(username) > 50 {
		return "", domain.NewError(domain.KindValidation, "username must be 3-50 characters")
	}
	for _, r := range username {
		if r == '_' || r == '-' {
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", domain.NewError(domain.KindValidation, "username must be alphanumeric (can include _ and -)")
		}
	}
	return username, nil
}

func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 100 {
		return domain.NewError(domain.KindValidation, "password must be 8-100 characters")
	}
	var hasUpper, hasDigit bool
	for _, r := range password {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	if !hasUpper {
		return domain.NewError(domain.KindValidation, "password must contain at least one uppercase letter")
	}
	if !hasDigit {
		return domain.NewError(domain.KindValidation, "password must contain at least one digit")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.NewError(domain.KindValidation, "invalid email address")
	}
	return email, nil
}
