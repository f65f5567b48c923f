package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userhub/internal/auth"
	"userhub/internal/domain"
	"userhub/internal/repository/sqlite"
)

func testService(t *testing.T) (UserService, *auth.TokenCodec) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	codec, err := auth.NewTokenCodec(auth.TokenCodecConfig{
		Secret:     "test-secret",
		Algorithm:  "HS256",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	return NewUserService(repo, auth.NewHasher(4), codec), codec
}

func aliceInput() NewUser {
	return NewUser{
		Email:    "alice@example.com",
		Username: "alice",
		FullName: "Alice Liddell",
		Password: "Secure1x",
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)
	assert.Positive(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "Secure1x", user.PasswordHash)
}

func TestRegister_UsernameLowercased(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	input := aliceInput()
	input.Username = "AlIcE"
	user, err := svc.Register(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestRegister_DuplicateUsernameCaseInsensitive(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	dup := aliceInput()
	dup.Username = "ALICE"
	dup.Email = "alice2@example.com"
	_, err = svc.Register(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	dup := aliceInput()
	dup.Username = "alice2"
	_, err = svc.Register(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*NewUser)
	}{
		{"username too short", func(u *NewUser) { u.Username = "al" }},
		{"username illegal chars", func(u *NewUser) { u.Username = "alice!" }},
		{"password too short", func(u *NewUser) { u.Password = "Sec1" }},
		{"password no uppercase", func(u *NewUser) { u.Password = "secure1x" }},
		{"password no digit", func(u *NewUser) { u.Password = "SecureXx" }},
		{"bad email", func(u *NewUser) { u.Email = "not-an-email" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := aliceInput()
			tc.mutate(&input)
			_, err := svc.Register(ctx, input)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	svc, codec := testService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "alice", "Secure1x")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	now := time.Now().UTC()
	claims, err := codec.Decode(pair.AccessToken, now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, auth.TokenTypeAccess, claims.TokenType)

	refreshClaims, err := codec.Decode(pair.RefreshToken, now)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeRefresh, refreshClaims.TokenType)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "alice", "Wrong1xx")
	require.Error(t, wrongPassword)
	_, unknownUser := svc.Login(ctx, "nobody", "Secure1x")
	require.Error(t, unknownUser)

	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(wrongPassword))
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(unknownUser))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestLogin_InactiveAccount(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, user.ID, domain.UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "Secure1x")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	// same generic message as a wrong password
	_, wrongPassword := svc.Login(ctx, "alice", "Wrong1xx")
	assert.Equal(t, wrongPassword.Error(), err.Error())
}

func TestUpdate_PartialFields(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	fullName := "A. Liddell"
	updated, err := svc.Update(ctx, user.ID, domain.UserUpdate{FullName: &fullName})
	require.NoError(t, err)
	assert.Equal(t, "A. Liddell", updated.FullName)
	// unset fields are no-ops
	assert.Equal(t, user.Email, updated.Email)
	assert.Equal(t, user.Username, updated.Username)
	assert.Equal(t, user.PasswordHash, updated.PasswordHash)
}

func TestUpdate_PasswordRehash(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	password := "NewSecret2"
	updated, err := svc.Update(ctx, user.ID, domain.UserUpdate{Password: &password})
	require.NoError(t, err)
	assert.NotEqual(t, user.PasswordHash, updated.PasswordHash)

	_, err = svc.Login(ctx, "alice", "NewSecret2")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "alice", "Secure1x")
	assert.Error(t, err)
}

func TestUpdate_UsernameConflict(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	bobInput := NewUser{Email: "bob@example.com", Username: "bob", Password: "Secure1x"}
	bob, err := svc.Register(ctx, bobInput)
	require.NoError(t, err)

	taken := "alice"
	_, err = svc.Update(ctx, bob.ID, domain.UserUpdate{Username: &taken})
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestUpdate_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)

	name := "whoever"
	_, err := svc.Update(context.Background(), 9999, domain.UserUpdate{FullName: &name})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID))
	_, err = svc.GetByID(ctx, user.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}
