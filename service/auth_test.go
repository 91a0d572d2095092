package service

import (
	"errors"
	"testing"
	"time"

	"carmarket/auth"
	"carmarket/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)

	res := f.register(t, "Testy", "t@test.com")
	assert.Equal(t, "Testy", res.User.Name)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.Password), []byte("x")))

	stored, err := f.store.Users().GetByID(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Tokens.RefreshToken}, stored.RefreshTokens)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Register(f.ctx, ProfileInput{Email: "t@test.com", Password: "x"})
	requireKind(t, err, models.KindInvalidInput)

	_, err = f.auth.Register(f.ctx, ProfileInput{Name: "Testy", Password: "x"})
	requireKind(t, err, models.KindInvalidInput)

	_, err = f.auth.Register(f.ctx, ProfileInput{Name: "Testy", Email: "t@test.com"})
	requireKind(t, err, models.KindInvalidInput)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Testy", "t@test.com")

	_, err := f.auth.Register(f.ctx, ProfileInput{Name: "Other", Email: "t@test.com", Password: "y"})
	requireKind(t, err, models.KindConflict)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Testy", "t@test.com")

	res, err := f.auth.Login(f.ctx, "t@test.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "t@test.com", res.User.Email)

	stored, err := f.store.Users().GetByEmail(f.ctx, "t@test.com")
	require.NoError(t, err)
	assert.Len(t, stored.RefreshTokens, 2)

	_, err = f.auth.Login(f.ctx, "t@test.com", "wrong")
	requireKind(t, err, models.KindUnauthorized)

	_, err = f.auth.Login(f.ctx, "nobody@test.com", "x")
	requireKind(t, err, models.KindUnauthorized)

	_, err = f.auth.Login(f.ctx, "", "x")
	requireKind(t, err, models.KindInvalidInput)
}

func TestRefresh_Rotates(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Testy", "t@test.com")

	tokens, err := f.auth.Refresh(f.ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.Tokens.RefreshToken, tokens.RefreshToken)

	claims, err := f.tokens.ParseAccess(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.Hex(), claims.UserID)

	stored, err := f.store.Users().GetByID(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tokens.RefreshToken}, stored.RefreshTokens)
}

func TestRefresh_ReuseRevokesEverySession(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Testy", "t@test.com")
	other, err := f.auth.Login(f.ctx, "t@test.com", "x")
	require.NoError(t, err)

	rotated, err := f.auth.Refresh(f.ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = f.auth.Refresh(f.ctx, res.Tokens.RefreshToken)
	requireKind(t, err, models.KindUnauthorized)

	_, err = f.auth.Refresh(f.ctx, rotated.RefreshToken)
	requireKind(t, err, models.KindUnauthorized)
	_, err = f.auth.Refresh(f.ctx, other.Tokens.RefreshToken)
	requireKind(t, err, models.KindUnauthorized)

	stored, err := f.store.Users().GetByID(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokens)
}

func TestRefresh_BadSignatureLeavesSessions(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Testy", "t@test.com")

	forger := auth.NewTokenManager("forged-access-secret-0123456789", "forged-refresh-secret-0123456789", time.Hour, time.Hour)
	forged, err := forger.IssueRefresh(res.User.ID.Hex())
	require.NoError(t, err)

	_, err = f.auth.Refresh(f.ctx, forged)
	requireKind(t, err, models.KindUnauthorized)

	stored, err := f.store.Users().GetByID(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Tokens.RefreshToken}, stored.RefreshTokens)
}

func TestRefresh_ExpiredRevokes(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Testy", "t@test.com")

	stale := auth.NewTokenManager(testAccessSecret, testRefreshSecret, time.Hour, -time.Minute)
	expired, err := stale.IssueRefresh(res.User.ID.Hex())
	require.NoError(t, err)
	require.NoError(t, f.store.Users().AddRefreshToken(f.ctx, res.User.ID, expired))

	_, err = f.auth.Refresh(f.ctx, expired)
	requireKind(t, err, models.KindUnauthorized)

	stored, err := f.store.Users().GetByID(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RefreshTokens)
}

func TestRefresh_MissingToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.auth.Refresh(f.ctx, "")
	requireKind(t, err, models.KindUnauthorized)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Testy", "t@test.com")
	other, err := f.auth.Login(f.ctx, "t@test.com", "x")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(f.ctx, res.Tokens.RefreshToken))

	stored, err := f.store.Users().GetByID(f.ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{other.Tokens.RefreshToken}, stored.RefreshTokens)

	err = f.auth.Logout(f.ctx, res.Tokens.RefreshToken)
	requireKind(t, err, models.KindUnauthorized)

	_, err = f.auth.Refresh(f.ctx, res.Tokens.RefreshToken)
	requireKind(t, err, models.KindUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Testy", "t@test.com")
	f.register(t, "Other", "o@test.com")
	id := res.User.ID.Hex()

	in := ProfileInput{Name: "Renamed", Email: "new@test.com", Password: "y", PhoneNumber: "054-1234567"}

	_, err := f.auth.UpdateProfile(f.ctx, id, "someone-else", in)
	requireKind(t, err, models.KindUnauthorized)

	_, err = f.auth.UpdateProfile(f.ctx, id, id, ProfileInput{Name: "Renamed"})
	requireKind(t, err, models.KindInvalidInput)

	taken := in
	taken.Email = "o@test.com"
	_, err = f.auth.UpdateProfile(f.ctx, id, id, taken)
	requireKind(t, err, models.KindConflict)

	updated, err := f.auth.UpdateProfile(f.ctx, id, id, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "new@test.com", updated.Email)
	assert.Equal(t, "054-1234567", updated.PhoneNumber)

	_, err = f.auth.Login(f.ctx, "new@test.com", "y")
	assert.NoError(t, err)
}

func TestUpdateProfile_SameEmailIsAllowed(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "Testy", "t@test.com")
	id := res.User.ID.Hex()

	updated, err := f.auth.UpdateProfile(f.ctx, id, id, ProfileInput{Name: "Renamed", Email: "t@test.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestGoogleSignIn(t *testing.T) {
	f := newFixture(t)
	f.google.identity = &auth.GoogleIdentity{Subject: "g-1", Email: "g@test.com", Name: "Goo", Picture: "https://example.com/g.png"}

	first, created, err := f.auth.GoogleSignIn(f.ctx, "credential")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Goo", first.User.Name)
	assert.Equal(t, "https://example.com/g.png", first.User.ImgURL)

	second, created, err := f.auth.GoogleSignIn(f.ctx, "credential")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestGoogleSignIn_Rejected(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.auth.GoogleSignIn(f.ctx, "")
	requireKind(t, err, models.KindInvalidInput)

	f.google.err = errors.New("bad audience")
	_, _, err = f.auth.GoogleSignIn(f.ctx, "credential")
	requireKind(t, err, models.KindUnauthorized)

	f.google.err = auth.ErrGoogleNotConfigured
	_, _, err = f.auth.GoogleSignIn(f.ctx, "credential")
	requireKind(t, err, models.KindInternal)
}
