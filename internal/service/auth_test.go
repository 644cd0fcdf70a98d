package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/auth"
	"github.com/sakif/brewlog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingProvider always rejects the code.
type failingProvider struct{}

func (failingProvider) Name() string { return "broken" }

func (failingProvider) Exchange(context.Context, string) (*auth.ExternalIdentity, error) {
	return nil, errors.New("provider says no")
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *auth.TokenService) {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	providers := []auth.IdentityProvider{auth.DevProvider{}, failingProvider{}}
	return NewAuthService(repo, ts, providers, "brewlog-test", quietLogger()), ts
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_IssuesTokenForOpenID(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)

	res, err := svc.Login(context.Background(), "alice", "")
	require.NoError(t, err)

	assert.NotEmpty(t, res.OpenID)
	assert.Equal(t, "brewlog-test", res.AppID)
	assert.Contains(t, res.UnionID, "dev:")

	sub, err := ts.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.OpenID, sub)
}

func TestLogin_SameCodeSameOpenID(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	first, err := svc.Login(ctx, "alice", "dev")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice", "dev")
	require.NoError(t, err)
	other, err := svc.Login(ctx, "bob", "dev")
	require.NoError(t, err)

	assert.Equal(t, first.OpenID, second.OpenID)
	assert.NotEqual(t, first.OpenID, other.OpenID)
	assert.Len(t, repo.users, 2)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		provider string
		wantErr  error
	}{
		{"unknown provider", "alice", "wechat", apperror.ErrValidation},
		{"empty code", "  ", "dev", apperror.ErrValidation},
		{"exchange failure", "alice", "broken", apperror.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAuthService(t, newFakeUserRepo())
			_, err := svc.Login(context.Background(), tt.code, tt.provider)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.upsertErr = errors.New("database is on fire")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Login(context.Background(), "alice", "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is on fire")
}

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestSaveProfile(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice", "dev")
	require.NoError(t, err)

	err = svc.SaveProfile(ctx, res.OpenID, model.Profile{NickName: "  阿丽 ", AvatarURL: "avatar.png"})
	require.NoError(t, err)

	user, err := svc.GetUserByID(ctx, res.OpenID)
	require.NoError(t, err)
	assert.Equal(t, "阿丽", user.NickName)
	assert.Equal(t, "avatar.png", user.AvatarURL)

	// A later login keeps the chosen nickname.
	_, err = svc.Login(ctx, "alice", "dev")
	require.NoError(t, err)
	user, err = svc.GetUserByID(ctx, res.OpenID)
	require.NoError(t, err)
	assert.Equal(t, "阿丽", user.NickName)
}

func TestSaveProfile_Errors(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	err := svc.SaveProfile(ctx, "", model.Profile{NickName: "x"})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	err = svc.SaveProfile(ctx, "user-1", model.Profile{NickName: " "})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "nickName", apperror.FieldOf(err))

	err = svc.SaveProfile(ctx, "missing", model.Profile{NickName: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetUserByID_Errors(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.GetUserByID(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = svc.GetUserByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
