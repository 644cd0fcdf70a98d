// Package service contains the feed server's business logic.
//
//	Handler (HTTP) → Service (rules) → Repository (SQLite)
//
// Services take repository interfaces, never concrete stores, and return
// apperror values that the handler layer maps onto responses. None of them
// know about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/auth"
	"github.com/sakif/brewlog/internal/metrics"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/repository"
)

// AuthService backs the login and saveUserProfile procedures.
//
//	login → IdentityProvider.Exchange → UserRepository.UpsertExternal → TokenService
type AuthService struct {
	users           repository.UserRepository
	tokens          *auth.TokenService
	providers       map[string]auth.IdentityProvider
	defaultProvider string
	appID           string
	logger          *slog.Logger
}

// NewAuthService wires the login flow. The first provider is used when a
// login request does not name one.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	providers []auth.IdentityProvider,
	appID string,
	logger *slog.Logger,
) *AuthService {
	s := &AuthService{
		users:     users,
		tokens:    tokens,
		providers: make(map[string]auth.IdentityProvider, len(providers)),
		appID:     appID,
		logger:    logger,
	}
	for _, p := range providers {
		if s.defaultProvider == "" {
			s.defaultProvider = p.Name()
		}
		s.providers[p.Name()] = p
	}
	return s
}

// Login exchanges a provider code for an openid and a session token.
func (s *AuthService) Login(ctx context.Context, code, providerName string) (*model.LoginResult, error) {
	providerName = strings.TrimSpace(providerName)
	if providerName == "" {
		providerName = s.defaultProvider
	}
	result, err := s.login(ctx, code, providerName)
	metrics.ObserveLogin(providerName, err)
	return result, err
}

func (s *AuthService) login(ctx context.Context, code, providerName string) (*model.LoginResult, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, apperror.ValidationFailed("provider", fmt.Sprintf("unknown login provider %q", providerName))
	}

	ext, err := provider.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyCode) {
			return nil, apperror.ValidationFailed("code", "code is required")
		}
		s.logger.Warn("login exchange failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthenticated("login failed: " + err.Error())
	}

	user := &model.User{
		Provider:   ext.Provider,
		ExternalID: ext.ID,
		NickName:   ext.NickName,
		AvatarURL:  ext.AvatarURL,
	}
	if err := s.users.UpsertExternal(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user %s:%s: %w", ext.Provider, ext.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", ext.Provider),
	)

	return &model.LoginResult{
		OpenID:  user.ID,
		AppID:   s.appID,
		UnionID: ext.Provider + ":" + ext.ID,
		Token:   token,
	}, nil
}

// SaveProfile stores the display profile the user chose.
func (s *AuthService) SaveProfile(ctx context.Context, userID string, profile model.Profile) error {
	if userID == "" {
		return apperror.Unauthenticated("未获取到用户 OpenID")
	}
	profile.NickName = strings.TrimSpace(profile.NickName)
	profile.AvatarURL = strings.TrimSpace(profile.AvatarURL)
	if profile.NickName == "" {
		return apperror.ValidationFailed("nickName", "nickName is required")
	}

	if err := s.users.UpdateProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("service/auth: saving profile of %s: %w", userID, err)
	}

	s.logger.Debug("profile saved", slog.String("user_id", userID))
	return nil
}

// GetUserByID returns the user behind an openid.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthenticated("未获取到用户 OpenID")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}
