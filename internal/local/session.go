package local

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/store"
)

// Authenticator is the remote half of login.
type Authenticator interface {
	Login(ctx context.Context, code, provider string) (model.LoginResult, error)
	SaveUserProfile(ctx context.Context, profile model.Profile) error
}

// LoginRequest is what the user supplies when asked to log in.
type LoginRequest struct {
	Profile  model.Profile
	Code     string
	Provider string
}

// LoginPrompter asks the user for a display profile and a login code.
type LoginPrompter interface {
	RequestLogin(ctx context.Context) (LoginRequest, error)
}

// SessionService caches the login in the store and runs the login flow when
// there is no usable cache.
type SessionService struct {
	store    store.Store
	auth     Authenticator
	prompter LoginPrompter
	logger   *slog.Logger

	// bg tracks best-effort profile syncs started by EnsureLogin.
	bg sync.WaitGroup
}

func NewSessionService(st store.Store, auth Authenticator, prompter LoginPrompter, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:    st,
		auth:     auth,
		prompter: prompter,
		logger:   logger,
	}
}

// Current returns the cached session. ok is false unless both a profile and
// an openid are stored.
func (s *SessionService) Current(ctx context.Context) (model.Session, bool, error) {
	var sess model.Session

	hasProfile, err := s.store.Get(ctx, store.KeyProfile, &sess.Profile)
	if err != nil {
		return model.Session{}, false, fmt.Errorf("local/session: reading profile: %w", err)
	}
	if _, err := s.store.Get(ctx, store.KeyOpenID, &sess.OpenID); err != nil {
		return model.Session{}, false, fmt.Errorf("local/session: reading openid: %w", err)
	}
	if _, err := s.store.Get(ctx, store.KeyToken, &sess.Token); err != nil {
		return model.Session{}, false, fmt.Errorf("local/session: reading token: %w", err)
	}

	return sess, hasProfile && sess.OpenID != "", nil
}

// OpenID returns the cached openid, or "" before the first login.
func (s *SessionService) OpenID(ctx context.Context) string {
	var id string
	if _, err := s.store.Get(ctx, store.KeyOpenID, &id); err != nil {
		s.logger.Warn("reading openid failed", slog.String("error", err.Error()))
		return ""
	}
	return id
}

// Token returns the cached session token. It satisfies rpc.TokenSource.
func (s *SessionService) Token(ctx context.Context) (string, error) {
	var token string
	if _, err := s.store.Get(ctx, store.KeyToken, &token); err != nil {
		return "", fmt.Errorf("local/session: reading token: %w", err)
	}
	return token, nil
}

// Messages reported when the cached session cannot identify a publisher.
const (
	MsgNoOpenID   = "未获取到用户 OpenID"
	MsgNoNickName = "未获取到用户昵称"
)

// Identity returns the publishing identity, or apperror.ErrUnauthenticated
// when the cached session is missing either the openid or the nickname.
// The message names whichever one is missing, openid first.
func (s *SessionService) Identity(ctx context.Context) (model.Identity, error) {
	sess, _, err := s.Current(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	id := sess.Identity()
	switch {
	case id.UserID == "":
		return model.Identity{}, apperror.Unauthenticated(MsgNoOpenID)
	case id.DisplayName == "":
		return model.Identity{}, apperror.Unauthenticated(MsgNoNickName)
	}
	return id, nil
}

// EnsureLogin returns the cached session when there is one and refreshes
// the server-side profile in the background. Otherwise it runs Login.
func (s *SessionService) EnsureLogin(ctx context.Context) (model.Session, error) {
	sess, ok, err := s.Current(ctx)
	if err != nil {
		return model.Session{}, err
	}
	if ok {
		s.syncProfileAsync(sess)
		return sess, nil
	}
	return s.Login(ctx)
}

// Login asks the user for a profile and code, exchanges the code, caches
// the result, then tries to store the profile on the server. A failed
// profile sync does not fail the login.
func (s *SessionService) Login(ctx context.Context) (model.Session, error) {
	req, err := s.prompter.RequestLogin(ctx)
	if err != nil {
		return model.Session{}, fmt.Errorf("local/session: requesting profile: %w", err)
	}
	req.Profile.NickName = strings.TrimSpace(req.Profile.NickName)
	if req.Profile.NickName == "" {
		return model.Session{}, apperror.ValidationFailed("nickName", "nickName is required")
	}

	result, err := s.auth.Login(ctx, req.Code, req.Provider)
	if err != nil {
		return model.Session{}, err
	}
	if result.OpenID == "" {
		return model.Session{}, apperror.Unauthenticated("login returned no openid")
	}

	sess := model.Session{Profile: req.Profile, OpenID: result.OpenID, Token: result.Token}
	if err := s.saveSession(ctx, sess); err != nil {
		return model.Session{}, err
	}

	if err := s.auth.SaveUserProfile(ctx, sess.Profile); err != nil {
		s.logger.Warn("saving profile to server failed",
			slog.String("user_id", sess.OpenID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("logged in", slog.String("user_id", sess.OpenID))
	return sess, nil
}

// UpdateProfile changes the cached display profile and pushes it to the
// server. Unlike the background sync, a server failure is returned.
func (s *SessionService) UpdateProfile(ctx context.Context, p model.Profile) error {
	p.NickName = strings.TrimSpace(p.NickName)
	if p.NickName == "" {
		return apperror.ValidationFailed("nickName", "nickName is required")
	}
	if err := s.store.Set(ctx, store.KeyProfile, p); err != nil {
		return fmt.Errorf("local/session: saving profile: %w", err)
	}
	return s.auth.SaveUserProfile(ctx, p)
}

// ClearProfile forgets the cached login.
func (s *SessionService) ClearProfile(ctx context.Context) error {
	for _, key := range []string{store.KeyProfile, store.KeyOpenID, store.KeyToken} {
		if err := s.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("local/session: removing %s: %w", key, err)
		}
	}
	return nil
}

// Wait blocks until background profile syncs have finished.
func (s *SessionService) Wait() {
	s.bg.Wait()
}

func (s *SessionService) saveSession(ctx context.Context, sess model.Session) error {
	if err := s.store.Set(ctx, store.KeyProfile, sess.Profile); err != nil {
		return fmt.Errorf("local/session: saving profile: %w", err)
	}
	if err := s.store.Set(ctx, store.KeyOpenID, sess.OpenID); err != nil {
		return fmt.Errorf("local/session: saving openid: %w", err)
	}
	if sess.Token != "" {
		if err := s.store.Set(ctx, store.KeyToken, sess.Token); err != nil {
			return fmt.Errorf("local/session: saving token: %w", err)
		}
	}
	return nil
}

// syncProfileAsync runs detached from the caller's context so returning
// from EnsureLogin does not cancel it.
func (s *SessionService) syncProfileAsync(sess model.Session) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := s.auth.SaveUserProfile(context.Background(), sess.Profile); err != nil {
			s.logger.Warn("background profile sync failed",
				slog.String("user_id", sess.OpenID),
				slog.String("error", err.Error()),
			)
		}
	}()
}
