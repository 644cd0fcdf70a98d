package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ExternalIdentity is what an identity provider vouches for after a code
// exchange. ID is stable for the same person on the same provider.
type ExternalIdentity struct {
	Provider  string
	ID        string
	NickName  string
	AvatarURL string
}

// IdentityProvider turns a one-time login code into an ExternalIdentity.
// The feed server treats providers as opaque: it never sees passwords and
// never interprets the code itself.
type IdentityProvider interface {
	Name() string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// ErrEmptyCode is returned when the login code is blank.
var ErrEmptyCode = errors.New("auth: login code is required")

// =========================================================================
// GITHUB
// =========================================================================

type gitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// GitHubProvider exchanges GitHub OAuth codes.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider configures the GitHub OAuth endpoints. Only the public
// profile is requested.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		userURL: "https://api.github.com/user",
	}
}

func (p *GitHubProvider) Name() string { return "github" }

// AuthURL is where a client sends the user to obtain a code.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades code for an access token and fetches the GitHub profile.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}

	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser gitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	nick := ghUser.Name
	if nick == "" {
		nick = ghUser.Login
	}
	return &ExternalIdentity{
		Provider:  p.Name(),
		ID:        strconv.FormatInt(ghUser.ID, 10),
		NickName:  nick,
		AvatarURL: ghUser.AvatarURL,
	}, nil
}

// =========================================================================
// DEV
// =========================================================================

// DevProvider accepts any code and derives a stable id from it. It exists
// for local runs and tests; servers enable it only with auth.dev_login.
type DevProvider struct{}

func (DevProvider) Name() string { return "dev" }

func (DevProvider) Exchange(_ context.Context, code string) (*ExternalIdentity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	sum := sha256.Sum256([]byte(code))
	return &ExternalIdentity{
		Provider: "dev",
		ID:       hex.EncodeToString(sum[:8]),
		NickName: code,
	}, nil
}
