package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUser is the subset of GitHub's /user response used for sign-in.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID    int64  `json:"id"`    // stable numeric id; the account link
	Login string `json:"login"` // becomes the username on first sign-in
	Email string `json:"email"` // empty when hidden in GitHub settings
	Name  string `json:"name"`  // display name, may be empty
}

// StateCookie holds the OAuth state between /auth/github/login and the callback.
const StateCookie = "oauth_state"

const defaultGitHubAPI = "https://api.github.com"

// GitHubProvider runs the Authorization Code flow against GitHub.
//
//  1. AuthURL sends the browser to GitHub with a random state value.
//  2. GitHub redirects back with a one-time code and the same state.
//  3. Exchange trades the code for an access token (server to server, using
//     the client secret) and fetches the user's profile with it.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// GitHubOption customises a GitHubProvider.
type GitHubOption func(*GitHubProvider)

// WithGitHubEndpoints points the provider at another OAuth server and API
// base URL, e.g. a GitHub Enterprise instance or an httptest.Server.
func WithGitHubEndpoints(authURL, tokenURL, apiURL string) GitHubOption {
	return func(p *GitHubProvider) {
		p.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
		p.apiURL = apiURL
	}
}

// NewGitHubProvider creates a provider for a registered OAuth App.
// callbackURL must match the app's "Authorization callback URL" exactly,
// e.g. "http://localhost:8080/auth/github/callback".
func NewGitHubProvider(clientID, clientSecret, callbackURL string, opts ...GitHubOption) *GitHubProvider {
	p := &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: defaultGitHubAPI,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewState returns a fresh, hard to guess OAuth state value.
func NewState() string {
	return xid.New().String()
}

// AuthURL is where the browser is redirected to approve the sign-in.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the signed-in GitHub user.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The returned client adds "Authorization: Bearer <token>" to each request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 || ghUser.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an incomplete user (id=%d, login=%q)", ghUser.ID, ghUser.Login)
	}
	return &ghUser, nil
}
