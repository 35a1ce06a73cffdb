// Package discord is a client of the Discord OAuth2 and user REST API.
// It covers only what is required to verify a panel admin.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
)

const (
	defaultBaseURL = "https://discord.com/api/v10"
	defaultTimeout = 5 * time.Second
)

// Scopes to read user, its guilds and guild member roles
var Scopes = []string{"identify", "guilds", "guilds.members.read"}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Discord API url, default is used if empty
	BaseURL string

	// Timeout for every call to Discord, default is used if zero
	Timeout time.Duration
}

// Discord answered with not successful status code
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api error: %s responded with status %d", e.Path, e.StatusCode)
}

type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	GlobalName    *string `json:"global_name"`
}

// Name to show in the audit trail
// Legacy users still have discriminator, for others global name is preferred
func (u User) DisplayName() string {
	switch {
	case u.Discriminator != "" && u.Discriminator != "0":
		return u.Username + "#" + u.Discriminator
	case u.GlobalName != nil && *u.GlobalName != "":
		return *u.GlobalName
	default:
		return u.Username
	}
}

type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Member struct {
	User  *User    `json:"user"`
	Nick  *string  `json:"nick"`
	Roles []string `json:"roles"`
}

type Client struct {
	oauth   *oauth2.Config
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("discord client id and secret must not be empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.BaseURL + "/oauth2/authorize",
				TokenURL:  cfg.BaseURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// URL of Discord consent page
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange authorization code for access token
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.http), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &APIError{StatusCode: retrieveErr.Response.StatusCode, Path: "/oauth2/token"}
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
	}

	return token, nil
}

// Current user of the token
func (c *Client) User(ctx context.Context, accessToken string) (User, error) {
	var u User
	err := c.get(ctx, accessToken, "/users/@me", &u)
	return u, err
}

// Guilds current user is member of
func (c *Client) Guilds(ctx context.Context, accessToken string) ([]Guild, error) {
	var guilds []Guild
	err := c.get(ctx, accessToken, "/users/@me/guilds", &guilds)
	return guilds, err
}

// Membership of current user in the guild
// userID is checked against the user Discord returned, so the member is never attributed to other user
func (c *Client) GuildMember(ctx context.Context, guildID string, userID string, accessToken string) (Member, error) {
	var m Member
	err := c.get(ctx, accessToken, "/users/@me/guilds/"+url.PathEscape(guildID)+"/member", &m)
	if err != nil {
		return m, err
	}

	if m.User != nil && m.User.ID != userID {
		return Member{}, fmt.Errorf("discord returned member %s, expected %s", m.User.ID, userID)
	}

	return m, nil
}

func (c *Client) get(ctx context.Context, accessToken string, path string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Token has no expiry here: it is never refreshed, client only sets authorization header
	client := c.oauth.Client(
		context.WithValue(ctx, oauth2.HTTPClient, c.http),
		&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"},
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Path: path}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", apperrors.ErrUpstream, path, err)
	}

	return nil
}
