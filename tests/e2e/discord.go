package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

const (
	GuildID     = "guild-1"
	AdminRoleID = "role-admin"
)

type DiscordUser struct {
	ID     string
	Name   string
	Guilds []string
	Roles  []string
}

// Fake Discord: consent page approves as the user set with LoginAs
// Access token is the user id prefixed with "token-"
type FakeDiscord struct {
	URL string

	mu      sync.Mutex
	users   map[string]DiscordUser
	current string
}

func NewFakeDiscord(t *testing.T) *FakeDiscord {
	d := &FakeDiscord{users: make(map[string]DiscordUser)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth2/authorize", d.handleAuthorize)
	mux.HandleFunc("POST /oauth2/token", d.handleToken)
	mux.HandleFunc("GET /users/@me", d.withUser(func(w http.ResponseWriter, r *http.Request, u DiscordUser) {
		writeJSON(w, map[string]any{"id": u.ID, "username": u.Name, "discriminator": "0"})
	}))
	mux.HandleFunc("GET /users/@me/guilds", d.withUser(func(w http.ResponseWriter, r *http.Request, u DiscordUser) {
		guilds := make([]map[string]string, 0, len(u.Guilds))
		for _, g := range u.Guilds {
			guilds = append(guilds, map[string]string{"id": g, "name": g})
		}
		writeJSON(w, guilds)
	}))
	mux.HandleFunc("GET /users/@me/guilds/{guild}/member", d.withUser(func(w http.ResponseWriter, r *http.Request, u DiscordUser) {
		writeJSON(w, map[string]any{"user": map[string]string{"id": u.ID, "username": u.Name}, "roles": u.Roles})
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	d.URL = srv.URL

	return d
}

// Next consent is given by this user
func (d *FakeDiscord) LoginAs(u DiscordUser) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[u.ID] = u
	d.current = u.ID
}

func (d *FakeDiscord) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	current := d.current
	d.mu.Unlock()

	q := r.URL.Query()
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || current == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	back := redirect.Query()
	back.Set("code", "code-"+current)
	back.Set("state", q.Get("state"))
	redirect.RawQuery = back.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (d *FakeDiscord) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	userID, ok := strings.CutPrefix(r.PostForm.Get("code"), "code-")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "invalid_grant"})
		return
	}

	writeJSON(w, map[string]any{"access_token": "token-" + userID, "token_type": "Bearer", "expires_in": 3600})
}

func (d *FakeDiscord) withUser(h func(http.ResponseWriter, *http.Request, DiscordUser)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer token-")

		d.mu.Lock()
		u, ok := d.users[userID]
		d.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h(w, r, u)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
