package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/discord"
	"github.com/nkiryanov/refundpanel/internal/models"
)

// Identity provider built from functions; counts calls
type fakeProvider struct {
	user   func(token string) (discord.User, error)
	guilds func(token string) ([]discord.Guild, error)
	member func(guildID string, userID string, token string) (discord.Member, error)

	calls []string
}

func (p *fakeProvider) User(_ context.Context, token string) (discord.User, error) {
	p.calls = append(p.calls, "user")
	return p.user(token)
}

func (p *fakeProvider) Guilds(_ context.Context, token string) ([]discord.Guild, error) {
	p.calls = append(p.calls, "guilds")
	return p.guilds(token)
}

func (p *fakeProvider) GuildMember(_ context.Context, guildID string, userID string, token string) (discord.Member, error) {
	p.calls = append(p.calls, "member")
	return p.member(guildID, userID, token)
}

const (
	testGuildID = "guild-1"
	testRoleID  = "role-admin"
)

// Provider that knows one admin with token "admin-token"
func newAdminProvider() *fakeProvider {
	return &fakeProvider{
		user: func(token string) (discord.User, error) {
			if token != "admin-token" {
				return discord.User{}, &discord.APIError{StatusCode: 401, Path: "/users/@me"}
			}
			return discord.User{ID: "u1", Username: "staff", Discriminator: "0"}, nil
		},
		guilds: func(string) ([]discord.Guild, error) {
			return []discord.Guild{{ID: "other"}, {ID: testGuildID}}, nil
		},
		member: func(guildID string, userID string, _ string) (discord.Member, error) {
			return discord.Member{Roles: []string{"role-x", testRoleID}}, nil
		},
	}
}

func TestAuthorizer(t *testing.T) {
	t.Run("new authorizer requires settings", func(t *testing.T) {
		_, err := NewAuthorizer(nil, testGuildID, testRoleID)
		require.Error(t, err)

		_, err = NewAuthorizer(newAdminProvider(), "", testRoleID)
		require.Error(t, err)

		_, err = NewAuthorizer(newAdminProvider(), testGuildID, "")
		require.Error(t, err)
	})

	t.Run("admin ok", func(t *testing.T) {
		p := newAdminProvider()
		a, err := NewAuthorizer(p, testGuildID, testRoleID)
		require.NoError(t, err)

		admin, err := a.Authorize(t.Context(), "admin-token")

		require.NoError(t, err)
		require.Equal(t, models.Admin{ExternalID: "u1", DisplayName: "staff"}, admin)
		require.Equal(t, []string{"user", "guilds", "member"}, p.calls, "calls are sequential")
	})

	upstream := errors.New("connection reset")

	tests := []struct {
		name          string
		token         string
		setup         func(p *fakeProvider)
		expectedErrs  []error
		expectedCalls []string
	}{
		{
			name:          "empty token",
			token:         "",
			expectedErrs:  []error{apperrors.ErrUnauthenticated},
			expectedCalls: nil,
		},
		{
			name:          "identity rejected",
			token:         "stolen-token",
			expectedErrs:  []error{apperrors.ErrUnauthenticated},
			expectedCalls: []string{"user"},
		},
		{
			name:  "identity unavailable",
			token: "admin-token",
			setup: func(p *fakeProvider) {
				p.user = func(string) (discord.User, error) { return discord.User{}, upstream }
			},
			expectedErrs:  []error{apperrors.ErrUnauthenticated, upstream},
			expectedCalls: []string{"user"},
		},
		{
			name:  "guilds unavailable",
			token: "admin-token",
			setup: func(p *fakeProvider) {
				p.guilds = func(string) ([]discord.Guild, error) { return nil, upstream }
			},
			expectedErrs:  []error{apperrors.ErrUnauthenticated, upstream},
			expectedCalls: []string{"user", "guilds"},
		},
		{
			name:  "not a guild member",
			token: "admin-token",
			setup: func(p *fakeProvider) {
				p.guilds = func(string) ([]discord.Guild, error) { return []discord.Guild{{ID: "other"}}, nil }
			},
			expectedErrs:  []error{apperrors.ErrForbidden, apperrors.ErrNotGuildMember},
			expectedCalls: []string{"user", "guilds"},
		},
		{
			name:  "member unavailable",
			token: "admin-token",
			setup: func(p *fakeProvider) {
				p.member = func(string, string, string) (discord.Member, error) { return discord.Member{}, upstream }
			},
			expectedErrs:  []error{apperrors.ErrUnauthenticated, upstream},
			expectedCalls: []string{"user", "guilds", "member"},
		},
		{
			name:  "missing role",
			token: "admin-token",
			setup: func(p *fakeProvider) {
				p.member = func(string, string, string) (discord.Member, error) {
					return discord.Member{Roles: []string{"role-x"}}, nil
				}
			},
			expectedErrs:  []error{apperrors.ErrForbidden, apperrors.ErrMissingRole},
			expectedCalls: []string{"user", "guilds", "member"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newAdminProvider()
			if tt.setup != nil {
				tt.setup(p)
			}
			a, err := NewAuthorizer(p, testGuildID, testRoleID)
			require.NoError(t, err)

			admin, err := a.Authorize(t.Context(), tt.token)

			require.Error(t, err)
			for _, expected := range tt.expectedErrs {
				require.ErrorIs(t, err, expected)
			}
			require.Empty(t, admin)
			require.Equal(t, tt.expectedCalls, p.calls, "authorizer has to stop on first failure")
		})
	}

	t.Run("forbidden is never unauthenticated", func(t *testing.T) {
		p := newAdminProvider()
		p.member = func(string, string, string) (discord.Member, error) { return discord.Member{}, nil }
		a, err := NewAuthorizer(p, testGuildID, testRoleID)
		require.NoError(t, err)

		_, err = a.Authorize(t.Context(), "admin-token")

		require.ErrorIs(t, err, apperrors.ErrForbidden)
		require.NotErrorIs(t, err, apperrors.ErrUnauthenticated)
	})
}
