package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/discord"
	"github.com/nkiryanov/refundpanel/internal/models"
)

// Identity provider calls the authorizer depends on
// Implemented by discord.Client
type IdentityProvider interface {
	User(ctx context.Context, accessToken string) (discord.User, error)
	Guilds(ctx context.Context, accessToken string) ([]discord.Guild, error)
	GuildMember(ctx context.Context, guildID string, userID string, accessToken string) (discord.Member, error)
}

// Decide whether the token owner may act as panel admin.
// The owner has to be a guild member and hold the admin role there
type Authorizer struct {
	provider IdentityProvider
	guildID  string
	roleID   string
}

func NewAuthorizer(provider IdentityProvider, guildID string, roleID string) (*Authorizer, error) {
	if provider == nil {
		return nil, fmt.Errorf("identity provider must not be nil")
	}
	if guildID == "" || roleID == "" {
		return nil, fmt.Errorf("guild id and role id must not be empty")
	}

	return &Authorizer{
		provider: provider,
		guildID:  guildID,
		roleID:   roleID,
	}, nil
}

// Authorize access token owner
// Every provider failure is reported as apperrors.ErrUnauthenticated with the cause wrapped,
// missing membership or role as apperrors.ErrForbidden
func (a *Authorizer) Authorize(ctx context.Context, accessToken string) (models.Admin, error) {
	if accessToken == "" {
		return models.Admin{}, fmt.Errorf("%w: empty access token", apperrors.ErrUnauthenticated)
	}

	user, err := a.provider.User(ctx, accessToken)
	if err != nil {
		return models.Admin{}, fmt.Errorf("%w: failed to get user: %w", apperrors.ErrUnauthenticated, err)
	}

	guilds, err := a.provider.Guilds(ctx, accessToken)
	if err != nil {
		return models.Admin{}, fmt.Errorf("%w: failed to get user guilds: %w", apperrors.ErrUnauthenticated, err)
	}

	isMember := slices.ContainsFunc(guilds, func(g discord.Guild) bool { return g.ID == a.guildID })
	if !isMember {
		return models.Admin{}, fmt.Errorf("%w: %w", apperrors.ErrForbidden, apperrors.ErrNotGuildMember)
	}

	member, err := a.provider.GuildMember(ctx, a.guildID, user.ID, accessToken)
	if err != nil {
		return models.Admin{}, fmt.Errorf("%w: failed to get guild member: %w", apperrors.ErrUnauthenticated, err)
	}

	if !slices.Contains(member.Roles, a.roleID) {
		return models.Admin{}, fmt.Errorf("%w: %w", apperrors.ErrForbidden, apperrors.ErrMissingRole)
	}

	return models.Admin{
		ExternalID:  user.ID,
		DisplayName: user.DisplayName(),
	}, nil
}
