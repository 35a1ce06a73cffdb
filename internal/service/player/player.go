package player

import (
	"context"
	"strings"
	"time"

	"github.com/nkiryanov/refundpanel/internal/models"
	"github.com/nkiryanov/refundpanel/internal/repository"
)

const (
	ListLimit   = 100
	SearchLimit = 20

	defaultStoreTimeout = 5 * time.Second
)

// Read only access to game players
type PlayerService struct {
	playerRepo   repository.PlayerRepo
	storeTimeout time.Duration
}

func NewService(playerRepo repository.PlayerRepo, storeTimeout time.Duration) *PlayerService {
	if storeTimeout == 0 {
		storeTimeout = defaultStoreTimeout
	}

	return &PlayerService{
		playerRepo:   playerRepo,
		storeTimeout: storeTimeout,
	}
}

func (s *PlayerService) ListPlayers(ctx context.Context) ([]models.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.playerRepo.ListPlayers(ctx, ListLimit)
}

// Search by identifier, name or discord id
// Empty search lists players the same way ListPlayers does, but with search limit
func (s *PlayerService) SearchPlayers(ctx context.Context, search string) ([]models.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.playerRepo.SearchPlayers(ctx, strings.TrimSpace(search), SearchLimit)
}
