package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/refundpanel/internal/models"
)

type PlayerRepo struct {
	DB DBTX
}

const listPlayers = `-- name: ListPlayers
SELECT identifier, TRIM(firstname || ' ' || lastname) AS name, discord_id
FROM players
ORDER BY name
LIMIT $1
`

func (r *PlayerRepo) ListPlayers(ctx context.Context, limit int) ([]models.Player, error) {
	rows, _ := r.DB.Query(ctx, listPlayers, limit)
	players, err := pgx.CollectRows(rows, rowToPlayer)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return players, nil
}

// Match identifier, full name or discord id as substring
const searchPlayers = `-- name: SearchPlayers
SELECT identifier, TRIM(firstname || ' ' || lastname) AS name, discord_id
FROM players
WHERE identifier ILIKE $1
	OR (firstname || ' ' || lastname) ILIKE $1
	OR discord_id ILIKE $1
ORDER BY name
LIMIT $2
`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PlayerRepo) SearchPlayers(ctx context.Context, search string, limit int) ([]models.Player, error) {
	pattern := "%" + likeEscaper.Replace(search) + "%"

	rows, _ := r.DB.Query(ctx, searchPlayers, pattern, limit)
	players, err := pgx.CollectRows(rows, rowToPlayer)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return players, nil
}

func rowToPlayer(row pgx.CollectableRow) (models.Player, error) {
	var p models.Player
	err := row.Scan(&p.Identifier, &p.Name, &p.DiscordID)
	return p, err
}
