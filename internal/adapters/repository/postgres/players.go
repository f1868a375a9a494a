package postgres

import (
	"context"
	"fmt"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
)

// PlayerDirectory reads display names and avatars from the players table.
type PlayerDirectory struct {
	db *DB
}

var _ repository.PlayerDirectory = (*PlayerDirectory)(nil)

func NewPlayerDirectory(db *DB) *PlayerDirectory {
	return &PlayerDirectory{db: db}
}

func (d *PlayerDirectory) Players(ctx context.Context, ids []string) (map[string]model.Player, error) {
	out := make(map[string]model.Player, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := d.db.Query(ctx,
		`SELECT user_id, username, avatar_url FROM players WHERE user_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.UserID, &p.Username, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

func (d *PlayerDirectory) UpsertPlayer(ctx context.Context, p model.Player) error {
	_, err := d.db.Exec(ctx, `
		INSERT INTO players (user_id, username, avatar_url) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()`,
		p.UserID, p.Username, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("upsert player %s: %w", p.UserID, err)
	}
	return nil
}
