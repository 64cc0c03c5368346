// Package storage persists game session snapshots in Postgres. Snapshots are
// written after a transition commits and read when a chat's session is not in
// memory, so the store never sits inside a state transition.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/korveth/ti4bot/core/logger"
	"github.com/korveth/ti4bot/game"
)

const opTimeout = 5 * time.Second

// Postgres implements game.Store on top of a sessions table holding one JSON
// snapshot per chat.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

type sessionRow struct {
	ChatID    int64           `db:"chat_id"`
	Phase     string          `db:"phase"`
	Round     int             `db:"round"`
	Snapshot  json.RawMessage `db:"snapshot"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Save upserts the snapshot for its chat.
func (s *Postgres) Save(ctx context.Context, snap game.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	start := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, phase, round, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE
		SET phase = EXCLUDED.phase,
		    round = EXCLUDED.round,
		    snapshot = EXCLUDED.snapshot,
		    updated_at = EXCLUDED.updated_at`,
		snap.ChatID, string(snap.Phase), snap.Round, data, snap.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session %d: %w", snap.ChatID, err)
	}
	logger.Debug(ctx, "store", "session.save",
		slog.Int64("chat_id", snap.ChatID),
		slog.String("phase", string(snap.Phase)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Load reads the snapshot for a chat, returning game.ErrSnapshotNotFound when
// no row exists.
func (s *Postgres) Load(ctx context.Context, chatID int64) (game.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT chat_id, phase, round, snapshot, updated_at FROM sessions WHERE chat_id = $1`,
		chatID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Snapshot{}, game.ErrSnapshotNotFound
	}
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("load session %d: %w", chatID, err)
	}

	var snap game.Snapshot
	if err := json.Unmarshal(row.Snapshot, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode session %d: %w", chatID, err)
	}
	return snap, nil
}

// Delete removes the stored snapshot for a chat. Deleting an absent row is
// not an error.
func (s *Postgres) Delete(ctx context.Context, chatID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("delete session %d: %w", chatID, err)
	}
	return nil
}
