// Package store keeps the denormalized records external consumers read:
// live voice-connection rows, DM contact recency and user presence. The
// relay treats it as a best-effort collaborator; routing never depends on
// a write landing.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Skannik/vid222/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS voice_connections (
	id         TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	muted      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS direct_message_contacts (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id          TEXT NOT NULL,
	contact_id       TEXT NOT NULL,
	last_interaction TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, contact_id)
);
CREATE TABLE IF NOT EXISTS user_status (
	user_id    TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) SetUserStatus(ctx context.Context, uid domain.UserID, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_status (user_id, status, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		string(uid), status, time.Now().UTC())
	return err
}

// UserStatus returns the stored presence, "offline" when unknown.
func (s *Store) UserStatus(ctx context.Context, uid domain.UserID) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM user_status WHERE user_id = ?`, string(uid)).Scan(&status)
	if err == sql.ErrNoRows {
		return "offline", nil
	}
	return status, err
}

func (s *Store) UpsertVoiceConnection(ctx context.Context, channelID string, uid domain.UserID, muted bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO voice_connections (id, channel_id, user_id, muted) VALUES (?, ?, ?, ?)`,
		fmt.Sprintf("%s-%s", uid, channelID), channelID, string(uid), muted)
	return err
}

func (s *Store) DeleteVoiceConnection(ctx context.Context, channelID string, uid domain.UserID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM voice_connections WHERE channel_id = ? AND user_id = ?`,
		channelID, string(uid))
	return err
}

// VoiceRow is what external consumers see of a live voice connection.
type VoiceRow struct {
	ChannelID string
	UserID    domain.UserID
	Muted     bool
}

func (s *Store) VoiceConnections(ctx context.Context, channelID string) ([]VoiceRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, user_id, muted FROM voice_connections WHERE channel_id = ? ORDER BY user_id`,
		channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VoiceRow
	for rows.Next() {
		var r VoiceRow
		var uid string
		if err := rows.Scan(&r.ChannelID, &uid, &r.Muted); err != nil {
			return nil, err
		}
		r.UserID = domain.UserID(uid)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) TouchContact(ctx context.Context, uid, contact domain.UserID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO direct_message_contacts (user_id, contact_id, last_interaction) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, contact_id) DO UPDATE SET last_interaction = excluded.last_interaction`,
		string(uid), string(contact), time.Now().UTC())
	return err
}

// Contacts lists a user's DM contacts, most recent first.
func (s *Store) Contacts(ctx context.Context, uid domain.UserID) ([]domain.UserID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_id FROM direct_message_contacts WHERE user_id = ? ORDER BY last_interaction DESC`,
		string(uid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.UserID
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, domain.UserID(c))
	}
	return out, rows.Err()
}
