package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored times sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// MatchRecord is a finished match as stored in the history
type MatchRecord struct {
	ID        string              `json:"id"`
	Seed      uint64              `json:"seed"`
	Stream    uint64              `json:"stream"`
	StartedAt time.Time           `json:"startedAt"`
	EndedAt   time.Time           `json:"endedAt"`
	Winner    string              `json:"winner,omitempty"`
	Players   []MatchPlayerRecord `json:"players"`
}

// MatchPlayerRecord represents a player's participation in a match
type MatchPlayerRecord struct {
	Nickname          string `json:"nickname"`
	Color             int    `json:"colorIndex"`
	Lives             int    `json:"lives"`
	Alive             bool   `json:"alive"`
	Won               bool   `json:"won"`
	BombsPlaced       int    `json:"bombsPlaced"`
	PowerupsCollected int    `json:"powerupsCollected"`
}

// LeaderboardEntry is one nickname's aggregate results
type LeaderboardEntry struct {
	Nickname string `json:"nickname"`
	Wins     int    `json:"wins"`
	Matches  int    `json:"matches"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		stream INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS match_players (
		match_id TEXT NOT NULL REFERENCES matches(id),
		nickname TEXT NOT NULL,
		color INTEGER NOT NULL DEFAULT 0,
		lives INTEGER NOT NULL DEFAULT 0,
		alive INTEGER NOT NULL DEFAULT 0,
		won INTEGER NOT NULL DEFAULT 0,
		bombs_placed INTEGER NOT NULL DEFAULT 0,
		powerups_collected INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (match_id, nickname)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_matches_ended ON matches(ended_at);
	CREATE INDEX IF NOT EXISTS idx_match_players_nickname ON match_players(nickname);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// InsertMatches writes a batch of finished matches in one transaction
func (db *DB) InsertMatches(ctx context.Context, recs []MatchRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	matchStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO matches (id, seed, stream, started_at, ended_at, winner) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare matches: %w", err)
	}
	defer matchStmt.Close()

	playerStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO match_players (match_id, nickname, color, lives, alive, won, bombs_placed, powerups_collected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare match_players: %w", err)
	}
	defer playerStmt.Close()

	for _, rec := range recs {
		// sqlite integers are signed; seeds round-trip through int64
		if _, err := matchStmt.ExecContext(ctx, rec.ID, int64(rec.Seed), int64(rec.Stream),
			rec.StartedAt.UTC().Format(timeLayout), rec.EndedAt.UTC().Format(timeLayout), rec.Winner); err != nil {
			return fmt.Errorf("insert match %s: %w", rec.ID, err)
		}
		for _, p := range rec.Players {
			if _, err := playerStmt.ExecContext(ctx, rec.ID, p.Nickname, p.Color, p.Lives,
				p.Alive, p.Won, p.BombsPlaced, p.PowerupsCollected); err != nil {
				return fmt.Errorf("insert player %s of match %s: %w", p.Nickname, rec.ID, err)
			}
		}
	}
	return tx.Commit()
}

// RecentMatches returns the latest matches, newest first
func (db *DB) RecentMatches(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, seed, stream, started_at, ended_at, winner FROM matches ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var seed, stream int64
		var started, ended string
		if err := rows.Scan(&rec.ID, &seed, &stream, &started, &ended, &rec.Winner); err != nil {
			return nil, err
		}
		rec.Seed, rec.Stream = uint64(seed), uint64(stream)
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("match %s: started_at: %w", rec.ID, err)
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("match %s: ended_at: %w", rec.ID, err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		players, err := db.matchPlayers(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Players = players
	}
	return list, nil
}

func (db *DB) matchPlayers(ctx context.Context, matchID string) ([]MatchPlayerRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT nickname, color, lives, alive, won, bombs_placed, powerups_collected
		FROM match_players WHERE match_id = ? ORDER BY color`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []MatchPlayerRecord
	for rows.Next() {
		var p MatchPlayerRecord
		if err := rows.Scan(&p.Nickname, &p.Color, &p.Lives, &p.Alive, &p.Won,
			&p.BombsPlaced, &p.PowerupsCollected); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Leaderboard returns nicknames ordered by wins
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT nickname, SUM(won) AS wins, COUNT(*) AS matches
		FROM match_players
		GROUP BY nickname
		ORDER BY wins DESC, matches DESC, nickname
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Nickname, &e.Wins, &e.Matches); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GetSetting returns a stored setting or "" when absent
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}
