package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "bomber.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleMatch(id, winner string, ended time.Time) MatchRecord {
	return MatchRecord{
		ID:        id,
		Seed:      1 << 63, // does not fit in int64
		Stream:    3,
		StartedAt: ended.Add(-90 * time.Second),
		EndedAt:   ended,
		Winner:    winner,
		Players: []MatchPlayerRecord{
			{Nickname: "alice", Color: 0, Lives: 2, Alive: true, Won: winner == "alice", BombsPlaced: 4, PowerupsCollected: 1},
			{Nickname: "bob", Color: 1, Lives: 0, Alive: false, Won: winner == "bob", BombsPlaced: 2},
		},
	}
}

func TestInsertAndListMatches(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	recs := []MatchRecord{
		sampleMatch("m1", "alice", now),
		sampleMatch("m2", "bob", now.Add(time.Minute)),
	}
	if err := db.InsertMatches(ctx, recs); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Re-inserting the same ids is ignored
	if err := db.InsertMatches(ctx, recs[:1]); err != nil {
		t.Fatalf("re-insert: %v", err)
	}

	list, err := db.RecentMatches(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(list))
	}
	if list[0].ID != "m2" {
		t.Errorf("newest match first, got %s", list[0].ID)
	}
	got := list[1]
	if got.Seed != 1<<63 || got.Stream != 3 {
		t.Errorf("seed pair should round trip, got (%d, %d)", got.Seed, got.Stream)
	}
	if !got.EndedAt.Equal(now) || got.EndedAt.Sub(got.StartedAt) != 90*time.Second {
		t.Errorf("unexpected times %v - %v", got.StartedAt, got.EndedAt)
	}
	if len(got.Players) != 2 || got.Players[0].Nickname != "alice" || !got.Players[0].Won || got.Players[0].BombsPlaced != 4 {
		t.Errorf("unexpected players %+v", got.Players)
	}

	list, err = db.RecentMatches(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Errorf("limit 1 returned %d (%v)", len(list), err)
	}
}

func TestLeaderboard(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	db.InsertMatches(ctx, []MatchRecord{
		sampleMatch("m1", "alice", now),
		sampleMatch("m2", "alice", now),
		sampleMatch("m3", "bob", now),
	})

	board, err := db.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board))
	}
	if board[0].Nickname != "alice" || board[0].Wins != 2 || board[0].Matches != 3 {
		t.Errorf("unexpected leader %+v", board[0])
	}
	if board[1].Nickname != "bob" || board[1].Wins != 1 {
		t.Errorf("unexpected runner-up %+v", board[1])
	}
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("missing setting should be empty, got %q", v)
	}
	if err := db.SetSetting("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSetting("k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v := db.GetSetting("k"); v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}
}

func TestHistoryFlushesOnStop(t *testing.T) {
	db := openTestDB(t)
	h := NewHistory(db, zaptest.NewLogger(t))

	h.Record(sampleMatch("m1", "alice", time.Now()))
	h.Record(sampleMatch("m2", "bob", time.Now()))
	h.Stop()

	recorded, dropped := h.Counts()
	if recorded != 2 || dropped != 0 {
		t.Errorf("expected 2 recorded 0 dropped, got %d %d", recorded, dropped)
	}
	list, err := db.RecentMatches(context.Background(), 10)
	if err != nil || len(list) != 2 {
		t.Errorf("expected 2 stored matches, got %d (%v)", len(list), err)
	}
}

func TestRecentMatchesRejectsCorruptTimes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO matches (id, seed, stream, started_at, ended_at, winner) VALUES (?, ?, ?, ?, ?, ?)`,
		"bad", 1, 1, "yesterday", "2026-03-01T10:00:00.000000000Z", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecentMatches(ctx, 10); err == nil || !strings.Contains(err.Error(), "started_at") {
		t.Errorf("expected a started_at parse error, got %v", err)
	}
}
