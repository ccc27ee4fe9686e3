package main

import (
	"errors"
	"math"
	"testing"
)

func TestRegistryAddPlayer(t *testing.T) {
	r := NewRegistry()
	for i, name := range []string{"a", "b", "c", "d"} {
		p, err := r.AddPlayer(string(rune('1'+i)), name)
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		if p.Color != i {
			t.Errorf("%s: expected color %d, got %d", name, i, p.Color)
		}
	}
	if _, err := r.AddPlayer("5", "e"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("expected ErrRoomFull, got %v", err)
	}
	r.RemovePlayer("2")
	if _, err := r.AddPlayer("5", "a"); !errors.Is(err, ErrDuplicateNickname) {
		t.Errorf("expected ErrDuplicateNickname, got %v", err)
	}
	p, err := r.AddPlayer("5", "b")
	if err != nil {
		t.Fatalf("nickname of a removed player should be free: %v", err)
	}
	if p.Color != 0 {
		t.Errorf("colors continue round-robin, expected 0 got %d", p.Color)
	}

	var order []string
	for _, p := range r.Players() {
		order = append(order, p.ID)
	}
	if want := []string{"1", "3", "4", "5"}; len(order) != 4 || order[1] != want[1] || order[3] != want[3] {
		t.Errorf("expected join order %v, got %v", want, order)
	}
}

func TestRegistryReleaseNicknameKeepsPlayer(t *testing.T) {
	r := NewRegistry()
	p, _ := r.AddPlayer("1", "alice")
	r.ReleaseNickname(p)
	if r.NicknameTaken("alice") {
		t.Error("nickname should be free")
	}
	if r.PlayerCount() != 1 {
		t.Error("player should stay registered")
	}

	// A newcomer taking the nickname is not affected by a later release
	if _, err := r.AddPlayer("2", "alice"); err != nil {
		t.Fatal(err)
	}
	r.ReleaseNickname(p)
	if !r.NicknameTaken("alice") {
		t.Error("releasing an old reservation must not free the new owner's nickname")
	}
}

func TestRegistryListAlive(t *testing.T) {
	r := NewRegistry()
	r.AddPlayer("1", "a")
	p2, _ := r.AddPlayer("2", "b")
	r.AddPlayer("3", "c")
	p2.Alive = false

	alive := r.ListAlive()
	if len(alive) != 2 || alive[0].ID != "1" || alive[1].ID != "3" {
		t.Errorf("unexpected alive list %v", alive)
	}
}

func TestRegistryBombs(t *testing.T) {
	r := NewRegistry()
	pos := Point{1, 1}
	if err := r.AddBomb(&Bomb{ID: 1, Pos: pos}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddBomb(&Bomb{ID: 2, Pos: pos}); !errors.Is(err, ErrTileOccupied) {
		t.Errorf("expected ErrTileOccupied, got %v", err)
	}
	if !r.BombAt(pos) || r.BombCount() != 1 {
		t.Error("bomb should be registered")
	}
	if b, ok := r.Bomb(1); !ok || b.Pos != pos {
		t.Errorf("lookup by id: %v %v", b, ok)
	}
	if _, ok := r.Bomb(2); ok {
		t.Error("rejected bomb must not be registered")
	}
	if b := r.RemoveBomb(1); b == nil || b.ID != 1 {
		t.Errorf("expected bomb 1, got %v", b)
	}
	if b := r.RemoveBomb(1); b != nil {
		t.Error("removing twice should return nil")
	}
	if r.BombAt(pos) {
		t.Error("tile should be free")
	}
	if _, ok := r.Bomb(1); ok {
		t.Error("removed bomb should not be found")
	}
}

func TestRegistryPowerups(t *testing.T) {
	r := NewRegistry()
	r.SpawnPowerup(Point{5, 3}, PowerupExtraBomb)
	r.SpawnPowerup(Point{3, 3}, PowerupExtraFlame)
	r.SpawnPowerup(Point{9, 1}, PowerupExtraSpeed)

	list := r.Powerups()
	want := []Point{{9, 1}, {3, 3}, {5, 3}}
	for i, w := range want {
		if list[i].Pos != w {
			t.Errorf("powerup %d at %v, want %v", i, list[i].Pos, w)
		}
	}

	pu, ok := r.ConsumePowerup(Point{3, 3})
	if !ok || pu.Type != PowerupExtraFlame {
		t.Errorf("expected flame powerup, got %v", pu)
	}
	if _, ok := r.ConsumePowerup(Point{3, 3}); ok {
		t.Error("powerup can only be consumed once")
	}
	r.ClearPowerups()
	if len(r.Powerups()) != 0 {
		t.Error("expected no powerups after clear")
	}
}

func TestRollPowerup(t *testing.T) {
	if _, ok := RollPowerup(&scriptedRand{floats: []float64{PowerupDropChance}}); ok {
		t.Error("a roll equal to the drop chance drops nothing")
	}
	typ, ok := RollPowerup(&scriptedRand{floats: []float64{0}, ints: []int{1}})
	if !ok || typ != PowerupExtraFlame {
		t.Errorf("expected flames, got %s %v", typ, ok)
	}
}

func TestRollPowerupFrequency(t *testing.T) {
	const rolls = 100000
	rng := NewRand(2026, 1)
	counts := make(map[PowerupType]int)
	drops := 0
	for i := 0; i < rolls; i++ {
		if typ, ok := RollPowerup(rng); ok {
			counts[typ]++
			drops++
		}
	}

	rate := float64(drops) / rolls
	if math.Abs(rate-PowerupDropChance) > 0.01 {
		t.Errorf("drop rate %.4f, want %.2f±0.01", rate, PowerupDropChance)
	}
	for _, typ := range []PowerupType{PowerupExtraBomb, PowerupExtraFlame, PowerupExtraSpeed} {
		share := float64(counts[typ]) / float64(drops)
		if math.Abs(share-1.0/3) > 0.02 {
			t.Errorf("%s share %.4f, want about 1/3 (%v)", typ, share, counts)
		}
	}
}
