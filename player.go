package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	StartLives  = 3
	StartBombs  = 1
	StartFlames = 1
	PaletteSize = MaxPlayers
)

// Speed is a movement speed in half-unit steps, so 2 means 1.0.
// Keeping it integral makes the cap check exact.
type Speed uint8

const (
	SpeedBase Speed = 2 // 1.0
	SpeedStep Speed = 1 // 0.5
	SpeedMax  Speed = 6 // 3.0
)

// Float returns the speed in tiles as sent to clients
func (s Speed) Float() float64 {
	return float64(s) / 2
}

// Raise adds one step, capped at SpeedMax
func (s Speed) Raise() Speed {
	if s+SpeedStep > SpeedMax {
		return SpeedMax
	}
	return s + SpeedStep
}

func SpeedFromFloat(f float64) (Speed, error) {
	half := f * 2
	if half < 0 || half > float64(SpeedMax) || half != math.Trunc(half) {
		return 0, fmt.Errorf("speed %v is not a half step in [0, %v]", f, SpeedMax.Float())
	}
	return Speed(half), nil
}

func (s Speed) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Float())
}

func (s *Speed) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	v, err := SpeedFromFloat(f)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Speed) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeFloat64(s.Float())
}

func (s *Speed) DecodeMsgpack(dec *msgpack.Decoder) error {
	f, err := dec.DecodeFloat64()
	if err != nil {
		return err
	}
	v, err := SpeedFromFloat(f)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Player represents a joined player in the current match
type Player struct {
	ID       string
	Nickname string
	Pos      Point
	Lives    int
	Bombs    int // bombs available to place right now
	Flames   int
	Speed    Speed
	Alive    bool
	Color    int

	// per-match counters for the history record
	BombsPlaced       int
	PowerupsCollected int
}

// NewPlayer creates a player in the lobby. Position is assigned at match start.
func NewPlayer(id, nickname string, color int) *Player {
	p := &Player{ID: id, Nickname: nickname, Color: color}
	p.ResetStats()
	return p
}

// ResetStats restores the starting loadout
func (p *Player) ResetStats() {
	p.Lives = StartLives
	p.Bombs = StartBombs
	p.Flames = StartFlames
	p.Speed = SpeedBase
	p.Alive = true
	p.BombsPlaced = 0
	p.PowerupsCollected = 0
}

// ApplyPowerup raises the stat the powerup grants
func (p *Player) ApplyPowerup(t PowerupType) {
	switch t {
	case PowerupExtraBomb:
		p.Bombs++
	case PowerupExtraFlame:
		p.Flames++
	case PowerupExtraSpeed:
		p.Speed = p.Speed.Raise()
	}
	p.PowerupsCollected++
}

// TakeHit removes one life and returns true if the player died
func (p *Player) TakeHit() bool {
	if !p.Alive {
		return false
	}
	p.Lives--
	if p.Lives <= 0 {
		p.Lives = 0
		p.Alive = false
		return true
	}
	return false
}

// Stats returns the stat block sent in player-stats-update
func (p *Player) Stats() PlayerStats {
	return PlayerStats{
		Bombs:  p.Bombs,
		Flames: p.Flames,
		Speed:  p.Speed,
		Lives:  p.Lives,
	}
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	return PlayerState{
		ID:       p.ID,
		Nickname: p.Nickname,
		X:        p.Pos.X,
		Y:        p.Pos.Y,
		Lives:    p.Lives,
		Bombs:    p.Bombs,
		Flames:   p.Flames,
		Speed:    p.Speed,
		Alive:    p.Alive,
		Color:    p.Color,
	}
}
