package main

import (
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// PowerupDropChance is the chance a destroyed block leaves a powerup behind
const PowerupDropChance = 0.3

// PowerupType selects which stat a powerup raises
type PowerupType uint8

const (
	PowerupExtraBomb PowerupType = iota
	PowerupExtraFlame
	PowerupExtraSpeed
)

var powerupTypes = [...]PowerupType{PowerupExtraBomb, PowerupExtraFlame, PowerupExtraSpeed}

var powerupNames = [...]string{
	PowerupExtraBomb:  "bombs",
	PowerupExtraFlame: "flames",
	PowerupExtraSpeed: "speed",
}

func (t PowerupType) String() string {
	if int(t) < len(powerupNames) {
		return powerupNames[t]
	}
	return fmt.Sprintf("powerup(%d)", t)
}

func (t PowerupType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PowerupType) UnmarshalText(b []byte) error {
	for i, name := range powerupNames {
		if name == string(b) {
			*t = PowerupType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown powerup %q", b)
}

func (t PowerupType) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(t.String())
}

func (t *PowerupType) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

// Powerup is a pickup lying on a Powerup tile
type Powerup struct {
	Pos  Point
	Type PowerupType
}

// RollPowerup decides whether a destroyed block drops a powerup and which
func RollPowerup(rng Rand) (PowerupType, bool) {
	if rng.Float64() >= PowerupDropChance {
		return 0, false
	}
	return powerupTypes[rng.IntN(len(powerupTypes))], true
}

// ToState converts to protocol state
func (p *Powerup) ToState() PowerupState {
	return PowerupState{X: p.Pos.X, Y: p.Pos.Y, Type: p.Type}
}

func sortPowerups(list []*Powerup) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Pos.Y != list[j].Pos.Y {
			return list[i].Pos.Y < list[j].Pos.Y
		}
		return list[i].Pos.X < list[j].Pos.X
	})
}
