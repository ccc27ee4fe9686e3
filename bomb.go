package main

import "time"

// FuseDuration is the delay between placing a bomb and its explosion
const FuseDuration = 3000 * time.Millisecond

// Bomb is a placed bomb waiting for its fuse
type Bomb struct {
	ID      int64
	Pos     Point
	OwnerID string
	Fuse    time.Duration
}

// ToState converts to protocol state
func (b *Bomb) ToState() BombState {
	return BombState{
		ID:       b.ID,
		X:        b.Pos.X,
		Y:        b.Pos.Y,
		PlayerID: b.OwnerID,
		Timer:    b.Fuse.Milliseconds(),
	}
}
