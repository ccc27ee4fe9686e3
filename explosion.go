package main

import "go.uber.org/zap"

// rayDirections are walked in this order: center, up, down, left, right
var rayDirections = [...]Point{{0, 0}, {0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// Blast is the outcome of propagating one bomb's flames
type Blast struct {
	Tiles     []Point // every tile marked exploded, first-marked order
	Destroyed []Point // blocks turned into Empty or Powerup
	Spawned   []*Powerup
}

func (b *Blast) covers(p Point) bool {
	for _, t := range b.Tiles {
		if t == p {
			return true
		}
	}
	return false
}

// PropagateBlast walks each ray from center out to flameRange inclusive.
// Out of bounds stops a ray unmarked. A Wall is marked but stops the ray
// intact. A Block is marked, destroyed (maybe leaving a powerup) and stops
// the ray. Empty and Powerup tiles are marked and the ray continues.
func PropagateBlast(grid *Grid, reg *Registry, rng Rand, center Point, flameRange int) Blast {
	var blast Blast
	seen := make(map[Point]bool)
	mark := func(p Point) {
		if !seen[p] {
			seen[p] = true
			blast.Tiles = append(blast.Tiles, p)
		}
	}

	for _, d := range rayDirections {
	ray:
		for i := 0; i <= flameRange; i++ {
			p := center.Add(d.X*i, d.Y*i)
			if !p.InBounds() {
				break
			}
			switch grid.At(p) {
			case TileWall:
				mark(p)
				break ray
			case TileBlock:
				mark(p)
				grid.Set(p, TileEmpty)
				blast.Destroyed = append(blast.Destroyed, p)
				if t, ok := RollPowerup(rng); ok {
					blast.Spawned = append(blast.Spawned, reg.SpawnPowerup(p, t))
					grid.Set(p, TilePowerup)
				}
				break ray
			default:
				mark(p)
			}
		}
	}
	return blast
}

// explode resolves a bomb whose fuse expired. A bomb id that is no longer
// registered means the bomb was already resolved and the call is a no-op.
func (g *Game) explode(m *Match, bombID int64) {
	b := m.Reg.RemoveBomb(bombID)
	if b == nil {
		return
	}

	flameRange := 1
	if owner, ok := m.Reg.Player(b.OwnerID); ok {
		owner.Bombs++
		flameRange = owner.Flames
		g.broadcast(MsgStats, StatsMsg{PlayerID: owner.ID, Stats: owner.Stats()})
	}

	blast := PropagateBlast(&m.Grid, m.Reg, m.rng, b.Pos, flameRange)
	damaged := g.resolveDamage(m, &blast)

	g.broadcast(MsgBombExploded, BombExplodedMsg{
		BombID:         b.ID,
		Explosions:     blast.Tiles,
		DamagedPlayers: damaged,
	})
	g.broadcast(MsgMapUpdate, MapUpdateMsg{Map: m.Grid.Rows()})
	g.broadcast(MsgGameState, gameState(m))

	g.log.Debug("bomb exploded",
		zap.Int64("bomb_id", b.ID),
		zap.Int("tiles", len(blast.Tiles)),
		zap.Int("blocks", len(blast.Destroyed)),
		zap.Int("powerups", len(blast.Spawned)),
		zap.Int("damaged", len(damaged)))

	g.checkWin(m)
}

// resolveDamage takes one life from every living player on a blast tile
func (g *Game) resolveDamage(m *Match, blast *Blast) []DamagedPlayer {
	damaged := make([]DamagedPlayer, 0)
	for _, p := range m.Reg.ListAlive() {
		if !blast.covers(p.Pos) {
			continue
		}
		died := p.TakeHit()
		damaged = append(damaged, DamagedPlayer{PlayerID: p.ID, Lives: p.Lives, Alive: p.Alive})
		if died {
			g.broadcast(MsgPlayerDied, PlayerDiedMsg{PlayerID: p.ID})
			g.broadcast(MsgPlayersUpdate, PlayersUpdateMsg{Players: playerStates(m)})
			g.log.Info("player died", zap.String("nickname", p.Nickname))
		}
		g.broadcast(MsgStats, StatsMsg{PlayerID: p.ID, Stats: p.Stats()})
	}
	return damaged
}
