package main

import "errors"

// Registry rejections
var (
	ErrRoomFull          = errors.New("room is full")
	ErrDuplicateNickname = errors.New("nickname already taken")
	ErrTileOccupied      = errors.New("tile already holds a bomb")
)

// Registry holds every entity of the current match: players in join
// order, bombs by id and position, powerups by position. It is not safe
// for concurrent use; the Game lock serializes access.
type Registry struct {
	players   map[string]*Player
	order     []string
	nicknames map[string]string // nickname -> player id
	bombs     map[int64]*Bomb
	bombAt    map[Point]int64
	powerups  map[Point]*Powerup
	nextColor int
}

func NewRegistry() *Registry {
	return &Registry{
		players:   make(map[string]*Player),
		nicknames: make(map[string]string),
		bombs:     make(map[int64]*Bomb),
		bombAt:    make(map[Point]int64),
		powerups:  make(map[Point]*Powerup),
	}
}

// AddPlayer registers a new player under the connection id
func (r *Registry) AddPlayer(id, nickname string) (*Player, error) {
	if len(r.players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	if _, taken := r.nicknames[nickname]; taken {
		return nil, ErrDuplicateNickname
	}
	p := NewPlayer(id, nickname, r.nextColor)
	r.nextColor = (r.nextColor + 1) % PaletteSize
	r.players[id] = p
	r.order = append(r.order, id)
	r.nicknames[nickname] = id
	return p, nil
}

// RemovePlayer deletes the player and frees the nickname
func (r *Registry) RemovePlayer(id string) *Player {
	p, ok := r.players[id]
	if !ok {
		return nil
	}
	delete(r.players, id)
	r.ReleaseNickname(p)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p
}

// ReleaseNickname frees the nickname reservation while keeping the player
func (r *Registry) ReleaseNickname(p *Player) {
	if owner, ok := r.nicknames[p.Nickname]; ok && owner == p.ID {
		delete(r.nicknames, p.Nickname)
	}
}

func (r *Registry) NicknameTaken(nickname string) bool {
	_, ok := r.nicknames[nickname]
	return ok
}

func (r *Registry) Player(id string) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *Registry) PlayerCount() int {
	return len(r.players)
}

// Players returns all players in join order
func (r *Registry) Players() []*Player {
	list := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.players[id])
	}
	return list
}

// ListAlive returns living players in join order
func (r *Registry) ListAlive() []*Player {
	var list []*Player
	for _, id := range r.order {
		if p := r.players[id]; p.Alive {
			list = append(list, p)
		}
	}
	return list
}

// AddBomb registers a bomb; only one bomb may sit on a tile
func (r *Registry) AddBomb(b *Bomb) error {
	if _, ok := r.bombAt[b.Pos]; ok {
		return ErrTileOccupied
	}
	r.bombs[b.ID] = b
	r.bombAt[b.Pos] = b.ID
	return nil
}

// RemoveBomb unregisters a bomb and returns it, or nil if it was already gone
func (r *Registry) RemoveBomb(id int64) *Bomb {
	b, ok := r.bombs[id]
	if !ok {
		return nil
	}
	delete(r.bombs, id)
	if r.bombAt[b.Pos] == id {
		delete(r.bombAt, b.Pos)
	}
	return b
}

// Bomb looks up a live bomb by id
func (r *Registry) Bomb(id int64) (*Bomb, bool) {
	b, ok := r.bombs[id]
	return b, ok
}

func (r *Registry) BombAt(p Point) bool {
	_, ok := r.bombAt[p]
	return ok
}

func (r *Registry) BombCount() int {
	return len(r.bombs)
}

// SpawnPowerup places a powerup on p, replacing any previous one
func (r *Registry) SpawnPowerup(p Point, t PowerupType) *Powerup {
	pu := &Powerup{Pos: p, Type: t}
	r.powerups[p] = pu
	return pu
}

// ConsumePowerup removes and returns the powerup on p, if any
func (r *Registry) ConsumePowerup(p Point) (*Powerup, bool) {
	pu, ok := r.powerups[p]
	if ok {
		delete(r.powerups, p)
	}
	return pu, ok
}

func (r *Registry) ClearPowerups() {
	r.powerups = make(map[Point]*Powerup)
}

// Powerups returns powerups ordered by row then column
func (r *Registry) Powerups() []*Powerup {
	list := make([]*Powerup, 0, len(r.powerups))
	for _, pu := range r.powerups {
		list = append(list, pu)
	}
	sortPowerups(list)
	return list
}
