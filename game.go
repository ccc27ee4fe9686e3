package main

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Command rejections. Only join rejections are reported to the client.
var (
	ErrInvalidNickname  = errors.New("nickname is empty")
	ErrAlreadyJoined    = errors.New("connection already joined")
	ErrAlreadyStarted   = errors.New("match already started or counting down")
	ErrWrongPhase       = errors.New("match is not active")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrPlayerDead       = errors.New("player is dead")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrBlocked          = errors.New("target tile is not walkable")
	ErrNoBombsLeft      = errors.New("no bombs left")
	ErrEmptyMessage     = errors.New("empty chat message")
)

// RejectedError is a command that was dropped without any state change
type RejectedError struct {
	Cmd string
	Err error
}

func (e *RejectedError) Error() string {
	return e.Cmd + " rejected: " + e.Err.Error()
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

func reject(cmd string, err error) error {
	return &RejectedError{Cmd: cmd, Err: err}
}

// JoinErrorReason maps a join rejection to the reason sent to the client.
// An empty string means the rejection is silent.
func JoinErrorReason(err error) string {
	switch {
	case errors.Is(err, ErrRoomFull):
		return ReasonFull
	case errors.Is(err, ErrDuplicateNickname):
		return ReasonDuplicate
	case errors.Is(err, ErrAlreadyStarted):
		return ReasonAlreadyStarted
	case errors.Is(err, ErrInvalidNickname):
		return ReasonInvalidNickname
	}
	return ""
}

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	Send(msg *Outbound)
}

// MatchRecorder receives finished matches for the history store
type MatchRecorder interface {
	Record(rec MatchRecord)
}

// GameOptions configures a Game. Zero values select the defaults.
type GameOptions struct {
	Logger   *zap.Logger
	Clock    Clock
	Rules    *Rules
	Seed     uint64
	NewRand  func(seed, stream uint64) Rand
	Recorder MatchRecorder
}

// Game owns the single match of this server. Every mutation, whether it
// comes from a client command or a timer, runs under mu, so no two
// mutations ever interleave.
type Game struct {
	mu         sync.Mutex
	log        *zap.Logger
	clock      Clock
	rules      Rules
	seeds      *SeedSource
	newRand    func(seed, stream uint64) Rand
	recorder   MatchRecorder
	clients    map[string]Broadcaster // connection id -> client
	match      *Match
	timerSeq   uint64
	nextBombID int64
	bootedAt   time.Time
}

// NewGame creates a Game with an open lobby
func NewGame(opts GameOptions) *Game {
	g := &Game{
		log:      opts.Logger,
		clock:    opts.Clock,
		rules:    DefaultRules(),
		seeds:    NewSeedSource(opts.Seed),
		newRand:  opts.NewRand,
		recorder: opts.Recorder,
		clients:  make(map[string]Broadcaster),
	}
	if g.log == nil {
		g.log = zap.NewNop()
	}
	if g.clock == nil {
		g.clock = realClock{}
	}
	if opts.Rules != nil {
		g.rules = *opts.Rules
	}
	if g.newRand == nil {
		g.newRand = NewRand
	}
	g.bootedAt = g.clock.Now()
	g.match = g.newMatch()
	return g
}

// Stop cancels every pending timer
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopTimers(g.match)
}

// AddClient registers a connection so it receives broadcasts
func (g *Game) AddClient(id string, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[id] = client
}

// PlayerCount returns the number of registered players
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.match.Reg.PlayerCount()
}

// Phase returns the phase of the current match
func (g *Game) Phase() MatchPhase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.match.Phase
}

// Status summarizes the current match for the REST API
func (g *Game) Status() StatusInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := g.match
	return StatusInfo{
		Phase:       m.Phase.String(),
		PlayerCount: m.Reg.PlayerCount(),
		Alive:       len(m.Reg.ListAlive()),
		WaitingTime: m.WaitingTime,
		Bombs:       m.Reg.BombCount(),
		MatchID:     m.ID,
	}
}

// BootedAt returns when the game was created
func (g *Game) BootedAt() time.Time {
	return g.bootedAt
}

var directions = map[string]Point{
	"up":    {0, -1},
	"down":  {0, 1},
	"left":  {-1, 0},
	"right": {1, 0},
}

// Move steps a player one tile, collecting any powerup on the target
func (g *Game) Move(id, direction string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := g.match
	p, err := g.activePlayer(m, MsgMove, id)
	if err != nil {
		return err
	}
	d, ok := directions[direction]
	if !ok {
		return reject(MsgMove, ErrInvalidDirection)
	}
	target := p.Pos.Add(d.X, d.Y)
	if !target.InBounds() || !m.Grid.At(target).Walkable() {
		return reject(MsgMove, ErrBlocked)
	}

	if m.Grid.At(target) == TilePowerup {
		m.Grid.Set(target, TileEmpty)
		if pu, ok := m.Reg.ConsumePowerup(target); ok {
			p.ApplyPowerup(pu.Type)
			g.broadcast(MsgPowerup, PowerupCollectedMsg{
				PlayerID:    p.ID,
				PowerupType: pu.Type,
				X:           target.X,
				Y:           target.Y,
			})
			g.broadcast(MsgStats, StatsMsg{PlayerID: p.ID, Stats: p.Stats()})
			g.broadcast(MsgGameState, gameState(m))
		}
	}

	p.Pos = target
	g.broadcast(MsgPlayerMoved, PlayerMovedMsg{PlayerID: p.ID, X: target.X, Y: target.Y})
	return nil
}

// PlaceBomb drops a bomb on the player's tile and lights its fuse
func (g *Game) PlaceBomb(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := g.match
	p, err := g.activePlayer(m, MsgBomb, id)
	if err != nil {
		return err
	}
	if m.Reg.BombAt(p.Pos) {
		return reject(MsgBomb, ErrTileOccupied)
	}
	if p.Bombs <= 0 {
		return reject(MsgBomb, ErrNoBombsLeft)
	}

	g.nextBombID++
	b := &Bomb{ID: g.nextBombID, Pos: p.Pos, OwnerID: p.ID, Fuse: g.rules.Fuse}
	if err := m.Reg.AddBomb(b); err != nil {
		return reject(MsgBomb, err)
	}
	p.Bombs--
	p.BombsPlaced++

	g.broadcast(MsgBombPlaced, b.ToState())
	g.broadcast(MsgStats, StatsMsg{PlayerID: p.ID, Stats: p.Stats()})

	slot := &timerSlot{}
	m.fuses[b.ID] = slot
	g.arm(slot, b.Fuse, func() {
		delete(m.fuses, b.ID)
		g.explode(m, b.ID)
	})
	return nil
}

// Chat relays a message from a registered player to everyone
func (g *Game) Chat(id, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.match.Reg.Player(id)
	if !ok {
		return reject(MsgChat, ErrUnknownPlayer)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return reject(MsgChat, ErrEmptyMessage)
	}
	g.broadcast(MsgChatMessage, ChatMessageMsg{
		Nickname:  p.Nickname,
		Message:   truncateRunes(text, maxChatLen),
		Timestamp: g.clock.Now().UnixMilli(),
	})
	return nil
}

func (g *Game) activePlayer(m *Match, cmd, id string) (*Player, error) {
	if m.Phase != PhaseActive {
		return nil, reject(cmd, ErrWrongPhase)
	}
	p, ok := m.Reg.Player(id)
	if !ok {
		return nil, reject(cmd, ErrUnknownPlayer)
	}
	if !p.Alive {
		return nil, reject(cmd, ErrPlayerDead)
	}
	return p, nil
}

// arm schedules fn under the game lock after d, replacing whatever the
// slot held. fn does not run if the slot is disarmed or re-armed first.
func (g *Game) arm(slot *timerSlot, d time.Duration, fn func()) {
	g.disarm(slot)
	g.timerSeq++
	seq := g.timerSeq
	slot.seq = seq
	slot.t = g.clock.AfterFunc(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if slot.seq != seq {
			return
		}
		slot.t = nil
		slot.seq = 0
		fn()
	})
}

func (g *Game) disarm(slot *timerSlot) {
	if slot.t != nil {
		slot.t.Stop()
		slot.t = nil
	}
	slot.seq = 0
}

// broadcast sends one event to every connection. Called with mu held, so
// each client sees events in mutation order.
func (g *Game) broadcast(t string, data interface{}) {
	out := NewOutbound(t, data)
	for _, c := range g.clients {
		c.Send(out)
	}
}

func (g *Game) sendTo(id, t string, data interface{}) {
	if c, ok := g.clients[id]; ok {
		c.Send(NewOutbound(t, data))
	}
}

func playerStates(m *Match) []PlayerState {
	players := m.Reg.Players()
	list := make([]PlayerState, 0, len(players))
	for _, p := range players {
		list = append(list, p.ToState())
	}
	return list
}

func powerupStates(m *Match) []PowerupState {
	powerups := m.Reg.Powerups()
	list := make([]PowerupState, 0, len(powerups))
	for _, pu := range powerups {
		list = append(list, pu.ToState())
	}
	return list
}

func gameState(m *Match) GameStateMsg {
	return GameStateMsg{
		Players:  playerStates(m),
		Powerups: powerupStates(m),
		Map:      m.Grid.Rows(),
	}
}

func (g *Game) record(m *Match, winner *Player) {
	if g.recorder == nil {
		return
	}
	now := g.clock.Now()
	started := m.StartedAt
	if started.IsZero() {
		started = now
	}
	rec := MatchRecord{
		ID:        m.ID,
		Seed:      m.Seed,
		Stream:    m.Stream,
		StartedAt: started,
		EndedAt:   now,
	}
	if winner != nil {
		rec.Winner = winner.Nickname
	}
	for _, p := range m.Reg.Players() {
		rec.Players = append(rec.Players, MatchPlayerRecord{
			Nickname:          p.Nickname,
			Color:             p.Color,
			Lives:             p.Lives,
			Alive:             p.Alive,
			Won:               winner != nil && p.ID == winner.ID,
			BombsPlaced:       p.BombsPlaced,
			PowerupsCollected: p.PowerupsCollected,
		})
	}
	g.recorder.Record(rec)
}
