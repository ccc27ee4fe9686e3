package main

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatchPhase represents the lifecycle of a match
type MatchPhase int

const (
	PhaseLobby     MatchPhase = 0
	PhaseCountdown MatchPhase = 1
	PhaseActive    MatchPhase = 2
	PhaseEnded     MatchPhase = 3
)

func (p MatchPhase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

const (
	MinPlayers     = 2
	MaxPlayers     = 4
	maxNicknameLen = 16
	maxChatLen     = 200
)

// Rules holds the timings of the match lifecycle
type Rules struct {
	WaitingSeconds   int           // lobby wait once MinPlayers are present
	WaitingTick      time.Duration // interval of the waiting countdown
	CountdownSeconds int           // value announced in the countdown event
	Countdown        time.Duration
	Fuse             time.Duration
	ResetDelay       time.Duration // game over -> reset
}

// DefaultRules returns the standard timings
func DefaultRules() Rules {
	return Rules{
		WaitingSeconds:   20,
		WaitingTick:      time.Second,
		CountdownSeconds: 10,
		Countdown:        10 * time.Second,
		Fuse:             FuseDuration,
		ResetDelay:       5 * time.Second,
	}
}

// Match is all state of one play session from lobby to reset.
// It is discarded wholesale on reset.
type Match struct {
	ID          string
	Phase       MatchPhase
	Grid        Grid
	Reg         *Registry
	WaitingTime int
	Seed        uint64
	Stream      uint64
	StartedAt   time.Time

	rng       Rand
	waiting   timerSlot
	countdown timerSlot
	reset     timerSlot
	fuses     map[int64]*timerSlot
}

func (g *Game) newMatch() *Match {
	seed, stream := g.seeds.Next()
	rng := g.newRand(seed, stream)
	return &Match{
		ID:          uuid.NewString(),
		Phase:       PhaseLobby,
		Grid:        GenerateGrid(rng),
		Reg:         NewRegistry(),
		WaitingTime: g.rules.WaitingSeconds,
		Seed:        seed,
		Stream:      stream,
		rng:         rng,
		fuses:       make(map[int64]*timerSlot),
	}
}

// Join seats a connection in the lobby under the given nickname
func (g *Game) Join(id, nickname string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	nickname = truncateRunes(strings.TrimSpace(nickname), maxNicknameLen)
	if nickname == "" {
		return reject(MsgJoin, ErrInvalidNickname)
	}
	m := g.match
	if _, ok := m.Reg.Player(id); ok {
		return reject(MsgJoin, ErrAlreadyJoined)
	}
	if m.Reg.PlayerCount() >= MaxPlayers {
		return reject(MsgJoin, ErrRoomFull)
	}
	if m.Phase != PhaseLobby {
		return reject(MsgJoin, ErrAlreadyStarted)
	}
	p, err := m.Reg.AddPlayer(id, nickname)
	if err != nil {
		return reject(MsgJoin, err)
	}
	count := m.Reg.PlayerCount()

	g.sendTo(id, MsgJoined, JoinedMsg{PlayerID: p.ID, PlayerCount: count})
	g.broadcast(MsgPlayerJoined, g.roster(m))
	g.log.Info("player joined",
		zap.String("player_id", id),
		zap.String("nickname", nickname),
		zap.Int("players", count))

	if count >= MinPlayers && !m.waiting.active() && m.Phase == PhaseLobby {
		g.startWaiting(m)
	}
	if count == MaxPlayers && m.Phase == PhaseLobby {
		g.log.Info("room full, skipping wait")
		g.beginCountdown(m)
	}
	return nil
}

func (g *Game) startWaiting(m *Match) {
	m.WaitingTime = g.rules.WaitingSeconds
	g.broadcast(MsgWaitingTime, WaitingTimeMsg{WaitingTime: m.WaitingTime})
	g.log.Info("waiting timer started", zap.Int("seconds", m.WaitingTime))
	g.arm(&m.waiting, g.rules.WaitingTick, func() { g.onWaitingTick(m) })
}

func (g *Game) onWaitingTick(m *Match) {
	m.WaitingTime--
	g.broadcast(MsgWaitingTime, WaitingTimeMsg{WaitingTime: m.WaitingTime})
	if m.WaitingTime <= 0 {
		g.beginCountdown(m)
		return
	}
	g.arm(&m.waiting, g.rules.WaitingTick, func() { g.onWaitingTick(m) })
}

func (g *Game) beginCountdown(m *Match) {
	g.disarm(&m.waiting)
	if m.Phase != PhaseLobby {
		return
	}
	m.Phase = PhaseCountdown
	g.broadcast(MsgCountdown, CountdownMsg{Time: g.rules.CountdownSeconds})
	g.log.Info("countdown started", zap.Int("players", m.Reg.PlayerCount()))
	g.arm(&m.countdown, g.rules.Countdown, func() { g.startMatch(m) })
}

// startMatch moves every player to a corner with a fresh loadout
func (g *Game) startMatch(m *Match) {
	m.Grid = GenerateGrid(m.rng)
	m.Reg.ClearPowerups()
	m.StartedAt = g.clock.Now()

	players := m.Reg.Players()
	switch len(players) {
	case 0:
		g.reset(m, "no players at match start")
		return
	case 1:
		g.log.Info("single player at match start", zap.String("winner", players[0].Nickname))
		g.endMatch(m, players[0], "")
		return
	}

	for i, p := range players {
		p.Pos = StartingPosition(i)
		p.ResetStats()
	}
	m.Phase = PhaseActive
	g.broadcast(MsgMatchStart, MatchStartMsg{
		MatchID:  m.ID,
		Players:  playerStates(m),
		Powerups: powerupStates(m),
		Map:      m.Grid.Rows(),
	})
	g.log.Info("match started",
		zap.String("match_id", m.ID),
		zap.Int("players", len(players)),
		zap.Uint64("seed", m.Seed))
}

// checkWin ends an active match once at most one player is alive
func (g *Game) checkWin(m *Match) {
	if m.Phase != PhaseActive {
		return
	}
	alive := m.Reg.ListAlive()
	switch len(alive) {
	case 0:
		g.endMatch(m, nil, "All players disconnected or died!")
	case 1:
		g.endMatch(m, alive[0], "")
	}
}

func (g *Game) endMatch(m *Match, winner *Player, message string) {
	m.Phase = PhaseEnded
	msg := GameOverMsg{Message: message}
	name := ""
	if winner != nil {
		st := winner.ToState()
		msg.Winner = &st
		name = winner.Nickname
	}
	g.broadcast(MsgGameOver, msg)
	g.log.Info("game over", zap.String("match_id", m.ID), zap.String("winner", name))
	g.record(m, winner)
	g.scheduleReset(m)
}

// scheduleReset arms the post-game reset; at most one is ever pending
func (g *Game) scheduleReset(m *Match) {
	if m.reset.active() {
		return
	}
	g.arm(&m.reset, g.rules.ResetDelay, func() { g.reset(m, "post-game") })
}

// reset discards the match and opens a fresh lobby
func (g *Game) reset(m *Match, reason string) {
	if g.match != m {
		return
	}
	g.stopTimers(m)
	g.match = g.newMatch()
	g.broadcast(MsgMatchReset, nil)
	g.log.Info("match reset", zap.String("reason", reason), zap.String("match_id", m.ID))
}

func (g *Game) stopTimers(m *Match) {
	g.disarm(&m.waiting)
	g.disarm(&m.countdown)
	g.disarm(&m.reset)
	for id, slot := range m.fuses {
		g.disarm(slot)
		delete(m.fuses, id)
	}
}

// Disconnect drops the connection and its player, if any
func (g *Game) Disconnect(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.clients, id)
	m := g.match
	p, ok := m.Reg.Player(id)
	if !ok {
		return
	}
	m.Reg.ReleaseNickname(p)

	switch m.Phase {
	case PhaseLobby, PhaseCountdown:
		m.Reg.RemovePlayer(id)
		count := m.Reg.PlayerCount()
		g.log.Info("player left", zap.String("nickname", p.Nickname), zap.Int("players", count))
		if count < MinPlayers && m.waiting.active() {
			g.disarm(&m.waiting)
			m.WaitingTime = g.rules.WaitingSeconds
			g.broadcast(MsgWaitingTime, WaitingTimeMsg{WaitingTime: m.WaitingTime})
			g.log.Info("below minimum players, waiting timer stopped")
		}
		if count == 0 {
			g.reset(m, "all players left")
			return
		}
		g.broadcast(MsgPlayerLeft, g.roster(m))
	default:
		p.Alive = false
		g.log.Info("player left mid-match", zap.String("nickname", p.Nickname))
		g.broadcast(MsgPlayersUpdate, PlayersUpdateMsg{Players: playerStates(m)})
		g.checkWin(m)
	}
}

// ForceReset discards the current match immediately
func (g *Game) ForceReset(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset(g.match, reason)
}

func (g *Game) roster(m *Match) RosterMsg {
	return RosterMsg{
		PlayerCount: m.Reg.PlayerCount(),
		Players:     playerStates(m),
		WaitingTime: m.WaitingTime,
	}
}
