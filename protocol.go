package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin  = "join"
	MsgMove  = "move"
	MsgBomb  = "place-bomb"
	MsgChat  = "chat"
	MsgLeave = "leave"
)

// Server -> Client message types
const (
	MsgJoined        = "joined" // only to the joining connection
	MsgJoinError     = "join-error"
	MsgPlayerJoined  = "player-joined"
	MsgPlayerLeft    = "player-left"
	MsgPlayersUpdate = "players-update"
	MsgWaitingTime   = "waiting-time-update"
	MsgCountdown     = "countdown"
	MsgMatchStart    = "match-start"
	MsgPlayerMoved   = "player-moved"
	MsgPowerup       = "powerup-collected"
	MsgStats         = "player-stats-update"
	MsgBombPlaced    = "bomb-placed"
	MsgBombExploded  = "bomb-exploded"
	MsgMapUpdate     = "map-update"
	MsgGameState     = "game-state-update"
	MsgPlayerDied    = "player-died"
	MsgGameOver      = "game-over"
	MsgMatchReset    = "match-reset"
	MsgChatMessage   = "chat-message"
)

// Join error reasons
const (
	ReasonFull            = "full"
	ReasonDuplicate       = "duplicate-nickname"
	ReasonAlreadyStarted  = "already-started"
	ReasonInvalidNickname = "invalid-nickname"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t" msgpack:"t"`
	Data interface{} `json:"d,omitempty" msgpack:"d,omitempty"`
}

// InEnvelope is used for incoming JSON frames; json.RawMessage defers payload decoding
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CommandData is the payload of any inbound command. Each command reads
// only its own field: join the nickname, move the direction, chat the message.
type CommandData struct {
	Nickname  string `json:"nickname,omitempty" msgpack:"nickname,omitempty"`
	Direction string `json:"direction,omitempty" msgpack:"direction,omitempty"`
	Message   string `json:"message,omitempty" msgpack:"message,omitempty"`
}

// PlayerStats is the mutable stat block of a player
type PlayerStats struct {
	Bombs  int   `json:"bombs" msgpack:"bombs"`
	Flames int   `json:"flames" msgpack:"flames"`
	Speed  Speed `json:"speed" msgpack:"speed"`
	Lives  int   `json:"lives" msgpack:"lives"`
}

// PlayerState is the full wire view of a player
type PlayerState struct {
	ID       string `json:"id" msgpack:"id"`
	Nickname string `json:"nickname" msgpack:"nickname"`
	X        int    `json:"x" msgpack:"x"`
	Y        int    `json:"y" msgpack:"y"`
	Lives    int    `json:"lives" msgpack:"lives"`
	Bombs    int    `json:"bombs" msgpack:"bombs"`
	Flames   int    `json:"flames" msgpack:"flames"`
	Speed    Speed  `json:"speed" msgpack:"speed"`
	Alive    bool   `json:"alive" msgpack:"alive"`
	Color    int    `json:"colorIndex" msgpack:"colorIndex"`
}

// BombState is broadcast in bomb-placed
type BombState struct {
	ID       int64  `json:"id" msgpack:"id"`
	X        int    `json:"x" msgpack:"x"`
	Y        int    `json:"y" msgpack:"y"`
	PlayerID string `json:"playerId" msgpack:"playerId"`
	Timer    int64  `json:"timer" msgpack:"timer"` // fuse in ms
}

type PowerupState struct {
	X    int         `json:"x" msgpack:"x"`
	Y    int         `json:"y" msgpack:"y"`
	Type PowerupType `json:"type" msgpack:"type"`
}

// JoinedMsg acknowledges a successful join to the joining connection
type JoinedMsg struct {
	PlayerID    string `json:"playerId" msgpack:"playerId"`
	PlayerCount int    `json:"playerCount" msgpack:"playerCount"`
}

// JoinErrorMsg explains a rejected join; the connection is closed after it
type JoinErrorMsg struct {
	Reason string `json:"reason" msgpack:"reason"`
}

// RosterMsg is broadcast in player-joined and player-left
type RosterMsg struct {
	PlayerCount int           `json:"playerCount" msgpack:"playerCount"`
	Players     []PlayerState `json:"players" msgpack:"players"`
	WaitingTime int           `json:"waitingTime" msgpack:"waitingTime"`
}

type PlayersUpdateMsg struct {
	Players []PlayerState `json:"players" msgpack:"players"`
}

type WaitingTimeMsg struct {
	WaitingTime int `json:"waitingTime" msgpack:"waitingTime"`
}

type CountdownMsg struct {
	Time int `json:"time" msgpack:"time"`
}

// MatchStartMsg is the full snapshot sent when a match becomes active
type MatchStartMsg struct {
	MatchID  string         `json:"matchId" msgpack:"matchId"`
	Players  []PlayerState  `json:"players" msgpack:"players"`
	Powerups []PowerupState `json:"powerups" msgpack:"powerups"`
	Map      []TileRow      `json:"map" msgpack:"map"`
}

type PlayerMovedMsg struct {
	PlayerID string `json:"playerId" msgpack:"playerId"`
	X        int    `json:"x" msgpack:"x"`
	Y        int    `json:"y" msgpack:"y"`
}

type PowerupCollectedMsg struct {
	PlayerID    string      `json:"playerId" msgpack:"playerId"`
	PowerupType PowerupType `json:"powerupType" msgpack:"powerupType"`
	X           int         `json:"x" msgpack:"x"`
	Y           int         `json:"y" msgpack:"y"`
}

type StatsMsg struct {
	PlayerID string      `json:"playerId" msgpack:"playerId"`
	Stats    PlayerStats `json:"stats" msgpack:"stats"`
}

// DamagedPlayer is one entry of bomb-exploded
type DamagedPlayer struct {
	PlayerID string `json:"playerId" msgpack:"playerId"`
	Lives    int    `json:"lives" msgpack:"lives"`
	Alive    bool   `json:"alive" msgpack:"alive"`
}

type BombExplodedMsg struct {
	BombID         int64           `json:"bombId" msgpack:"bombId"`
	Explosions     []Point         `json:"explosions" msgpack:"explosions"`
	DamagedPlayers []DamagedPlayer `json:"damagedPlayers" msgpack:"damagedPlayers"`
}

type MapUpdateMsg struct {
	Map []TileRow `json:"map" msgpack:"map"`
}

// GameStateMsg is the full snapshot of players, powerups and map
type GameStateMsg struct {
	Players  []PlayerState  `json:"players" msgpack:"players"`
	Powerups []PowerupState `json:"powerups" msgpack:"powerups"`
	Map      []TileRow      `json:"map" msgpack:"map"`
}

type PlayerDiedMsg struct {
	PlayerID string `json:"playerId" msgpack:"playerId"`
}

// GameOverMsg names the survivor; Winner is nil when nobody survived
type GameOverMsg struct {
	Winner  *PlayerState `json:"winner" msgpack:"winner"`
	Message string       `json:"message,omitempty" msgpack:"message,omitempty"`
}

type ChatMessageMsg struct {
	Nickname  string `json:"nickname" msgpack:"nickname"`
	Message   string `json:"message" msgpack:"message"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"` // unix ms
}

// StatusInfo is served by /api/status
type StatusInfo struct {
	Phase       string `json:"phase"`
	PlayerCount int    `json:"playerCount"`
	Alive       int    `json:"alive"`
	WaitingTime int    `json:"waitingTime"`
	Bombs       int    `json:"bombs"`
	MatchID     string `json:"matchId,omitempty"`
	Connections int    `json:"connections"`
	Uptime      string `json:"uptime,omitempty"`
}
