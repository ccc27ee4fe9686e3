package main

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	GridWidth   = 15
	GridHeight  = 13
	BlockChance = 0.6 // chance a free interior cell starts as a Block
)

// Tile is the content of one grid cell
type Tile uint8

const (
	TileEmpty Tile = iota
	TileWall
	TileBlock
	TilePowerup
)

var tileNames = [...]string{
	TileEmpty:   "empty",
	TileWall:    "wall",
	TileBlock:   "block",
	TilePowerup: "powerup",
}

func (t Tile) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return fmt.Sprintf("tile(%d)", t)
}

// Walkable reports whether a player may step onto the tile
func (t Tile) Walkable() bool {
	return t == TileEmpty || t == TilePowerup
}

// MarshalText encodes the tile as its wire name
func (t Tile) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a wire name
func (t *Tile) UnmarshalText(b []byte) error {
	for i, name := range tileNames {
		if name == string(b) {
			*t = Tile(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tile %q", b)
}

func (t Tile) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(t.String())
}

func (t *Tile) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

// Point is a grid coordinate
type Point struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// InBounds reports whether p lies inside the grid
func (p Point) InBounds() bool {
	return p.X >= 0 && p.X < GridWidth && p.Y >= 0 && p.Y < GridHeight
}

// Grid is the row-major tile map of one match
type Grid [GridHeight][GridWidth]Tile

// At returns the tile at p. Callers check bounds first.
func (g *Grid) At(p Point) Tile {
	return g[p.Y][p.X]
}

func (g *Grid) Set(p Point, t Tile) {
	g[p.Y][p.X] = t
}

// TileRow is one map row on the wire. msgpack packs any uint8 slice as
// raw bytes, so rows encode their tiles by name explicitly.
type TileRow []Tile

func (r TileRow) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(r)); err != nil {
		return err
	}
	for _, t := range r {
		if err := enc.EncodeString(t.String()); err != nil {
			return err
		}
	}
	return nil
}

func (r *TileRow) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 0 {
		*r = nil
		return nil
	}
	row := make(TileRow, n)
	for i := range row {
		if err := row[i].DecodeMsgpack(dec); err != nil {
			return err
		}
	}
	*r = row
	return nil
}

// Rows returns a copy of the grid as nested slices for the wire
func (g *Grid) Rows() []TileRow {
	rows := make([]TileRow, GridHeight)
	for y := range g {
		rows[y] = append(TileRow(nil), g[y][:]...)
	}
	return rows
}

// startingCells are kept clear of blocks so every corner spawn can move
var startingCells = [...]Point{
	{1, 1}, {2, 1}, {1, 2},
	{13, 1}, {12, 1}, {13, 2},
	{1, 11}, {2, 11}, {1, 10},
	{13, 11}, {12, 11}, {13, 10},
}

// spawnCorners is the per-slot spawn order: top-left, top-right, bottom-left, bottom-right
var spawnCorners = [...]Point{
	{1, 1}, {13, 1}, {1, 11}, {13, 11},
}

// IsStartingCell reports whether p is one of the protected spawn cells
func IsStartingCell(p Point) bool {
	for _, s := range startingCells {
		if s == p {
			return true
		}
	}
	return false
}

// IsFixedWall reports whether p is a border or even/even pillar cell
func IsFixedWall(p Point) bool {
	if p.X == 0 || p.Y == 0 || p.X == GridWidth-1 || p.Y == GridHeight-1 {
		return true
	}
	return p.X%2 == 0 && p.Y%2 == 0
}

// StartingPosition returns the spawn corner for the i-th player in join order
func StartingPosition(i int) Point {
	if i < 0 {
		i = 0
	}
	return spawnCorners[i%len(spawnCorners)]
}

// GenerateGrid builds a fresh map: fixed walls, clear spawn cells and
// random destructible blocks everywhere else
func GenerateGrid(rng Rand) Grid {
	var g Grid
	for y := 0; y < GridHeight; y++ {
		for x := 0; x < GridWidth; x++ {
			p := Point{X: x, Y: y}
			switch {
			case IsFixedWall(p):
				g[y][x] = TileWall
			case IsStartingCell(p):
				g[y][x] = TileEmpty
			case rng.Float64() < BlockChance:
				g[y][x] = TileBlock
			default:
				g[y][x] = TileEmpty
			}
		}
	}
	return g
}
