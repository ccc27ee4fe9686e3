package main

import (
	"math"
	"testing"
)

func TestGenerateGridFixedLayout(t *testing.T) {
	// Every roll places a block, so only walls and spawn cells stay free
	grid := GenerateGrid(&scriptedRand{def: 0})

	for y := 0; y < GridHeight; y++ {
		for x := 0; x < GridWidth; x++ {
			p := Point{X: x, Y: y}
			got := grid.At(p)
			switch {
			case IsFixedWall(p):
				if got != TileWall {
					t.Errorf("%v: expected wall, got %s", p, got)
				}
			case IsStartingCell(p):
				if got != TileEmpty {
					t.Errorf("%v: spawn cell should be empty, got %s", p, got)
				}
			default:
				if got != TileBlock {
					t.Errorf("%v: expected block, got %s", p, got)
				}
			}
		}
	}
}

func TestGenerateGridBlockChance(t *testing.T) {
	grid := GenerateGrid(&scriptedRand{def: BlockChance})
	for y := 0; y < GridHeight; y++ {
		for x := 0; x < GridWidth; x++ {
			if grid[y][x] == TileBlock {
				t.Fatalf("a roll equal to the block chance must leave the cell empty (%d,%d)", x, y)
			}
		}
	}
}

func TestFixedWalls(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{14, 5}, true},
		{Point{7, 12}, true},
		{Point{2, 2}, true},
		{Point{12, 10}, true},
		{Point{1, 1}, false},
		{Point{2, 1}, false},
		{Point{3, 4}, false},
	}
	for _, tt := range tests {
		if got := IsFixedWall(tt.p); got != tt.want {
			t.Errorf("IsFixedWall(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestStartingCellsAreNeverWalls(t *testing.T) {
	for _, p := range startingCells {
		if IsFixedWall(p) {
			t.Errorf("starting cell %v is a wall", p)
		}
	}
	if len(startingCells) != 12 {
		t.Errorf("expected 12 starting cells, got %d", len(startingCells))
	}
}

func TestStartingPositionCycles(t *testing.T) {
	want := []Point{{1, 1}, {13, 1}, {1, 11}, {13, 11}, {1, 1}}
	for i, w := range want {
		if got := StartingPosition(i); got != w {
			t.Errorf("StartingPosition(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestRowsIsACopy(t *testing.T) {
	grid := GenerateGrid(&scriptedRand{def: 0.99})
	rows := grid.Rows()
	if len(rows) != GridHeight || len(rows[0]) != GridWidth {
		t.Fatalf("unexpected size %dx%d", len(rows[0]), len(rows))
	}
	rows[1][1] = TileBlock
	if grid.At(Point{1, 1}) != TileEmpty {
		t.Error("mutating Rows must not touch the grid")
	}
}

func TestTileText(t *testing.T) {
	for _, tile := range []Tile{TileEmpty, TileWall, TileBlock, TilePowerup} {
		b, err := tile.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Tile
		if err := back.UnmarshalText(b); err != nil || back != tile {
			t.Errorf("%s: round trip gave %s, %v", tile, back, err)
		}
	}
	var bad Tile
	if err := bad.UnmarshalText([]byte("lava")); err == nil {
		t.Error("unknown tile name should fail")
	}
}

func TestGenerateGridWithSeededRand(t *testing.T) {
	const grids = 1000
	blocks, free := 0, 0
	for i := 0; i < grids; i++ {
		grid := GenerateGrid(NewRand(uint64(i), 1))
		for y := 0; y < GridHeight; y++ {
			for x := 0; x < GridWidth; x++ {
				p := Point{X: x, Y: y}
				got := grid.At(p)
				switch {
				case IsFixedWall(p):
					if got != TileWall {
						t.Fatalf("grid %d %v: expected wall, got %s", i, p, got)
					}
				case IsStartingCell(p):
					if got == TileBlock {
						t.Fatalf("grid %d %v: spawn cell is a block", i, p)
					}
				default:
					free++
					if got == TileBlock {
						blocks++
					}
				}
			}
		}
	}
	density := float64(blocks) / float64(free)
	if math.Abs(density-BlockChance) > 0.01 {
		t.Errorf("block density %.4f, want %.2f±0.01", density, BlockChance)
	}
}
