package main

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"unicode/utf8"
)

// Rand is the random source used for map generation and powerup drops.
// *math/rand/v2.Rand satisfies it; tests inject scripted sources.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a deterministic source for the given seed pair
func NewRand(seed, stream uint64) Rand {
	return mrand.New(mrand.NewPCG(seed, stream))
}

// SeedSource hands out one seed per match. A fixed base seed makes
// every match reproducible; zero draws a fresh seed each time.
type SeedSource struct {
	base  uint64
	count uint64
}

func NewSeedSource(base uint64) *SeedSource {
	return &SeedSource{base: base}
}

// Next returns the seed pair for the next match
func (s *SeedSource) Next() (seed, stream uint64) {
	s.count++
	if s.base != 0 {
		return s.base, s.count
	}
	return randomSeed(), s.count
}

func randomSeed() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	v := binary.LittleEndian.Uint64(b[:])
	if v == 0 {
		v = 1
	}
	return v
}

// truncateRunes cuts s to at most n runes without splitting a character
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
