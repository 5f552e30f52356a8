package scramble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerator_Lengths(t *testing.T) {
	g := NewGenerator(7)
	cases := []struct {
		puzzle string
		moves  int
	}{
		{"222", 9},
		{"333", 20},
		{"444", 46},
		{"555", 60},
		{"666", 89},
		{"777", 100},
		{"skewb", 10},
	}
	for _, tc := range cases {
		t.Run(tc.puzzle, func(t *testing.T) {
			assert.Len(t, strings.Fields(g.Scramble(tc.puzzle)), tc.moves)
		})
	}
}

func TestGenerator_NoRepeatedFace(t *testing.T) {
	g := NewGenerator(42)
	for i := 0; i < 50; i++ {
		moves := strings.Fields(g.Scramble("333"))
		for j := 1; j < len(moves); j++ {
			assert.NotEqual(t, lastFace(moves[j-1]), lastFace(moves[j]), "scramble %v", moves)
		}
	}
}

func TestGenerator_WideMovesOnBigCubes(t *testing.T) {
	g := NewGenerator(3)
	assert.Contains(t, g.Scramble("555"), "w")
	assert.NotContains(t, g.Scramble("333"), "w")
}

func TestGenerator_BlindfoldAddsWideMove(t *testing.T) {
	moves := strings.Fields(NewGenerator(9).Scramble("333bl"))
	assert.Len(t, moves, 21)
	assert.Contains(t, moves[20], "w")
}

func TestGenerator_Shapes(t *testing.T) {
	g := NewGenerator(11)
	assert.True(t, strings.HasSuffix(g.Scramble("sq1"), "/"))
	assert.Contains(t, g.Scramble("clock"), "y2")
	assert.Len(t, strings.Split(g.Scramble("minx"), "\n"), 7)
	assert.Len(t, strings.Fields(g.Scramble("other")), 20)
}

func TestGenerator_DiffersBetweenCalls(t *testing.T) {
	g := NewGenerator(1)
	assert.NotEqual(t, g.Scramble("333"), g.Scramble("333"))
}
