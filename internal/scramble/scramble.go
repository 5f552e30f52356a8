// Package scramble produces random-move scrambles for the supported puzzles.
package scramble

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

type Provider interface {
	Scramble(puzzleType string) string
}

type kind int

const (
	kindCube kind = iota
	kindPyraminx
	kindSkewb
	kindSquare1
	kindClock
	kindMegaminx
)

type def struct {
	kind   kind
	size   int
	length int
}

var defs = map[string]def{
	"222":       {kind: kindCube, size: 2, length: 9},
	"222oh":     {kind: kindCube, size: 2, length: 9},
	"333":       {kind: kindCube, size: 3, length: 20},
	"333bl":     {kind: kindCube, size: 3, length: 20},
	"333oh":     {kind: kindCube, size: 3, length: 20},
	"333mirror": {kind: kindCube, size: 3, length: 20},
	"444":       {kind: kindCube, size: 4, length: 46},
	"555":       {kind: kindCube, size: 5, length: 60},
	"666":       {kind: kindCube, size: 6, length: 89},
	"777":       {kind: kindCube, size: 7, length: 100},
	"pyram":     {kind: kindPyraminx, length: 11},
	"skewb":     {kind: kindSkewb, length: 10},
	"sq1":       {kind: kindSquare1, length: 12},
	"clock":     {kind: kindClock},
	"minx":      {kind: kindMegaminx, length: 70},
}

var suffixes = []string{"", "'", "2"}

// Generator is the default Provider. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *Generator) Scramble(puzzleType string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	d, ok := defs[puzzleType]
	if !ok {
		d = defs["333"]
	}

	var s string
	switch d.kind {
	case kindCube:
		s = g.cube(d.size, d.length)
	case kindPyraminx:
		s = g.pyraminx(d.length)
	case kindSkewb:
		s = g.axial([]string{"R", "L", "U", "B"}, []string{"", "'"}, d.length)
	case kindSquare1:
		s = g.square1(d.length)
	case kindClock:
		s = g.clock()
	case kindMegaminx:
		s = g.megaminx(d.length)
	}

	if puzzleType == "333bl" {
		s += " " + g.pick([]string{"Uw", "Lw", "Rw", "Fw"}) + g.pick(suffixes)
	}
	return s
}

func (g *Generator) pick(options []string) string {
	return options[g.rnd.IntN(len(options))]
}

// cube emits face turns, adding wide turns from 4x4 up. Consecutive moves never
// share an axis with both previous moves so nothing cancels.
func (g *Generator) cube(size, length int) string {
	faces := []string{"U", "D", "R", "L", "F", "B"}
	axis := map[string]int{"U": 0, "D": 0, "R": 1, "L": 1, "F": 2, "B": 2}
	maxDepth := size / 2

	moves := make([]string, 0, length)
	prevAxis, prevFace := -1, ""
	for len(moves) < length {
		face := g.pick(faces)
		if face == prevFace {
			continue
		}
		if axis[face] == prevAxis && len(moves) >= 2 && axis[lastFace(moves[len(moves)-2])] == prevAxis {
			continue
		}
		depth := 1
		if maxDepth > 1 {
			depth = 1 + g.rnd.IntN(maxDepth)
		}
		move := face
		switch {
		case depth == 2:
			move = face + "w"
		case depth > 2:
			move = fmt.Sprintf("%d%sw", depth, face)
		}
		moves = append(moves, move+g.pick(suffixes))
		prevAxis, prevFace = axis[face], face
	}
	return strings.Join(moves, " ")
}

func lastFace(move string) string {
	for _, r := range move {
		if strings.ContainsRune("UDRLFB", r) {
			return string(r)
		}
	}
	return ""
}

func (g *Generator) axial(faces, sfx []string, length int) string {
	moves := make([]string, 0, length)
	prev := ""
	for len(moves) < length {
		f := g.pick(faces)
		if f == prev {
			continue
		}
		moves = append(moves, f+g.pick(sfx))
		prev = f
	}
	return strings.Join(moves, " ")
}

func (g *Generator) pyraminx(length int) string {
	s := g.axial([]string{"U", "L", "R", "B"}, []string{"", "'"}, length)
	for _, tip := range []string{"u", "l", "r", "b"} {
		switch g.rnd.IntN(3) {
		case 1:
			s += " " + tip
		case 2:
			s += " " + tip + "'"
		}
	}
	return s
}

func (g *Generator) square1(length int) string {
	parts := make([]string, 0, length)
	for len(parts) < length {
		top := g.rnd.IntN(12) - 5
		bottom := g.rnd.IntN(12) - 5
		if top == 0 && bottom == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("(%d,%d)", top, bottom))
	}
	return strings.Join(parts, " / ") + " /"
}

func (g *Generator) clock() string {
	pins := []string{"UR", "DR", "DL", "UL", "U", "R", "D", "L", "ALL"}
	out := make([]string, 0, 18)
	for _, p := range pins {
		out = append(out, g.clockTurn(p))
	}
	out = append(out, "y2")
	for _, p := range []string{"U", "R", "D", "L", "ALL"} {
		out = append(out, g.clockTurn(p))
	}
	var up []string
	for _, p := range []string{"UR", "DR", "DL", "UL"} {
		if g.rnd.IntN(2) == 1 {
			up = append(up, p)
		}
	}
	return strings.Join(append(out, up...), " ")
}

func (g *Generator) clockTurn(pin string) string {
	n := g.rnd.IntN(12) - 5
	if n < 0 {
		return fmt.Sprintf("%s%d-", pin, -n)
	}
	return fmt.Sprintf("%s%d+", pin, n)
}

func (g *Generator) megaminx(length int) string {
	lines := make([]string, 0, length/10)
	for n := 0; n < length; n += 10 {
		var b strings.Builder
		for i := 0; i < 5; i++ {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("R" + g.pick([]string{"++", "--"}))
			b.WriteString(" D" + g.pick([]string{"++", "--"}))
		}
		b.WriteString(" U" + g.pick([]string{"", "'"}))
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
