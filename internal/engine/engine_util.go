package engine

import (
	"slices"
	"time"
)

const (
	MinPlayers           = 2
	MaxPlayers           = 16
	DefaultMaxPlayers    = 8
	DefaultPuzzleType    = "333"
	MaxChatMessageLength = 500
	MaxRoomNameLength    = 50
	MaxPasswordLength    = 50
	RecentChatLimit      = 50

	GracePeriod = 45 * time.Second
)

var PuzzleTypes = []string{
	"222", "333", "444", "555", "666", "777",
	"skewb", "pyram", "sq1", "clock", "minx",
	"333mirror", "222oh", "333oh", "333bl", "other",
}

var DefaultInputMethods = []string{"keyboard", "stackmat", "smart", "gantimer", "manual"}

func IsSupportedPuzzle(puzzle string) bool {
	return slices.Contains(PuzzleTypes, puzzle)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
