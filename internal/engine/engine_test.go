package engine

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func participant(userID string, joined time.Duration, rounds ...int) Participant {
	p := Participant{UserID: userID, Username: userID, JoinedAt: t0.Add(joined)}
	for _, r := range rounds {
		p.Results = append(p.Results, Result{Round: r, Elapsed: 12 * time.Second})
	}
	return p
}

func TestValidateSpec(t *testing.T) {
	cases := []struct {
		name    string
		spec    CreateSpec
		wantErr error
		check   func(t *testing.T, got CreateSpec)
	}{
		{
			name: "defaults applied",
			spec: CreateSpec{Name: "  sunday races  "},
			check: func(t *testing.T, got CreateSpec) {
				if got.Name != "sunday races" {
					t.Fatalf("name: got %q", got.Name)
				}
				if got.PuzzleType != DefaultPuzzleType || got.MaxPlayers != DefaultMaxPlayers {
					t.Fatalf("defaults not applied: %+v", got)
				}
				if len(got.InputMethods) != len(DefaultInputMethods) {
					t.Fatalf("input methods: got %v", got.InputMethods)
				}
			},
		},
		{
			name:    "blank name rejected",
			spec:    CreateSpec{Name: "   "},
			wantErr: ErrInvalidName,
		},
		{
			name:    "unknown puzzle rejected",
			spec:    CreateSpec{Name: "x", PuzzleType: "888"},
			wantErr: ErrUnsupportedPuzzle,
		},
		{
			name: "long name truncated and capacity clamped",
			spec: CreateSpec{Name: strings.Repeat("ö", 80), MaxPlayers: 99},
			check: func(t *testing.T, got CreateSpec) {
				if n := len([]rune(got.Name)); n != MaxRoomNameLength {
					t.Fatalf("name runes: got %d", n)
				}
				if got.MaxPlayers != MaxPlayers {
					t.Fatalf("max players: got %d", got.MaxPlayers)
				}
			},
		},
		{
			name: "password implies private",
			spec: CreateSpec{Name: "x", Password: "hunter2", InputMethods: []string{"stackmat", "abacus", "stackmat"}},
			check: func(t *testing.T, got CreateSpec) {
				if !got.Private {
					t.Fatalf("expected private room")
				}
				if len(got.InputMethods) != 1 || got.InputMethods[0] != "stackmat" {
					t.Fatalf("input methods: got %v", got.InputMethods)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateSpec(tc.spec)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			tc.check(t, got)
		})
	}
}

func TestRoundComplete(t *testing.T) {
	cases := []struct {
		name string
		room Room
		want bool
	}{
		{
			name: "everyone answered",
			room: Room{Round: 2, Participants: []Participant{participant("a", 0, 1, 2), participant("b", time.Second, 2)}},
			want: true,
		},
		{
			name: "one missing",
			room: Room{Round: 2, Participants: []Participant{participant("a", 0, 1, 2), participant("b", time.Second, 1)}},
			want: false,
		},
		{
			name: "spectators ignored",
			room: Room{Round: 1, Participants: []Participant{
				participant("a", 0, 1),
				func() Participant { p := participant("b", time.Second); p.Spectator = true; return p }(),
			}},
			want: true,
		},
		{
			name: "nobody competing",
			room: Room{Round: 1, Participants: []Participant{
				func() Participant { p := participant("a", 0, 1); p.Spectator = true; return p }(),
			}},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RoundComplete(tc.room); got != tc.want {
				t.Fatalf("RoundComplete: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSuccessor_PicksEarliestJoin(t *testing.T) {
	remaining := []Participant{
		participant("carol", 3*time.Second),
		participant("bob", time.Second),
		participant("dave", 2*time.Second),
	}
	next, ok := Successor(remaining)
	if !ok || next.UserID != "bob" {
		t.Fatalf("want bob, got %+v (ok=%v)", next, ok)
	}

	if _, ok := Successor(nil); ok {
		t.Fatalf("expected no successor for an empty room")
	}
}

func TestSuccessor_TieBrokenByUserID(t *testing.T) {
	next, _ := Successor([]Participant{participant("zed", 0), participant("amy", 0)})
	if next.UserID != "amy" {
		t.Fatalf("want amy, got %s", next.UserID)
	}
}

func TestCheckResult(t *testing.T) {
	room := Room{Round: 3}
	p := participant("a", 0, 1, 3)

	cases := []struct {
		name string
		in   ResultInput
		want error
	}{
		{"current round already answered", ResultInput{Round: 3}, ErrRoundAlreadySubmitted},
		{"late answer to an earlier round", ResultInput{Round: 2, Elapsed: time.Second}, nil},
		{"future round", ResultInput{Round: 4}, ErrRoundOutOfRange},
		{"zero round", ResultInput{Round: 0}, ErrRoundOutOfRange},
		{"negative time", ResultInput{Round: 2, Elapsed: -time.Second}, ErrNegativeTime},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckResult(room, p, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCanManage(t *testing.T) {
	room := Room{CreatorID: "a"}
	if !CanManage(room, "a", false) {
		t.Fatalf("creator should manage")
	}
	if CanManage(room, "b", false) {
		t.Fatalf("non-creator should not manage")
	}
	if !CanManage(room, "b", true) {
		t.Fatalf("privileged user should manage")
	}
}

func TestNormalizeChat(t *testing.T) {
	if _, err := NormalizeChat("   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("want ErrEmptyMessage, got %v", err)
	}
	got, err := NormalizeChat(strings.Repeat("a", 600))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != MaxChatMessageLength {
		t.Fatalf("want %d chars, got %d", MaxChatMessageLength, len(got))
	}
}
