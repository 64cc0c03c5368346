package game

import (
	"errors"
	"testing"
)

func TestRosterAdd(t *testing.T) {
	var r Roster
	if err := r.Add(1, "Alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add(2, "Bob"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.Add(1, "Alice again"); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 players, got %d", r.Len())
	}
	for i, p := range r.Players() {
		if p.Seat != i {
			t.Fatalf("player %s seat = %d, expected %d", p.Name, p.Seat, i)
		}
	}
}

func TestRosterLock(t *testing.T) {
	var r Roster
	if err := r.Add(1, "Alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.Lock()
	if err := r.Add(2, "Bob"); !errors.Is(err, ErrRosterLocked) {
		t.Fatalf("expected ErrRosterLocked, got %v", err)
	}
	if r.Remove(1) {
		t.Fatal("remove must fail after lock")
	}
}

func TestRosterRemoveReseats(t *testing.T) {
	var r Roster
	for i, name := range []string{"Alice", "Bob", "Carol"} {
		if err := r.Add(PlayerID(i+1), name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	if !r.Remove(2) {
		t.Fatal("expected Bob to be removed")
	}
	players := r.Players()
	if len(players) != 2 || players[0].Name != "Alice" || players[1].Name != "Carol" {
		t.Fatalf("unexpected roster after remove: %+v", players)
	}
	if players[1].Seat != 1 {
		t.Fatalf("Carol seat = %d, expected 1", players[1].Seat)
	}
}

func TestSpeakerOrder(t *testing.T) {
	var r Roster
	for i, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		if err := r.Add(PlayerID(i+1), name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	cases := []struct {
		start PlayerID
		want  []string
	}{
		{1, []string{"Alice", "Bob", "Carol", "Dave"}},
		{3, []string{"Carol", "Dave", "Alice", "Bob"}},
		{4, []string{"Dave", "Alice", "Bob", "Carol"}},
		{99, []string{"Alice", "Bob", "Carol", "Dave"}}, // unknown speaker falls back to seating order
	}
	for _, tc := range cases {
		order := r.SpeakerOrder(tc.start)
		if len(order) != len(tc.want) {
			t.Fatalf("start=%d: got %d players, expected %d", tc.start, len(order), len(tc.want))
		}
		for i, p := range order {
			if p.Name != tc.want[i] {
				t.Fatalf("start=%d: position %d = %s, expected %s", tc.start, i, p.Name, tc.want[i])
			}
		}
	}
}
