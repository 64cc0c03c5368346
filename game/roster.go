package game

import "math/rand"

// PlayerID is the opaque identifier handed to us by the transport layer
// (the Telegram user id in practice).
type PlayerID int64

// Player is a seated participant. The identifier is immutable; the seat is
// fixed once the roster locks at game start.
type Player struct {
	ID      PlayerID `json:"id"`
	Name    string   `json:"name"`
	Seat    int      `json:"seat"`
	Faction string   `json:"faction,omitempty"`
}

// Roster is the ordered set of participants. Seating order is join order
// until Shuffle or Lock rearranges and freezes it.
type Roster struct {
	players []Player
	locked  bool
}

// Add appends a player to the seating order.
func (r *Roster) Add(id PlayerID, name string) error {
	if r.locked {
		return ErrRosterLocked
	}
	for _, p := range r.players {
		if p.ID == id {
			return errDuplicatePlayer(p.Name)
		}
	}
	r.players = append(r.players, Player{ID: id, Name: name, Seat: len(r.players)})
	return nil
}

// Remove drops a player before the roster locks. It reports whether the
// player was present.
func (r *Roster) Remove(id PlayerID) bool {
	if r.locked {
		return false
	}
	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			r.reseat()
			return true
		}
	}
	return false
}

// Shuffle randomizes seating order. Only meaningful before Lock.
func (r *Roster) Shuffle(rng *rand.Rand) {
	if r.locked || rng == nil {
		return
	}
	rng.Shuffle(len(r.players), func(i, j int) {
		r.players[i], r.players[j] = r.players[j], r.players[i]
	})
	r.reseat()
}

// Lock freezes membership and seating; further Add calls fail with
// ErrRosterLocked.
func (r *Roster) Lock() {
	r.locked = true
}

// Locked reports whether membership is frozen.
func (r *Roster) Locked() bool {
	return r.locked
}

// Len returns the number of seated players.
func (r *Roster) Len() int {
	return len(r.players)
}

// Players returns the seating order.
func (r *Roster) Players() []Player {
	out := make([]Player, len(r.players))
	copy(out, r.players)
	return out
}

// ByID finds a player by identifier.
func (r *Roster) ByID(id PlayerID) (Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// SpeakerOrder returns the seating order rotated to start at the given
// player. If the player is not seated the plain seating order is returned.
func (r *Roster) SpeakerOrder(startingAt PlayerID) []Player {
	start := 0
	for i, p := range r.players {
		if p.ID == startingAt {
			start = i
			break
		}
	}
	out := make([]Player, 0, len(r.players))
	for i := range r.players {
		out = append(out, r.players[(start+i)%len(r.players)])
	}
	return out
}

func (r *Roster) reseat() {
	for i := range r.players {
		r.players[i].Seat = i
	}
}
