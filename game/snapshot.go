package game

import (
	"sort"
	"time"
)

// Claim pairs a strategy card with the player holding it this round.
type Claim struct {
	Card   StrategyCard `json:"card"`
	Player PlayerID     `json:"player"`
}

// Snapshot is the serializable view of a session, written to the store after
// every applied transition and handed to the rendering layer.
type Snapshot struct {
	ChatID       int64      `json:"chat_id"`
	Round        int        `json:"round"`
	Phase        Phase      `json:"phase"`
	Players      []Player   `json:"players"`
	RosterLocked bool       `json:"roster_locked"`
	Claims       []Claim    `json:"claims,omitempty"`
	Passed       []PlayerID `json:"passed,omitempty"`
	Active       PlayerID   `json:"active,omitempty"`
	Speaker      PlayerID   `json:"speaker,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PlayerByID finds a player in the snapshot roster.
func (snap Snapshot) PlayerByID(id PlayerID) (Player, bool) {
	for _, p := range snap.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// HasPassed reports whether the player already passed this action phase.
func (snap Snapshot) HasPassed(id PlayerID) bool {
	for _, p := range snap.Passed {
		if p == id {
			return true
		}
	}
	return false
}

// ClaimByPlayer returns the card a player holds this round.
func (snap Snapshot) ClaimByPlayer(id PlayerID) (StrategyCard, bool) {
	for _, c := range snap.Claims {
		if c.Player == id {
			return c.Card, true
		}
	}
	return StrategyCard{}, false
}

func (s *Session) snapshotLocked() Snapshot {
	passed := make([]PlayerID, 0, len(s.passed))
	for id := range s.passed {
		passed = append(passed, id)
	}
	sort.Slice(passed, func(i, j int) bool { return passed[i] < passed[j] })
	return Snapshot{
		ChatID:       s.chatID,
		Round:        s.round,
		Phase:        s.phase,
		Players:      s.roster.Players(),
		RosterLocked: s.roster.Locked(),
		Claims:       s.claimsByInitiative(),
		Passed:       passed,
		Active:       s.active,
		Speaker:      s.speaker,
		UpdatedAt:    s.updatedAt,
	}
}

// Restore rebuilds a live session from a stored snapshot.
func Restore(snap Snapshot, cfg Config) *Session {
	s := &Session{
		chatID:  snap.ChatID,
		cfg:     cfg.WithDefaults(),
		round:   snap.Round,
		phase:   snap.Phase,
		claims:  make(map[string]PlayerID, len(snap.Claims)),
		passed:  make(map[PlayerID]bool, len(snap.Passed)),
		active:  snap.Active,
		speaker: snap.Speaker,
	}
	if s.phase == "" {
		s.phase = PhaseSetup
	}
	s.roster.players = append([]Player(nil), snap.Players...)
	s.roster.reseat()
	if snap.RosterLocked {
		s.roster.Lock()
	}
	for _, c := range snap.Claims {
		s.claims[c.Card.Name] = c.Player
	}
	for _, id := range snap.Passed {
		s.passed[id] = true
	}
	s.updatedAt = snap.UpdatedAt
	if s.updatedAt.IsZero() {
		s.touch()
	}
	return s
}
