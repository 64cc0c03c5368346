package game

import (
	"errors"
	"reflect"
	"testing"
)

func newTestSession(t *testing.T, names ...string) *Session {
	t.Helper()
	s := NewSession(100, Config{}, Player{ID: 1, Name: names[0]})
	for i, name := range names[1:] {
		if err := s.Join(PlayerID(i+2), name); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	return s
}

func startedSession(t *testing.T, names ...string) *Session {
	t.Helper()
	s := newTestSession(t, names...)
	if err := s.StartGame(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func TestStartGame(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob", "Carol")
	if err := s.StartGame(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseStrategy {
		t.Fatalf("phase = %s, expected strategy", snap.Phase)
	}
	if snap.Round != 1 {
		t.Fatalf("round = %d, expected 1", snap.Round)
	}
	if snap.Active != 1 || snap.Speaker != 1 {
		t.Fatalf("active=%d speaker=%d, expected Alice (1) for both", snap.Active, snap.Speaker)
	}
	if !snap.RosterLocked {
		t.Fatal("roster must lock at game start")
	}
	if err := s.Join(9, "Dave"); !errors.Is(err, ErrRosterLocked) {
		t.Fatalf("expected ErrRosterLocked after start, got %v", err)
	}
	if err := s.StartGame(nil); !errors.Is(err, ErrNotInSetup) {
		t.Fatalf("expected ErrNotInSetup on double start, got %v", err)
	}
}

func TestSetSpeaker(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob", "Carol")
	if err := s.SetSpeaker(9); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer for a non-seated id, got %v", err)
	}
	if err := s.SetSpeaker(2); err != nil {
		t.Fatalf("set speaker: %v", err)
	}
	if err := s.StartGame(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := s.Snapshot()
	if snap.Speaker != 2 || snap.Active != 2 {
		t.Fatalf("speaker=%d active=%d, expected Bob (2) to lead the first pick", snap.Speaker, snap.Active)
	}
	if err := s.SetSpeaker(1); !errors.Is(err, ErrNotInSetup) {
		t.Fatalf("expected ErrNotInSetup after start, got %v", err)
	}
}

func TestStartGameRosterBounds(t *testing.T) {
	s := newTestSession(t, "Alice", "Bob")
	if err := s.StartGame(nil); !errors.Is(err, ErrInvalidRosterSize) {
		t.Fatalf("expected ErrInvalidRosterSize with 2 players, got %v", err)
	}
	if got := s.Snapshot().Phase; got != PhaseSetup {
		t.Fatalf("rejected start must keep setup phase, got %s", got)
	}
}

func TestStrategyPhasePickRotation(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")

	if err := s.ClaimCard(1, "Leadership"); err != nil {
		t.Fatalf("Alice pick: %v", err)
	}
	if got := s.Snapshot().Active; got != 2 {
		t.Fatalf("active = %d after Alice's pick, expected Bob (2)", got)
	}
	if err := s.ClaimCard(2, "Diplomacy"); err != nil {
		t.Fatalf("Bob pick: %v", err)
	}
	if got := s.Snapshot().Active; got != 3 {
		t.Fatalf("active = %d after Bob's pick, expected Carol (3)", got)
	}
	if err := s.ClaimCard(3, "Politics"); err != nil {
		t.Fatalf("Carol pick: %v", err)
	}

	snap := s.Snapshot()
	if snap.Phase != PhaseAction {
		t.Fatalf("phase = %s after all picks, expected action", snap.Phase)
	}
	if snap.Active != 1 {
		t.Fatalf("active = %d in action phase, expected Alice (lowest initiative)", snap.Active)
	}

	order := s.TurnOrder()
	if len(order) != 3 {
		t.Fatalf("turn order length = %d, expected 3", len(order))
	}
	prev := 0
	holders := make(map[PlayerID]bool)
	for _, c := range order {
		if c.Card.Initiative <= prev {
			t.Fatalf("turn order not strictly ascending by initiative: %+v", order)
		}
		prev = c.Card.Initiative
		if holders[c.Player] {
			t.Fatalf("player %d holds more than one card", c.Player)
		}
		holders[c.Player] = true
	}
}

func TestStrategyPhaseRejections(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")
	before := s.Snapshot()

	cases := []struct {
		name   string
		fn     func() error
		target *RuleError
	}{
		{"out of turn pick", func() error { return s.ClaimCard(2, "Leadership") }, ErrNotYourTurn},
		{"unknown card", func() error { return s.ClaimCard(1, "Logistics") }, ErrUnknownCard},
		{"action in strategy phase", func() error { return s.TakeAction(1) }, ErrWrongPhase},
		{"pass in strategy phase", func() error { return s.PassAction(1) }, ErrWrongPhase},
		{"advance in strategy phase", func() error { return s.AdvanceStatus() }, ErrWrongPhase},
		{"agenda in strategy phase", func() error { return s.ResolveAgenda() }, ErrWrongPhase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			if !errors.Is(err, tc.target) {
				t.Fatalf("expected %v, got %v", tc.target, err)
			}
			if after := s.Snapshot(); !reflect.DeepEqual(before, after) {
				t.Fatalf("rejected transition mutated state:\nbefore %+v\nafter  %+v", before, after)
			}
		})
	}
}

func TestClaimedCardRejected(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")
	if err := s.ClaimCard(1, "Leadership"); err != nil {
		t.Fatalf("Alice pick: %v", err)
	}
	err := s.ClaimCard(2, "Leadership")
	if !errors.Is(err, ErrCardAlreadyClaimed) {
		t.Fatalf("expected ErrCardAlreadyClaimed, got %v", err)
	}
	var rule *RuleError
	if !errors.As(err, &rule) || rule.Code() != "CARD_ALREADY_CLAIMED" {
		t.Fatalf("expected coded rule error, got %v", err)
	}
}

func TestActionPhaseRotationAndPassing(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")
	mustClaim(t, s, 1, "Leadership")
	mustClaim(t, s, 2, "Diplomacy")
	mustClaim(t, s, 3, "Politics")

	if err := s.TakeAction(2); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn for Bob, got %v", err)
	}
	if err := s.TakeAction(1); err != nil {
		t.Fatalf("Alice action: %v", err)
	}
	if got := s.Snapshot().Active; got != 2 {
		t.Fatalf("active = %d, expected Bob", got)
	}
	if err := s.PassAction(2); err != nil {
		t.Fatalf("Bob pass: %v", err)
	}
	if got := s.Snapshot().Active; got != 3 {
		t.Fatalf("active = %d, expected Carol", got)
	}
	if err := s.TakeAction(3); err != nil {
		t.Fatalf("Carol action: %v", err)
	}
	// Bob has passed, so priority wraps to Alice.
	if got := s.Snapshot().Active; got != 1 {
		t.Fatalf("active = %d, expected Alice after wrap", got)
	}
	if err := s.PassAction(1); err != nil {
		t.Fatalf("Alice pass: %v", err)
	}
	if got := s.Snapshot().Active; got != 3 {
		t.Fatalf("active = %d, expected Carol as last unpassed", got)
	}
	if err := s.PassAction(3); err != nil {
		t.Fatalf("Carol pass: %v", err)
	}
	if got := s.Snapshot().Phase; got != PhaseStatus {
		t.Fatalf("phase = %s after all passed, expected status", got)
	}
}

func TestAdvanceStatus(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")
	playRound(t, s, map[PlayerID]string{1: "Leadership", 2: "Diplomacy", 3: "Politics"})

	if err := s.AdvanceStatus(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	snap := s.Snapshot()
	if snap.Round != 2 {
		t.Fatalf("round = %d, expected 2", snap.Round)
	}
	if len(snap.Claims) != 0 {
		t.Fatalf("claims must reset after status phase, got %+v", snap.Claims)
	}
	if snap.Phase != PhaseStrategy {
		t.Fatalf("phase = %s, expected strategy (agenda starts round 3)", snap.Phase)
	}
	// Carol held Politics, so she is the new speaker and picks first.
	if snap.Speaker != 3 || snap.Active != 3 {
		t.Fatalf("speaker=%d active=%d, expected Carol (3)", snap.Speaker, snap.Active)
	}
}

func TestAgendaPhaseThreshold(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")

	// Round 1: nobody claims Politics, so the speaker stays put.
	playRound(t, s, map[PlayerID]string{1: "Leadership", 2: "Diplomacy", 3: "Warfare"})
	if err := s.AdvanceStatus(); err != nil {
		t.Fatalf("advance round 1: %v", err)
	}
	if snap := s.Snapshot(); snap.Speaker != 1 {
		t.Fatalf("speaker = %d, expected unchanged Alice without a Politics claim", snap.Speaker)
	}

	// Round 2 ends into round 3, which is the agenda threshold.
	playRound(t, s, map[PlayerID]string{1: "Leadership", 2: "Diplomacy", 3: "Warfare"})
	if err := s.AdvanceStatus(); err != nil {
		t.Fatalf("advance round 2: %v", err)
	}
	snap := s.Snapshot()
	if snap.Round != 3 || snap.Phase != PhaseAgenda {
		t.Fatalf("round=%d phase=%s, expected agenda phase at round 3", snap.Round, snap.Phase)
	}
	if err := s.ResolveAgenda(); err != nil {
		t.Fatalf("resolve agenda: %v", err)
	}
	snap = s.Snapshot()
	if snap.Round != 3 || snap.Phase != PhaseStrategy {
		t.Fatalf("round=%d phase=%s after agenda, expected strategy in the same round", snap.Round, snap.Phase)
	}
}

func TestAgendaDisabled(t *testing.T) {
	s := NewSession(7, Config{AgendaFromRound: -1}, Player{ID: 1, Name: "Alice"})
	for i, name := range []string{"Bob", "Carol"} {
		if err := s.Join(PlayerID(i+2), name); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if err := s.StartGame(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	for round := 1; round <= 4; round++ {
		playRound(t, s, map[PlayerID]string{1: "Leadership", 2: "Diplomacy", 3: "Warfare"})
		if err := s.AdvanceStatus(); err != nil {
			t.Fatalf("advance round %d: %v", round, err)
		}
		if got := s.Snapshot().Phase; got != PhaseStrategy {
			t.Fatalf("round %d advanced into %s, agenda is disabled", round, got)
		}
	}
}

func TestConfiguredAgendaRound(t *testing.T) {
	s := NewSession(7, Config{AgendaFromRound: 2}, Player{ID: 1, Name: "Alice"})
	for i, name := range []string{"Bob", "Carol"} {
		if err := s.Join(PlayerID(i+2), name); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if err := s.StartGame(nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	playRound(t, s, map[PlayerID]string{1: "Leadership", 2: "Diplomacy", 3: "Warfare"})
	if err := s.AdvanceStatus(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if snap := s.Snapshot(); snap.Phase != PhaseAgenda || snap.Round != 2 {
		t.Fatalf("round=%d phase=%s, expected agenda from round 2", snap.Round, snap.Phase)
	}
}

func TestEndGameIdempotent(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")
	s.EndGame()
	if got := s.Snapshot().Phase; got != PhaseEnded {
		t.Fatalf("phase = %s, expected ended", got)
	}
	s.EndGame()
	if got := s.Snapshot().Phase; got != PhaseEnded {
		t.Fatalf("phase = %s after repeated end, expected ended", got)
	}
	if err := s.ClaimCard(1, "Leadership"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected ErrWrongPhase after end, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := startedSession(t, "Alice", "Bob", "Carol")
	mustClaim(t, s, 1, "Leadership")
	mustClaim(t, s, 2, "Diplomacy")
	mustClaim(t, s, 3, "Politics")
	if err := s.PassAction(1); err != nil {
		t.Fatalf("pass: %v", err)
	}

	snap := s.Snapshot()
	restored := Restore(snap, Config{})
	if got := restored.Snapshot(); !reflect.DeepEqual(snap, got) {
		t.Fatalf("restore mismatch:\nwant %+v\ngot  %+v", snap, got)
	}
	// The restored session keeps playing from where it stopped.
	if err := restored.TakeAction(2); err != nil {
		t.Fatalf("action on restored session: %v", err)
	}
}

func mustClaim(t *testing.T, s *Session, player PlayerID, card string) {
	t.Helper()
	if err := s.ClaimCard(player, card); err != nil {
		t.Fatalf("claim %s by %d: %v", card, player, err)
	}
}

// playRound claims the given cards in active-player order and passes everyone
// through the action phase, leaving the session in the status phase.
func playRound(t *testing.T, s *Session, picks map[PlayerID]string) {
	t.Helper()
	for range picks {
		active := s.Snapshot().Active
		mustClaim(t, s, active, picks[active])
	}
	for s.Snapshot().Phase == PhaseAction {
		if err := s.PassAction(s.Snapshot().Active); err != nil {
			t.Fatalf("pass by %d: %v", s.Snapshot().Active, err)
		}
	}
	if got := s.Snapshot().Phase; got != PhaseStatus {
		t.Fatalf("phase = %s after round, expected status", got)
	}
}
