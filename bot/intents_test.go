package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/korveth/ti4bot/game"
)

var (
	alice = game.Player{ID: 1, Name: "Alice"}
	bob   = game.Player{ID: 2, Name: "Bob"}
	carol = game.Player{ID: 3, Name: "Carol"}
)

const testChat int64 = -100500

func newTestInterpreter() *Interpreter {
	i := NewInterpreter(game.NewManager(game.Config{}, nil), nil)
	i.seed = func() int64 { return 42 }
	return i
}

func handle(t *testing.T, i *Interpreter, actor game.Player, intent Intent, arg string) RenderResult {
	t.Helper()
	res, err := i.HandleIntent(context.Background(), testChat, actor, intent, arg)
	if err != nil {
		t.Fatalf("HandleIntent(%s, %q) by %s: %v", intent, arg, actor.Name, err)
	}
	return res
}

// lobbyWithThree seats Alice, Bob, and Carol in a fresh lobby.
func lobbyWithThree(t *testing.T, i *Interpreter) {
	t.Helper()
	handle(t, i, alice, IntentJoin, "")
	handle(t, i, bob, IntentJoin, "")
	handle(t, i, carol, IntentJoin, "")
}

func activePlayer(t *testing.T, i *Interpreter) game.Player {
	t.Helper()
	s, err := i.games.Get(context.Background(), testChat)
	if err != nil {
		t.Fatalf("no session: %v", err)
	}
	snap := s.Snapshot()
	p, ok := snap.PlayerByID(snap.Active)
	if !ok {
		t.Fatalf("active player %d not on roster", snap.Active)
	}
	return p
}

func snapshot(t *testing.T, i *Interpreter) game.Snapshot {
	t.Helper()
	s, err := i.games.Get(context.Background(), testChat)
	if err != nil {
		t.Fatalf("no session: %v", err)
	}
	return s.Snapshot()
}

func TestJoinCreatesLobby(t *testing.T) {
	i := newTestInterpreter()

	res := handle(t, i, alice, IntentJoin, "")
	if !strings.Contains(res.Text, "Alice") {
		t.Fatalf("lobby text should list the creator, got %q", res.Text)
	}
	if res.Markup == nil || len(res.Markup.InlineKeyboard) == 0 {
		t.Fatal("lobby rendering should carry the lobby keyboard")
	}

	res = handle(t, i, bob, IntentJoin, "")
	if !strings.Contains(res.Text, "Players (2)") {
		t.Fatalf("second join should show two players, got %q", res.Text)
	}
}

func TestDuplicateJoinRendersRejection(t *testing.T) {
	i := newTestInterpreter()
	handle(t, i, alice, IntentJoin, "")

	res := handle(t, i, alice, IntentJoin, "")
	if !strings.HasPrefix(res.Text, "⛔") {
		t.Fatalf("duplicate join should render a rejection, got %q", res.Text)
	}
	if !strings.Contains(res.Text, "Alice") {
		t.Fatalf("rejection should name the player, got %q", res.Text)
	}
}

func TestStartMovesToStrategyPhase(t *testing.T) {
	i := newTestInterpreter()
	lobbyWithThree(t, i)

	res := handle(t, i, alice, IntentStart, "")
	if !strings.Contains(res.Text, "strategy phase") {
		t.Fatalf("start should announce the strategy phase, got %q", res.Text)
	}
	if res.Markup == nil {
		t.Fatal("strategy phase should offer the card keyboard")
	}
	buttons := 0
	for _, row := range res.Markup.InlineKeyboard {
		buttons += len(row)
	}
	if buttons != len(game.Cards()) {
		t.Fatalf("expected %d card buttons, got %d", len(game.Cards()), buttons)
	}
}

func TestStartIsDeterministicPerSeed(t *testing.T) {
	order := func() []game.Player {
		i := newTestInterpreter()
		lobbyWithThree(t, i)
		handle(t, i, alice, IntentStart, "")
		return snapshot(t, i).Players
	}
	first := order()
	second := order()
	if len(first) != len(second) {
		t.Fatalf("roster sizes differ: %d vs %d", len(first), len(second))
	}
	for seat := range first {
		if first[seat].ID != second[seat].ID {
			t.Fatalf("seat %d differs across runs with the same seed: %d vs %d",
				seat, first[seat].ID, second[seat].ID)
		}
	}
}

func TestSpeakerDesignationLeadsFirstPick(t *testing.T) {
	i := newTestInterpreter()
	lobbyWithThree(t, i)

	res := handle(t, i, bob, IntentSpeaker, "")
	if !strings.Contains(res.Text, "Starting speaker: Bob") {
		t.Fatalf("lobby should show the designated speaker, got %q", res.Text)
	}

	handle(t, i, alice, IntentStart, "")
	snap := snapshot(t, i)
	if snap.Speaker != bob.ID || snap.Active != bob.ID {
		t.Fatalf("speaker=%d active=%d, Bob (%d) should lead the first pick", snap.Speaker, snap.Active, bob.ID)
	}
}

func TestSpeakerClaimByOutsiderRendersRejection(t *testing.T) {
	i := newTestInterpreter()
	handle(t, i, alice, IntentJoin, "")

	res := handle(t, i, carol, IntentSpeaker, "")
	if !strings.HasPrefix(res.Text, "⛔") {
		t.Fatalf("non-seated speaker claim should render a rejection, got %q", res.Text)
	}
}

func TestClaimOutOfTurnRendersRejection(t *testing.T) {
	i := newTestInterpreter()
	lobbyWithThree(t, i)
	handle(t, i, alice, IntentStart, "")

	active := activePlayer(t, i)
	var wrong game.Player
	for _, p := range []game.Player{alice, bob, carol} {
		if p.ID != active.ID {
			wrong = p
			break
		}
	}

	res := handle(t, i, wrong, IntentClaim, "Warfare")
	if !strings.HasPrefix(res.Text, "⛔") {
		t.Fatalf("out-of-turn claim should render a rejection, got %q", res.Text)
	}
	if !strings.Contains(res.Text, active.Name) {
		t.Fatalf("rejection should name whose turn it is, got %q", res.Text)
	}
}

func TestFullRoundThroughCallbackIntents(t *testing.T) {
	i := newTestInterpreter()
	lobbyWithThree(t, i)
	handle(t, i, alice, IntentStart, "")

	cards := []string{"Warfare", "Leadership", "Technology"}
	for _, card := range cards {
		p := activePlayer(t, i)
		res := handle(t, i, p, IntentClaim, card)
		if strings.HasPrefix(res.Text, "⛔") {
			t.Fatalf("claim %q by active player rejected: %q", card, res.Text)
		}
	}

	snap := snapshot(t, i)
	if snap.Phase != game.PhaseAction {
		t.Fatalf("phase after all picks = %s, want action", snap.Phase)
	}

	// Initiative order regardless of pick order: Leadership 1 first.
	first := activePlayer(t, i)
	card, _ := snap.ClaimByPlayer(first.ID)
	if card.Name != "Leadership" {
		t.Fatalf("first actor holds %s, want Leadership", card.Name)
	}

	for range []int{0, 1, 2} {
		p := activePlayer(t, i)
		handle(t, i, p, IntentPass, "")
	}
	if got := snapshot(t, i).Phase; got != game.PhaseStatus {
		t.Fatalf("phase after all pass = %s, want status", got)
	}

	res := handle(t, i, alice, IntentAdvance, "")
	if !strings.Contains(res.Text, "Round 2") {
		t.Fatalf("advance should open round 2, got %q", res.Text)
	}
}

func TestStatusWithoutSessionRendersRejection(t *testing.T) {
	i := newTestInterpreter()

	res := handle(t, i, alice, IntentStatus, "")
	if !strings.HasPrefix(res.Text, "⛔") {
		t.Fatalf("status without a session should render a rejection, got %q", res.Text)
	}
}

func TestLastLeaveClosesLobby(t *testing.T) {
	i := newTestInterpreter()
	handle(t, i, alice, IntentJoin, "")

	res := handle(t, i, alice, IntentLeave, "")
	if !strings.Contains(res.Text, "closed") {
		t.Fatalf("last leave should close the lobby, got %q", res.Text)
	}
	if _, err := i.games.Get(context.Background(), testChat); !errors.Is(err, game.ErrSessionNotFound) {
		t.Fatalf("session should be gone after lobby close, got err=%v", err)
	}
}

func TestEndRemovesSession(t *testing.T) {
	i := newTestInterpreter()
	lobbyWithThree(t, i)
	handle(t, i, alice, IntentStart, "")

	res := handle(t, i, alice, IntentEnd, "")
	if !strings.Contains(res.Text, "Game over") {
		t.Fatalf("end should announce game over, got %q", res.Text)
	}
	if i.games.Len() != 0 {
		t.Fatalf("manager should hold no sessions after end, got %d", i.games.Len())
	}
}

func TestUnknownIntentFallsBackToHelpHint(t *testing.T) {
	i := newTestInterpreter()

	res := handle(t, i, alice, Intent("dance"), "")
	if !strings.Contains(res.Text, "/help") {
		t.Fatalf("unknown intent should point at /help, got %q", res.Text)
	}
}

type fakeMedia struct {
	ref   string
	err   error
	calls int
}

func (f *fakeMedia) Render(_ context.Context, ref string, _ game.Snapshot) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.ref + "/" + ref, nil
}

func TestMediaRendererAttachesBoardImage(t *testing.T) {
	media := &fakeMedia{ref: "https://boards.example"}
	i := NewInterpreter(game.NewManager(game.Config{}, nil), media)
	i.seed = func() int64 { return 42 }

	lobbyWithThree(t, i)
	handle(t, i, alice, IntentStart, "")
	for range []int{0, 1, 2} {
		p := activePlayer(t, i)
		handle(t, i, p, IntentClaim, pickAnyFree(t, i))
	}

	if snapshot(t, i).Phase != game.PhaseAction {
		t.Fatal("expected action phase after all picks")
	}
	if media.calls == 0 {
		t.Fatal("media renderer should have been asked for the board")
	}

	res := handle(t, i, activePlayer(t, i), IntentStatus, "")
	if res.ImageRef != "https://boards.example/"+BoardTurnOrder {
		t.Fatalf("ImageRef = %q", res.ImageRef)
	}
}

func TestMediaRendererFailureDegradesToText(t *testing.T) {
	media := &fakeMedia{err: errors.New("renderer down")}
	i := NewInterpreter(game.NewManager(game.Config{}, nil), media)
	i.seed = func() int64 { return 42 }

	lobbyWithThree(t, i)
	handle(t, i, alice, IntentStart, "")
	for range []int{0, 1, 2} {
		p := activePlayer(t, i)
		handle(t, i, p, IntentClaim, pickAnyFree(t, i))
	}

	res := handle(t, i, activePlayer(t, i), IntentStatus, "")
	if res.ImageRef != "" {
		t.Fatalf("failed renderer should leave ImageRef empty, got %q", res.ImageRef)
	}
	if res.Text == "" {
		t.Fatal("text rendering should survive a renderer failure")
	}
}

// pickAnyFree returns some card nobody claimed yet.
func pickAnyFree(t *testing.T, i *Interpreter) string {
	t.Helper()
	snap := snapshot(t, i)
	claimed := make(map[string]bool, len(snap.Claims))
	for _, c := range snap.Claims {
		claimed[c.Card.Name] = true
	}
	for _, card := range game.Cards() {
		if !claimed[card.Name] {
			return card.Name
		}
	}
	t.Fatal("no free card left")
	return ""
}
