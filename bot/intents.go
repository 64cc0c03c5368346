// Package bot maps chat intents onto game session transitions and renders
// the outcome back into chat messages. Parsing raw update text into intents
// stays in the handlers; everything below HandleIntent is transport-free.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/korveth/ti4bot/core/logger"
	"github.com/korveth/ti4bot/game"
)

// Intent is a structured player action extracted from a chat update.
type Intent string

const (
	IntentJoin    Intent = "join"
	IntentLeave   Intent = "leave"
	IntentSpeaker Intent = "speaker"
	IntentStart   Intent = "start"
	IntentClaim   Intent = "claim"
	IntentAct     Intent = "act"
	IntentPass    Intent = "pass"
	IntentAdvance Intent = "advance"
	IntentResolve Intent = "resolve"
	IntentStatus  Intent = "status"
	IntentEnd     Intent = "end"
)

// RenderResult is what the transport layer sends back to the chat.
type RenderResult struct {
	Text     string
	Markup   *tele.ReplyMarkup
	ImageRef string
}

// MediaRenderer resolves a symbolic board reference ("turn-order") into an
// opaque image reference the transport can attach. The interpreter never
// touches image bytes.
type MediaRenderer interface {
	Render(ctx context.Context, ref string, snap game.Snapshot) (string, error)
}

// BoardTurnOrder is the symbolic reference for the turn-order board image.
const BoardTurnOrder = "turn-order"

// Interpreter is the single entry point the transport layer calls. It holds
// the session manager and turns intents into exactly one state transition.
type Interpreter struct {
	games *game.Manager
	media MediaRenderer
	seed  func() int64
}

// NewInterpreter builds an Interpreter. The media renderer may be nil;
// results then carry text only.
func NewInterpreter(games *game.Manager, media MediaRenderer) *Interpreter {
	return &Interpreter{
		games: games,
		media: media,
		seed:  func() int64 { return time.Now().UnixNano() },
	}
}

// HandleIntent applies one intent for one chat and returns the rendering.
// Rule rejections are part of the result text, verbatim; the returned error
// is reserved for internal failures.
func (i *Interpreter) HandleIntent(ctx context.Context, chatID int64, actor game.Player, intent Intent, arg string) (RenderResult, error) {
	res, err := i.apply(ctx, chatID, actor, intent, arg)
	if err == nil {
		return res, nil
	}

	var rule *game.RuleError
	if errors.As(err, &rule) {
		logger.Info(ctx, "game", "intent.rejected",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", int64(actor.ID)),
			slog.String("intent", string(intent)),
			slog.String("err_code", rule.Code()),
		)
		return RenderResult{Text: "⛔ " + rule.Error()}, nil
	}
	return RenderResult{}, err
}

func (i *Interpreter) apply(ctx context.Context, chatID int64, actor game.Player, intent Intent, arg string) (RenderResult, error) {
	switch intent {
	case IntentJoin:
		return i.join(ctx, chatID, actor)
	case IntentLeave:
		return i.leave(ctx, chatID, actor)
	case IntentSpeaker:
		return i.transition(ctx, chatID, func(s *game.Session) error { return s.SetSpeaker(actor.ID) })
	case IntentStart:
		return i.start(ctx, chatID, actor)
	case IntentClaim:
		return i.claim(ctx, chatID, actor, arg)
	case IntentAct:
		return i.transition(ctx, chatID, func(s *game.Session) error { return s.TakeAction(actor.ID) })
	case IntentPass:
		return i.transition(ctx, chatID, func(s *game.Session) error { return s.PassAction(actor.ID) })
	case IntentAdvance:
		return i.transition(ctx, chatID, func(s *game.Session) error { return s.AdvanceStatus() })
	case IntentResolve:
		return i.transition(ctx, chatID, func(s *game.Session) error { return s.ResolveAgenda() })
	case IntentStatus:
		return i.status(ctx, chatID)
	case IntentEnd:
		return i.end(ctx, chatID)
	default:
		return RenderResult{Text: "I don't know that command. Try /help."}, nil
	}
}

func (i *Interpreter) join(ctx context.Context, chatID int64, actor game.Player) (RenderResult, error) {
	s, created := i.games.GetOrCreate(ctx, chatID, actor)
	if !created {
		if err := s.Join(actor.ID, actor.Name); err != nil {
			return RenderResult{}, err
		}
	}
	i.games.Persist(ctx, s)
	return i.renderFor(ctx, s.Snapshot(), created), nil
}

func (i *Interpreter) leave(ctx context.Context, chatID int64, actor game.Player) (RenderResult, error) {
	s, err := i.games.Get(ctx, chatID)
	if err != nil {
		return RenderResult{}, err
	}
	if err := s.Leave(actor.ID); err != nil {
		return RenderResult{}, err
	}
	snap := s.Snapshot()
	if len(snap.Players) == 0 {
		// Last player gone: the lobby closes with them.
		_ = i.games.End(ctx, chatID)
		return RenderResult{Text: "Lobby is empty and closed. /newgame to open another."}, nil
	}
	i.games.Persist(ctx, s)
	return i.renderFor(ctx, snap, false), nil
}

func (i *Interpreter) start(ctx context.Context, chatID int64, actor game.Player) (RenderResult, error) {
	s, err := i.games.Get(ctx, chatID)
	if err != nil {
		return RenderResult{}, err
	}
	seed := i.seed()
	if err := s.StartGame(rand.New(rand.NewSource(seed))); err != nil {
		return RenderResult{}, err
	}
	logger.Info(ctx, "game", "game.start",
		slog.Int64("chat_id", chatID),
		slog.Int64("user_id", int64(actor.ID)),
		slog.Int64("seed", seed),
		slog.Int("players", len(s.Snapshot().Players)),
	)
	i.games.Persist(ctx, s)
	return i.renderFor(ctx, s.Snapshot(), false), nil
}

func (i *Interpreter) claim(ctx context.Context, chatID int64, actor game.Player, cardName string) (RenderResult, error) {
	s, err := i.games.Get(ctx, chatID)
	if err != nil {
		return RenderResult{}, err
	}
	if err := s.ClaimCard(actor.ID, cardName); err != nil {
		return RenderResult{}, err
	}
	i.games.Persist(ctx, s)
	return i.renderFor(ctx, s.Snapshot(), false), nil
}

func (i *Interpreter) transition(ctx context.Context, chatID int64, fn func(*game.Session) error) (RenderResult, error) {
	s, err := i.games.Get(ctx, chatID)
	if err != nil {
		return RenderResult{}, err
	}
	if err := fn(s); err != nil {
		return RenderResult{}, err
	}
	i.games.Persist(ctx, s)
	return i.renderFor(ctx, s.Snapshot(), false), nil
}

func (i *Interpreter) status(ctx context.Context, chatID int64) (RenderResult, error) {
	s, err := i.games.Get(ctx, chatID)
	if err != nil {
		return RenderResult{}, err
	}
	return i.renderFor(ctx, s.Snapshot(), false), nil
}

func (i *Interpreter) end(ctx context.Context, chatID int64) (RenderResult, error) {
	if err := i.games.End(ctx, chatID); err != nil {
		return RenderResult{}, err
	}
	return RenderResult{Text: "Game over. Thanks for playing!\n/newgame to set up another."}, nil
}

// renderFor builds the standard state rendering: status text, the keyboard
// matching the phase, and the turn-order board image when a renderer is
// wired.
func (i *Interpreter) renderFor(ctx context.Context, snap game.Snapshot, freshLobby bool) RenderResult {
	res := RenderResult{
		Text:   renderSnapshot(snap, freshLobby),
		Markup: keyboardFor(snap),
	}
	if i.media != nil && snap.Phase == game.PhaseAction {
		ref, err := i.media.Render(ctx, BoardTurnOrder, snap)
		if err != nil {
			logger.Warn(ctx, "game", "media.render.fail",
				slog.Int64("chat_id", snap.ChatID),
				slog.String("err", err.Error()),
			)
		} else {
			res.ImageRef = ref
		}
	}
	return res
}
