package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/korveth/ti4bot/core/telegram"
	"github.com/korveth/ti4bot/core/telegram/commands"
	tghelpers "github.com/korveth/ti4bot/core/telegram/helpers"
	"github.com/korveth/ti4bot/game"
)

const helpText = `🪐 *Twilight Imperium session tracker*

*Lobby*
/newgame — open a lobby and take a seat
/join — sit down at the table
/leave — stand up (before the game starts)
/speaker — claim the starting speaker token
/begin — shuffle seating and start round 1

*Play*
/pick <card> — claim a strategy card on your turn
/act — take an action on your turn
/pass — pass for the rest of the action phase
/advance — run the status step and open the next round
/resolve — resolve the agenda phase
/status — show the board state
/endgame — finish the game

Strategy cards: Leadership, Diplomacy, Politics, Construction, Trade, Warfare, Technology, Imperial.`

// BuildRegistry wires every chat command and inline callback onto a fresh
// registry. Handlers only parse the update and delegate to the interpreter.
func BuildRegistry(interp *Interpreter, games *game.Manager) *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/newgame", commands.Command{
		Handler:     intentHandler(interp, IntentJoin, nil),
		Description: "Open a game lobby",
		Aliases:     []string{"new"},
	})
	reg.RegisterCommand("/join", commands.Command{
		Handler:     intentHandler(interp, IntentJoin, nil),
		Description: "Join the lobby",
	})
	reg.RegisterCommand("/leave", commands.Command{
		Handler:     intentHandler(interp, IntentLeave, nil),
		Description: "Leave the lobby",
	})
	reg.RegisterCommand("/speaker", commands.Command{
		Handler:     intentHandler(interp, IntentSpeaker, nil),
		Description: "Claim the starting speaker token",
	})
	reg.RegisterCommand("/begin", commands.Command{
		Handler:     intentHandler(interp, IntentStart, nil),
		Description: "Start the game",
	})
	reg.RegisterCommand("/pick", commands.Command{
		Handler: intentHandler(interp, IntentClaim, func(c tele.Context) (string, string) {
			arg := strings.TrimSpace(strings.Join(c.Args(), " "))
			if arg == "" {
				return "", "Usage: /pick <card>, e.g. /pick Warfare"
			}
			return arg, ""
		}),
		Description: "Claim a strategy card",
	})
	reg.RegisterCommand("/act", commands.Command{
		Handler:     intentHandler(interp, IntentAct, nil),
		Description: "Take an action on your turn",
	})
	reg.RegisterCommand("/pass", commands.Command{
		Handler:     intentHandler(interp, IntentPass, nil),
		Description: "Pass for the rest of the action phase",
	})
	reg.RegisterCommand("/advance", commands.Command{
		Handler:     intentHandler(interp, IntentAdvance, nil),
		Description: "Run the status step and open the next round",
		Aliases:     []string{"next"},
	})
	reg.RegisterCommand("/resolve", commands.Command{
		Handler:     intentHandler(interp, IntentResolve, nil),
		Description: "Resolve the agenda phase",
	})
	reg.RegisterCommand("/status", commands.Command{
		Handler:     intentHandler(interp, IntentStatus, nil),
		Description: "Show the board state",
		Aliases:     []string{"board"},
	})
	reg.RegisterCommand("/endgame", commands.Command{
		Handler:     intentHandler(interp, IntentEnd, nil),
		Description: "Finish the game",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler: func(c tele.Context) error {
			return tghelpers.SendMD(c, helpText)
		},
		Description: "How to use the bot",
		Aliases:     []string{"start"},
	})
	reg.RegisterCommand("/sessions", commands.Command{
		Handler:     sessionsHandler(games),
		Description: "List live sessions",
		AdminOnly:   true,
		Hidden:      true,
	})

	registerCallbacks(reg, interp)

	reg.SetTextFallback(func(c tele.Context) error {
		return nil
	})

	return reg
}

// intentHandler adapts one intent to a telebot handler. parseArg may reject
// the update with a usage hint before the interpreter is involved.
func intentHandler(interp *Interpreter, intent Intent, parseArg func(tele.Context) (string, string)) tele.HandlerFunc {
	return func(c tele.Context) error {
		var arg string
		if parseArg != nil {
			var usage string
			arg, usage = parseArg(c)
			if usage != "" {
				return tghelpers.SendText(c, usage)
			}
		}
		ctx := tghelpers.BuildContext(c)
		res, err := interp.HandleIntent(ctx, c.Chat().ID, playerFrom(c.Sender()), intent, arg)
		if err != nil {
			return err
		}
		return respond(c, res)
	}
}

func sessionsHandler(games *game.Manager) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		ids := games.ChatIDs()
		var b strings.Builder
		fmt.Fprintf(&b, "Live sessions: %d\n", len(ids))
		for _, id := range ids {
			s, err := games.Get(ctx, id)
			if err != nil {
				continue
			}
			snap := s.Snapshot()
			fmt.Fprintf(&b, "  %d — round %d, %s, %d players\n",
				id, snap.Round, snap.Phase, len(snap.Players))
		}
		return tghelpers.SendText(c, b.String())
	}
}

// playerFrom derives the roster identity from the Telegram sender.
func playerFrom(u *tele.User) game.Player {
	if u == nil {
		return game.Player{}
	}
	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("player-%d", u.ID)
	}
	return game.Player{ID: game.PlayerID(u.ID), Name: name}
}

// respond sends the render result back into the chat. A board image becomes
// a photo with the status text as caption.
func respond(c tele.Context, res RenderResult) error {
	if res.ImageRef != "" {
		photo := &tele.Photo{File: tele.FromURL(res.ImageRef), Caption: res.Text}
		opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
		if res.Markup != nil {
			opts.ReplyMarkup = res.Markup
		}
		return c.Send(photo, opts)
	}
	if res.Markup != nil {
		return tghelpers.SendMD(c, res.Text, res.Markup)
	}
	return tghelpers.SendMD(c, res.Text)
}
