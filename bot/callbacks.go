package bot

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/korveth/ti4bot/core/telegram"
	"github.com/korveth/ti4bot/core/telegram/callbacks"
	tghelpers "github.com/korveth/ti4bot/core/telegram/helpers"
)

// registerCallbacks binds the inline keyboard buttons: the lobby row and the
// strategy card grid. Button presses edit the original message in place so
// the lobby does not scroll away with every join.
func registerCallbacks(reg *tg.Registry, interp *Interpreter) {
	_ = reg.RegisterCallback(cbLobby, func(c tele.Context) error {
		var intent Intent
		switch callbacks.CallbackPayload(c) {
		case lobbyJoin:
			intent = IntentJoin
		case lobbyLeave:
			intent = IntentLeave
		case lobbyStart:
			intent = IntentStart
		default:
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		}
		return applyCallback(c, interp, intent, "")
	})

	_ = reg.RegisterCallback(cbPick, func(c tele.Context) error {
		card := callbacks.CallbackPayload(c)
		if card == "" {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		}
		return applyCallback(c, interp, IntentClaim, card)
	})
}

func applyCallback(c tele.Context, interp *Interpreter, intent Intent, arg string) error {
	ctx := tghelpers.BuildContext(c)
	res, err := interp.HandleIntent(ctx, c.Chat().ID, playerFrom(c.Sender()), intent, arg)
	if err != nil {
		return err
	}
	if res.ImageRef != "" {
		return respond(c, res)
	}
	if res.Markup != nil {
		return tghelpers.EditOrSendMD(c, res.Text, res.Markup)
	}
	return tghelpers.EditOrSendMD(c, res.Text)
}
