package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/korveth/ti4bot/core/telegram/format"
	"github.com/korveth/ti4bot/core/telegram/keyboard"
	"github.com/korveth/ti4bot/game"
)

// Callback uniques shared between keyboard builders and the registered
// callback handlers.
const (
	cbLobby = "lobby"
	cbPick  = "pick"
)

// Lobby button payloads.
const (
	lobbyJoin  = "join"
	lobbyLeave = "leave"
	lobbyStart = "start"
)

// renderSnapshot turns the session state into the chat status message.
func renderSnapshot(snap game.Snapshot, freshLobby bool) string {
	var b strings.Builder

	switch snap.Phase {
	case game.PhaseSetup:
		if freshLobby {
			b.WriteString("🪐 *New Twilight Imperium game!*\n")
		} else {
			b.WriteString("🪐 *Twilight Imperium lobby*\n")
		}
		fmt.Fprintf(&b, "Players (%d):\n", len(snap.Players))
		for _, p := range snap.Players {
			fmt.Fprintf(&b, "  • %s\n", mdSafe(p.Name))
		}
		if p, ok := snap.PlayerByID(snap.Speaker); ok {
			fmt.Fprintf(&b, "Starting speaker: %s\n", mdSafe(p.Name))
		}
		b.WriteString("\n/join to sit down, /begin when everyone is here.")

	case game.PhaseStrategy:
		fmt.Fprintf(&b, "🃏 *Round %d — strategy phase*\n", snap.Round)
		b.WriteString(renderClaims(snap))
		if p, ok := snap.PlayerByID(snap.Active); ok {
			fmt.Fprintf(&b, "\n%s, pick a card.", mdSafe(p.Name))
		}

	case game.PhaseAction:
		fmt.Fprintf(&b, "⚔️ *Round %d — action phase*\n", snap.Round)
		b.WriteString(renderTurnOrder(snap))
		if p, ok := snap.PlayerByID(snap.Active); ok {
			fmt.Fprintf(&b, "\n%s is up. /act or /pass.", mdSafe(p.Name))
		}

	case game.PhaseStatus:
		fmt.Fprintf(&b, "📋 *Round %d — status phase*\n", snap.Round)
		b.WriteString("Score objectives and ready your cards, then /advance.")

	case game.PhaseAgenda:
		fmt.Fprintf(&b, "🏛 *Round %d — agenda phase*\n", snap.Round)
		if p, ok := snap.PlayerByID(snap.Speaker); ok {
			fmt.Fprintf(&b, "Speaker %s reveals the agenda. /resolve when the votes are in.", mdSafe(p.Name))
		} else {
			b.WriteString("/resolve when the votes are in.")
		}

	case game.PhaseEnded:
		b.WriteString("🏁 This game is over. /newgame to set up another.")
	}

	return b.String()
}

// renderClaims lists cards in initiative order, claimed ones with their
// holder, the rest still on the table.
func renderClaims(snap game.Snapshot) string {
	var b strings.Builder
	for _, card := range game.Cards() {
		holder := ""
		for _, c := range snap.Claims {
			if c.Card.Name == card.Name {
				if p, ok := snap.PlayerByID(c.Player); ok {
					holder = p.Name
				}
				break
			}
		}
		if holder != "" {
			fmt.Fprintf(&b, "  %d. %s — %s\n", card.Initiative, card.Name, mdSafe(holder))
		} else {
			fmt.Fprintf(&b, "  %d. %s\n", card.Initiative, card.Name)
		}
	}
	return b.String()
}

// renderTurnOrder lists the action order by initiative, marking the active
// player and everyone who already passed.
func renderTurnOrder(snap game.Snapshot) string {
	var b strings.Builder
	for _, c := range snap.Claims {
		name := ""
		if p, ok := snap.PlayerByID(c.Player); ok {
			name = p.Name
		}
		mark := " "
		switch {
		case snap.HasPassed(c.Player):
			mark = "✔"
		case c.Player == snap.Active:
			mark = "▶"
		}
		fmt.Fprintf(&b, "%s %d. %s — %s\n", mark, c.Card.Initiative, c.Card.Name, mdSafe(name))
	}
	return b.String()
}

// keyboardFor picks the inline keyboard for the current phase: lobby buttons
// in setup, the remaining strategy cards during the pick, nothing otherwise.
func keyboardFor(snap game.Snapshot) *tele.ReplyMarkup {
	switch snap.Phase {
	case game.PhaseSetup:
		return lobbyKeyboard()
	case game.PhaseStrategy:
		return cardKeyboard(snap)
	default:
		return nil
	}
}

func lobbyKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "Join", Unique: cbLobby, Data: lobbyJoin},
		{Text: "Leave", Unique: cbLobby, Data: lobbyLeave},
		{Text: "Start", Unique: cbLobby, Data: lobbyStart},
	})
}

func cardKeyboard(snap game.Snapshot) *tele.ReplyMarkup {
	claimed := make(map[string]bool, len(snap.Claims))
	for _, c := range snap.Claims {
		claimed[c.Card.Name] = true
	}
	var btns []keyboard.InlineBtn
	for _, card := range game.Cards() {
		if claimed[card.Name] {
			continue
		}
		btns = append(btns, keyboard.InlineBtn{
			Text:   fmt.Sprintf("%d · %s", card.Initiative, card.Name),
			Unique: cbPick,
			Data:   card.Name,
		})
	}
	if len(btns) == 0 {
		return nil
	}
	return keyboard.InlineButtonsNPerRow(btns, 2)
}

// mdSafe escapes player-supplied names for MarkdownV1 rendering.
func mdSafe(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return out
}
