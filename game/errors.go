package game

import "fmt"

// RuleError is a rejected transition. The message carries enough context
// (phase, active player, offending card) for the chat layer to surface the
// rejection verbatim. Code is picked up by the router's error-code logging.
type RuleError struct {
	code string
	msg  string
}

func (e *RuleError) Error() string {
	return e.msg
}

// Code returns the stable machine-readable rejection code.
func (e *RuleError) Code() string {
	return e.code
}

// Is matches RuleErrors by code so callers can use errors.Is against the
// exported sentinels regardless of the contextual message.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.code == e.code
}

// Sentinels for errors.Is checks. Transitions return enriched instances with
// the same code and a contextual message.
var (
	ErrNotInSetup         = &RuleError{code: "NOT_IN_SETUP", msg: "game already started"}
	ErrInvalidRosterSize  = &RuleError{code: "INVALID_ROSTER_SIZE", msg: "invalid roster size"}
	ErrDuplicatePlayer    = &RuleError{code: "DUPLICATE_PLAYER", msg: "player already joined"}
	ErrRosterLocked       = &RuleError{code: "ROSTER_LOCKED", msg: "roster is locked"}
	ErrWrongPhase         = &RuleError{code: "WRONG_PHASE", msg: "not allowed in this phase"}
	ErrNotYourTurn        = &RuleError{code: "NOT_YOUR_TURN", msg: "not your turn"}
	ErrCardAlreadyClaimed = &RuleError{code: "CARD_ALREADY_CLAIMED", msg: "card already claimed"}
	ErrUnknownCard        = &RuleError{code: "UNKNOWN_CARD", msg: "unknown strategy card"}
	ErrUnknownPlayer      = &RuleError{code: "UNKNOWN_PLAYER", msg: "player is not seated"}
	ErrSessionNotFound    = &RuleError{code: "SESSION_NOT_FOUND", msg: "no active game in this chat"}
)

func ruleErrorf(sentinel *RuleError, format string, args ...any) *RuleError {
	return &RuleError{code: sentinel.code, msg: fmt.Sprintf(format, args...)}
}

func errNotInSetup(phase Phase) *RuleError {
	return ruleErrorf(ErrNotInSetup, "game already started (phase: %s)", phase)
}

func errInvalidRosterSize(got, min, max int) *RuleError {
	return ruleErrorf(ErrInvalidRosterSize, "need %d-%d players to start, have %d", min, max, got)
}

func errDuplicatePlayer(name string) *RuleError {
	return ruleErrorf(ErrDuplicatePlayer, "%s already joined", name)
}

func errWrongPhase(op string, phase Phase) *RuleError {
	return ruleErrorf(ErrWrongPhase, "%s is not allowed during the %s phase", op, phase)
}

func errNotYourTurn(active string) *RuleError {
	return ruleErrorf(ErrNotYourTurn, "not your turn; waiting for %s", active)
}

func errCardAlreadyClaimed(card, holder string) *RuleError {
	return ruleErrorf(ErrCardAlreadyClaimed, "%s is already claimed by %s", card, holder)
}

func errUnknownCard(name string) *RuleError {
	return ruleErrorf(ErrUnknownCard, "unknown strategy card: %s", name)
}

func errUnknownPlayer(op string) *RuleError {
	return ruleErrorf(ErrUnknownPlayer, "only seated players can %s", op)
}
