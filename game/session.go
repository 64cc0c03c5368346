package game

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Phase is a step in the TI4 round structure.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseStrategy Phase = "strategy"
	PhaseAction   Phase = "action"
	PhaseStatus   Phase = "status"
	PhaseAgenda   Phase = "agenda"
	PhaseEnded    Phase = "ended"
)

// Config carries the house-rule knobs of a session.
type Config struct {
	MinPlayers int `yaml:"min_players" envconfig:"GAME_MIN_PLAYERS"`
	MaxPlayers int `yaml:"max_players" envconfig:"GAME_MAX_PLAYERS"`
	// AgendaFromRound is the first round whose status phase leads into an
	// agenda phase. Zero selects the round 3 tabletop default, a negative
	// value disables agenda phases entirely.
	AgendaFromRound int `yaml:"agenda_from_round" envconfig:"GAME_AGENDA_FROM_ROUND"`
	// IdleTimeoutMinutes controls session eviction; zero disables sweeps.
	IdleTimeoutMinutes int `yaml:"idle_timeout_minutes" envconfig:"GAME_IDLE_TIMEOUT_MINUTES"`
}

// WithDefaults fills zero fields with physical TI4 defaults: 3-8 players,
// agenda voting from round 3.
func (c Config) WithDefaults() Config {
	if c.MinPlayers <= 0 {
		c.MinPlayers = 3
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 8
	}
	if c.AgendaFromRound == 0 {
		c.AgendaFromRound = 3
	}
	return c
}

// Session tracks one game bound to a chat: roster, phase, round, per-round
// strategy card claims, and whose turn it is. All exported methods hold the
// session mutex, so commands against one chat apply strictly one at a time.
// A rejected transition leaves the session untouched.
type Session struct {
	mu sync.Mutex

	chatID  int64
	cfg     Config
	roster  Roster
	round   int
	phase   Phase
	claims  map[string]PlayerID
	passed  map[PlayerID]bool
	active  PlayerID
	speaker PlayerID

	updatedAt time.Time
}

// NewSession creates a setup-phase session for the given chat with the
// creator already seated.
func NewSession(chatID int64, cfg Config, creator Player) *Session {
	s := &Session{
		chatID: chatID,
		cfg:    cfg.WithDefaults(),
		phase:  PhaseSetup,
		claims: make(map[string]PlayerID),
		passed: make(map[PlayerID]bool),
	}
	_ = s.roster.Add(creator.ID, creator.Name)
	s.touch()
	return s
}

// ChatID returns the chat this session is bound to.
func (s *Session) ChatID() int64 {
	return s.chatID
}

// Join seats a player during setup.
func (s *Session) Join(id PlayerID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSetup {
		return s.rosterStateError()
	}
	if s.roster.Len() >= s.cfg.MaxPlayers {
		return errInvalidRosterSize(s.roster.Len()+1, s.cfg.MinPlayers, s.cfg.MaxPlayers)
	}
	if err := s.roster.Add(id, name); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Leave unseats a player during setup. Leaving is not an error when the
// player never joined; the lobby treats it as a no-op.
func (s *Session) Leave(id PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSetup {
		return s.rosterStateError()
	}
	if s.roster.Remove(id) {
		s.touch()
	}
	return nil
}

// SetSpeaker designates the starting speaker before the game starts.
func (s *Session) SetSpeaker(id PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSetup {
		return errNotInSetup(s.phase)
	}
	if _, ok := s.roster.ByID(id); !ok {
		return errUnknownPlayer("hold the speaker token")
	}
	s.speaker = id
	s.touch()
	return nil
}

// StartGame locks the roster and enters round 1's strategy phase. When rng
// is non-nil the seating order is randomized first, so late joiners get no
// seating advantage.
func (s *Session) StartGame(rng *rand.Rand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSetup {
		return errNotInSetup(s.phase)
	}
	if n := s.roster.Len(); n < s.cfg.MinPlayers || n > s.cfg.MaxPlayers {
		return errInvalidRosterSize(n, s.cfg.MinPlayers, s.cfg.MaxPlayers)
	}
	s.roster.Shuffle(rng)
	s.roster.Lock()
	s.round = 1
	s.claims = make(map[string]PlayerID)
	s.passed = make(map[PlayerID]bool)
	if _, ok := s.roster.ByID(s.speaker); !ok {
		s.speaker = s.roster.Players()[0].ID
	}
	s.phase = PhaseStrategy
	s.active = s.speaker
	s.touch()
	return nil
}

// ClaimCard records a strategy card pick for the active player. Once every
// player holds a card the session enters the action phase with turn order by
// ascending initiative.
func (s *Session) ClaimCard(player PlayerID, cardName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseStrategy {
		return errWrongPhase("picking a strategy card", s.phase)
	}
	card, ok := CardByName(cardName)
	if !ok {
		return errUnknownCard(cardName)
	}
	if player != s.active {
		return errNotYourTurn(s.playerName(s.active))
	}
	if holder, claimed := s.claims[card.Name]; claimed {
		return errCardAlreadyClaimed(card.Name, s.playerName(holder))
	}
	s.claims[card.Name] = player

	if len(s.claims) == s.roster.Len() {
		s.enterActionPhase()
	} else {
		s.active = s.nextPicker()
	}
	s.touch()
	return nil
}

// TakeAction marks a turn taken in the action phase and passes priority to
// the next unpassed player in initiative order.
func (s *Session) TakeAction(player PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseAction {
		return errWrongPhase("taking an action", s.phase)
	}
	if player != s.active {
		return errNotYourTurn(s.playerName(s.active))
	}
	s.active = s.nextActor(player)
	s.touch()
	return nil
}

// PassAction removes the player from the action rotation. When the last
// player passes the session enters the status phase.
func (s *Session) PassAction(player PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseAction {
		return errWrongPhase("passing", s.phase)
	}
	if player != s.active {
		return errNotYourTurn(s.playerName(s.active))
	}
	s.passed[player] = true
	if len(s.passed) == s.roster.Len() {
		s.phase = PhaseStatus
		s.active = 0
	} else {
		s.active = s.nextActor(player)
	}
	s.touch()
	return nil
}

// AdvanceStatus closes the round: the holder of the speaker-granting card
// becomes speaker, claims reset, the round number increments, and play moves
// to the agenda phase once the configured round threshold is reached.
func (s *Session) AdvanceStatus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseStatus {
		return errWrongPhase("advancing the round", s.phase)
	}
	for _, card := range catalog {
		if !card.GrantsSpeaker {
			continue
		}
		if holder, claimed := s.claims[card.Name]; claimed {
			s.speaker = holder
		}
	}
	s.round++
	s.claims = make(map[string]PlayerID)
	s.passed = make(map[PlayerID]bool)
	if s.cfg.AgendaFromRound > 0 && s.round >= s.cfg.AgendaFromRound {
		s.phase = PhaseAgenda
		s.active = s.speaker
	} else {
		s.phase = PhaseStrategy
		s.active = s.speaker
	}
	s.touch()
	return nil
}

// ResolveAgenda returns from agenda voting to the strategy phase of the same
// round.
func (s *Session) ResolveAgenda() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseAgenda {
		return errWrongPhase("resolving the agenda", s.phase)
	}
	s.phase = PhaseStrategy
	s.active = s.speaker
	s.touch()
	return nil
}

// EndGame terminates the session from any state. Repeated calls are no-ops.
func (s *Session) EndGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded {
		return
	}
	s.phase = PhaseEnded
	s.active = 0
	s.touch()
}

// Snapshot returns a consistent copy of the session state for rendering and
// persistence.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdatedAt reports the time of the last applied transition.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// TurnOrder returns the action-phase rotation: claimed cards by ascending
// initiative, each with its holder. Empty outside the action phase.
func (s *Session) TurnOrder() []Claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseAction {
		return nil
	}
	return s.claimsByInitiative()
}

func (s *Session) enterActionPhase() {
	s.phase = PhaseAction
	s.passed = make(map[PlayerID]bool)
	order := s.claimsByInitiative()
	if len(order) > 0 {
		s.active = order[0].Player
	}
}

// nextPicker scans the speaker-rotated seating order for the next player
// without a claim, wrapping past the roster end.
func (s *Session) nextPicker() PlayerID {
	order := s.roster.SpeakerOrder(s.speaker)
	start := 0
	for i, p := range order {
		if p.ID == s.active {
			start = i
			break
		}
	}
	for i := 1; i <= len(order); i++ {
		cand := order[(start+i)%len(order)]
		if !s.hasClaim(cand.ID) {
			return cand.ID
		}
	}
	return s.active
}

// nextActor finds the next unpassed player after the given one in initiative
// order, wrapping around. The caller guarantees at least one unpassed player
// remains.
func (s *Session) nextActor(after PlayerID) PlayerID {
	order := s.claimsByInitiative()
	start := 0
	for i, c := range order {
		if c.Player == after {
			start = i
			break
		}
	}
	for i := 1; i <= len(order); i++ {
		cand := order[(start+i)%len(order)]
		if !s.passed[cand.Player] {
			return cand.Player
		}
	}
	return after
}

// claimsByInitiative is the derived turn-order view, recomputed on demand
// rather than maintained incrementally. Initiatives are unique per card, so
// seat order only breaks ties when a roster ever holds multiple cards.
func (s *Session) claimsByInitiative() []Claim {
	out := make([]Claim, 0, len(s.claims))
	for name, player := range s.claims {
		card, _ := CardByName(name)
		out = append(out, Claim{Card: card, Player: player})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Card.Initiative != out[j].Card.Initiative {
			return out[i].Card.Initiative < out[j].Card.Initiative
		}
		pi, _ := s.roster.ByID(out[i].Player)
		pj, _ := s.roster.ByID(out[j].Player)
		return pi.Seat < pj.Seat
	})
	return out
}

func (s *Session) hasClaim(id PlayerID) bool {
	for _, holder := range s.claims {
		if holder == id {
			return true
		}
	}
	return false
}

func (s *Session) playerName(id PlayerID) string {
	if p, ok := s.roster.ByID(id); ok {
		return p.Name
	}
	return "nobody"
}

func (s *Session) rosterStateError() error {
	if s.phase == PhaseEnded {
		return errWrongPhase("changing the roster", s.phase)
	}
	return ErrRosterLocked
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}
