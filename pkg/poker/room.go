package poker

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/pointsbot/holdem/pkg/statemachine"
)

// Stage is the room's position in the hand lifecycle.
type Stage string

const (
	StageWaiting      Stage = "WAITING"
	StagePreflop      Stage = "PREFLOP"
	StageFlop         Stage = "FLOP"
	StageTurn         Stage = "TURN"
	StageRiver        Stage = "RIVER"
	StageShowdown     Stage = "SHOWDOWN"
	StageHandComplete Stage = "HAND_COMPLETE"
	StageGameOver     Stage = "GAME_OVER"
)

// IsBetting reports whether players can act in this stage.
func (s Stage) IsBetting() bool {
	switch s {
	case StagePreflop, StageFlop, StageTurn, StageRiver:
		return true
	}
	return false
}

// Settler receives each finished hand's chip deltas (player ID -> change
// in stack). Implementations must not block; the room calls it after
// releasing its lock.
type Settler interface {
	SettleHand(roomID string, handNum int, deltas map[string]int64)
}

// DeckSource produces the deck for each new hand.
type DeckSource func() (*Deck, error)

// RoomConfig holds configuration for a new room
type RoomConfig struct {
	ID         string
	Log        slog.Logger
	SmallBlind int64
	BigBlind   int64

	// TurnTimeout is how long a player has to act before the default
	// action (check, or fold when facing a bet) is applied. Zero disables.
	TurnTimeout time.Duration

	// NextHandDelay, when positive, makes the room deal the next hand on
	// its own after a hand completes. Zero leaves it to the caller.
	NextHandDelay time.Duration

	// RandomButton places the first button on a random seat instead of
	// seat 0.
	RandomButton bool

	// NewDeck defaults to NewShuffledDeck.
	NewDeck DeckSource

	Settler Settler
	Events  chan<- RoomEvent

	// OnGameOver is called once, outside the room lock, when the room
	// reaches GAME_OVER.
	OnGameOver func(roomID string, s Settlement)
}

// HandResult summarises a finished hand.
type HandResult struct {
	HandNum   int              `json:"hand_num"`
	Showdown  bool             `json:"showdown"`
	Voided    bool             `json:"voided,omitempty"`
	Community []Card           `json:"community"`
	Awards    []PotAward       `json:"awards"`
	Deltas    map[string]int64 `json:"deltas"`
	Stacks    map[string]int64 `json:"stacks"`
}

// PlayerSettlement is one player's final position when a room closes.
type PlayerSettlement struct {
	PlayerID   string `json:"player_id"`
	BuyIn      int64  `json:"buy_in"`
	FinalStack int64  `json:"final_stack"`
	Net        int64  `json:"net"`
}

// Settlement is the final accounting of a room.
type Settlement struct {
	RoomID  string             `json:"room_id"`
	Reason  string             `json:"reason"`
	Hands   int                `json:"hands"`
	Players []PlayerSettlement `json:"players"`
}

// Room owns one table: seating, blinds, dealing, betting rounds, side
// pots, showdown and per-hand settlement. All mutation happens under mu.
type Room struct {
	mu  sync.Mutex
	log slog.Logger
	cfg RoomConfig
	id  string

	players       []*Player // seat order, fixed for the room's lifetime
	dealer        int       // seat of the button, -1 before the first hand
	deck          *Deck
	community     []Card
	pot           int64
	currentBet    int64
	minRaise      int64 // size of the last full raise this round, at least the big blind
	stage         Stage
	active        int // seat to act, -1 when nobody is
	lastAggressor int
	handNum       int

	turnToken     uint64
	turnTimer     *time.Timer
	nextHandTimer *time.Timer

	handLog    *HandLog
	lastResult *HandResult
	settlement *Settlement

	events       *RoomEventManager
	stateMachine *statemachine.StateMachine[Room]

	// deferred runs after mu is released (settlement, game-over callbacks).
	deferred []func()
}

// MaxSeats is the most players one deck can deal a full hand to.
const MaxSeats = 23

// NewRoom creates a room for the given seats. Seat order defines blind
// rotation for the rest of the game.
func NewRoom(cfg RoomConfig, seats []Seat) (*Room, error) {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if len(seats) < 2 || len(seats) > MaxSeats {
		return nil, fmt.Errorf("poker: need 2 to %d players, got %d", MaxSeats, len(seats))
	}
	if cfg.SmallBlind <= 0 || cfg.BigBlind < cfg.SmallBlind {
		return nil, fmt.Errorf("poker: invalid blinds %d/%d", cfg.SmallBlind, cfg.BigBlind)
	}
	if cfg.NewDeck == nil {
		cfg.NewDeck = NewShuffledDeck
	}

	seen := make(map[string]bool, len(seats))
	players := make([]*Player, 0, len(seats))
	for i, s := range seats {
		if s.ID == "" {
			return nil, fmt.Errorf("poker: seat %d has no player id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("poker: player %s seated twice", s.ID)
		}
		if s.Stack < 0 {
			return nil, fmt.Errorf("poker: player %s has negative stack %d", s.ID, s.Stack)
		}
		seen[s.ID] = true
		if s.Name == "" {
			s.Name = s.ID
		}
		players = append(players, newPlayer(i, s))
	}

	r := &Room{
		log:           cfg.Log,
		cfg:           cfg,
		id:            cfg.ID,
		players:       players,
		dealer:        -1,
		stage:         StageWaiting,
		active:        -1,
		lastAggressor: -1,
		minRaise:      cfg.BigBlind,
		events:        &RoomEventManager{log: cfg.Log, eventChannel: cfg.Events},
	}
	if cfg.RandomButton {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(players))))
		if err != nil {
			return nil, fmt.Errorf("poker: failed to pick button: %w", err)
		}
		// The button moves one seat before the first deal.
		r.dealer = int(n.Int64()) - 1
	}
	r.initStateMachine()
	return r, nil
}

// unlock releases the room lock and then runs deferred callbacks.
func (r *Room) unlock() {
	fns := r.deferred
	r.deferred = nil
	r.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (r *Room) publish(t EventType, playerID string, payload interface{}) {
	r.events.Publish(RoomEvent{
		Type:     t,
		RoomID:   r.id,
		HandNum:  r.handNum,
		PlayerID: playerID,
		Payload:  payload,
	})
}

// ID returns the room ID.
func (r *Room) ID() string {
	return r.id
}

// Config returns the room configuration.
func (r *Room) Config() RoomConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Stage returns the current stage.
func (r *Room) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Lifecycle returns the name of the room's lifecycle state.
func (r *Room) Lifecycle() string {
	return r.stateMachine.StateName()
}

// HandNum returns the number of hands dealt so far.
func (r *Room) HandNum() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handNum
}

// Pot returns the chips committed in the current hand.
func (r *Room) Pot() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pot
}

// CurrentBet returns the amount each player must match this round.
func (r *Room) CurrentBet() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentBet
}

// ActivePlayerID returns the ID of the player whose turn it is, or "".
func (r *Room) ActivePlayerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID()
}

func (r *Room) activeID() string {
	if r.active < 0 || r.active >= len(r.players) {
		return ""
	}
	return r.players[r.active].ID
}

// DealerID returns the ID of the player on the button, or "".
func (r *Room) DealerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dealer < 0 {
		return ""
	}
	return r.players[r.dealer].ID
}

// CommunityCards returns a copy of the community cards slice.
func (r *Room) CommunityCards() []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Card(nil), r.community...)
}

// HoleCards returns a player's hole cards for private display.
func (r *Room) HoleCards(playerID string) []Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seat := r.seatOf(playerID); seat >= 0 {
		return append([]Card(nil), r.players[seat].Hole...)
	}
	return nil
}

// Stacks returns every player's chips behind.
func (r *Room) Stacks() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stacksLocked()
}

// PlayerIDs returns the seated players in seat order.
func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

// LastResult returns the result of the most recently finished hand.
func (r *Room) LastResult() *HandResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastResult
}

// Settlement returns the final settlement once the room is over.
func (r *Room) Settlement() (Settlement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settlement == nil {
		return Settlement{}, false
	}
	return *r.settlement, true
}

// PlayerView is the public state of one seat.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Seat      int    `json:"seat"`
	Stack     int64  `json:"stack"`
	Bet       int64  `json:"bet"`
	Committed int64  `json:"committed"`
	Status    string `json:"status"`
	IsDealer  bool   `json:"is_dealer"`
	IsTurn    bool   `json:"is_turn"`
}

// RoomView is the public state of the table, safe to show every player.
type RoomView struct {
	ID         string       `json:"id"`
	HandNum    int          `json:"hand_num"`
	Stage      Stage        `json:"stage"`
	Pot        int64        `json:"pot"`
	CurrentBet int64        `json:"current_bet"`
	Community  []Card       `json:"community"`
	Active     string       `json:"active"`
	Players    []PlayerView `json:"players"`
}

// View returns the public table state.
func (r *Room) View() RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := RoomView{
		ID:         r.id,
		HandNum:    r.handNum,
		Stage:      r.stage,
		Pot:        r.pot,
		CurrentBet: r.currentBet,
		Community:  append([]Card(nil), r.community...),
		Active:     r.activeID(),
		Players:    make([]PlayerView, len(r.players)),
	}
	for i, p := range r.players {
		v.Players[i] = PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Seat:      p.Seat,
			Stack:     p.Stack,
			Bet:       p.Bet,
			Committed: p.Committed,
			Status:    p.Status(),
			IsDealer:  i == r.dealer,
			IsTurn:    i == r.active,
		}
	}
	return v
}

// LegalActions returns the controls a player would see right now.
func (r *Room) LegalActions(playerID string) Controls {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.controls(playerID)
}

func (r *Room) controls(playerID string) Controls {
	c := Controls{
		PlayerID:   playerID,
		Stage:      r.stage,
		Pot:        r.pot,
		CurrentBet: r.currentBet,
	}
	seat := r.seatOf(playerID)
	if seat < 0 {
		return c
	}
	p := r.players[seat]
	c.Stack = p.Stack
	c.Bet = p.Bet
	if r.currentBet > p.Bet {
		c.ToCall = r.currentBet - p.Bet
	}
	c.IsTurn = r.stage.IsBetting() && seat == r.active
	if !c.IsTurn {
		return c
	}
	c.CanFold = true
	c.CanCheck = c.ToCall == 0
	c.CanCall = c.ToCall > 0
	c.MaxRaiseTo = p.Bet + p.Stack
	c.MinRaiseTo = r.currentBet + r.minRaise
	if c.MinRaiseTo > c.MaxRaiseTo {
		c.MinRaiseTo = c.MaxRaiseTo
	}
	reopened := !p.Acted
	c.CanRaise = reopened && c.MaxRaiseTo > r.currentBet
	c.CanAllIn = p.Stack > 0 && (reopened || p.Stack <= c.ToCall)
	return c
}

func (r *Room) seatOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}
