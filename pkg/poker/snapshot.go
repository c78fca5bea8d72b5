package poker

import (
	"encoding/json"
	"fmt"

	"github.com/decred/slog"
)

// StateVersion is the current RoomState format.
const StateVersion = 2

// HandLog records everything needed to replay a hand: the seats and button
// when it was dealt, the full deck order and every applied action.
type HandLog struct {
	Version    int            `json:"version"`
	RoomID     string         `json:"room_id"`
	HandNum    int            `json:"hand_num"`
	SmallBlind int64          `json:"small_blind"`
	BigBlind   int64          `json:"big_blind"`
	Dealer     int            `json:"dealer"` // button before this hand moved it
	Seats      []Seat         `json:"seats"`
	Deck       []Card         `json:"deck"` // bottom first, as NewDeckFromCards expects
	Actions    []ActionRecord `json:"actions"`
	Result     *HandResult    `json:"result,omitempty"`
}

func newHandLog(r *Room) *HandLog {
	l := &HandLog{
		Version:    StateVersion,
		RoomID:     r.id,
		HandNum:    r.handNum,
		SmallBlind: r.cfg.SmallBlind,
		BigBlind:   r.cfg.BigBlind,
		Dealer:     r.dealer,
		Deck:       r.deck.Cards(),
	}
	for _, p := range r.players {
		l.Seats = append(l.Seats, Seat{ID: p.ID, Name: p.Name, Stack: p.Stack})
	}
	return l
}

func (l *HandLog) clone() *HandLog {
	if l == nil {
		return nil
	}
	c := *l
	c.Seats = append([]Seat(nil), l.Seats...)
	c.Deck = append([]Card(nil), l.Deck...)
	c.Actions = append([]ActionRecord(nil), l.Actions...)
	return &c
}

// HandLog returns a copy of the current (or last) hand's log.
func (r *Room) HandLog() *HandLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handLog.clone()
}

// ReplayHand re-deals a logged hand and re-applies its actions. Given the
// same log the resulting stacks are always identical.
func ReplayHand(l *HandLog, log slog.Logger) (*Room, error) {
	deck := append([]Card(nil), l.Deck...)
	cfg := RoomConfig{
		ID:         l.RoomID,
		Log:        log,
		SmallBlind: l.SmallBlind,
		BigBlind:   l.BigBlind,
		NewDeck: func() (*Deck, error) {
			return NewDeckFromCards(deck), nil
		},
	}
	r, err := NewRoom(cfg, l.Seats)
	if err != nil {
		return nil, err
	}
	r.dealer = l.Dealer
	r.handNum = l.HandNum - 1
	if err := r.StartHand(); err != nil {
		return nil, fmt.Errorf("replay deal: %w", err)
	}
	for i, rec := range l.Actions {
		r.mu.Lock()
		err := r.applyActionLocked(rec.PlayerID, rec.Action, rec.Timeout)
		r.unlock()
		if err != nil {
			return r, fmt.Errorf("replay action %d (%s %s): %w", i, rec.PlayerID, rec.Action, err)
		}
	}
	return r, nil
}

// PlayerState is one seat inside a RoomState.
type PlayerState struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Seat           int    `json:"seat"`
	Stack          int64  `json:"stack"`
	BuyIn          int64  `json:"buy_in"`
	HandStartStack int64  `json:"hand_start_stack"`
	Hole           []Card `json:"hole,omitempty"`
	Bet            int64  `json:"bet"`
	Committed      int64  `json:"committed"`
	InHand         bool   `json:"in_hand"`
	Folded         bool   `json:"folded"`
	AllIn          bool   `json:"all_in"`
	Acted          bool   `json:"acted"`
}

// RoomState is a full, versioned dump of a room including hidden cards.
// It is meant for debugging and replays, never for players.
type RoomState struct {
	Version       int           `json:"version"`
	ID            string        `json:"id"`
	SmallBlind    int64         `json:"small_blind"`
	BigBlind      int64         `json:"big_blind"`
	HandNum       int           `json:"hand_num"`
	Stage         Stage         `json:"stage"`
	Dealer        int           `json:"dealer"`
	Active        int           `json:"active"`
	LastAggressor int           `json:"last_aggressor"`
	Pot           int64         `json:"pot"`
	CurrentBet    int64         `json:"current_bet"`
	MinRaise      int64         `json:"min_raise"`
	Community     []Card        `json:"community"`
	Deck          []Card        `json:"deck"`
	Players       []PlayerState `json:"players"`
	HandLog       *HandLog      `json:"hand_log,omitempty"`

	// Chips is the version 1 per-player stack map, folded into Players by
	// upgradeState.
	Chips map[string]int64 `json:"chips,omitempty"`
}

// Snapshot returns the room's full state.
func (r *Room) Snapshot() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() RoomState {
	s := RoomState{
		Version:       StateVersion,
		ID:            r.id,
		SmallBlind:    r.cfg.SmallBlind,
		BigBlind:      r.cfg.BigBlind,
		HandNum:       r.handNum,
		Stage:         r.stage,
		Dealer:        r.dealer,
		Active:        r.active,
		LastAggressor: r.lastAggressor,
		Pot:           r.pot,
		CurrentBet:    r.currentBet,
		MinRaise:      r.minRaise,
		Community:     append([]Card(nil), r.community...),
		HandLog:       r.handLog.clone(),
	}
	if r.deck != nil {
		s.Deck = r.deck.Cards()
	}
	for _, p := range r.players {
		s.Players = append(s.Players, PlayerState{
			ID:             p.ID,
			Name:           p.Name,
			Seat:           p.Seat,
			Stack:          p.Stack,
			BuyIn:          p.BuyIn,
			HandStartStack: p.HandStartStack,
			Hole:           append([]Card(nil), p.Hole...),
			Bet:            p.Bet,
			Committed:      p.Committed,
			InHand:         p.InHand,
			Folded:         p.Folded,
			AllIn:          p.AllIn,
			Acted:          p.Acted,
		})
	}
	return s
}

// MarshalState encodes a room state as JSON.
func MarshalState(s RoomState) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalState decodes a room state, upgrading older versions.
func UnmarshalState(data []byte) (RoomState, error) {
	var s RoomState
	if err := json.Unmarshal(data, &s); err != nil {
		return RoomState{}, fmt.Errorf("failed to decode room state: %w", err)
	}
	if err := upgradeState(&s); err != nil {
		return RoomState{}, err
	}
	return s, nil
}

// upgradeState migrates a decoded state to StateVersion in place.
func upgradeState(s *RoomState) error {
	switch s.Version {
	case 0, 1:
		// Version 1 kept stacks in a flat map and had no buy-in or
		// min-raise tracking.
		for i := range s.Players {
			p := &s.Players[i]
			if c, ok := s.Chips[p.ID]; ok {
				p.Stack = c
			}
			if p.BuyIn == 0 {
				p.BuyIn = p.Stack + p.Committed
			}
			if p.HandStartStack == 0 {
				p.HandStartStack = p.Stack + p.Committed
			}
		}
		if s.MinRaise < s.BigBlind {
			s.MinRaise = s.BigBlind
		}
		s.Chips = nil
		s.Version = StateVersion
		return nil
	case StateVersion:
		return nil
	}
	return fmt.Errorf("unsupported room state version %d", s.Version)
}

// RestoreRoom rebuilds a room from a snapshot. Blinds and ID come from the
// state; everything else (logger, timers, settler, events) from cfg. A
// restored room in a betting round re-arms the turn timer for the player
// to act.
func RestoreRoom(s RoomState, cfg RoomConfig) (*Room, error) {
	if err := upgradeState(&s); err != nil {
		return nil, err
	}
	if s.Stage == StageGameOver {
		return nil, fmt.Errorf("room %s: %w", s.ID, ErrGameOver)
	}
	cfg.ID = s.ID
	cfg.SmallBlind = s.SmallBlind
	cfg.BigBlind = s.BigBlind

	seats := make([]Seat, len(s.Players))
	for i, p := range s.Players {
		seats[i] = Seat{ID: p.ID, Name: p.Name, Stack: p.Stack}
	}
	r, err := NewRoom(cfg, seats)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.unlock()
	for i, ps := range s.Players {
		p := r.players[i]
		p.BuyIn = ps.BuyIn
		p.HandStartStack = ps.HandStartStack
		p.Hole = append([]Card(nil), ps.Hole...)
		p.Bet = ps.Bet
		p.Committed = ps.Committed
		p.InHand = ps.InHand
		p.Folded = ps.Folded
		p.AllIn = ps.AllIn
		p.Acted = ps.Acted
	}
	r.handNum = s.HandNum
	r.stage = s.Stage
	r.dealer = s.Dealer
	r.lastAggressor = s.LastAggressor
	r.pot = s.Pot
	r.currentBet = s.CurrentBet
	r.minRaise = s.MinRaise
	r.community = append([]Card(nil), s.Community...)
	r.deck = NewDeckFromCards(s.Deck)
	r.handLog = s.HandLog.clone()

	switch {
	case r.stage.IsBetting():
		r.stateMachine.SetState(roomStateHandActive)
		if s.Active < 0 || s.Active >= len(r.players) || !r.players[s.Active].canAct() {
			return nil, fmt.Errorf("room %s: invalid active seat %d", s.ID, s.Active)
		}
		if r.handLog == nil {
			r.handLog = &HandLog{Version: StateVersion, RoomID: r.id, HandNum: r.handNum}
		}
		r.setActive(s.Active)
	case r.stage == StageHandComplete:
		r.stateMachine.SetState(roomStateHandComplete)
	}
	return r, nil
}
