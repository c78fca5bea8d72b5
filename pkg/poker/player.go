package poker

import (
	"fmt"
	"strings"
)

// Seat describes a player joining a room: identity plus the chips they
// bring to the table.
type Seat struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stack int64  `json:"stack"`
}

// Player represents one seat's state. Table-level fields survive between
// hands; hand-level fields are reset by resetForNewHand.
type Player struct {
	// Identity
	ID   string
	Name string
	Seat int

	// Table-level state
	Stack int64 // chips behind, never negative
	BuyIn int64 // chips brought to the table

	// Hand-level state
	HandStartStack int64 // stack when the hand was dealt, for settlement
	Hole           []Card
	Bet            int64 // chips committed in the current betting round
	Committed      int64 // chips committed this hand across all rounds
	InHand         bool  // dealt into the current hand
	Folded         bool
	AllIn          bool
	Acted          bool // has acted since the last full raise

	// Populated at showdown
	HandValue *HandValue
}

func newPlayer(seat int, s Seat) *Player {
	return &Player{
		ID:    s.ID,
		Name:  s.Name,
		Seat:  seat,
		Stack: s.Stack,
		BuyIn: s.Stack,
	}
}

// resetForNewHand clears hand-level state. Players without chips sit out.
func (p *Player) resetForNewHand() {
	p.HandStartStack = p.Stack
	p.Hole = make([]Card, 0, 2)
	p.Bet = 0
	p.Committed = 0
	p.InHand = p.Stack > 0
	p.Folded = false
	p.AllIn = false
	p.Acted = false
	p.HandValue = nil
}

// commit moves chips from the stack into the pot, capped at the stack. It
// returns the amount actually committed.
func (p *Player) commit(amount int64) int64 {
	if amount > p.Stack {
		amount = p.Stack
	}
	if amount < 0 {
		amount = 0
	}
	p.Stack -= amount
	p.Bet += amount
	p.Committed += amount
	if p.Stack == 0 && p.InHand && !p.Folded {
		p.AllIn = true
	}
	return amount
}

// isLive reports whether the player still contests the pot.
func (p *Player) isLive() bool {
	return p.InHand && !p.Folded
}

// canAct reports whether the player can still make betting decisions.
func (p *Player) canAct() bool {
	return p.InHand && !p.Folded && !p.AllIn
}

// Status returns a short status label for displays.
func (p *Player) Status() string {
	switch {
	case !p.InHand:
		return "SITTING_OUT"
	case p.Folded:
		return "FOLDED"
	case p.AllIn:
		return "ALL_IN"
	}
	return "IN_HAND"
}

// GetHandString returns a string representation of the player's hand
func (p *Player) GetHandString() string {
	if len(p.Hole) == 0 {
		return "No cards"
	}
	return FormatCards(p.Hole)
}

// GetStatus returns a multi-line description of the player's state.
func (p *Player) GetStatus() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Player %s:\n", p.Name)
	fmt.Fprintf(&b, "Chips: %d\n", p.Stack)
	fmt.Fprintf(&b, "Current Bet: %d chips\n", p.Bet)
	fmt.Fprintf(&b, "Committed: %d chips\n", p.Committed)
	fmt.Fprintf(&b, "State: %s\n", p.Status())
	return b.String()
}
