package poker

import (
	"fmt"
	"strings"
)

// ActionKind is one of the discrete betting actions.
type ActionKind string

const (
	ActionFold  ActionKind = "fold"
	ActionCheck ActionKind = "check"
	ActionCall  ActionKind = "call"
	ActionRaise ActionKind = "raise"
	ActionAllIn ActionKind = "all_in"
)

// ParseActionKind maps chat input to an action kind. "bet" is accepted as
// a raise from zero.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold", "f":
		return ActionFold, nil
	case "check", "x", "k":
		return ActionCheck, nil
	case "call", "c":
		return ActionCall, nil
	case "raise", "bet", "r", "b":
		return ActionRaise, nil
	case "all_in", "allin", "all-in", "shove", "a":
		return ActionAllIn, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
}

// Action is a player's decision. For raises Amount is the player's new
// total commitment for the betting round, not the increment.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int64      `json:"amount,omitempty"`
}

func (a Action) String() string {
	if a.Kind == ActionRaise {
		return fmt.Sprintf("raise to %d", a.Amount)
	}
	return string(a.Kind)
}

// Fold, Check, Call, RaiseTo and AllIn build actions.
func Fold() Action               { return Action{Kind: ActionFold} }
func Check() Action              { return Action{Kind: ActionCheck} }
func Call() Action               { return Action{Kind: ActionCall} }
func RaiseTo(total int64) Action { return Action{Kind: ActionRaise, Amount: total} }
func AllIn() Action              { return Action{Kind: ActionAllIn} }

// Controls is everything a UI needs to render action buttons for a player.
// The room validates every action again regardless.
type Controls struct {
	PlayerID   string `json:"player_id"`
	IsTurn     bool   `json:"is_turn"`
	Stage      Stage  `json:"stage"`
	Pot        int64  `json:"pot"`
	CurrentBet int64  `json:"current_bet"`
	Stack      int64  `json:"stack"`
	Bet        int64  `json:"bet"`
	ToCall     int64  `json:"to_call"`
	CanFold    bool   `json:"can_fold"`
	CanCheck   bool   `json:"can_check"`
	CanCall    bool   `json:"can_call"`
	CanRaise   bool   `json:"can_raise"`
	CanAllIn   bool   `json:"can_all_in"`
	MinRaiseTo int64  `json:"min_raise_to"` // smallest legal raise total unless all-in
	MaxRaiseTo int64  `json:"max_raise_to"` // bet + stack
}

// ActionRecord is one applied action, kept for hand logs and replay.
type ActionRecord struct {
	PlayerID string `json:"player_id"`
	Action   Action `json:"action"`
	Timeout  bool   `json:"timeout,omitempty"`
}
