package poker

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAction is returned for actions the rules do not allow:
	// checking into a bet, raising below the minimum, betting more than the
	// stack, acting after folding or going all-in.
	ErrInvalidAction = errors.New("invalid action")

	// ErrStaleAction is returned when an action refers to a turn that has
	// already moved on, e.g. a double click or a timer that lost the race.
	ErrStaleAction = errors.New("stale action")

	// ErrInsufficientFunds is returned when a buy-in exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDeckExhausted means more cards were dealt than a deck holds. It is
	// an invariant violation, never a user error.
	ErrDeckExhausted = errors.New("deck exhausted")

	// ErrRoomNotFound is returned when no room exists for a channel.
	ErrRoomNotFound = errors.New("room not found")

	// ErrGameOver is returned for operations on a room that has finished.
	ErrGameOver = errors.New("game over")
)

// ActionError describes why a specific action was rejected. It unwraps to
// ErrInvalidAction; stale actions additionally unwrap to ErrStaleAction so
// callers can drop them quietly.
type ActionError struct {
	PlayerID string
	Action   ActionKind
	Reason   string
	kind     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s by %s: %s", e.kind, e.Action, e.PlayerID, e.Reason)
}

func (e *ActionError) Unwrap() []error {
	if e.kind == ErrStaleAction {
		return []error{ErrStaleAction, ErrInvalidAction}
	}
	return []error{e.kind}
}

func invalidAction(playerID string, kind ActionKind, format string, args ...interface{}) error {
	return &ActionError{
		PlayerID: playerID,
		Action:   kind,
		Reason:   fmt.Sprintf(format, args...),
		kind:     ErrInvalidAction,
	}
}

func staleAction(playerID string, kind ActionKind, format string, args ...interface{}) error {
	return &ActionError{
		PlayerID: playerID,
		Action:   kind,
		Reason:   fmt.Sprintf(format, args...),
		kind:     ErrStaleAction,
	}
}
