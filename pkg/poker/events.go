package poker

import (
	"time"

	"github.com/decred/slog"
)

// EventType identifies a room notification.
type EventType string

const (
	EventHandStarted  EventType = "hand_started"
	EventHoleCards    EventType = "hole_cards" // private to PlayerID
	EventBlindsPosted EventType = "blinds_posted"
	EventTurn         EventType = "turn"
	EventAction       EventType = "action"
	EventStreetDealt  EventType = "street_dealt"
	EventShowdown     EventType = "showdown"
	EventHandComplete EventType = "hand_complete"
	EventGameOver     EventType = "game_over"
)

// RoomEvent is a notification for the presentation layer. PlayerID names
// the player the event is about; only EventHoleCards must be kept private
// to them. Channel is filled in by the hosting server.
type RoomEvent struct {
	Type     EventType
	RoomID   string
	Channel  string
	HandNum  int
	PlayerID string
	Payload  interface{}
}

// HandStartedPayload is published when a hand is dealt.
type HandStartedPayload struct {
	Dealer  string
	Players []string
}

// HoleCardsPayload carries a player's private cards.
type HoleCardsPayload struct {
	Cards []Card
}

// BlindsPayload carries the public blind postings.
type BlindsPayload struct {
	SmallBlindPlayer string
	SmallBlind       int64
	BigBlindPlayer   string
	BigBlind         int64
}

// TurnPayload announces whose turn it is and until when.
type TurnPayload struct {
	Controls Controls
	Deadline time.Time // zero when no turn timeout is configured
}

// ActionPayload describes an applied action.
type ActionPayload struct {
	Action    Action
	Committed int64 // chips moved by this action
	Timeout   bool
	AllIn     bool
	Pot       int64
}

// StreetPayload announces newly dealt community cards.
type StreetPayload struct {
	Stage     Stage
	Community []Card
	Pot       int64
}

// RevealedHand is a non-folded player's hand shown at showdown.
type RevealedHand struct {
	PlayerID    string
	Hole        []Card
	BestHand    []Card
	Description string
}

// ShowdownPayload reveals the live hands and the pot awards.
type ShowdownPayload struct {
	Community []Card
	Hands     []RevealedHand
	Awards    []PotAward
}

// HandCompletePayload summarises a finished hand. Log is the hand's full
// replay log, including hidden cards.
type HandCompletePayload struct {
	Result HandResult
	Log    *HandLog
}

// GameOverPayload is the final notification for a room.
type GameOverPayload struct {
	Reason     string
	Settlement Settlement
}

// RoomEventManager publishes room events without ever blocking the room.
type RoomEventManager struct {
	log          slog.Logger
	eventChannel chan<- RoomEvent
}

// SetEventChannel sets the event channel for the event manager
func (em *RoomEventManager) SetEventChannel(eventChannel chan<- RoomEvent) {
	em.eventChannel = eventChannel
}

// Publish sends an event to the channel. A full channel drops the event.
func (em *RoomEventManager) Publish(ev RoomEvent) {
	if em.eventChannel == nil {
		return
	}
	select {
	case em.eventChannel <- ev:
	default:
		em.log.Warnf("Dropped %s event for room %s: event channel full", ev.Type, ev.RoomID)
	}
}
