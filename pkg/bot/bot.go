// Package bot runs Hold'em games over a text chat. It turns channel
// messages into lobby, room and action requests and relays room events
// back as channel messages, with hole cards sent privately.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/decred/slog"

	"github.com/pointsbot/holdem/pkg/gateway"
	"github.com/pointsbot/holdem/pkg/poker"
	"github.com/pointsbot/holdem/pkg/server"
)

// Prefix starts every bot command.
const Prefix = "!"

// Messenger delivers bot output to the chat.
type Messenger interface {
	SendChannel(ctx context.Context, channel, msg string) error
	SendPM(ctx context.Context, userID, msg string) error
}

// State holds the state of the poker bot.
type State struct {
	srv  *server.Server
	gw   *gateway.Gateway
	chat Messenger
	log  slog.Logger
}

// NewState creates a bot that drives srv and submits actions through gw.
func NewState(srv *server.Server, gw *gateway.Gateway, chat Messenger, log slog.Logger) *State {
	if log == nil {
		log = slog.Disabled
	}
	return &State{srv: srv, gw: gw, chat: chat, log: log}
}

// HandleMessage handles a message posted in channel by userID. Messages
// without the command prefix are ignored.
func (s *State) HandleMessage(ctx context.Context, channel, userID, text string) {
	if !strings.HasPrefix(text, Prefix) {
		return
	}
	tokens := strings.Fields(strings.TrimPrefix(text, Prefix))
	if len(tokens) == 0 {
		return
	}

	cmd := strings.ToLower(tokens[0])
	switch cmd {
	case "poker":
		s.handleOpenLobby(ctx, channel, userID, tokens)

	case "join":
		s.handleJoin(ctx, channel, userID)

	case "leave":
		s.handleLeave(ctx, channel, userID)

	case "start":
		s.handleStart(ctx, channel, userID)

	case "stopgame":
		s.handleStopGame(ctx, channel, userID)

	case "point", "points", "balance":
		balance, err := s.srv.Balance(ctx, userID)
		if err != nil {
			s.log.Errorf("Failed to get balance of %s: %v", userID, err)
			s.say(ctx, channel, "%s: could not read your points right now.", userID)
			return
		}
		s.say(ctx, channel, "%s has %d points.", userID, balance)

	case "table":
		s.handleTable(ctx, channel)

	case "fold", "check", "call", "bet", "raise", "allin":
		s.handleAction(ctx, channel, userID, tokens)

	case "help":
		s.say(ctx, channel, helpText)

	default:
		s.say(ctx, channel, "Unknown command. Type %shelp for available commands.", Prefix)
	}
}

const helpText = `Hold'em commands:
!poker [big blind]  open a lobby in this channel
!join / !leave      take or give up a seat in the lobby
!start              deal the first hand (host only)
!stopgame           close the lobby or end the game
!fold !check !call !raise <to> !allin
!table              show the table
!point              show your points`

func (s *State) handleOpenLobby(ctx context.Context, channel, userID string, tokens []string) {
	var bigBlind int64
	if len(tokens) > 1 {
		bb, err := strconv.ParseInt(tokens[1], 10, 64)
		if err != nil || bb <= 0 {
			s.say(ctx, channel, "Usage: %spoker [big blind]", Prefix)
			return
		}
		bigBlind = bb
	}

	l, err := s.srv.OpenLobby(ctx, channel, userID, bigBlind)
	if err != nil {
		s.fail(ctx, channel, userID, err)
		return
	}
	s.say(ctx, channel, "%s opened a Hold'em lobby with blinds %d/%d. Type %sjoin to sit down; the host deals with %sstart.",
		userID, l.SmallBlind, l.BigBlind, Prefix, Prefix)
}

func (s *State) handleJoin(ctx context.Context, channel, userID string) {
	l, err := s.srv.JoinLobby(ctx, channel, userID)
	if err != nil {
		s.fail(ctx, channel, userID, err)
		return
	}
	s.say(ctx, channel, "%s joined. Players: %s", userID, strings.Join(l.Players, ", "))
}

func (s *State) handleLeave(ctx context.Context, channel, userID string) {
	l, err := s.srv.LeaveLobby(channel, userID)
	if err != nil {
		s.fail(ctx, channel, userID, err)
		return
	}
	if l == nil {
		s.say(ctx, channel, "%s left. The lobby is empty and has been closed.", userID)
		return
	}
	s.say(ctx, channel, "%s left. %s is hosting; players: %s", userID, l.HostID, strings.Join(l.Players, ", "))
}

func (s *State) handleStart(ctx context.Context, channel, userID string) {
	if _, err := s.srv.StartLobby(ctx, channel, userID); err != nil {
		s.fail(ctx, channel, userID, err)
	}
}

// handleStopGame closes the channel's lobby, which only its host may do,
// or ends its game, which any seated player may do.
func (s *State) handleStopGame(ctx context.Context, channel, userID string) {
	if _, ok := s.srv.Lobby(channel); ok {
		if err := s.srv.CloseLobby(channel, userID); err != nil {
			s.fail(ctx, channel, userID, err)
			return
		}
		s.say(ctx, channel, "The lobby was closed by %s.", userID)
		return
	}

	if _, err := s.srv.Room(channel); err != nil {
		s.say(ctx, channel, "There is no game or lobby in this channel.")
		return
	}
	if ch, ok := s.srv.PlayerChannel(userID); !ok || ch != channel {
		s.say(ctx, channel, "%s: only players at the table can stop the game.", userID)
		return
	}
	if _, err := s.srv.StopRoom(channel, "stopped by "+userID); err != nil {
		s.fail(ctx, channel, userID, err)
	}
}

func (s *State) handleTable(ctx context.Context, channel string) {
	v, err := s.srv.View(channel)
	if err != nil {
		s.say(ctx, channel, "There is no game in this channel.")
		return
	}
	s.say(ctx, channel, "%s", formatView(v))
}

func (s *State) handleAction(ctx context.Context, channel, userID string, tokens []string) {
	kind, amount, err := gateway.ParseCommand(strings.Join(tokens, " "))
	if err != nil {
		s.fail(ctx, channel, userID, err)
		return
	}
	if err := s.gw.Submit(ctx, channel, userID, strings.ToLower(kind), amount); err != nil {
		s.fail(ctx, channel, userID, err)
	}
}

// fail reports a rejected request to its author. Stale, throttled and
// roomless actions are dropped silently.
func (s *State) fail(ctx context.Context, channel, userID string, err error) {
	if gateway.IsQuiet(err) {
		return
	}
	s.log.Debugf("Request from %s in %s failed: %v", userID, channel, err)
	s.say(ctx, channel, "%s: %v", userID, err)
}

func (s *State) say(ctx context.Context, channel, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if err := s.chat.SendChannel(ctx, channel, msg); err != nil {
		s.log.Warnf("Failed to send to %s: %v", channel, err)
	}
}

// Run relays room events to the chat until events is closed or ctx is
// done.
func (s *State) Run(ctx context.Context, events <-chan poker.RoomEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent relays one room event.
func (s *State) HandleEvent(ctx context.Context, ev poker.RoomEvent) {
	if ev.Channel == "" {
		s.log.Debugf("Dropping %s event of unknown room %s", ev.Type, ev.RoomID)
		return
	}

	switch p := ev.Payload.(type) {
	case poker.HoleCardsPayload:
		msg := fmt.Sprintf("Hand #%d in %s: your cards are %s", ev.HandNum, ev.Channel, poker.FormatCards(p.Cards))
		if err := s.chat.SendPM(ctx, ev.PlayerID, msg); err != nil {
			s.log.Warnf("Failed to send hole cards to %s: %v", ev.PlayerID, err)
		}

	case poker.TurnPayload:
		s.say(ctx, ev.Channel, "%s", formatTurn(p))

	case poker.GameOverPayload:
		s.say(ctx, ev.Channel, "%s", formatSettlement(p))

	default:
		if line := ev.Describe(); line != "" {
			s.say(ctx, ev.Channel, "%s", line)
		}
	}
}

// formatTurn tells the player to act what they may do.
func formatTurn(p poker.TurnPayload) string {
	c := p.Controls
	opts := make([]string, 0, 4)
	if c.CanCheck {
		opts = append(opts, Prefix+"check")
	}
	if c.CanCall {
		opts = append(opts, fmt.Sprintf("%scall (%d)", Prefix, c.ToCall))
	}
	if c.CanRaise {
		opts = append(opts, fmt.Sprintf("%sraise %d-%d", Prefix, c.MinRaiseTo, c.MaxRaiseTo))
	}
	if c.CanAllIn {
		opts = append(opts, Prefix+"allin")
	}
	if c.CanFold {
		opts = append(opts, Prefix+"fold")
	}
	line := fmt.Sprintf("%s to act, pot %d: %s", c.PlayerID, c.Pot, strings.Join(opts, " "))
	if !p.Deadline.IsZero() {
		line += fmt.Sprintf(" (%ds)", int(time.Until(p.Deadline).Round(time.Second).Seconds()))
	}
	return line
}

func formatSettlement(p poker.GameOverPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game over after %d hands: %s", p.Settlement.Hands, p.Reason)
	for _, ps := range p.Settlement.Players {
		fmt.Fprintf(&b, "\n%s: %d -> %d (%+d)", ps.PlayerID, ps.BuyIn, ps.FinalStack, ps.Net)
	}
	return b.String()
}

func formatView(v poker.RoomView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hand #%d, %s, pot %d, board %s", v.HandNum, strings.ToLower(string(v.Stage)), v.Pot, poker.FormatCards(v.Community))
	for _, p := range v.Players {
		marker := ""
		if p.IsDealer {
			marker += " (D)"
		}
		if p.IsTurn {
			marker += " <- to act"
		}
		fmt.Fprintf(&b, "\n%s%s: stack %d, bet %d, %s", p.Name, marker, p.Stack, p.Bet, strings.ToLower(p.Status))
	}
	return b.String()
}
