package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/holdem/pkg/gateway"
	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/poker"
	"github.com/pointsbot/holdem/pkg/server"
)

type sentMsg struct {
	to  string
	msg string
}

type fakeChat struct {
	mu      sync.Mutex
	channel []sentMsg
	pms     []sentMsg
}

func (f *fakeChat) SendChannel(ctx context.Context, channel, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = append(f.channel, sentMsg{channel, msg})
	return nil
}

func (f *fakeChat) SendPM(ctx context.Context, userID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pms = append(f.pms, sentMsg{userID, msg})
	return nil
}

// last returns the most recent channel message.
func (f *fakeChat) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.channel) == 0 {
		return ""
	}
	return f.channel[len(f.channel)-1].msg
}

func (f *fakeChat) said(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.channel {
		if strings.Contains(m.msg, substr) {
			return true
		}
	}
	return false
}

type harness struct {
	srv    *server.Server
	ledger *ledger.MemoryLedger
	chat   *fakeChat
	bot    *State
}

func newHarness(t *testing.T, balances map[string]int64) *harness {
	t.Helper()
	l := ledger.NewMemoryLedger(balances)
	srv := server.NewServer(server.Config{
		SettleRetryBase: time.Millisecond,
		SettleRetryMax:  5 * time.Millisecond,
	}, l, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Close(ctx)
	})
	gw := gateway.New(srv, gateway.Config{Rate: 100, Burst: 10}, slog.Disabled)
	chat := &fakeChat{}
	return &harness{srv: srv, ledger: l, chat: chat, bot: NewState(srv, gw, chat, slog.Disabled)}
}

func (h *harness) say(channel, user, text string) {
	h.bot.HandleMessage(context.Background(), channel, user, text)
}

// relayUntil relays server events to the bot until a channel message
// containing substr has been sent.
func (h *harness) relayUntil(t *testing.T, substr string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !h.chat.said(substr) {
		select {
		case ev := <-h.srv.Events():
			h.bot.HandleEvent(context.Background(), ev)
		case <-deadline:
			t.Fatalf("no message containing %q", substr)
		}
	}
}

func TestLobbyCommands(t *testing.T) {
	h := newHarness(t, map[string]int64{"A": 1000, "B": 1000})

	h.say("#poker", "A", "!poker 20")
	assert.Contains(t, h.chat.last(), "blinds 10/20")

	h.say("#poker", "B", "!join")
	assert.Contains(t, h.chat.last(), "Players: A, B")

	h.say("#poker", "B", "!start")
	assert.Contains(t, h.chat.last(), server.ErrNotHost.Error())

	h.say("#poker", "A", "!start")
	h.relayUntil(t, "A to act")

	h.chat.mu.Lock()
	defer h.chat.mu.Unlock()
	require.Len(t, h.chat.pms, 2)
	for _, pm := range h.chat.pms {
		assert.Contains(t, pm.msg, "your cards are")
	}
}

func TestLeaveClosesEmptyLobby(t *testing.T) {
	h := newHarness(t, map[string]int64{"A": 1000})

	h.say("#poker", "A", "!poker")
	h.say("#poker", "A", "!leave")
	assert.Contains(t, h.chat.last(), "has been closed")
	_, ok := h.srv.Lobby("#poker")
	assert.False(t, ok)
}

func TestActionCommands(t *testing.T) {
	h := newHarness(t, map[string]int64{"A": 1000, "B": 1000})
	h.say("#poker", "A", "!poker 20")
	h.say("#poker", "B", "!join")
	h.say("#poker", "A", "!start")
	h.relayUntil(t, "A to act")

	h.say("#poker", "A", "!raise lots")
	assert.Contains(t, h.chat.last(), "A: ")
	assert.Contains(t, h.chat.last(), "bad amount")

	h.say("#poker", "A", "!fold")
	h.relayUntil(t, "B wins main pot")

	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.srv.FlushSettlements(flushCtx))
	assert.Equal(t, map[string]int64{"A": 990, "B": 1010}, h.ledger.Balances())
}

func TestStopGame(t *testing.T) {
	h := newHarness(t, map[string]int64{"A": 1000, "B": 1000, "C": 1000})

	h.say("#poker", "A", "!stopgame")
	assert.Contains(t, h.chat.last(), "no game or lobby")

	h.say("#poker", "A", "!poker")
	h.say("#poker", "B", "!stopgame")
	assert.Contains(t, h.chat.last(), server.ErrNotHost.Error())
	h.say("#poker", "A", "!stopgame")
	assert.Contains(t, h.chat.last(), "closed by A")

	h.say("#poker", "A", "!poker")
	h.say("#poker", "B", "!join")
	h.say("#poker", "A", "!start")

	h.say("#poker", "C", "!stopgame")
	assert.Contains(t, h.chat.last(), "only players at the table")

	h.say("#poker", "B", "!stopgame")
	h.relayUntil(t, "stopped by B")
	_, err := h.srv.Room("#poker")
	assert.ErrorIs(t, err, server.ErrRoomNotFound)
}

func TestPointAndUnknownCommands(t *testing.T) {
	h := newHarness(t, map[string]int64{"A": 1000})

	h.say("#poker", "A", "hello !point")
	assert.Empty(t, h.chat.last())

	h.say("#poker", "A", "!point")
	assert.Equal(t, "A has 1000 points.", h.chat.last())

	h.say("#poker", "A", "!dance")
	assert.Contains(t, h.chat.last(), "Unknown command")

	// Actions outside a game are ignored.
	h.say("#poker", "A", "!fold")
	assert.Contains(t, h.chat.last(), "Unknown command")
}

func TestFormatTurn(t *testing.T) {
	line := formatTurn(poker.TurnPayload{Controls: poker.Controls{
		PlayerID: "B", Pot: 30, ToCall: 10,
		CanFold: true, CanCall: true, CanRaise: true, CanAllIn: true,
		MinRaiseTo: 40, MaxRaiseTo: 1000,
	}})
	assert.Equal(t, "B to act, pot 30: !call (10) !raise 40-1000 !allin !fold", line)
}

func TestEventsWithoutChannelAreDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.bot.HandleEvent(context.Background(), poker.RoomEvent{
		Type:    poker.EventGameOver,
		RoomID:  "gone",
		Payload: poker.GameOverPayload{Reason: "x"},
	})
	assert.Empty(t, h.chat.last())
}

func TestNilLoggerIsDisabled(t *testing.T) {
	h := newHarness(t, map[string]int64{"A": 1000})
	h.bot = NewState(h.srv, h.bot.gw, h.chat, nil)

	require.NotPanics(t, func() {
		h.say("#poker", "A", "!leave")
		h.bot.HandleEvent(context.Background(), poker.RoomEvent{Type: poker.EventHandStarted, RoomID: "gone"})
	})
	assert.Contains(t, h.chat.last(), "A: ")
}
