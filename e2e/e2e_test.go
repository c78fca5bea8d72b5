// This file contains end-to-end tests that drive the chat bot in front of a
// full server backed by a real SQLite ledger. Only the chat itself is
// faked.

package e2e

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/holdem/internal/logging"
	"github.com/pointsbot/holdem/pkg/bot"
	"github.com/pointsbot/holdem/pkg/gateway"
	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/poker"
	"github.com/pointsbot/holdem/pkg/server"
)

const channel = "#poker"

// chatLog records everything the bot sends.
type chatLog struct {
	mu    sync.Mutex
	lines []string
	pms   map[string][]string
}

func (c *chatLog) SendChannel(ctx context.Context, ch, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, msg)
	return nil
}

func (c *chatLog) SendPM(ctx context.Context, userID, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pms == nil {
		c.pms = make(map[string][]string)
	}
	c.pms[userID] = append(c.pms[userID], msg)
	return nil
}

func (c *chatLog) contains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// testEnv holds the runtime components of one isolated bot instance.
type testEnv struct {
	t       *testing.T
	dbPath  string
	ledger  *ledger.SQLiteLedger
	srv     *server.Server
	chat    *chatLog
	bot     *bot.State
	cancel  context.CancelFunc
	stopped chan struct{}
}

func createTestLogBackend(t *testing.T) *logging.LogBackend {
	t.Helper()
	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:    filepath.Join(t.TempDir(), "holdem.log"),
		DebugLevel: "debug",
	})
	require.NoError(t, err)
	t.Cleanup(func() { logBackend.Close() })
	return logBackend
}

// newTestEnv starts a bot on a fresh or existing ledger file.
func newTestEnv(t *testing.T, dbPath string, cfg server.Config) *testEnv {
	t.Helper()
	logBackend := createTestLogBackend(t)

	l, err := ledger.NewSQLiteLedger(dbPath, logBackend.Logger("LDGR"))
	require.NoError(t, err)

	cfg.SettleRetryBase = time.Millisecond
	cfg.SettleRetryMax = 10 * time.Millisecond
	srv := server.NewServer(cfg, l, logBackend)
	gw := gateway.New(srv, gateway.Config{Rate: 100, Burst: 10}, logBackend.Logger("GTWY"))
	chat := &chatLog{}

	ctx, cancel := context.WithCancel(context.Background())
	e := &testEnv{
		t:       t,
		dbPath:  dbPath,
		ledger:  l,
		srv:     srv,
		chat:    chat,
		bot:     bot.NewState(srv, gw, chat, logBackend.Logger("BOT")),
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go func() {
		defer close(e.stopped)
		e.bot.Run(ctx, srv.Events())
	}()
	t.Cleanup(e.Close)
	return e
}

// Close shuts the bot down, settling everything, and closes the ledger.
// It is safe to call more than once.
func (e *testEnv) Close() {
	select {
	case <-e.stopped:
		return
	default:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(e.t, e.srv.Close(ctx))
	e.cancel()
	<-e.stopped
	e.ledger.Close()
}

func (e *testEnv) setBalance(ctx context.Context, playerID string, balance int64) {
	e.t.Helper()
	_, err := e.ledger.AdjustBalance(ctx, playerID, balance, "test deposit")
	require.NoError(e.t, err)
}

func (e *testEnv) getBalance(ctx context.Context, playerID string) int64 {
	e.t.Helper()
	b, err := e.ledger.GetBalance(ctx, playerID)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) say(user, text string) {
	e.bot.HandleMessage(context.Background(), channel, user, text)
}

func (e *testEnv) waitFor(substr string) {
	e.t.Helper()
	require.Eventually(e.t, func() bool { return e.chat.contains(substr) }, 3*time.Second, 5*time.Millisecond,
		"no message containing %q", substr)
}

func (e *testEnv) settle() {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(e.t, e.srv.FlushSettlements(ctx))
}

func stackedDeck(cards string) poker.DeckSource {
	draws := poker.MustParseCards(cards)
	return func() (*poker.Deck, error) {
		return poker.NewStackedDeck(draws), nil
	}
}

// Three-handed, A on the button: B then C then A are dealt. A holds aces,
// B kings and C queens on a dry board.
const threeWay = "Ks Qs As Kh Qh Ah 2c 7d 9s 3h 4d"

func TestSidePotEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, filepath.Join(t.TempDir(), "ledger.db"), server.Config{NewDeck: stackedDeck(threeWay)})
	e.setBalance(ctx, "A", 100)
	e.setBalance(ctx, "B", 300)
	e.setBalance(ctx, "C", 300)

	e.say("A", "!poker 20")
	e.say("B", "!join")
	e.say("C", "!join")
	e.say("A", "!start")
	e.waitFor("A to act")

	e.say("A", "!allin")
	e.waitFor("B to act")
	e.say("B", "!allin")
	e.waitFor("C to act")
	e.say("C", "!call")

	e.waitFor("A wins main pot (300)")
	e.waitFor("B wins side pot 1 (400)")
	e.waitFor("Hand #1 complete")
	e.settle()

	assert.Equal(t, int64(300), e.getBalance(ctx, "A"))
	assert.Equal(t, int64(400), e.getBalance(ctx, "B"))
	assert.Equal(t, int64(0), e.getBalance(ctx, "C"))

	// Everyone saw only their own cards.
	e.chat.mu.Lock()
	require.Len(t, e.chat.pms["A"], 1)
	assert.Contains(t, e.chat.pms["A"][0], "A♠ A♥")
	e.chat.mu.Unlock()

	e.say("B", "!stopgame")
	e.waitFor("Game over after 1 hands: stopped by B")
	e.waitFor("C: 300 -> 0 (-300)")
	e.settle()
	assert.Equal(t, int64(700), e.getBalance(ctx, "A")+e.getBalance(ctx, "B")+e.getBalance(ctx, "C"))
}

func TestPlayerTimeoutAutoFold(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, filepath.Join(t.TempDir(), "ledger.db"), server.Config{TurnTimeout: 50 * time.Millisecond})
	e.setBalance(ctx, "A", 1000)
	e.setBalance(ctx, "B", 1000)

	e.say("A", "!poker 20")
	e.say("B", "!join")
	e.say("A", "!start")

	// A posts the small blind and cannot check, so the timeout folds.
	e.waitFor("A: fold (timed out)")
	e.waitFor("B wins main pot")
	e.settle()
	assert.Equal(t, int64(990), e.getBalance(ctx, "A"))
	assert.Equal(t, int64(1010), e.getBalance(ctx, "B"))
}

func TestPlayerTimeoutAutoCheck(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, filepath.Join(t.TempDir(), "ledger.db"), server.Config{TurnTimeout: 300 * time.Millisecond})
	e.setBalance(ctx, "A", 1000)
	e.setBalance(ctx, "B", 1000)

	e.say("A", "!poker 20")
	e.say("B", "!join")
	e.say("A", "!start")
	e.waitFor("A to act")
	e.say("A", "!call")

	// B has the option and times out into a check.
	e.waitFor("B: check (timed out)")
	e.waitFor("flop:")
}

func TestBalancesAndHistorySurviveRestart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	e := newTestEnv(t, dbPath, server.Config{})
	e.setBalance(ctx, "A", 1000)
	e.setBalance(ctx, "B", 1000)
	e.say("A", "!poker 20")
	e.say("B", "!join")
	e.say("A", "!start")
	e.waitFor("A to act")
	e.say("A", "!fold")
	e.waitFor("B wins main pot")

	roomID := ""
	require.Eventually(t, func() bool {
		txs, err := e.ledger.Transactions(ctx, "A", 1)
		if err != nil || len(txs) == 0 || !strings.HasPrefix(txs[0].Description, "room ") {
			return false
		}
		roomID = strings.Fields(txs[0].Description)[1]
		return true
	}, 3*time.Second, 5*time.Millisecond)
	e.Close()

	e = newTestEnv(t, dbPath, server.Config{})
	assert.Equal(t, int64(990), e.getBalance(ctx, "A"))
	assert.Equal(t, int64(1010), e.getBalance(ctx, "B"))

	hl, err := e.srv.HandLog(ctx, roomID, 1)
	require.NoError(t, err)
	replayed, err := poker.ReplayHand(hl, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 990, "B": 1010}, replayed.Stacks())

	e.say("A", "!point")
	e.waitFor("A has 990 points.")
}
