package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/pointsbot/holdem/internal/logging"
	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/poker"
)

var (
	// ErrAlreadySeated is returned when a player already sits in another
	// lobby or room.
	ErrAlreadySeated = errors.New("player already seated")

	// ErrNotHost is returned when someone other than the host manages a
	// lobby.
	ErrNotHost = errors.New("only the host can do that")

	// ErrChannelBusy is returned when a channel already has a lobby or room.
	ErrChannelBusy = errors.New("channel already has a game")

	// ErrLobbyNotFound is returned when a channel has no open lobby.
	ErrLobbyNotFound = errors.New("lobby not found")

	// ErrNoHistory is returned when the ledger does not archive hands.
	ErrNoHistory = errors.New("hand history not available")

	// ErrServerClosed is returned once Close has been called.
	ErrServerClosed = errors.New("server closed")

	// ErrInsufficientFunds and ErrRoomNotFound are the engine's sentinels,
	// re-exported for callers of this package.
	ErrInsufficientFunds = poker.ErrInsufficientFunds
	ErrRoomNotFound      = poker.ErrRoomNotFound
)

// Config holds the table defaults and timing for rooms the server creates.
type Config struct {
	SmallBlind    int64
	BigBlind      int64
	BuyIn         int64 // 0 seats each player with their whole balance
	MaxPlayers    int
	TurnTimeout   time.Duration
	NextHandDelay time.Duration
	RandomButton  bool

	// NewDeck overrides the shuffled deck, for tests and replays.
	NewDeck poker.DeckSource

	// SettleRetryBase and SettleRetryMax bound the settlement retry
	// backoff.
	SettleRetryBase time.Duration
	SettleRetryMax  time.Duration

	// EventBuffer is the size of the channel returned by Events.
	EventBuffer int
}

func (c *Config) setDefaults() {
	if c.BigBlind <= 0 {
		c.BigBlind = 20
	}
	if c.SmallBlind <= 0 {
		c.SmallBlind = c.BigBlind / 2
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 9
	}
	if c.SettleRetryBase <= 0 {
		c.SettleRetryBase = 100 * time.Millisecond
	}
	if c.SettleRetryMax <= 0 {
		c.SettleRetryMax = 30 * time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 1024
	}
}

// roomEntry tracks a running room and who sits in it.
type roomEntry struct {
	channel string
	room    *poker.Room
}

// Server manages lobbies and rooms, one per chat channel, and settles
// finished hands against the ledger.
type Server struct {
	log        slog.Logger
	logBackend *logging.LogBackend
	cfg        Config
	ledger     ledger.Ledger
	history    ledger.HandHistory // nil when the ledger cannot archive hands

	mu      sync.RWMutex
	lobbies map[string]*Lobby     // channel -> lobby
	rooms   map[string]*roomEntry // channel -> room
	seated  map[string]string     // player -> channel
	closed  bool

	// channels maps room IDs to channels until the room's game over event
	// has been forwarded.
	channels map[string]string

	settlements *SettlementQueue

	roomEvents chan poker.RoomEvent
	out        chan poker.RoomEvent
	quit       chan struct{}
	pumpDone   chan struct{}
}

// NewServer creates a server backed by the given ledger. A nil logBackend
// disables logging.
func NewServer(cfg Config, l ledger.Ledger, logBackend *logging.LogBackend) *Server {
	cfg.setDefaults()
	s := &Server{
		log:        logBackend.Logger("SRVR"),
		logBackend: logBackend,
		cfg:        cfg,
		ledger:     l,
		lobbies:    make(map[string]*Lobby),
		rooms:      make(map[string]*roomEntry),
		seated:     make(map[string]string),
		channels:   make(map[string]string),
		roomEvents: make(chan poker.RoomEvent, cfg.EventBuffer),
		out:        make(chan poker.RoomEvent, cfg.EventBuffer),
		quit:       make(chan struct{}),
		pumpDone:   make(chan struct{}),
	}
	if h, ok := l.(ledger.HandHistory); ok {
		s.history = h
	}
	s.settlements = NewSettlementQueue(l, logBackend.Logger("STLM"), cfg.SettleRetryBase, cfg.SettleRetryMax)
	s.settlements.Start()
	go s.pumpEvents()
	return s
}

// Events returns room events for the presentation layer. Events are
// dropped, with a warning, if the consumer falls behind.
func (s *Server) Events() <-chan poker.RoomEvent {
	return s.out
}

// Balance returns a player's ledger balance.
func (s *Server) Balance(ctx context.Context, playerID string) (int64, error) {
	return s.ledger.GetBalance(ctx, playerID)
}

// SettleHand queues a finished hand's deltas for the ledger. Rooms call it
// after every completed hand.
func (s *Server) SettleHand(roomID string, handNum int, deltas map[string]int64) {
	s.settlements.Enqueue(roomID, handNum, deltas)
}

// FlushSettlements blocks until every queued settlement has reached the
// ledger or ctx is done.
func (s *Server) FlushSettlements(ctx context.Context) error {
	return s.settlements.Flush(ctx)
}

// Close stops every room, flushes settlements and shuts the server down.
// Settlements still pending when ctx expires are logged and reported.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	channels := make([]string, 0, len(s.rooms))
	for ch := range s.rooms {
		channels = append(channels, ch)
	}
	s.lobbies = make(map[string]*Lobby)
	s.mu.Unlock()

	for _, ch := range channels {
		if _, err := s.StopRoom(ch, "server shutting down"); err != nil && !errors.Is(err, poker.ErrRoomNotFound) {
			s.log.Errorf("Failed to stop room in %s: %v", ch, err)
		}
	}

	flushErr := s.settlements.Flush(ctx)
	pending := s.settlements.Stop()

	close(s.quit)
	<-s.pumpDone

	if len(pending) > 0 {
		return fmt.Errorf("%d settlements were not applied: %w", len(pending), flushErr)
	}
	return nil
}
