// Package gateway turns raw chat input into room actions. It parses and
// pre-validates the action, throttles each player and forwards it to the
// room, which validates it again under its own lock.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"
	"golang.org/x/time/rate"

	"github.com/pointsbot/holdem/pkg/poker"
)

// ErrRateLimited is returned when a player submits actions faster than
// allowed, typically a double click.
var ErrRateLimited = errors.New("too many actions")

// Rooms is the part of the server the gateway drives.
type Rooms interface {
	ApplyAction(channel, playerID string, a poker.Action) error
	Controls(channel, playerID string) (poker.Controls, error)
}

// Config sets the per-player rate limit.
type Config struct {
	// Rate is the sustained actions per second allowed per player.
	Rate rate.Limit
	// Burst is how many actions may arrive at once.
	Burst int
	// IdleTTL is how long an unused limiter is kept.
	IdleTTL time.Duration
}

type limiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// Gateway validates and forwards player actions.
type Gateway struct {
	rooms Rooms
	log   slog.Logger
	cfg   Config

	mu       sync.Mutex
	limiters map[string]*limiter
}

// New creates a gateway in front of rooms.
func New(rooms Rooms, cfg Config, log slog.Logger) *Gateway {
	if log == nil {
		log = slog.Disabled
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 2
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &Gateway{
		rooms:    rooms,
		log:      log,
		cfg:      cfg,
		limiters: make(map[string]*limiter),
	}
}

// ParseAction builds an action from a kind and an amount. Raises (and
// bets) need a positive amount, the player's new total for the round; the
// amount is ignored for every other kind.
func ParseAction(kind string, amount int64) (poker.Action, error) {
	k, err := poker.ParseActionKind(kind)
	if err != nil {
		return poker.Action{}, err
	}
	if amount < 0 {
		return poker.Action{}, fmt.Errorf("%w: negative amount %d", poker.ErrInvalidAction, amount)
	}
	if k != poker.ActionRaise {
		return poker.Action{Kind: k}, nil
	}
	if amount == 0 {
		return poker.Action{}, fmt.Errorf("%w: %s needs an amount", poker.ErrInvalidAction, kind)
	}
	return poker.RaiseTo(amount), nil
}

// ParseCommand splits chat text such as "raise 40" or "call" into a kind
// and amount.
func ParseCommand(text string) (string, int64, error) {
	fields := strings.Fields(text)
	switch len(fields) {
	case 1:
		return fields[0], 0, nil
	case 2:
		amount, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("%w: bad amount %q", poker.ErrInvalidAction, fields[1])
		}
		return fields[0], amount, nil
	}
	return "", 0, fmt.Errorf("%w: expected \"<action> [amount]\", got %q", poker.ErrInvalidAction, text)
}

// Submit parses a raw action and applies it to the player's room in
// channel.
func (g *Gateway) Submit(ctx context.Context, channel, playerID, kind string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a, err := ParseAction(kind, amount)
	if err != nil {
		return err
	}
	if !g.allow(playerID) {
		g.log.Debugf("Throttled %s from %s in %s", a, playerID, channel)
		return ErrRateLimited
	}

	err = g.rooms.ApplyAction(channel, playerID, a)
	switch {
	case err == nil:
		g.log.Debugf("%s in %s: %s", playerID, channel, a)
	case IsQuiet(err):
		g.log.Tracef("Ignored %s from %s in %s: %v", a, playerID, channel, err)
	default:
		g.log.Debugf("Rejected %s from %s in %s: %v", a, playerID, channel, err)
	}
	return err
}

// Controls returns the action buttons to show a player.
func (g *Gateway) Controls(channel, playerID string) (poker.Controls, error) {
	return g.rooms.Controls(channel, playerID)
}

func (g *Gateway) allow(playerID string) bool {
	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.limiters[playerID]
	if !ok {
		g.pruneLocked(now)
		l = &limiter{Limiter: rate.NewLimiter(g.cfg.Rate, g.cfg.Burst)}
		g.limiters[playerID] = l
	}
	l.lastSeen = now
	return l.AllowN(now, 1)
}

func (g *Gateway) pruneLocked(now time.Time) {
	for id, l := range g.limiters {
		if now.Sub(l.lastSeen) > g.cfg.IdleTTL {
			delete(g.limiters, id)
		}
	}
}

// IsQuiet reports whether err should be dropped without telling the
// player: the turn already moved on, the room is gone or they are
// clicking too fast.
func IsQuiet(err error) bool {
	return errors.Is(err, poker.ErrStaleAction) ||
		errors.Is(err, poker.ErrRoomNotFound) ||
		errors.Is(err, ErrRateLimited)
}

// IsUserError reports whether err should be shown to the player.
func IsUserError(err error) bool {
	if err == nil || IsQuiet(err) {
		return false
	}
	return errors.Is(err, poker.ErrInvalidAction) || errors.Is(err, poker.ErrInsufficientFunds)
}
