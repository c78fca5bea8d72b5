package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/pointsbot/holdem/pkg/ledger"
)

// applyTimeout bounds a single ledger call made by the settlement worker.
const applyTimeout = 10 * time.Second

// Adjustment is one player's pending balance change from a finished hand.
type Adjustment struct {
	RoomID   string
	HandNum  int
	PlayerID string
	Delta    int64

	attempts  int
	notBefore time.Time
}

func (a *Adjustment) reason() string {
	return fmt.Sprintf("room %s hand %d", a.RoomID, a.HandNum)
}

// SettlementQueue applies hand deltas to the ledger in order. A single
// worker drains it so each player's adjustments land in the order the
// hands finished. Failed adjustments are retried with exponential backoff
// and are never dropped.
type SettlementQueue struct {
	ledger    ledger.Ledger
	log       slog.Logger
	retryBase time.Duration
	retryMax  time.Duration

	mu       sync.Mutex
	pending  []*Adjustment
	inflight bool
	idle     chan struct{} // closed whenever nothing is pending or in flight
	started  bool

	wake     chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSettlementQueue creates a queue that settles against l.
func NewSettlementQueue(l ledger.Ledger, log slog.Logger, retryBase, retryMax time.Duration) *SettlementQueue {
	if log == nil {
		log = slog.Disabled
	}
	idle := make(chan struct{})
	close(idle)
	return &SettlementQueue{
		ledger:    l,
		log:       log,
		retryBase: retryBase,
		retryMax:  retryMax,
		idle:      idle,
		wake:      make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
	}
}

// Start begins draining the queue.
func (q *SettlementQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	q.started = true
	q.log.Debugf("Starting settlement worker")

	q.wg.Add(1)
	go q.run()
}

// Stop halts the worker and returns the adjustments that were never
// applied. Each is logged so an operator can apply it by hand.
func (q *SettlementQueue) Stop() []Adjustment {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = false
	close(q.stopChan)
	q.mu.Unlock()

	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	left := make([]Adjustment, 0, len(q.pending))
	for _, a := range q.pending {
		q.log.Errorf("Unsettled: %s %+d (%s) after %d attempts", a.PlayerID, a.Delta, a.reason(), a.attempts)
		left = append(left, *a)
	}
	q.pending = nil
	return left
}

// Enqueue adds a hand's deltas. Zero deltas are skipped.
func (q *SettlementQueue) Enqueue(roomID string, handNum int, deltas map[string]int64) {
	ids := make([]string, 0, len(deltas))
	for id, d := range deltas {
		if d != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Strings(ids)

	q.mu.Lock()
	if len(q.pending) == 0 && !q.inflight {
		q.idle = make(chan struct{})
	}
	for _, id := range ids {
		q.pending = append(q.pending, &Adjustment{
			RoomID:   roomID,
			HandNum:  handNum,
			PlayerID: id,
			Delta:    deltas[id],
		})
	}
	q.mu.Unlock()
	q.log.Debugf("Queued settlement of room %s hand %d for %d players", roomID, handNum, len(ids))

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pending returns a copy of the adjustments still waiting.
func (q *SettlementQueue) Pending() []Adjustment {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Adjustment, len(q.pending))
	for i, a := range q.pending {
		out[i] = *a
	}
	return out
}

// Flush waits until the queue is empty or ctx is done.
func (q *SettlementQueue) Flush(ctx context.Context) error {
	for {
		q.mu.Lock()
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
			q.mu.Lock()
			empty := len(q.pending) == 0 && !q.inflight
			q.mu.Unlock()
			if empty {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *SettlementQueue) run() {
	defer q.wg.Done()

	for {
		a, wait := q.next()
		if a == nil {
			var (
				t     *time.Timer
				timer <-chan time.Time
			)
			if wait > 0 {
				t = time.NewTimer(wait)
				timer = t.C
			}
			select {
			case <-q.stopChan:
				if t != nil {
					t.Stop()
				}
				return
			case <-q.wake:
			case <-timer:
			}
			if t != nil {
				t.Stop()
			}
			continue
		}

		err := q.apply(a)

		q.mu.Lock()
		q.inflight = false
		if err != nil {
			a.attempts++
			backoff := q.retryBase << min(a.attempts-1, 16)
			if backoff > q.retryMax || backoff <= 0 {
				backoff = q.retryMax
			}
			a.notBefore = time.Now().Add(backoff)
			q.pending = append([]*Adjustment{a}, q.pending...)
			q.log.Warnf("Settlement of %s %+d (%s) failed, retrying in %v: %v",
				a.PlayerID, a.Delta, a.reason(), backoff, err)
		} else if len(q.pending) == 0 {
			close(q.idle)
		}
		q.mu.Unlock()
	}
}

// next pops the head of the queue if it is due. Otherwise it returns how
// long until it is.
func (q *SettlementQueue) next() (*Adjustment, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, 0
	}
	a := q.pending[0]
	if wait := time.Until(a.notBefore); wait > 0 {
		return nil, wait
	}
	q.pending = q.pending[1:]
	q.inflight = true
	return a, 0
}

// apply performs one adjustment. A loss the player can no longer cover,
// because the points were spent elsewhere mid-game, is clamped to what
// they have left.
func (q *SettlementQueue) apply(a *Adjustment) error {
	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	bal, err := q.ledger.AdjustBalance(ctx, a.PlayerID, a.Delta, a.reason())
	if err == nil {
		q.log.Debugf("Settled %s %+d (%s): balance %d", a.PlayerID, a.Delta, a.reason(), bal)
		return nil
	}
	if a.Delta >= 0 || !errors.Is(err, ledger.ErrInsufficientFunds) {
		return err
	}

	have, err := q.ledger.GetBalance(ctx, a.PlayerID)
	if err != nil {
		return err
	}
	q.log.Warnf("%s owes %d (%s) but has %d; clamping debit", a.PlayerID, -a.Delta, a.reason(), have)
	if have == 0 {
		return nil
	}
	_, err = q.ledger.AdjustBalance(ctx, a.PlayerID, -have, a.reason()+" (clamped)")
	return err
}
