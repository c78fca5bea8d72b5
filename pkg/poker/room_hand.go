package poker

import (
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
)

// StartHand deals a new hand: moves the button, posts blinds, deals hole
// cards and opens preflop betting. It fails with ErrGameOver when fewer
// than two players have chips.
func (r *Room) StartHand() error {
	r.mu.Lock()
	defer r.unlock()
	return r.startHandLocked()
}

func (r *Room) startHandLocked() error {
	switch r.stage {
	case StageGameOver:
		return ErrGameOver
	case StageWaiting, StageHandComplete:
	default:
		return fmt.Errorf("%w: hand %d is still in progress", ErrStaleAction, r.handNum)
	}
	if r.countWithChips() < 2 {
		r.endGame("fewer than two players have chips")
		return ErrGameOver
	}

	deck, err := r.cfg.NewDeck()
	if err != nil {
		return fmt.Errorf("failed to prepare deck: %w", err)
	}

	r.stopNextHandTimer()
	r.handNum++
	r.deck = deck
	r.community = make([]Card, 0, 5)
	r.pot = 0
	r.currentBet = 0
	r.minRaise = r.cfg.BigBlind
	r.lastAggressor = -1
	r.active = -1
	r.lastResult = nil
	for _, p := range r.players {
		p.resetForNewHand()
	}
	r.handLog = newHandLog(r)

	r.dealer = r.nextSeat(r.dealer, func(p *Player) bool { return p.InHand })

	var sbSeat, bbSeat int
	if r.countInHand() == 2 {
		// Heads-up: the button posts the small blind.
		sbSeat = r.dealer
		bbSeat = r.nextSeat(r.dealer, func(p *Player) bool { return p.InHand })
	} else {
		sbSeat = r.nextSeat(r.dealer, func(p *Player) bool { return p.InHand })
		bbSeat = r.nextSeat(sbSeat, func(p *Player) bool { return p.InHand })
	}
	sb := r.players[sbSeat].commit(r.cfg.SmallBlind)
	bb := r.players[bbSeat].commit(r.cfg.BigBlind)
	r.pot += sb + bb
	// A short big blind still sets the full blind as the amount to call.
	r.currentBet = max(sb, r.cfg.BigBlind)
	r.lastAggressor = bbSeat

	// Two passes around the table starting left of the button.
	n := len(r.players)
	for round := 0; round < 2; round++ {
		for i := 1; i <= n; i++ {
			p := r.players[(r.dealer+i)%n]
			if !p.InHand {
				continue
			}
			c, err := r.deck.Draw()
			if err != nil {
				return r.voidHand(err)
			}
			p.Hole = append(p.Hole, c)
		}
	}

	r.stage = StagePreflop
	r.stateMachine.Dispatch(roomStateHandActive)

	r.log.Debugf("Room %s: hand %d dealt, button %s, blinds %s %d / %s %d",
		r.id, r.handNum, r.players[r.dealer].ID,
		r.players[sbSeat].ID, sb, r.players[bbSeat].ID, bb)

	inHand := make([]string, 0, n)
	for _, p := range r.players {
		if p.InHand {
			inHand = append(inHand, p.ID)
		}
	}
	r.publish(EventHandStarted, "", HandStartedPayload{Dealer: r.players[r.dealer].ID, Players: inHand})
	for _, p := range r.players {
		if p.InHand {
			r.publish(EventHoleCards, p.ID, HoleCardsPayload{Cards: append([]Card(nil), p.Hole...)})
		}
	}
	r.publish(EventBlindsPosted, "", BlindsPayload{
		SmallBlindPlayer: r.players[sbSeat].ID,
		SmallBlind:       sb,
		BigBlindPlayer:   r.players[bbSeat].ID,
		BigBlind:         bb,
	})

	// Action starts left of the big blind; heads-up that is the button.
	r.proceed(bbSeat)
	return nil
}

// ApplyAction validates and applies a player's action. Actions out of turn
// or outside a betting round fail with an error wrapping ErrStaleAction
// (which also matches ErrInvalidAction); rule violations wrap
// ErrInvalidAction.
func (r *Room) ApplyAction(playerID string, a Action) error {
	r.mu.Lock()
	defer r.unlock()
	return r.applyActionLocked(playerID, a, false)
}

func (r *Room) applyActionLocked(playerID string, a Action, timeout bool) error {
	if r.stage == StageGameOver {
		return ErrGameOver
	}
	if !r.stage.IsBetting() {
		return staleAction(playerID, a.Kind, "no betting round in progress (%s)", r.stage)
	}
	seat := r.seatOf(playerID)
	if seat < 0 || !r.players[seat].InHand {
		return invalidAction(playerID, a.Kind, "not in this hand")
	}
	p := r.players[seat]
	switch {
	case p.Folded:
		return invalidAction(playerID, a.Kind, "already folded")
	case p.AllIn:
		return invalidAction(playerID, a.Kind, "already all in")
	case seat != r.active:
		return staleAction(playerID, a.Kind, "not your turn, waiting on %s", r.activeID())
	}

	toCall := r.currentBet - p.Bet
	if toCall < 0 {
		toCall = 0
	}
	reopened := !p.Acted

	var committed int64
	switch a.Kind {
	case ActionFold:
		p.Folded = true

	case ActionCheck:
		if toCall > 0 {
			return invalidAction(playerID, a.Kind, "cannot check facing %d to call", toCall)
		}

	case ActionCall:
		if toCall == 0 {
			return invalidAction(playerID, a.Kind, "nothing to call")
		}
		committed = p.commit(toCall)

	case ActionRaise:
		total := a.Amount
		maxTotal := p.Bet + p.Stack
		switch {
		case !reopened:
			return invalidAction(playerID, a.Kind, "betting was not reopened, call or fold")
		case total <= r.currentBet:
			return invalidAction(playerID, a.Kind, "raise to %d must exceed the current bet of %d", total, r.currentBet)
		case total > maxTotal:
			return invalidAction(playerID, a.Kind, "raise to %d exceeds your stack (max %d)", total, maxTotal)
		case total < r.currentBet+r.minRaise && total != maxTotal:
			return invalidAction(playerID, a.Kind, "minimum raise is to %d", r.currentBet+r.minRaise)
		}
		committed = r.raiseTo(p, total)

	case ActionAllIn:
		if p.Stack == 0 {
			return invalidAction(playerID, a.Kind, "no chips behind")
		}
		total := p.Bet + p.Stack
		if total <= r.currentBet {
			committed = p.commit(p.Stack)
			break
		}
		if !reopened {
			return invalidAction(playerID, a.Kind, "betting was not reopened, call or fold")
		}
		committed = r.raiseTo(p, total)

	default:
		return invalidAction(playerID, a.Kind, "unknown action")
	}

	p.Acted = true
	r.pot += committed
	r.handLog.Actions = append(r.handLog.Actions, ActionRecord{PlayerID: playerID, Action: a, Timeout: timeout})

	r.log.Debugf("Room %s: %s %s (committed %d, pot %d)", r.id, playerID, a, committed, r.pot)
	r.publish(EventAction, playerID, ActionPayload{
		Action:    a,
		Committed: committed,
		Timeout:   timeout,
		AllIn:     p.AllIn,
		Pot:       r.pot,
	})

	r.proceed(seat)
	return nil
}

// raiseTo commits chips so the player's round bet equals total. A raise of
// at least the minimum reopens betting for everyone else; a short all-in
// raise only raises the amount to call.
func (r *Room) raiseTo(p *Player, total int64) int64 {
	committed := p.commit(total - p.Bet)
	increment := p.Bet - r.currentBet
	if increment >= r.minRaise {
		r.minRaise = increment
		for _, o := range r.players {
			if o != p {
				o.Acted = false
			}
		}
	}
	if p.Bet > r.currentBet {
		r.currentBet = p.Bet
		r.lastAggressor = p.Seat
	}
	return committed
}

// proceed moves play forward after the player at seat acted (or, at the
// start of a hand, after the big blind).
func (r *Room) proceed(from int) {
	r.stopTurnTimer()
	if r.countLive() == 1 {
		r.awardUncontested()
		return
	}
	if r.roundClosed() {
		r.advanceStage()
		return
	}
	next := r.nextSeat(from, r.needsToAct)
	if next < 0 {
		// roundClosed and needsToAct disagree; should never happen.
		r.log.Errorf("Room %s: no player to act in open round:\n%s", r.id, spew.Sdump(r.snapshotLocked()))
		r.advanceStage()
		return
	}
	r.setActive(next)
}

func (r *Room) needsToAct(p *Player) bool {
	return p.canAct() && (!p.Acted || p.Bet < r.currentBet)
}

// roundClosed reports whether the betting round is over: everyone able to
// act has acted and matched the current bet, or at most one player can
// still act and there is nothing left for them to call.
func (r *Room) roundClosed() bool {
	var actors []*Player
	for _, p := range r.players {
		if p.canAct() {
			actors = append(actors, p)
		}
	}
	switch len(actors) {
	case 0:
		return true
	case 1:
		return actors[0].Bet >= r.currentBet
	}
	for _, p := range actors {
		if !p.Acted || p.Bet != r.currentBet {
			return false
		}
	}
	return true
}

// advanceStage closes the betting round and deals the next street. When at
// most one player can still act, remaining streets are dealt straight
// through to showdown.
func (r *Room) advanceStage() {
	for {
		r.active = -1
		r.currentBet = 0
		r.minRaise = r.cfg.BigBlind
		r.lastAggressor = -1
		for _, p := range r.players {
			p.Bet = 0
			p.Acted = false
		}

		var deal int
		switch len(r.community) {
		case 0:
			r.stage, deal = StageFlop, 3
		case 3:
			r.stage, deal = StageTurn, 1
		case 4:
			r.stage, deal = StageRiver, 1
		default:
			r.showdown()
			return
		}
		for i := 0; i < deal; i++ {
			c, err := r.deck.Draw()
			if err != nil {
				r.voidHand(err)
				return
			}
			r.community = append(r.community, c)
		}
		r.log.Debugf("Room %s: %s %s", r.id, r.stage, FormatCards(r.community))
		r.publish(EventStreetDealt, "", StreetPayload{
			Stage:     r.stage,
			Community: append([]Card(nil), r.community...),
			Pot:       r.pot,
		})

		if r.countCanAct() <= 1 {
			continue
		}
		r.setActive(r.nextSeat(r.dealer, r.needsToAct))
		return
	}
}

// setActive hands the turn to seat and arms the turn timer.
func (r *Room) setActive(seat int) {
	r.active = seat
	r.turnToken++
	var deadline time.Time
	if d := r.cfg.TurnTimeout; d > 0 {
		token := r.turnToken
		deadline = time.Now().Add(d)
		r.turnTimer = time.AfterFunc(d, func() { r.expireTurn(token) })
	}
	p := r.players[seat]
	r.publish(EventTurn, p.ID, TurnPayload{Controls: r.controls(p.ID), Deadline: deadline})
}

// expireTurn applies the default action if the turn identified by token is
// still pending. A timer that lost the race to a real action is a no-op.
func (r *Room) expireTurn(token uint64) {
	r.mu.Lock()
	defer r.unlock()
	if token != r.turnToken || !r.stage.IsBetting() || r.active < 0 {
		return
	}
	p := r.players[r.active]
	a := Fold()
	if r.currentBet <= p.Bet {
		a = Check()
	}
	r.log.Infof("Room %s: %s timed out, applying %s", r.id, p.ID, a)
	if err := r.applyActionLocked(p.ID, a, true); err != nil {
		r.log.Errorf("Room %s: timeout action for %s failed: %v", r.id, p.ID, err)
	}
}

func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	// Invalidate any timer callback already waiting on the lock.
	r.turnToken++
}

func (r *Room) stopNextHandTimer() {
	if r.nextHandTimer != nil {
		r.nextHandTimer.Stop()
		r.nextHandTimer = nil
	}
}

// awardUncontested gives the pot to the last player standing.
func (r *Room) awardUncontested() {
	if seat, refund := ReturnUncalledBet(r.players); refund > 0 {
		r.pot -= refund
		r.log.Debugf("Room %s: returned uncalled %d to %s", r.id, refund, r.players[seat].ID)
	}
	var winner *Player
	for _, p := range r.players {
		if p.isLive() {
			winner = p
			break
		}
	}
	winner.Stack += r.pot
	award := PotAward{
		Pot:     0,
		Amount:  r.pot,
		Winners: []string{winner.ID},
		Shares:  map[string]int64{winner.ID: r.pot},
	}
	r.log.Infof("Room %s: %s wins %d uncontested", r.id, winner.ID, r.pot)
	r.completeHand([]PotAward{award}, false)
}

// showdown evaluates every live hand and pays out each pot.
func (r *Room) showdown() {
	r.stage = StageShowdown
	r.active = -1
	if seat, refund := ReturnUncalledBet(r.players); refund > 0 {
		r.pot -= refund
		r.log.Debugf("Room %s: returned uncalled %d to %s", r.id, refund, r.players[seat].ID)
	}

	var revealed []RevealedHand
	for _, p := range r.players {
		if !p.isLive() {
			continue
		}
		hv := EvaluateHand(p.Hole, r.community)
		p.HandValue = &hv
		revealed = append(revealed, RevealedHand{
			PlayerID:    p.ID,
			Hole:        append([]Card(nil), p.Hole...),
			BestHand:    hv.BestHand,
			Description: hv.Description,
		})
	}

	pots := BuildPotsFromTotals(r.players)
	awards := DistributePots(pots, r.players, r.dealer)
	for _, a := range awards {
		r.log.Infof("Room %s: pot %d (%d) to %v with %s", r.id, a.Pot, a.Amount, a.Winners, a.Hand)
	}
	r.publish(EventShowdown, "", ShowdownPayload{
		Community: append([]Card(nil), r.community...),
		Hands:     revealed,
		Awards:    awards,
	})
	r.completeHand(awards, true)
}

// completeHand records the result, hands deltas to the settler and either
// schedules the next hand or ends the game.
func (r *Room) completeHand(awards []PotAward, showdown bool) {
	r.stopTurnTimer()
	r.active = -1
	r.stage = StageHandComplete

	result := &HandResult{
		HandNum:   r.handNum,
		Showdown:  showdown,
		Community: append([]Card(nil), r.community...),
		Awards:    awards,
		Deltas:    make(map[string]int64),
		Stacks:    make(map[string]int64, len(r.players)),
	}
	for _, p := range r.players {
		result.Stacks[p.ID] = p.Stack
		if d := p.Stack - p.HandStartStack; d != 0 {
			result.Deltas[p.ID] = d
		}
	}
	r.lastResult = result
	if r.handLog != nil {
		r.handLog.Result = result
	}

	if r.log.Level() <= slog.LevelTrace {
		r.log.Tracef("Room %s: hand %d complete:\n%s", r.id, r.handNum, spew.Sdump(result))
	}
	r.publish(EventHandComplete, "", HandCompletePayload{Result: *result, Log: r.handLog.clone()})

	if s := r.cfg.Settler; s != nil && len(result.Deltas) > 0 {
		roomID, handNum, deltas := r.id, r.handNum, result.Deltas
		r.deferred = append(r.deferred, func() { s.SettleHand(roomID, handNum, deltas) })
	}

	r.stateMachine.Dispatch(roomStateHandComplete)
	if r.stateMachine.Is(roomStateGameOver) {
		r.endGame("fewer than two players have chips")
		return
	}
	r.scheduleNextHand()
}

func (r *Room) scheduleNextHand() {
	d := r.cfg.NextHandDelay
	if d <= 0 {
		return
	}
	handNum := r.handNum
	r.nextHandTimer = time.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.unlock()
		if r.handNum != handNum || r.stage != StageHandComplete {
			return
		}
		if err := r.startHandLocked(); err != nil && !errors.Is(err, ErrGameOver) {
			r.log.Errorf("Room %s: failed to start hand %d: %v", r.id, handNum+1, err)
		}
	})
}

// voidHand abandons the current hand after an internal failure, returning
// every commitment.
func (r *Room) voidHand(cause error) error {
	r.log.Criticalf("Room %s: voiding hand %d: %v\n%s", r.id, r.handNum, cause, spew.Sdump(r.snapshotLocked()))
	r.refundCommitments()
	r.stopTurnTimer()
	r.active = -1
	r.stage = StageHandComplete
	r.lastResult = &HandResult{
		HandNum:   r.handNum,
		Voided:    true,
		Community: append([]Card(nil), r.community...),
		Deltas:    map[string]int64{},
		Stacks:    r.stacksLocked(),
	}
	if r.handLog != nil {
		r.handLog.Result = r.lastResult
	}
	r.stateMachine.SetState(roomStateHandComplete)
	r.publish(EventHandComplete, "", HandCompletePayload{Result: *r.lastResult, Log: r.handLog.clone()})
	return fmt.Errorf("hand %d voided: %w", r.handNum, cause)
}

func (r *Room) refundCommitments() {
	for _, p := range r.players {
		p.Stack += p.Committed
		p.Committed = 0
		p.Bet = 0
	}
	r.pot = 0
	r.currentBet = 0
}

// Stop ends the room. A hand in progress is voided and every commitment
// returned, so the settlement reflects only completed hands. Stopping a
// finished room returns its existing settlement.
func (r *Room) Stop(reason string) Settlement {
	r.mu.Lock()
	defer r.unlock()
	if r.settlement != nil {
		return *r.settlement
	}
	if r.stage.IsBetting() || r.stage == StageShowdown {
		r.log.Infof("Room %s: voiding hand %d on stop", r.id, r.handNum)
		r.refundCommitments()
	}
	r.endGame(reason)
	return *r.settlement
}

// endGame moves the room to GAME_OVER and builds the final settlement.
func (r *Room) endGame(reason string) {
	if r.settlement != nil {
		return
	}
	r.stopTurnTimer()
	r.stopNextHandTimer()
	r.active = -1
	r.stage = StageGameOver
	r.stateMachine.SetState(roomStateGameOver)

	s := Settlement{RoomID: r.id, Reason: reason, Hands: r.handNum}
	for _, p := range r.players {
		s.Players = append(s.Players, PlayerSettlement{
			PlayerID:   p.ID,
			BuyIn:      p.BuyIn,
			FinalStack: p.Stack,
			Net:        p.Stack - p.BuyIn,
		})
	}
	r.settlement = &s
	r.log.Infof("Room %s: game over after %d hands: %s", r.id, r.handNum, reason)
	r.publish(EventGameOver, "", GameOverPayload{Reason: reason, Settlement: s})

	if fn := r.cfg.OnGameOver; fn != nil {
		r.deferred = append(r.deferred, func() { fn(s.RoomID, s) })
	}
}

// nextSeat returns the first seat after from (wrapping, from itself last)
// whose player satisfies ok, or -1.
func (r *Room) nextSeat(from int, ok func(*Player) bool) int {
	n := len(r.players)
	for i := 1; i <= n; i++ {
		seat := ((from+i)%n + n) % n
		if ok(r.players[seat]) {
			return seat
		}
	}
	return -1
}

func (r *Room) countWithChips() int {
	var n int
	for _, p := range r.players {
		if p.Stack > 0 {
			n++
		}
	}
	return n
}

func (r *Room) countInHand() int {
	var n int
	for _, p := range r.players {
		if p.InHand {
			n++
		}
	}
	return n
}

func (r *Room) countLive() int {
	var n int
	for _, p := range r.players {
		if p.isLive() {
			n++
		}
	}
	return n
}

func (r *Room) countCanAct() int {
	var n int
	for _, p := range r.players {
		if p.canAct() {
			n++
		}
	}
	return n
}

func (r *Room) stacksLocked() map[string]int64 {
	stacks := make(map[string]int64, len(r.players))
	for _, p := range r.players {
		stacks[p.ID] = p.Stack
	}
	return stacks
}
