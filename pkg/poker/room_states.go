package poker

import (
	"github.com/pointsbot/holdem/pkg/statemachine"
)

// Room lifecycle states. The betting streets live in Room.stage; the state
// machine tracks the coarser lifecycle the server cares about.

func (r *Room) initStateMachine() {
	r.stateMachine = statemachine.NewStateMachine(r, roomStateWaiting)
	r.stateMachine.Register("WAITING", roomStateWaiting)
	r.stateMachine.Register("HAND_ACTIVE", roomStateHandActive)
	r.stateMachine.Register("HAND_COMPLETE", roomStateHandComplete)
	r.stateMachine.Register("GAME_OVER", roomStateGameOver)
}

func roomStateWaiting(r *Room) statemachine.StateFn[Room] {
	if r.stage.IsBetting() {
		return roomStateHandActive
	}
	return roomStateWaiting
}

func roomStateHandActive(r *Room) statemachine.StateFn[Room] {
	switch r.stage {
	case StageHandComplete:
		return roomStateHandComplete
	case StageGameOver:
		return roomStateGameOver
	}
	return roomStateHandActive
}

// roomStateHandComplete ends the game once fewer than two players can
// cover a blind.
func roomStateHandComplete(r *Room) statemachine.StateFn[Room] {
	if r.countWithChips() < 2 {
		return roomStateGameOver
	}
	if r.stage.IsBetting() {
		return roomStateHandActive
	}
	return roomStateHandComplete
}

func roomStateGameOver(r *Room) statemachine.StateFn[Room] {
	return roomStateGameOver
}
