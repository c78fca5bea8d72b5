package poker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedAction struct {
	player string
	action Action
}

func applyScript(t *testing.T, r *Room, script []scriptedAction) {
	t.Helper()
	for _, s := range script {
		require.NoError(t, r.ApplyAction(s.player, s.action), "%s %s", s.player, s.action)
		requirePotInvariant(t, r)
	}
}

var (
	scriptPreflop = []scriptedAction{
		{"A", RaiseTo(30)},
		{"B", Call()},
		{"C", Call()},
	}
	scriptPostflop = []scriptedAction{
		{"B", Check()},
		{"C", RaiseTo(40)},
		{"A", Fold()},
		{"B", Call()},
		{"B", Check()},
		{"C", Check()},
		{"B", Check()},
		{"C", Check()},
	}
)

func scriptedRoom(t *testing.T) *Room {
	deck := stackedDeck("9h Js Tc 9d Jd 2s 4c 8h Kd Qs 3c")
	return newTestRoom(t, RoomConfig{NewDeck: deck}, 200, 200, 200)
}

func TestSnapshotRoundTripReplaysIdentically(t *testing.T) {
	orig := scriptedRoom(t)
	require.NoError(t, orig.StartHand())
	applyScript(t, orig, scriptPreflop)
	require.Equal(t, StageFlop, orig.Stage())

	data, err := MarshalState(orig.Snapshot())
	require.NoError(t, err)
	state, err := UnmarshalState(data)
	require.NoError(t, err)
	require.Equal(t, StateVersion, state.Version)

	restored, err := RestoreRoom(state, RoomConfig{})
	require.NoError(t, err)
	require.Equal(t, orig.View(), restored.View())
	require.Equal(t, orig.HoleCards("B"), restored.HoleCards("B"))

	applyScript(t, orig, scriptPostflop)
	applyScript(t, restored, scriptPostflop)

	require.Equal(t, StageHandComplete, orig.Stage())
	require.Equal(t, orig.Stacks(), restored.Stacks())
	require.Equal(t, orig.LastResult(), restored.LastResult())
	require.Equal(t, orig.HandLog().Actions, restored.HandLog().Actions)
}

func TestReplayHandFromLog(t *testing.T) {
	r := scriptedRoom(t)
	require.NoError(t, r.StartHand())
	applyScript(t, r, scriptPreflop)
	applyScript(t, r, scriptPostflop)

	log := r.HandLog()
	require.Len(t, log.Actions, len(scriptPreflop)+len(scriptPostflop))
	require.Len(t, log.Deck, 52)
	require.NotNil(t, log.Result)

	replayed, err := ReplayHand(log, nil)
	require.NoError(t, err)
	require.Equal(t, r.Stacks(), replayed.Stacks())
	require.Equal(t, r.LastResult(), replayed.LastResult())

	// Replaying the second hand of a room starts from that hand's button.
	require.NoError(t, r.StartHand())
	require.Equal(t, "B", r.DealerID())
	checkDown(t, r)
	replayed, err = ReplayHand(r.HandLog(), nil)
	require.NoError(t, err)
	require.Equal(t, "B", replayed.DealerID())
	require.Equal(t, 2, replayed.HandNum())
	require.Equal(t, r.Stacks(), replayed.Stacks())
}

func TestReplayRejectsTamperedLog(t *testing.T) {
	r := scriptedRoom(t)
	require.NoError(t, r.StartHand())
	applyScript(t, r, scriptPreflop)

	log := r.HandLog()
	log.Actions[1] = ActionRecord{PlayerID: "C", Action: Call()}
	_, err := ReplayHand(log, nil)
	require.ErrorIs(t, err, ErrStaleAction)
}

func TestUpgradeVersionOneState(t *testing.T) {
	legacy := []byte(`{
		"version": 1,
		"id": "legacy",
		"small_blind": 5,
		"big_blind": 10,
		"hand_num": 3,
		"stage": "HAND_COMPLETE",
		"dealer": 1,
		"active": -1,
		"players": [
			{"id": "A", "name": "Alice", "seat": 0},
			{"id": "B", "name": "Bob", "seat": 1}
		],
		"chips": {"A": 120, "B": 80}
	}`)

	state, err := UnmarshalState(legacy)
	require.NoError(t, err)
	require.Equal(t, StateVersion, state.Version)
	require.Nil(t, state.Chips)
	require.Equal(t, int64(10), state.MinRaise)
	require.Equal(t, int64(120), state.Players[0].Stack)
	require.Equal(t, int64(120), state.Players[0].BuyIn)
	require.Equal(t, int64(80), state.Players[1].Stack)

	r, err := RestoreRoom(state, RoomConfig{})
	require.NoError(t, err)
	require.Equal(t, "HAND_COMPLETE", r.Lifecycle())
	require.NoError(t, r.StartHand())
	require.Equal(t, 4, r.HandNum())
	require.Equal(t, "A", r.DealerID())
}

func TestUnknownStateVersion(t *testing.T) {
	_, err := UnmarshalState([]byte(`{"version": 9}`))
	require.Error(t, err)
}
