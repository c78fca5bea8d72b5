package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/holdem/pkg/ledger"
	"github.com/pointsbot/holdem/pkg/poker"
)

func TestSplitArgs(t *testing.T) {
	pos, flags := splitArgs([]string{"room-1", "3", "--replay", "--dump"})
	assert.Equal(t, []string{"room-1", "3"}, pos)
	assert.Equal(t, []string{"--replay", "--dump"}, flags)
}

func TestBalanceCommand(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger(map[string]int64{"alice": 100})
	var buf bytes.Buffer

	require.NoError(t, handleBalance(ctx, &buf, l, []string{"alice", "--add", "50"}))
	assert.Equal(t, "150\n", buf.String())

	buf.Reset()
	require.NoError(t, handleBalance(ctx, &buf, l, []string{"alice"}))
	assert.Equal(t, "150\n", buf.String())

	err := handleBalance(ctx, &buf, l, []string{"alice", "--add", "-500"})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Error(t, handleBalance(ctx, &buf, l, nil))
}

func TestHistoryNeedsSQLite(t *testing.T) {
	var buf bytes.Buffer
	err := handleHistory(context.Background(), &buf, ledger.NewMemoryLedger(nil), []string{"alice"})
	assert.ErrorContains(t, err, "no transaction history")
}

func TestHandReplay(t *testing.T) {
	ctx := context.Background()

	// Heads-up, A on the button posts the small blind and folds.
	r, err := poker.NewRoom(poker.RoomConfig{
		ID:         "room-1",
		SmallBlind: 5,
		BigBlind:   10,
		NewDeck: func() (*poker.Deck, error) {
			return poker.NewStackedDeck(poker.MustParseCards("As Ks Ah Kh")), nil
		},
	}, []poker.Seat{{ID: "A", Stack: 100}, {ID: "B", Stack: 100}})
	require.NoError(t, err)
	require.NoError(t, r.StartHand())
	require.NoError(t, r.ApplyAction("A", poker.Fold()))

	data, err := json.Marshal(r.HandLog())
	require.NoError(t, err)
	l := ledger.NewMemoryLedger(nil)
	require.NoError(t, l.SaveHandLog(ctx, "room-1", 1, data))

	var buf bytes.Buffer
	require.NoError(t, handleHand(ctx, &buf, l, []string{"room-1", "1", "--replay"}))
	assert.Contains(t, buf.String(), "A: 95\nB: 105\n")
	assert.Contains(t, buf.String(), "replay matches")

	buf.Reset()
	require.NoError(t, handleHand(ctx, &buf, l, []string{"room-1", "1", "--dump"}))
	assert.Contains(t, buf.String(), "HandLog")

	assert.Error(t, handleHand(ctx, &buf, l, []string{"room-1", "2"}))
	assert.Error(t, handleHand(ctx, &buf, l, []string{"room-1", "x"}))
}
