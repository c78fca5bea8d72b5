package main

import (
	"context"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/holdem/pkg/ledger"
)

func TestParsePlayers(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob"}, parsePlayers(" alice, bob,,alice "))
	assert.Empty(t, parsePlayers(""))
}

func TestGrantStartingPointsOnlyFundsEmptyBalances(t *testing.T) {
	l := ledger.NewMemoryLedger(map[string]int64{"alice": 40})
	err := grantStartingPoints(context.Background(), l, slog.Disabled, []string{"alice", "bob"}, 1000)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 40, "bob": 1000}, l.Balances())
}
