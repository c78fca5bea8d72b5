package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/holdem/pkg/ledger"
)

func TestParseLine(t *testing.T) {
	channel, user, text, ok := parseLine("  #poker alice: !raise 40 ")
	require.True(t, ok)
	assert.Equal(t, "#poker", channel)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "!raise 40", text)

	for _, bad := range []string{"", "#poker", "#poker alice", "#poker : hi", "#poker alice:"} {
		_, _, _, ok := parseLine(bad)
		assert.False(t, ok, bad)
	}
}

func TestOperatorGrant(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger(nil)
	var buf bytes.Buffer
	out := &console{w: &buf}

	handleOperator(ctx, l, out, "/grant alice 500")
	assert.Contains(t, buf.String(), "alice now has 500 points")

	buf.Reset()
	handleOperator(ctx, l, out, "/balance alice")
	assert.Equal(t, "alice has 500 points\n", buf.String())

	buf.Reset()
	handleOperator(ctx, l, out, "/grant alice lots")
	assert.Contains(t, buf.String(), "invalid points")
}
