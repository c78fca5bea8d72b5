package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pointsbot/holdem/pkg/poker"
)

type eventMsg poker.RoomEvent
type eventsClosedMsg struct{}
type errorMsg error

// actionDoneMsg reports the outcome of a submitted action.
type actionDoneMsg struct {
	playerID string
	err      error
}

type startedMsg struct {
	roomID string
	err    error
}

// waitForEvent delivers the next room event to Update.
func waitForEvent(events <-chan poker.RoomEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func submitCmd(ctx context.Context, a Actions, channel, playerID, kind string, amount int64) tea.Cmd {
	return func() tea.Msg {
		err := a.Submit(ctx, channel, playerID, kind, amount)
		return actionDoneMsg{playerID: playerID, err: err}
	}
}

func startLobbyCmd(ctx context.Context, t Table, channel, host string) tea.Cmd {
	return func() tea.Msg {
		roomID, err := t.StartLobby(ctx, channel, host)
		return startedMsg{roomID: roomID, err: err}
	}
}

func startHandCmd(t Table, channel string) tea.Cmd {
	return func() tea.Msg {
		if err := t.StartHand(channel); err != nil {
			return errorMsg(err)
		}
		return nil
	}
}
