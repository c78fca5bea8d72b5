// Package ui is a hot-seat terminal table: every player shares one
// keyboard and hole cards stay hidden until the player to act reveals
// them.
package ui

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pointsbot/holdem/pkg/gateway"
	"github.com/pointsbot/holdem/pkg/poker"
)

// Table is the part of the server the UI reads and drives.
type Table interface {
	StartLobby(ctx context.Context, channel, host string) (string, error)
	StartHand(channel string) error
	View(channel string) (poker.RoomView, error)
	Controls(channel, playerID string) (poker.Controls, error)
	HoleCards(channel, playerID string) ([]poker.Card, error)
	Balance(ctx context.Context, playerID string) (int64, error)
}

// Actions submits raw player input.
type Actions interface {
	Submit(ctx context.Context, channel, playerID, kind string, amount int64) error
}

// screenState represents the current screen in the UI
type screenState int

const (
	stateLobby screenState = iota
	stateGame
	stateGameOver
)

const maxLogLines = 10

// Model contains all the state for our UI
type Model struct {
	ctx     context.Context
	table   Table
	actions Actions
	events  <-chan poker.RoomEvent
	channel string
	host    string
	players []string

	state    screenState
	err      error
	message  string
	balances map[string]int64

	// Table state, refreshed after every event.
	view     poker.RoomView
	controls poker.Controls
	hole     []poker.Card
	reveal   bool

	raising    bool
	raiseInput string

	log        []string
	settlement *poker.Settlement
}

// NewModel creates a UI for the lobby in channel.
func NewModel(ctx context.Context, table Table, actions Actions, events <-chan poker.RoomEvent,
	channel, host string, players []string) Model {

	return Model{
		ctx:      ctx,
		table:    table,
		actions:  actions,
		events:   events,
		channel:  channel,
		host:     host,
		players:  players,
		state:    stateLobby,
		balances: make(map[string]int64),
	}
}

func (m Model) Init() tea.Cmd {
	m.loadBalances()
	return waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.applyEvent(poker.RoomEvent(msg))
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.message = "Server closed"
		return m, nil

	case actionDoneMsg:
		if msg.err != nil && gateway.IsUserError(msg.err) {
			m.err = msg.err
		}
		m.refresh()
		return m, nil

	case startedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.state = stateGame
		m.message = fmt.Sprintf("Room %s started", msg.roomID)
		m.refresh()
		return m, nil

	case errorMsg:
		m.err = msg
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.raising {
		return m.handleRaiseKey(msg)
	}

	switch m.state {
	case stateLobby:
		switch key {
		case "q":
			return m, tea.Quit
		case "enter", "s":
			m.err = nil
			return m, startLobbyCmd(m.ctx, m.table, m.channel, m.host)
		}

	case stateGame:
		m.err = nil
		active := m.controls.PlayerID
		switch key {
		case "q":
			return m, tea.Quit
		case " ", "v":
			m.reveal = !m.reveal
		case "f":
			return m, m.submit(active, "fold", 0)
		case "c":
			if m.controls.CanCheck {
				return m, m.submit(active, "check", 0)
			}
			return m, m.submit(active, "call", 0)
		case "a":
			return m, m.submit(active, "allin", 0)
		case "r":
			if m.controls.CanRaise {
				m.raising = true
				m.raiseInput = strconv.FormatInt(m.controls.MinRaiseTo, 10)
			}
		case "n":
			if m.view.Stage == poker.StageHandComplete {
				return m, startHandCmd(m.table, m.channel)
			}
		}

	case stateGameOver:
		if key == "q" || key == "enter" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleRaiseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.raising = false
		m.raiseInput = ""
	case tea.KeyBackspace:
		if len(m.raiseInput) > 0 {
			m.raiseInput = m.raiseInput[:len(m.raiseInput)-1]
		}
	case tea.KeyEnter:
		m.raising = false
		amount, err := strconv.ParseInt(m.raiseInput, 10, 64)
		m.raiseInput = ""
		if err != nil {
			m.err = fmt.Errorf("invalid amount: %w", err)
			return m, nil
		}
		return m, m.submit(m.controls.PlayerID, "raise", amount)
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r >= '0' && r <= '9' {
				m.raiseInput += string(r)
			}
		}
	}
	return m, nil
}

func (m Model) submit(playerID, kind string, amount int64) tea.Cmd {
	if playerID == "" || !m.controls.IsTurn {
		return nil
	}
	return submitCmd(m.ctx, m.actions, m.channel, playerID, kind, amount)
}

// applyEvent records an event in the log and refreshes the table.
func (m *Model) applyEvent(ev poker.RoomEvent) {
	if line := ev.Describe(); line != "" {
		m.log = append(m.log, line)
		if len(m.log) > maxLogLines {
			m.log = m.log[len(m.log)-maxLogLines:]
		}
	}
	switch ev.Type {
	case poker.EventHandStarted:
		m.state = stateGame
	case poker.EventHandComplete:
		m.loadBalances()
	case poker.EventGameOver:
		if p, ok := ev.Payload.(poker.GameOverPayload); ok {
			st := p.Settlement
			m.settlement = &st
		}
		m.state = stateGameOver
		m.controls = poker.Controls{}
		m.hole = nil
		return
	}
	m.refresh()
}

// refresh reloads the public view and the controls of the player to act.
// The room disappears once the game is over, so failures keep the last
// known state.
func (m *Model) refresh() {
	if m.state == stateGameOver {
		return
	}
	v, err := m.table.View(m.channel)
	if err != nil {
		return
	}
	m.view = v
	if v.Active != m.controls.PlayerID {
		m.reveal = false
	}
	m.controls = poker.Controls{PlayerID: v.Active}
	m.hole = nil
	if v.Active == "" {
		return
	}
	if c, err := m.table.Controls(m.channel, v.Active); err == nil {
		m.controls = c
	}
	if h, err := m.table.HoleCards(m.channel, v.Active); err == nil {
		m.hole = h
	}
}

func (m *Model) loadBalances() {
	for _, id := range m.players {
		if b, err := m.table.Balance(m.ctx, id); err == nil {
			m.balances[id] = b
		}
	}
}

func (m Model) View() string {
	switch m.state {
	case stateLobby:
		return m.renderLobby()
	case stateGameOver:
		return m.renderGameOver()
	}
	return m.renderTable()
}
