package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pointsbot/holdem/pkg/poker"
)

func renderCard(c poker.Card) string {
	if c.Suit() == poker.Hearts || c.Suit() == poker.Diamonds {
		return RedCardStyle.Render(c.String())
	}
	return CardStyle.Render(c.String())
}

func renderCards(cards []poker.Card, slots int) string {
	parts := make([]string, 0, slots)
	for _, c := range cards {
		parts = append(parts, renderCard(c))
	}
	for len(parts) < slots {
		parts = append(parts, HiddenCardStyle.Render("??"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderLobby() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Hold'em lobby in %s", m.channel)) + "\n\n")
	for _, id := range m.players {
		line := fmt.Sprintf("  %s: %d points", id, m.balances[id])
		if id == m.host {
			line += " (host)"
		}
		b.WriteString(line + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + ErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	b.WriteString(HelpStyle.Render("enter: start the game  q: quit"))
	return b.String()
}

func (m Model) renderPlayers() string {
	boxes := make([]string, 0, len(m.view.Players))
	for _, p := range m.view.Players {
		name := p.Name
		if p.IsDealer {
			name += " (D)"
		}
		body := fmt.Sprintf("%s\nstack %d\nbet %d\n%s", name, p.Stack, p.Bet, strings.ToLower(p.Status))
		style := PlayerBoxStyle
		switch {
		case p.IsTurn:
			style = CurrentPlayerStyle
		case p.Status == "FOLDED" || p.Status == "SITTING_OUT":
			style = FoldedPlayerStyle
		case p.Status == "ALL_IN":
			style = AllInPlayerStyle
		}
		boxes = append(boxes, style.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m Model) renderControls() string {
	c := m.controls
	if !c.IsTurn {
		if m.view.Stage == poker.StageHandComplete {
			return HelpStyle.Render("n: deal next hand  q: quit")
		}
		return ""
	}

	button := func(label string, enabled bool) string {
		if enabled {
			return ActionButtonStyle.Render(label)
		}
		return DisabledButtonStyle.Render(label)
	}
	callLabel := "c check"
	if !c.CanCheck {
		callLabel = fmt.Sprintf("c call %d", c.ToCall)
	}
	raiseLabel := fmt.Sprintf("r raise %d-%d", c.MinRaiseTo, c.MaxRaiseTo)
	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		button("f fold", c.CanFold),
		button(callLabel, c.CanCheck || c.CanCall),
		button(raiseLabel, c.CanRaise),
		button("a all-in", c.CanAllIn),
	)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s to act: ", c.PlayerID))
	if m.reveal {
		b.WriteString("\n" + renderCards(m.hole, 2) + "\n")
	} else {
		b.WriteString(InfoStyle.Render("press space to show your cards") + "\n")
	}
	b.WriteString(buttons)
	if m.raising {
		b.WriteString("\n" + FocusedStyle.Render("Raise to: "+m.raiseInput+"_") +
			BlurredStyle.Render("  enter: confirm  esc: cancel"))
	}
	return b.String()
}

func (m Model) renderTable() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Hand #%d  %s", m.view.HandNum, m.view.Stage)) + "\n\n")
	b.WriteString(renderCards(m.view.Community, 5) + "\n")
	b.WriteString(PotStyle.Render(fmt.Sprintf("Pot %d", m.view.Pot)) + "\n")
	b.WriteString(m.renderPlayers() + "\n")
	if controls := m.renderControls(); controls != "" {
		b.WriteString(controls + "\n")
	}
	if m.err != nil {
		b.WriteString(ErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.message != "" {
		b.WriteString(InfoStyle.Render(m.message) + "\n")
	}
	if len(m.log) > 0 {
		b.WriteString("\n" + BlurredStyle.Render(strings.Join(m.log, "\n")) + "\n")
	}
	return b.String()
}

func (m Model) renderGameOver() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Game over") + "\n\n")
	if st := m.settlement; st != nil {
		b.WriteString(fmt.Sprintf("%s after %d hands\n\n", st.Reason, st.Hands))
		for _, p := range st.Players {
			b.WriteString(fmt.Sprintf("  %-12s %6d -> %6d  (%+d)\n", p.PlayerID, p.BuyIn, p.FinalStack, p.Net))
		}
	}
	if len(m.log) > 0 {
		b.WriteString("\n" + BlurredStyle.Render(strings.Join(m.log, "\n")) + "\n")
	}
	b.WriteString(HelpStyle.Render("q: quit"))
	return b.String()
}
