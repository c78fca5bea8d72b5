package poker

import (
	"fmt"
	"sort"
	"strings"
)

// Describe renders a public event as chat text. Private events and turn
// notices render as "".
func (ev RoomEvent) Describe() string {
	switch p := ev.Payload.(type) {
	case HandStartedPayload:
		return fmt.Sprintf("Hand #%d: %s has the button", ev.HandNum, p.Dealer)
	case BlindsPayload:
		return fmt.Sprintf("%s posts %d, %s posts %d", p.SmallBlindPlayer, p.SmallBlind, p.BigBlindPlayer, p.BigBlind)
	case ActionPayload:
		line := fmt.Sprintf("%s: %s", ev.PlayerID, p.Action)
		if p.AllIn {
			line += " (all-in)"
		}
		if p.Timeout {
			line += " (timed out)"
		}
		return line
	case StreetPayload:
		return fmt.Sprintf("%s: %s", strings.ToLower(string(p.Stage)), FormatCards(p.Community))
	case ShowdownPayload:
		lines := make([]string, 0, len(p.Hands)+len(p.Awards))
		for _, h := range p.Hands {
			lines = append(lines, fmt.Sprintf("%s shows %s (%s)", h.PlayerID, FormatCards(h.Hole), h.Description))
		}
		for _, a := range p.Awards {
			lines = append(lines, a.String())
		}
		return strings.Join(lines, "\n")
	case HandCompletePayload:
		lines := []string{fmt.Sprintf("Hand #%d complete", p.Result.HandNum)}
		// Showdown awards were already announced with the hands.
		if !p.Result.Showdown {
			for _, a := range p.Result.Awards {
				lines = append(lines, a.String())
			}
		}
		return strings.Join(lines, "\n")
	case GameOverPayload:
		return "Game over: " + p.Reason
	}
	return ""
}

func (a PotAward) String() string {
	name := "main pot"
	if a.Pot > 0 {
		name = fmt.Sprintf("side pot %d", a.Pot)
	}
	winners := append([]string(nil), a.Winners...)
	sort.Strings(winners)
	line := fmt.Sprintf("%s wins %s (%d)", strings.Join(winners, ", "), name, a.Amount)
	if a.Hand != "" {
		line += " with " + a.Hand
	}
	return line
}
