package poker

import (
	"sort"
)

// Pot represents the main pot or one side pot.
type Pot struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"` // seat indices of players who can win it, ascending
}

// isEligible checks if a seat is eligible to win this pot
func (p *Pot) isEligible(seat int) bool {
	for _, s := range p.Eligible {
		if s == seat {
			return true
		}
	}
	return false
}

// PotAward records how one pot was paid out.
type PotAward struct {
	Pot     int              `json:"pot"` // 0 is the main pot
	Amount  int64            `json:"amount"`
	Winners []string         `json:"winners"`
	Shares  map[string]int64 `json:"shares"`
	Hand    string           `json:"hand,omitempty"`
}

// ReturnUncalledBet refunds the part of the largest commitment that no
// other player matched. It returns the seat refunded and the amount, or -1
// and 0 when every chip was called.
func ReturnUncalledBet(players []*Player) (int, int64) {
	var hi, second int64
	hiSeat := -1
	for _, p := range players {
		if !p.InHand {
			continue
		}
		switch {
		case p.Committed > hi:
			second = hi
			hi = p.Committed
			hiSeat = p.Seat
		case p.Committed > second:
			second = p.Committed
		}
	}
	if hiSeat < 0 || hi <= second {
		return -1, 0
	}
	uncalled := hi - second
	p := players[hiSeat]
	p.Stack += uncalled
	p.Committed -= uncalled
	if p.Bet >= uncalled {
		p.Bet -= uncalled
	} else {
		p.Bet = 0
	}
	return hiSeat, uncalled
}

// BuildPotsFromTotals builds the main pot and side pots from each player's
// total commitment this hand. Distinct commitment levels are sorted
// ascending; each layer between consecutive levels is a pot that only
// non-folded players who reached the level can win. Folded players' chips
// stay in the layers they reached. Adjacent layers with the same eligible
// players are merged.
func BuildPotsFromTotals(players []*Player) []Pot {
	seen := make(map[int64]bool)
	for _, p := range players {
		if p.Committed > 0 {
			seen[p.Committed] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	levels := make([]int64, 0, len(seen))
	for lvl := range seen {
		levels = append(levels, lvl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	var carry int64
	prev := int64(0)
	for _, lvl := range levels {
		var amount int64
		var eligible []int
		for _, p := range players {
			if p.Committed > prev {
				c := p.Committed
				if c > lvl {
					c = lvl
				}
				amount += c - prev
			}
			if p.isLive() && p.Committed >= lvl {
				eligible = append(eligible, p.Seat)
			}
		}
		prev = lvl

		if len(eligible) == 0 {
			// Only folded players reached this layer; its chips belong to
			// the pot below (or above, if there is none yet).
			if len(pots) > 0 {
				pots[len(pots)-1].Amount += amount
			} else {
				carry += amount
			}
			continue
		}
		amount += carry
		carry = 0

		if n := len(pots); n > 0 && sameSeats(pots[n-1].Eligible, eligible) {
			pots[n-1].Amount += amount
			continue
		}
		pots = append(pots, Pot{Amount: amount, Eligible: eligible})
	}
	return pots
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DistributePots pays every pot to the best hand(s) among its eligible
// players. Players need HandValue set unless they are a pot's only
// eligible player. Split pots are divided evenly; leftover chips go one at
// a time to the winners closest to the dealer's left.
func DistributePots(pots []Pot, players []*Player, dealer int) []PotAward {
	awards := make([]PotAward, 0, len(pots))
	n := len(players)
	for pi, pot := range pots {
		var winners []int
		var best *HandValue
		for _, seat := range pot.Eligible {
			hv := players[seat].HandValue
			if len(pot.Eligible) == 1 || hv == nil {
				if len(pot.Eligible) == 1 {
					winners = []int{seat}
				}
				continue
			}
			switch {
			case best == nil || CompareHands(*hv, *best) > 0:
				best = hv
				winners = []int{seat}
			case CompareHands(*hv, *best) == 0:
				winners = append(winners, seat)
			}
		}
		if len(winners) == 0 {
			continue
		}

		// Order winners by position left of the dealer for odd chips.
		sort.Slice(winners, func(i, j int) bool {
			return seatDistance(dealer, winners[i], n) < seatDistance(dealer, winners[j], n)
		})

		award := PotAward{Pot: pi, Amount: pot.Amount, Shares: make(map[string]int64, len(winners))}
		if best != nil {
			award.Hand = best.Description
		}
		share := pot.Amount / int64(len(winners))
		rem := pot.Amount % int64(len(winners))
		for i, seat := range winners {
			add := share
			if int64(i) < rem {
				add++
			}
			players[seat].Stack += add
			award.Winners = append(award.Winners, players[seat].ID)
			award.Shares[players[seat].ID] = add
		}
		awards = append(awards, award)
	}
	return awards
}

// seatDistance counts seats clockwise from the dealer's left neighbour.
func seatDistance(dealer, seat, n int) int {
	return ((seat-dealer-1)%n + n) % n
}
