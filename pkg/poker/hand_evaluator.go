package poker

import (
	"fmt"
	"sort"
)

// HandRank represents the category of a poker hand. A royal flush is the
// ace-high StraightFlush and is only distinguished in descriptions.
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	}
	return "Unknown"
}

// HandValue represents a complete evaluation of a hand. Two values compare
// by Rank first and then lexicographically by Tiebreak.
type HandValue struct {
	Rank        HandRank
	Tiebreak    []int  // rank values that matter for the category, most significant first
	BestHand    []Card // the cards that make up the hand, highest first
	Description string
}

// IsRoyal reports whether the hand is an ace-high straight flush.
func (h HandValue) IsRoyal() bool {
	return h.Rank == StraightFlush && len(h.Tiebreak) > 0 && h.Tiebreak[0] == int(Ace)
}

// EvaluateHand evaluates a player's best 5-card hand from their hole cards
// and 0-5 community cards. Before the flop the result is a HighCard
// evaluation of the hole cards alone.
func EvaluateHand(holeCards []Card, communityCards []Card) HandValue {
	if len(communityCards) < 3 {
		sorted := append([]Card(nil), holeCards...)
		sortCardsByRank(sorted)
		tiebreak := make([]int, len(sorted))
		for i, c := range sorted {
			tiebreak[i] = int(c.rank)
		}
		hv := HandValue{Rank: HighCard, Tiebreak: tiebreak, BestHand: sorted}
		hv.Description = describeHand(hv)
		return hv
	}

	allCards := make([]Card, 0, len(holeCards)+len(communityCards))
	allCards = append(allCards, holeCards...)
	allCards = append(allCards, communityCards...)

	var best HandValue
	found := false
	for _, combo := range generateCombinations(allCards, 5) {
		hv := evaluateFive(combo)
		if !found || CompareHands(hv, best) > 0 {
			best = hv
			found = true
		}
	}
	best.Description = describeHand(best)
	return best
}

// evaluateFive ranks exactly five cards.
func evaluateFive(cards []Card) HandValue {
	sorted := append([]Card(nil), cards...)
	sortCardsByRank(sorted)

	isFlush := true
	for _, c := range sorted[1:] {
		if c.suit != sorted[0].suit {
			isFlush = false
			break
		}
	}

	straightHigh, isStraight := straightHighCard(sorted)

	// Group ranks by count, larger groups first, then higher rank first.
	counts := make(map[Rank]int, 5)
	for _, c := range sorted {
		counts[c.rank]++
	}
	type group struct {
		rank  Rank
		count int
	}
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	grouped := make([]int, len(groups))
	for i, g := range groups {
		grouped[i] = int(g.rank)
	}
	// Cards ordered by group so BestHand reads naturally (KK 777 -> 777 KK).
	ordered := make([]Card, 0, 5)
	for _, g := range groups {
		for _, c := range sorted {
			if c.rank == g.rank {
				ordered = append(ordered, c)
			}
		}
	}

	switch {
	case isStraight && isFlush:
		return HandValue{Rank: StraightFlush, Tiebreak: straightTiebreak(straightHigh), BestHand: straightOrder(sorted, straightHigh)}
	case groups[0].count == 4:
		return HandValue{Rank: FourOfAKind, Tiebreak: grouped, BestHand: ordered}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandValue{Rank: FullHouse, Tiebreak: grouped, BestHand: ordered}
	case isFlush:
		return HandValue{Rank: Flush, Tiebreak: ranksOf(sorted), BestHand: sorted}
	case isStraight:
		return HandValue{Rank: Straight, Tiebreak: straightTiebreak(straightHigh), BestHand: straightOrder(sorted, straightHigh)}
	case groups[0].count == 3:
		return HandValue{Rank: ThreeOfAKind, Tiebreak: grouped, BestHand: ordered}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandValue{Rank: TwoPair, Tiebreak: grouped, BestHand: ordered}
	case groups[0].count == 2:
		return HandValue{Rank: Pair, Tiebreak: grouped, BestHand: ordered}
	}
	return HandValue{Rank: HighCard, Tiebreak: ranksOf(sorted), BestHand: sorted}
}

// straightHighCard returns the high card of a straight made by five cards
// sorted high to low. The wheel (A-2-3-4-5) is five-high.
func straightHighCard(sorted []Card) (Rank, bool) {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].rank == sorted[i-1].rank {
			return 0, false
		}
	}
	if sorted[0].rank == Ace && sorted[1].rank == Five && sorted[4].rank == Two {
		return Five, true
	}
	if sorted[0].rank-sorted[4].rank == 4 {
		return sorted[0].rank, true
	}
	return 0, false
}

// straightTiebreak lists the straight's ranks from its high card down; the
// ace of a wheel counts as 1.
func straightTiebreak(high Rank) []int {
	tb := make([]int, 5)
	for i := range tb {
		tb[i] = int(high) - i
	}
	return tb
}

// straightOrder moves a wheel's ace to the bottom so the cards read 5-4-3-2-A.
func straightOrder(sorted []Card, high Rank) []Card {
	if high != Five || sorted[0].rank != Ace {
		return sorted
	}
	out := append([]Card(nil), sorted[1:]...)
	return append(out, sorted[0])
}

func ranksOf(cards []Card) []int {
	r := make([]int, len(cards))
	for i, c := range cards {
		r[i] = int(c.rank)
	}
	return r
}

// CompareHands compares two hand values and returns:
// -1 if handA < handB (handA is worse)
// 0 if handA == handB (tie)
// 1 if handA > handB (handA is better)
func CompareHands(handA, handB HandValue) int {
	if handA.Rank != handB.Rank {
		if handA.Rank < handB.Rank {
			return -1
		}
		return 1
	}
	n := len(handA.Tiebreak)
	if len(handB.Tiebreak) > n {
		n = len(handB.Tiebreak)
	}
	for i := 0; i < n; i++ {
		var a, b int
		if i < len(handA.Tiebreak) {
			a = handA.Tiebreak[i]
		}
		if i < len(handB.Tiebreak) {
			b = handB.Tiebreak[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

// describeHand returns a human-readable description such as "Pair of Kings".
func describeHand(h HandValue) string {
	if len(h.Tiebreak) == 0 {
		return h.Rank.String()
	}
	top := Rank(h.Tiebreak[0])
	switch h.Rank {
	case StraightFlush:
		if h.IsRoyal() {
			return "Royal Flush"
		}
		return fmt.Sprintf("Straight Flush, %s high", top.Name())
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", top.Plural())
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", top.Plural(), Rank(h.Tiebreak[1]).Plural())
	case Flush:
		return fmt.Sprintf("Flush, %s high", top.Name())
	case Straight:
		return fmt.Sprintf("Straight, %s high", top.Name())
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", top.Plural())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", top.Plural(), Rank(h.Tiebreak[1]).Plural())
	case Pair:
		return fmt.Sprintf("Pair of %s", top.Plural())
	}
	return fmt.Sprintf("High Card, %s", top.Name())
}

// generateCombinations generates all possible k-combinations from a slice of cards
func generateCombinations(cards []Card, k int) [][]Card {
	var combinations [][]Card

	if k > len(cards) || k <= 0 {
		return combinations
	}

	var generate func(start int, current []Card)
	generate = func(start int, current []Card) {
		if len(current) == k {
			combination := make([]Card, k)
			copy(combination, current)
			combinations = append(combinations, combination)
			return
		}

		for i := start; i <= len(cards)-(k-len(current)); i++ {
			generate(i+1, append(current, cards[i]))
		}
	}

	generate(0, make([]Card, 0, k))
	return combinations
}

// sortCardsByRank sorts cards by rank, highest first. Ties keep suit order
// stable so results are deterministic.
func sortCardsByRank(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].rank > cards[j].rank
	})
}
