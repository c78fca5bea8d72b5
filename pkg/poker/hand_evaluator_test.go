package poker

import (
	"math/rand"
	"sort"
	"testing"

	cpoker "github.com/chehsunliu/poker"
	"github.com/stretchr/testify/require"
)

func TestEvaluateHand(t *testing.T) {
	tests := []struct {
		name      string
		hole      string
		community string
		wantRank  HandRank
		wantBreak []int
		wantDesc  string
	}{
		{
			name:      "Royal Flush",
			hole:      "Ah Kh",
			community: "Qh Jh Th 3c 4d",
			wantRank:  StraightFlush,
			wantBreak: []int{14, 13, 12, 11, 10},
			wantDesc:  "Royal Flush",
		},
		{
			name:      "Straight Flush",
			hole:      "9s 8s",
			community: "7s 6s 5s 2h 3d",
			wantRank:  StraightFlush,
			wantBreak: []int{9, 8, 7, 6, 5},
			wantDesc:  "Straight Flush, Nine high",
		},
		{
			name:      "Four of a Kind",
			hole:      "Ah As",
			community: "Ac Ad Kh Qc Js",
			wantRank:  FourOfAKind,
			wantBreak: []int{14, 13},
			wantDesc:  "Four of a Kind, Aces",
		},
		{
			name:      "Full House",
			hole:      "Kh Ks",
			community: "Kc 7d 7h 2c 3s",
			wantRank:  FullHouse,
			wantBreak: []int{13, 7},
			wantDesc:  "Full House, Kings full of Sevens",
		},
		{
			name:      "Flush",
			hole:      "Ah 9h",
			community: "6h 4h 2h Kc Kd",
			wantRank:  Flush,
			wantBreak: []int{14, 9, 6, 4, 2},
			wantDesc:  "Flush, Ace high",
		},
		{
			name:      "Straight",
			hole:      "9c 8d",
			community: "7h 6s 5c Ac Kd",
			wantRank:  Straight,
			wantBreak: []int{9, 8, 7, 6, 5},
			wantDesc:  "Straight, Nine high",
		},
		{
			name:      "Three of a Kind",
			hole:      "Qh Qs",
			community: "Qc 9d 4h 2c 7s",
			wantRank:  ThreeOfAKind,
			wantBreak: []int{12, 9, 7},
			wantDesc:  "Three of a Kind, Queens",
		},
		{
			name:      "Two Pair",
			hole:      "Jh Js",
			community: "4c 4d Ah 2c 7s",
			wantRank:  TwoPair,
			wantBreak: []int{11, 4, 14},
			wantDesc:  "Two Pair, Jacks and Fours",
		},
		{
			name:      "Pair",
			hole:      "Kh Ks",
			community: "9c 6d 4h 2c 3s",
			wantRank:  Pair,
			wantBreak: []int{13, 9, 6, 4},
			wantDesc:  "Pair of Kings",
		},
		{
			name:      "High Card",
			hole:      "Ah Js",
			community: "9c 6d 4h 2c 3s",
			wantRank:  HighCard,
			wantBreak: []int{14, 11, 9, 6, 4},
			wantDesc:  "High Card, Ace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hv := EvaluateHand(MustParseCards(tt.hole), MustParseCards(tt.community))
			require.Equal(t, tt.wantRank, hv.Rank)
			require.Equal(t, tt.wantBreak, hv.Tiebreak)
			require.Equal(t, tt.wantDesc, hv.Description)
			require.Len(t, hv.BestHand, 5)
		})
	}
}

func TestWheelStraight(t *testing.T) {
	wheel := EvaluateHand(MustParseCards("Ah 2d"), MustParseCards("3c 4s 5h Kd Qc"))
	require.Equal(t, Straight, wheel.Rank)
	require.Equal(t, []int{5, 4, 3, 2, 1}, wheel.Tiebreak)
	require.Equal(t, "Straight, Five high", wheel.Description)
	// The ace plays low, so it reads last.
	require.Equal(t, Ace, wheel.BestHand[4].Rank())

	sixHigh := EvaluateHand(MustParseCards("2h 3d"), MustParseCards("4c 5s 6h Kd Qc"))
	require.Equal(t, Straight, sixHigh.Rank)
	require.Equal(t, -1, CompareHands(wheel, sixHigh))
	require.Equal(t, 1, CompareHands(sixHigh, wheel))
}

func TestRoyalFlushBeatsStraightFlush(t *testing.T) {
	royal := EvaluateHand(MustParseCards("As Ks"), MustParseCards("Qs Js Ts 2d 3c"))
	kingHigh := EvaluateHand(MustParseCards("Ks Qs"), MustParseCards("Js Ts 9s 2d 3c"))
	steelWheel := EvaluateHand(MustParseCards("As 2s"), MustParseCards("3s 4s 5s Kd Qc"))

	require.True(t, royal.IsRoyal())
	require.False(t, kingHigh.IsRoyal())
	require.False(t, steelWheel.IsRoyal())
	require.Equal(t, 1, CompareHands(royal, kingHigh))
	require.Equal(t, 1, CompareHands(royal, steelWheel))
	require.Equal(t, 1, CompareHands(kingHigh, steelWheel))
}

func TestKickersDecide(t *testing.T) {
	board := MustParseCards("Kc Kd 8h 5s 2c")
	aceKicker := EvaluateHand(MustParseCards("Ah 3d"), board)
	queenKicker := EvaluateHand(MustParseCards("Qh 3s"), board)
	require.Equal(t, 1, CompareHands(aceKicker, queenKicker))

	// Both play the board.
	a := EvaluateHand(MustParseCards("2h 3h"), MustParseCards("Ac Kd Qh Js 9c"))
	b := EvaluateHand(MustParseCards("4s 3c"), MustParseCards("Ac Kd Qh Js 9c"))
	require.Equal(t, 0, CompareHands(a, b))
}

func TestEvaluateBeforeFlop(t *testing.T) {
	hv := EvaluateHand(MustParseCards("7d Ah"), nil)
	require.Equal(t, HighCard, hv.Rank)
	require.Equal(t, []int{14, 7}, hv.Tiebreak)
}

func TestGenerateCombinations(t *testing.T) {
	cards := MustParseCards("2c 3c 4c 5c 6c 7c 8c")
	require.Len(t, generateCombinations(cards, 5), 21)
	require.Len(t, generateCombinations(cards[:6], 5), 6)
	require.Empty(t, generateCombinations(cards[:4], 5))
}

// oracleCard converts a card to the chehsunliu/poker representation.
func oracleCard(c Card) cpoker.Card {
	rank := c.Rank().Symbol()
	if c.Rank() == Ten {
		rank = "T"
	}
	var suit string
	switch c.Suit() {
	case Spades:
		suit = "s"
	case Hearts:
		suit = "h"
	case Diamonds:
		suit = "d"
	case Clubs:
		suit = "c"
	}
	return cpoker.NewCard(rank + suit)
}

func oracleClass(rank HandRank) int32 {
	// chehsunliu ranks classes 1 (straight flush) through 9 (high card).
	return int32(9 - int(rank))
}

// TestEvaluatorAgainstOracle checks categories and ordering of random
// seven-card hands against an independent evaluator.
func TestEvaluatorAgainstOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	all := orderedCards()

	type scored struct {
		ours   HandValue
		oracle int32 // lower is better
	}
	hands := make([]scored, 0, 400)
	for i := 0; i < 400; i++ {
		rng.Shuffle(len(all), func(a, b int) { all[a], all[b] = all[b], all[a] })
		seven := append([]Card(nil), all[:7]...)

		hv := EvaluateHand(seven[:2], seven[2:])
		oc := make([]cpoker.Card, len(seven))
		for j, c := range seven {
			oc[j] = oracleCard(c)
		}
		score := cpoker.Evaluate(oc)
		require.Equal(t, cpoker.RankClass(score), oracleClass(hv.Rank),
			"category mismatch for %s: ours %s, oracle %s", FormatCards(seven), hv.Rank, cpoker.RankString(score))
		hands = append(hands, scored{ours: hv, oracle: score})
	}

	for i := 0; i < len(hands); i++ {
		for j := i + 1; j < len(hands); j++ {
			got := CompareHands(hands[i].ours, hands[j].ours)
			var want int
			switch {
			case hands[i].oracle < hands[j].oracle:
				want = 1
			case hands[i].oracle > hands[j].oracle:
				want = -1
			}
			require.Equal(t, want, got, "ordering mismatch between %v and %v", hands[i].ours, hands[j].ours)
		}
	}

	// Sorting by CompareHands must agree with the oracle's order.
	sort.SliceStable(hands, func(a, b int) bool {
		return CompareHands(hands[a].ours, hands[b].ours) > 0
	})
	for i := 1; i < len(hands); i++ {
		require.LessOrEqual(t, hands[i-1].oracle, hands[i].oracle)
	}
}
