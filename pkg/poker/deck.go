package poker

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Deck represents the undealt cards of a hand. The top of the deck is the
// end of the slice; dealt cards are removed, so a card can never be dealt
// twice from the same deck.
type Deck struct {
	cards []Card
}

// orderedCards returns all 52 cards in suit-major order.
func orderedCards() []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			cards = append(cards, Card{rank: rank, suit: suit})
		}
	}
	return cards
}

// NewShuffledDeck builds a fresh 52-card deck and shuffles it with
// Fisher-Yates using crypto/rand, so every ordering is equally likely and
// the order cannot be predicted from any seed.
func NewShuffledDeck() (*Deck, error) {
	cards := orderedCards()
	for i := len(cards) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("failed to read shuffle entropy: %w", err)
		}
		j := int(n.Int64())
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}, nil
}

// NewDeckFromCards creates a deck with a fixed order. The last card of the
// slice is the first one drawn.
func NewDeckFromCards(cards []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// NewStackedDeck creates a deck whose draws come out in exactly the order
// given; cards not listed are placed underneath in a fixed order. Mostly
// useful for scripting hands in tests and tools.
func NewStackedDeck(draws []Card) *Deck {
	used := make(map[Card]bool, len(draws))
	for _, c := range draws {
		used[c] = true
	}
	cards := make([]Card, 0, 52)
	for _, c := range orderedCards() {
		if !used[c] {
			cards = append(cards, c)
		}
	}
	for i := len(draws) - 1; i >= 0; i-- {
		cards = append(cards, draws[i])
	}
	return &Deck{cards: cards}
}

// Draw removes and returns the top card from the deck.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckExhausted
	}
	last := len(d.cards) - 1
	card := d.cards[last]
	d.cards = d.cards[:last]
	return card, nil
}

// Size returns the number of cards remaining in the deck
func (d *Deck) Size() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards, bottom first.
func (d *Deck) Cards() []Card {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return cards
}
