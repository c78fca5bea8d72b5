package poker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Suits lists the four suits in deck-building order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Rank is a card rank by value: 2..10, Jack=11, Queen=12, King=13, Ace=14.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Ranks lists the thirteen ranks from low to high.
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// Symbol returns the short display form of the rank ("2".."10", "J", "Q", "K", "A").
func (r Rank) Symbol() string {
	switch r {
	case Ace:
		return "A"
	case King:
		return "K"
	case Queen:
		return "Q"
	case Jack:
		return "J"
	}
	if r >= Two && r <= Ten {
		return fmt.Sprintf("%d", int(r))
	}
	return "?"
}

var rankNames = map[Rank]string{
	Two: "Two", Three: "Three", Four: "Four", Five: "Five", Six: "Six",
	Seven: "Seven", Eight: "Eight", Nine: "Nine", Ten: "Ten", Jack: "Jack",
	Queen: "Queen", King: "King", Ace: "Ace",
}

// Name returns the English name of the rank, used in hand descriptions.
func (r Rank) Name() string {
	if n, ok := rankNames[r]; ok {
		return n
	}
	return "Unknown"
}

// Plural returns the plural name of the rank ("Sixes", "Kings").
func (r Rank) Plural() string {
	if r == Six {
		return "Sixes"
	}
	return r.Name() + "s"
}

// Card represents a playing card. Cards are values and never mutated.
type Card struct {
	rank Rank
	suit Suit
}

// NewCard creates a card from a rank and suit.
func NewCard(rank Rank, suit Suit) Card {
	return Card{rank: rank, suit: suit}
}

// Rank returns the card's rank.
func (c Card) Rank() Rank {
	return c.rank
}

// Suit returns the card's suit.
func (c Card) Suit() Suit {
	return c.suit
}

// String returns a string representation of the card
func (c Card) String() string {
	return c.rank.Symbol() + string(c.suit)
}

// cardJSON represents a card for JSON serialization
type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// MarshalJSON implements json.Marshaler interface for Card
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{
		Rank: c.rank.Symbol(),
		Suit: string(c.suit),
	})
}

// UnmarshalJSON implements json.Unmarshaler interface for Card
func (c *Card) UnmarshalJSON(data []byte) error {
	var cj cardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	suit, err := parseSuit(cj.Suit)
	if err != nil {
		return err
	}
	rank, err := parseRank(cj.Rank)
	if err != nil {
		return err
	}
	c.rank = rank
	c.suit = suit
	return nil
}

func parseSuit(s string) (Suit, error) {
	switch s {
	case "♠", "s", "S", "spades", "Spades":
		return Spades, nil
	case "♥", "h", "H", "hearts", "Hearts":
		return Hearts, nil
	case "♦", "d", "D", "diamonds", "Diamonds":
		return Diamonds, nil
	case "♣", "c", "C", "clubs", "Clubs":
		return Clubs, nil
	}
	return "", fmt.Errorf("invalid suit: %q", s)
}

func parseRank(s string) (Rank, error) {
	switch strings.ToLower(s) {
	case "a", "ace":
		return Ace, nil
	case "k", "king":
		return King, nil
	case "q", "queen":
		return Queen, nil
	case "j", "jack":
		return Jack, nil
	case "10", "t", "ten":
		return Ten, nil
	case "9", "nine":
		return Nine, nil
	case "8", "eight":
		return Eight, nil
	case "7", "seven":
		return Seven, nil
	case "6", "six":
		return Six, nil
	case "5", "five":
		return Five, nil
	case "4", "four":
		return Four, nil
	case "3", "three":
		return Three, nil
	case "2", "two":
		return Two, nil
	}
	return 0, fmt.Errorf("invalid rank: %q", s)
}

// ParseCard parses short card notation such as "Ah", "Td", "10♣" or "2s".
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Card{}, fmt.Errorf("empty card")
	}
	// The suit is the last rune; everything before it is the rank.
	runes := []rune(s)
	if len(runes) < 2 {
		return Card{}, fmt.Errorf("invalid card: %q", s)
	}
	suit, err := parseSuit(string(runes[len(runes)-1]))
	if err != nil {
		return Card{}, err
	}
	rank, err := parseRank(string(runes[:len(runes)-1]))
	if err != nil {
		return Card{}, err
	}
	return Card{rank: rank, suit: suit}, nil
}

// ParseCards parses a whitespace separated list of cards.
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is like ParseCards but panics on malformed input.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards joins cards with spaces, or returns "None" for an empty slice.
func FormatCards(cards []Card) string {
	if len(cards) == 0 {
		return "None"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
