package domain

import "context"

//go:generate mockgen -destination=mocks/mock_repositories.go -package=mocks github.com/saradorri/cardgame/internal/domain AttackRepository,CardRepository,DeckBuilder,DeckRepository,UserRepository

// Entity is implemented by every persisted model with a surrogate key
type Entity interface {
	TableName() string
	PrimaryKey() int
}

// Models returns one instance of every table model, junction last
func Models() []interface{} {
	return []interface{}{&User{}, &Deck{}, &Attack{}, &Card{}, &CardAttack{}}
}

// NewModel returns a fresh pointer to the model stored in the table, or nil
func NewModel(table string) interface{} {
	switch table {
	case TableUsers:
		return &User{}
	case TableDecks:
		return &Deck{}
	case TableCards:
		return &Card{}
	case TableAttacks:
		return &Attack{}
	case TableCardAttacks:
		return &CardAttack{}
	default:
		return nil
	}
}

// EntityName returns the display name of the entity stored in the table
func EntityName(table string) string {
	switch table {
	case TableUsers:
		return "User"
	case TableDecks:
		return "Deck"
	case TableCards:
		return "Card"
	case TableAttacks:
		return "Attack"
	case TableCardAttacks:
		return "CardAttack"
	default:
		return table
	}
}

// DeckBuilder wires persisted users, decks, cards and attacks together
type DeckBuilder interface {
	AssignDeck(ctx context.Context, user *User, deck *Deck) error
	AddCards(ctx context.Context, deck *Deck, cards ...*Card) error
	AddAttacks(ctx context.Context, card *Card, attacks ...*Attack) error
}
