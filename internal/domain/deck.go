package domain

import (
	"context"
	"time"
)

// Deck is a named collection of cards, owned by at most one user
type Deck struct {
	ID        int       `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Name      string    `json:"name" gorm:"not null;type:varchar(255)" validate:"required"`
	XP        int       `json:"xp" gorm:"column:xp;not null;default:0"`
	UserID    *int      `json:"userId,omitempty" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User  *User  `json:"user,omitempty" gorm:"foreignKey:UserID" validate:"-"`
	Cards []Card `json:"cards,omitempty" gorm:"foreignKey:DeckID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" validate:"-"`
}

// TableName specifies the table name for Deck
func (d Deck) TableName() string {
	return TableDecks
}

// PrimaryKey returns the surrogate key, zero until persisted
func (d Deck) PrimaryKey() int {
	return d.ID
}

// CreateDeckInput holds the fields accepted when creating a deck.
// A nil XP is stored as 0.
type CreateDeckInput struct {
	Name string `json:"name" validate:"required"`
	XP   *int   `json:"xp"`
}

// DeckRepository defines the interface for deck data
type DeckRepository interface {
	Create(ctx context.Context, input CreateDeckInput) (*Deck, error)
	GetByID(ctx context.Context, id int) (*Deck, error)
	Find(ctx context.Context, query Query) (*Deck, error)
	MustFind(ctx context.Context, query Query) (*Deck, error)
	FindAll(ctx context.Context, query Query) ([]*Deck, error)
	Count(ctx context.Context, query Query) (int64, error)
	Update(ctx context.Context, deck *Deck) error
	Delete(ctx context.Context, deck *Deck) error
}
