package domain

import (
	"context"
	"time"
)

// Card is a playable card. It sits in at most one deck and knows any number of attacks.
type Card struct {
	ID        int       `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Name      string    `json:"name" gorm:"not null;type:varchar(255)" validate:"required"`
	Mojo      int       `json:"mojo" gorm:"not null"`
	Stamina   int       `json:"stamina" gorm:"not null"`
	ImgURL    string    `json:"imgUrl" gorm:"column:img_url;not null;type:varchar(255)" validate:"required"`
	DeckID    *int      `json:"deckId,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Deck    *Deck    `json:"deck,omitempty" gorm:"foreignKey:DeckID" validate:"-"`
	Attacks []Attack `json:"attacks,omitempty" gorm:"many2many:card_attacks" validate:"-"`
}

// TableName specifies the table name for Card
func (c Card) TableName() string {
	return TableCards
}

// PrimaryKey returns the surrogate key, zero until persisted
func (c Card) PrimaryKey() int {
	return c.ID
}

// CreateCardInput holds the fields accepted when creating a card
type CreateCardInput struct {
	Name    string `json:"name" validate:"required"`
	Mojo    *int   `json:"mojo" validate:"required"`
	Stamina *int   `json:"stamina" validate:"required"`
	ImgURL  string `json:"imgUrl" validate:"required"`
}

// CardRepository defines the interface for card data
type CardRepository interface {
	Create(ctx context.Context, input CreateCardInput) (*Card, error)
	GetByID(ctx context.Context, id int) (*Card, error)
	Find(ctx context.Context, query Query) (*Card, error)
	MustFind(ctx context.Context, query Query) (*Card, error)
	FindAll(ctx context.Context, query Query) ([]*Card, error)
	Count(ctx context.Context, query Query) (int64, error)
	Update(ctx context.Context, card *Card) error
	Delete(ctx context.Context, card *Card) error
}
