package domain

import (
	"context"
	"time"
)

// Attack is a move that any number of cards can perform
type Attack struct {
	ID          int       `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Title       string    `json:"title" gorm:"not null;type:varchar(255)" validate:"required"`
	MojoCost    int       `json:"mojoCost" gorm:"column:mojo_cost;not null"`
	StaminaCost int       `json:"staminaCost" gorm:"column:stamina_cost;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Cards []Card `json:"cards,omitempty" gorm:"many2many:card_attacks" validate:"-"`
}

// TableName specifies the table name for Attack
func (a Attack) TableName() string {
	return TableAttacks
}

// PrimaryKey returns the surrogate key, zero until persisted
func (a Attack) PrimaryKey() int {
	return a.ID
}

// CreateAttackInput holds the fields accepted when creating an attack
type CreateAttackInput struct {
	Title       string `json:"title" validate:"required"`
	MojoCost    *int   `json:"mojoCost" validate:"required"`
	StaminaCost *int   `json:"staminaCost" validate:"required"`
}

// AttackRepository defines the interface for attack data
type AttackRepository interface {
	Create(ctx context.Context, input CreateAttackInput) (*Attack, error)
	GetByID(ctx context.Context, id int) (*Attack, error)
	Find(ctx context.Context, query Query) (*Attack, error)
	MustFind(ctx context.Context, query Query) (*Attack, error)
	FindAll(ctx context.Context, query Query) ([]*Attack, error)
	Count(ctx context.Context, query Query) (int64, error)
	Update(ctx context.Context, attack *Attack) error
	Delete(ctx context.Context, attack *Attack) error
}

// CardAttack is the junction row linking one card to one attack.
// Rows are removed together with either side.
type CardAttack struct {
	CardID    int       `json:"cardId" gorm:"primaryKey;autoIncrement:false"`
	AttackID  int       `json:"attackId" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"createdAt"`

	Card   *Card   `json:"-" gorm:"foreignKey:CardID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Attack *Attack `json:"-" gorm:"foreignKey:AttackID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName specifies the table name for CardAttack
func (CardAttack) TableName() string {
	return TableCardAttacks
}
