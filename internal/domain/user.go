package domain

import (
	"context"
	"time"
)

// User represents a player in the system
type User struct {
	ID        int       `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null;type:varchar(255)" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Deck *Deck `json:"deck,omitempty" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" validate:"-"`
}

// TableName specifies the table name for User
func (u User) TableName() string {
	return TableUsers
}

// PrimaryKey returns the surrogate key, zero until persisted
func (u User) PrimaryKey() int {
	return u.ID
}

// CreateUserInput holds the fields accepted when creating a user
type CreateUserInput struct {
	Username string `json:"username" validate:"required"`
}

// UserRepository defines the interface for user data
type UserRepository interface {
	Create(ctx context.Context, input CreateUserInput) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Find(ctx context.Context, query Query) (*User, error)
	MustFind(ctx context.Context, query Query) (*User, error)
	FindAll(ctx context.Context, query Query) ([]*User, error)
	Count(ctx context.Context, query Query) (int64, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, user *User) error
}
