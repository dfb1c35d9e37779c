package repository

import (
	"context"
	"errors"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/saradorri/cardgame/internal/infrastructure/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository implements domain.UserRepository
type UserRepository struct {
	crud[domain.User]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Database, validator *validation.Validator, log *logger.Logger) domain.UserRepository {
	return &UserRepository{crud: newCrud[domain.User](db, validator, log)}
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).Where("username = ?", username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// Create validates input and inserts a new user
func (r *UserRepository) Create(ctx context.Context, input domain.CreateUserInput) (*domain.User, error) {
	verr := r.validator.Check(r.entity, input)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	user := &domain.User{Username: input.Username}
	err := r.db.Mutate(ctx, func(tx *gorm.DB) error {
		if err := r.checkUsername(tx, verr, input.Username, 0); err != nil {
			return err
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(user).Error
	})
	if err != nil {
		r.logger.Warn("Failed to create user", zap.String("username", input.Username), zap.Error(err))
		return nil, err
	}

	r.logger.Info("User created", zap.Int("id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Update writes the columns of an existing user
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.save(ctx, user, func(tx *gorm.DB, id int) error {
		verr := domain.NewValidationError(r.entity)
		if err := r.checkUsername(tx, verr, user.Username, id); err != nil {
			return err
		}
		return verr.OrNil()
	})
}

// checkUsername records a duplicate violation when another user holds the
// name. The unique index still decides under concurrent writers.
func (r *UserRepository) checkUsername(tx *gorm.DB, verr *domain.ValidationError, username string, self int) error {
	var count int64
	err := tx.Model(&domain.User{}).
		Where("username = ? AND id <> ?", username, self).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		verr.Add("username", domain.ReasonDuplicate)
	}
	return nil
}
