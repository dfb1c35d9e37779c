package repository

import (
	"context"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/saradorri/cardgame/internal/infrastructure/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttackRepository implements domain.AttackRepository
type AttackRepository struct {
	crud[domain.Attack]
}

// NewAttackRepository creates a new attack repository
func NewAttackRepository(db *database.Database, validator *validation.Validator, log *logger.Logger) domain.AttackRepository {
	return &AttackRepository{crud: newCrud[domain.Attack](db, validator, log)}
}

// Create validates input and inserts a new attack
func (r *AttackRepository) Create(ctx context.Context, input domain.CreateAttackInput) (*domain.Attack, error) {
	if err := r.validator.Check(r.entity, input).OrNil(); err != nil {
		return nil, err
	}

	attack := &domain.Attack{
		Title:       input.Title,
		MojoCost:    *input.MojoCost,
		StaminaCost: *input.StaminaCost,
	}

	err := r.db.Mutate(ctx, func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(attack).Error
	})
	if err != nil {
		r.logger.Warn("Failed to create attack", zap.String("title", input.Title), zap.Error(err))
		return nil, err
	}

	r.logger.Info("Attack created", zap.Int("id", attack.ID), zap.String("title", attack.Title))
	return attack, nil
}

// Update writes the columns of an existing attack
func (r *AttackRepository) Update(ctx context.Context, attack *domain.Attack) error {
	return r.save(ctx, attack, nil)
}
