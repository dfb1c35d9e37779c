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

// DeckRepository implements domain.DeckRepository
type DeckRepository struct {
	crud[domain.Deck]
}

// NewDeckRepository creates a new deck repository
func NewDeckRepository(db *database.Database, validator *validation.Validator, log *logger.Logger) domain.DeckRepository {
	return &DeckRepository{crud: newCrud[domain.Deck](db, validator, log)}
}

// Create validates input and inserts a new, unowned deck
func (r *DeckRepository) Create(ctx context.Context, input domain.CreateDeckInput) (*domain.Deck, error) {
	if err := r.validator.Check(r.entity, input).OrNil(); err != nil {
		return nil, err
	}

	deck := &domain.Deck{Name: input.Name}
	if input.XP != nil {
		deck.XP = *input.XP
	}

	err := r.db.Mutate(ctx, func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(deck).Error
	})
	if err != nil {
		r.logger.Warn("Failed to create deck", zap.String("name", input.Name), zap.Error(err))
		return nil, err
	}

	r.logger.Info("Deck created", zap.Int("id", deck.ID), zap.String("name", deck.Name))
	return deck, nil
}

// Update writes the columns of an existing deck, owner key included
func (r *DeckRepository) Update(ctx context.Context, deck *domain.Deck) error {
	return r.save(ctx, deck, func(tx *gorm.DB, id int) error {
		if deck.UserID == nil {
			return nil
		}
		if err := requireReference(tx, "decks.user_id", domain.TableUsers, *deck.UserID); err != nil {
			return err
		}
		// a user owns at most one deck
		return tx.Model(&domain.Deck{}).
			Where("user_id = ? AND id <> ?", *deck.UserID, id).
			Update("user_id", nil).Error
	})
}
