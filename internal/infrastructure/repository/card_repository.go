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

// CardRepository implements domain.CardRepository
type CardRepository struct {
	crud[domain.Card]
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *database.Database, validator *validation.Validator, log *logger.Logger) domain.CardRepository {
	return &CardRepository{crud: newCrud[domain.Card](db, validator, log)}
}

// Create validates input and inserts a new card outside any deck
func (r *CardRepository) Create(ctx context.Context, input domain.CreateCardInput) (*domain.Card, error) {
	if err := r.validator.Check(r.entity, input).OrNil(); err != nil {
		return nil, err
	}

	card := &domain.Card{
		Name:    input.Name,
		Mojo:    *input.Mojo,
		Stamina: *input.Stamina,
		ImgURL:  input.ImgURL,
	}

	err := r.db.Mutate(ctx, func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(card).Error
	})
	if err != nil {
		r.logger.Warn("Failed to create card", zap.String("name", input.Name), zap.Error(err))
		return nil, err
	}

	r.logger.Info("Card created", zap.Int("id", card.ID), zap.String("name", card.Name))
	return card, nil
}

// Update writes the columns of an existing card, deck key included
func (r *CardRepository) Update(ctx context.Context, card *domain.Card) error {
	return r.save(ctx, card, func(tx *gorm.DB, _ int) error {
		if card.DeckID == nil {
			return nil
		}
		return requireReference(tx, "cards.deck_id", domain.TableDecks, *card.DeckID)
	})
}
