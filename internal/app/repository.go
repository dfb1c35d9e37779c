package app

import (
	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/saradorri/cardgame/internal/infrastructure/repository"
	"github.com/saradorri/cardgame/internal/infrastructure/seeder"
	"github.com/saradorri/cardgame/internal/infrastructure/validation"
)

// InitValidator creates the struct validator shared by every repository
func (a *application) InitValidator() *validation.Validator {
	return validation.New()
}

func (a *application) InitRepository(db *database.Database, v *validation.Validator, log *logger.Logger) (
	domain.UserRepository, domain.DeckRepository, domain.CardRepository, domain.AttackRepository,
) {
	return repository.NewUserRepository(db, v, log),
		repository.NewDeckRepository(db, v, log),
		repository.NewCardRepository(db, v, log),
		repository.NewAttackRepository(db, v, log)
}

// InitAssociations builds the typed relation accessors
func (a *application) InitAssociations(db *database.Database, log *logger.Logger) (*repository.Associations, domain.DeckBuilder, error) {
	assoc, err := repository.NewAssociations(db, log)
	if err != nil {
		return nil, nil, err
	}
	return assoc, assoc, nil
}

func (a *application) InitSeeder(
	users domain.UserRepository,
	decks domain.DeckRepository,
	cards domain.CardRepository,
	attacks domain.AttackRepository,
	builder domain.DeckBuilder,
	log *logger.Logger,
) *seeder.Seeder {
	return seeder.NewSeeder(users, decks, cards, attacks, builder, log)
}
