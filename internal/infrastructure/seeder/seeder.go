package seeder

import (
	"context"
	"fmt"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Seeder handles database seeding operations
type Seeder struct {
	userRepo   domain.UserRepository
	deckRepo   domain.DeckRepository
	cardRepo   domain.CardRepository
	attackRepo domain.AttackRepository
	builder    domain.DeckBuilder
	logger     *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(
	userRepo domain.UserRepository,
	deckRepo domain.DeckRepository,
	cardRepo domain.CardRepository,
	attackRepo domain.AttackRepository,
	builder domain.DeckBuilder,
	log *logger.Logger,
) *Seeder {
	return &Seeder{
		userRepo:   userRepo,
		deckRepo:   deckRepo,
		cardRepo:   cardRepo,
		attackRepo: attackRepo,
		builder:    builder,
		logger:     log.Named("seeder"),
	}
}

func intPtr(v int) *int {
	return &v
}

var (
	starterDeck = domain.CreateDeckInput{Name: "Magic Deck", XP: intPtr(0)}

	starterCards = []domain.CreateCardInput{
		{Name: "Fireball", Mojo: intPtr(20), Stamina: intPtr(15), ImgURL: "http://example.com/fireball.jpg"},
		{Name: "Shield", Mojo: intPtr(10), Stamina: intPtr(25), ImgURL: "http://example.com/shield.jpg"},
	}

	starterAttacks = []domain.CreateAttackInput{
		{Title: "Flame Burst", MojoCost: intPtr(15), StaminaCost: intPtr(10)},
		{Title: "Defend", MojoCost: intPtr(5), StaminaCost: intPtr(20)},
	}
)

// Seed creates the starter user with a deck of two cards and their attacks.
// Rows that already exist are reused, so running it twice is harmless.
func (s *Seeder) Seed(ctx context.Context, username string) error {
	s.logger.Info("Seeding starter data", zap.String("username", username))

	user, err := s.seedUser(ctx, username)
	if err != nil {
		return err
	}

	deck, err := s.deckRepo.Find(ctx, domain.Where(domain.Eq("name", starterDeck.Name)))
	if err != nil {
		return fmt.Errorf("failed to look up deck %q: %w", starterDeck.Name, err)
	}
	if deck == nil {
		if deck, err = s.deckRepo.Create(ctx, starterDeck); err != nil {
			return fmt.Errorf("failed to create deck %q: %w", starterDeck.Name, err)
		}
	}

	cards := make([]*domain.Card, 0, len(starterCards))
	for _, input := range starterCards {
		card, err := s.cardRepo.Find(ctx, domain.Where(domain.Eq("name", input.Name)))
		if err != nil {
			return fmt.Errorf("failed to look up card %q: %w", input.Name, err)
		}
		if card == nil {
			if card, err = s.cardRepo.Create(ctx, input); err != nil {
				return fmt.Errorf("failed to create card %q: %w", input.Name, err)
			}
		}
		cards = append(cards, card)
	}

	attacks := make([]*domain.Attack, 0, len(starterAttacks))
	for _, input := range starterAttacks {
		attack, err := s.attackRepo.Find(ctx, domain.Where(domain.Eq("title", input.Title)))
		if err != nil {
			return fmt.Errorf("failed to look up attack %q: %w", input.Title, err)
		}
		if attack == nil {
			if attack, err = s.attackRepo.Create(ctx, input); err != nil {
				return fmt.Errorf("failed to create attack %q: %w", input.Title, err)
			}
		}
		attacks = append(attacks, attack)
	}

	if err := s.builder.AssignDeck(ctx, user, deck); err != nil {
		return fmt.Errorf("failed to assign deck: %w", err)
	}
	if err := s.builder.AddCards(ctx, deck, cards...); err != nil {
		return fmt.Errorf("failed to add cards: %w", err)
	}

	// Fireball knows both attacks, Shield only Flame Burst
	if err := s.builder.AddAttacks(ctx, cards[0], attacks...); err != nil {
		return fmt.Errorf("failed to add attacks to %s: %w", cards[0].Name, err)
	}
	if err := s.builder.AddAttacks(ctx, cards[1], attacks[0]); err != nil {
		return fmt.Errorf("failed to add attacks to %s: %w", cards[1].Name, err)
	}

	s.logger.Info("Seeding completed successfully",
		zap.Int("userId", user.ID),
		zap.Int("deckId", deck.ID),
		zap.Int("cards", len(cards)),
		zap.Int("attacks", len(attacks)))
	return nil
}

func (s *Seeder) seedUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %q: %w", username, err)
	}
	if user != nil {
		s.logger.Debug("User already exists, skipping", zap.String("username", username))
		return user, nil
	}

	user, err = s.userRepo.Create(ctx, domain.CreateUserInput{Username: username})
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return user, nil
}
