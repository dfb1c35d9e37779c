package app

import (
	"context"

	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"github.com/saradorri/cardgame/internal/infrastructure/seeder"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Run syncs the schema on start, seeds when asked, reports every player
// with their deck and shuts the application down
func (a *application) Run(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	db *database.Database,
	users domain.UserRepository,
	s *seeder.Seeder,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Sync(ctx, database.SyncOptions{Force: a.force}); err != nil {
				return err
			}

			if a.seed {
				if err := s.Seed(ctx, a.username); err != nil {
					return err
				}
			}

			if err := report(ctx, users, log); err != nil {
				return err
			}
			return shutdowner.Shutdown()
		},
	})
}

func report(ctx context.Context, users domain.UserRepository, log *logger.Logger) error {
	all, err := users.FindAll(ctx, domain.Query{}.With("Deck.Cards.Attacks"))
	if err != nil {
		return err
	}

	log.Info("Players loaded", zap.Int("count", len(all)))
	for _, u := range all {
		if u.Deck == nil {
			log.Info("Player has no deck", zap.String("username", u.Username))
			continue
		}
		for _, c := range u.Deck.Cards {
			attacks := make([]string, 0, len(c.Attacks))
			for _, at := range c.Attacks {
				attacks = append(attacks, at.Title)
			}
			log.Info("Card",
				zap.String("username", u.Username),
				zap.String("deck", u.Deck.Name),
				zap.String("card", c.Name),
				zap.Int("mojo", c.Mojo),
				zap.Int("stamina", c.Stamina),
				zap.Strings("attacks", attacks))
		}
	}
	return nil
}
