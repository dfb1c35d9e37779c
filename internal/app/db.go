package app

import (
	"context"

	"github.com/saradorri/cardgame/internal/infrastructure/database"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"go.uber.org/fx"
)

// InitDatabase opens the store and closes it when the application stops
func (a *application) InitDatabase(lc fx.Lifecycle, log *logger.Logger) (*database.Database, error) {
	db, err := database.NewDatabase(database.NewConfig(a.config), log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}
