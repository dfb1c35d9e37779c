package app

import (
	"context"

	"github.com/saradorri/cardgame/internal/config"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"go.uber.org/fx"
)

// InitLogger creates a new logger instance
func (a *application) InitLogger(lc fx.Lifecycle) *logger.Logger {
	l := logger.NewLogger(config.GetEnvironment(), a.config.Log.Level)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// stderr cannot be synced on some platforms
			_ = l.Sync()
			return nil
		},
	})
	return l
}
