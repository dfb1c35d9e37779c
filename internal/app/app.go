package app

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/saradorri/cardgame/internal/config"
	"github.com/saradorri/cardgame/internal/infrastructure/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Application provides application level setup
type Application interface {
	Setup()
	GetContext() context.Context
}

// application represents context, configuration and command line options
type application struct {
	ctx      context.Context
	config   *config.Config
	force    bool
	seed     bool
	username string
}

// NewApplication creates a new application
func NewApplication(ctx context.Context) Application {
	return &application{ctx: ctx}
}

// GetContext returns application context
func (a *application) GetContext() context.Context {
	return a.ctx
}

// Setup creates a new fx application with all modules, syncs the schema,
// optionally seeds it and prints what the store holds
func (a *application) Setup() {
	fmt.Println("[x] Starting Card Game data layer...")

	path := flag.String("e", "./config", "config file directory")
	flag.BoolVar(&a.force, "force", false, "drop every table before syncing (requires database.allowReset)")
	flag.BoolVar(&a.seed, "seed", false, "load the starter user, deck, cards and attacks")
	flag.StringVar(&a.username, "user", "gandalf", "username of the seeded player")
	flag.Parse()

	err := a.setupViper(*path)
	if err != nil {
		log.Panic(err.Error())
	}

	app := fx.New(
		fx.WithLogger(func(l *logger.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx").Zap()}
		}),
		fx.Provide(
			a.InitLogger,
			a.InitValidator,
			a.InitDatabase,
			a.InitRepository,
			a.InitAssociations,
			a.InitSeeder,
		),
		fx.Invoke(a.Run),
	)

	app.Run()
}
