// Package main runs the card game data layer: it syncs the schema,
// optionally seeds the starter fixture and reports every player's deck.
//
// Usage:
//
//	cardgame [-e ./config] [-seed] [-user gandalf] [-force]
//
// The environment is taken from CARDGAME_ENV (or ENV) and selects
// config/config.<env>.yml. Any key can be overridden with CARDGAME_*
// variables, e.g. CARDGAME_DATABASE_PATH.
package main

import (
	"context"

	"github.com/saradorri/cardgame/internal/app"
)

func main() {
	ctx := context.Background()
	application := app.NewApplication(ctx)
	application.Setup()
}
