package app

import (
	"fmt"

	"github.com/saradorri/cardgame/internal/config"
)

func (a *application) setupViper(path string) error {
	// Get environment (default to development)
	env := config.GetEnvironment()

	c, err := config.Load(path, env)
	if err != nil {
		return err
	}
	a.config = c

	fmt.Printf("[x] Config loaded successfully (%s)\n", env)
	return nil
}
