// Package app assembles the runtime components of a combination run: the
// loaded configuration and the worker pools that read FITS files.
package app

import (
	"context"

	"github.com/earwighaven/masterflatmaker/internal/config"
)

// Application holds the initialized runtime components and configuration
type Application struct {
	Config *config.Config
	Reader *FileReader
}

// New creates and initializes a new Application from configuration
func New(ctx context.Context, cfg *config.Config) *Application {
	return &Application{
		Config: cfg,
		Reader: NewFileReader(ctx, cfg.Workers.Readers),
	}
}

// Shutdown gracefully stops all application components
func (a *Application) Shutdown() {
	if a.Reader != nil {
		a.Reader.Shutdown()
	}
}
