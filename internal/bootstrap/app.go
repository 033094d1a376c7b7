// Package bootstrap wires configuration, logging, diagnostics, and the
// conversion controller into one application object for the CLI.
package bootstrap

import (
	"fmt"
	"io"
	"time"

	"audio2video/internal/config"
	"audio2video/internal/convert"
	"audio2video/internal/diagnostics"
	"audio2video/internal/domain"
	"audio2video/internal/jobs"
	"audio2video/internal/logging"
	"audio2video/internal/probe"
)

// App holds the assembled application services.
type App struct {
	Settings   domain.Settings
	Checker    *diagnostics.Checker
	Events     *jobs.EventBus
	Controller *jobs.Controller
}

// LoadSettings loads persisted settings from the given path, or from the
// default location when the path is empty.
func LoadSettings(configPath string) (domain.Settings, config.Store, error) {
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	store := config.NewTOMLStore(configPath)
	settings, err := store.Load()
	if err != nil {
		return domain.Settings{}, nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, store, nil
}

// New builds the application from already-resolved settings. Log output
// goes to logWriter so the progress display keeps stdout to itself.
func New(settings domain.Settings, logWriter io.Writer) (*App, error) {
	settings = config.Normalize(settings)

	logger, err := logging.New(logWriter, logging.Options{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	events := jobs.NewEventBus(1000)
	grace := time.Duration(settings.GraceSeconds) * time.Second
	controller := jobs.NewController(
		convert.NewExecutor(grace),
		probe.NewProber(),
		convert.NewPathResolver(),
		events,
		logger,
		settings,
	)

	return &App{
		Settings:   settings,
		Checker:    diagnostics.NewChecker(),
		Events:     events,
		Controller: controller,
	}, nil
}

// Diagnostics runs the preflight checks against the app settings.
func (a *App) Diagnostics() domain.DiagnosticReport {
	return a.Checker.Run(a.Settings)
}
