package app

import (
	"io"
	"log/slog"

	"github.com/vk/expgrid/internal/hclcfg"
	"github.com/vk/expgrid/internal/loader"
	"github.com/vk/expgrid/internal/registry"
	"github.com/vk/expgrid/internal/yamlcfg"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   *loader.Loader
	registry *registry.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Command output goes to outW; logs go to errW.
func NewApp(outW, errW io.Writer, config *Config, modules ...registry.Module) *App {
	logger := newLogger(config, errW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All job kinds registered.", "kinds", reg.Kinds())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		loader:   loader.New(yamlcfg.NewParser(), hclcfg.NewParser()),
		registry: reg,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// newLogger builds an isolated logger from an already validated Config.
// NewConfig guarantees the level and format names, so lookups cannot miss.
func newLogger(config *Config, errW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevels[config.LogLevel]}
	if config.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(errW, opts))
	}
	return slog.New(slog.NewTextHandler(errW, opts))
}
