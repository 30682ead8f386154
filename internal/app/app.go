package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/flowgrid/flowgrid/internal/autopilot"
	"github.com/flowgrid/flowgrid/internal/config"
	"github.com/flowgrid/flowgrid/internal/ctxlog"
	"github.com/flowgrid/flowgrid/internal/provider"
	"github.com/flowgrid/flowgrid/internal/registry"
	"github.com/flowgrid/flowgrid/internal/scheduler"
)

// Config holds everything the CLI resolved for one App instance to run.
type Config struct {
	// Action selects the subcommand: "run", "validate", or "serve".
	Action string
	// FlowPath is the snapshot JSON file for the run action.
	FlowPath string
	// ProposalPath is the proposal JSON file for the validate action.
	ProposalPath string
	// StartNode, when set, re-runs only that node and its downstream closure.
	StartNode string
	// ConfigPath points at the HCL engine config.
	ConfigPath string
	LogFormat  string
	LogLevel   string
	// Strict escalates unknown-port findings to validation failures.
	Strict bool
}

// App encapsulates the engine's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	cfg       *config.Config
	registry  *registry.Registry
	providers provider.Client
	scheduler *scheduler.Scheduler
	validator *autopilot.Validator
}

// NewApp is the constructor for the engine. It returns a fully initialized
// App instance with its own isolated logger and registry. Startup errors are
// fatal and panic; main recovers them into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	cfg, err := config.Load(appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded.", "providers", len(cfg.Providers))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(cfg)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All executor modules registered.", "count", len(modules))

	var providers provider.Client
	if len(cfg.Providers) > 0 {
		providers = provider.NewHTTPClient(cfg.Providers)
	}

	sched := scheduler.New(reg,
		scheduler.WithProviders(providers),
		scheduler.WithMaxConcurrent(cfg.MaxConcurrent),
	)

	var vopts []autopilot.Option
	if appConfig.Strict {
		vopts = append(vopts, autopilot.Strict())
	}

	return &App{
		outW:      outW,
		logger:    logger,
		cfg:       cfg,
		registry:  reg,
		providers: providers,
		scheduler: sched,
		validator: autopilot.NewValidator(reg, vopts...),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Run dispatches the configured action.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	switch appConfig.Action {
	case "run":
		return a.runFlow(ctx, appConfig.FlowPath, appConfig.StartNode)
	case "validate":
		return a.validateProposal(ctx, appConfig.ProposalPath)
	case "serve":
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown action %q", appConfig.Action)
	}
}
