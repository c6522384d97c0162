package main

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/audit"
	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/dispatch"
	"github.com/kestrelhq/kestrel/internal/executor"
	"github.com/kestrelhq/kestrel/internal/packet"
	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Task decomposition, governance & dispatch engine",
	Long: `Kestrel turns free-form requests into governed, dispatchable work.

Every request runs through a fixed pipeline: intent normalization, task
graph decomposition, a governance and cost gate, and a routing decision.
Cleared requests become tracked tasks whose steps are routed to capability
owners, with lifecycle events streamed to subscribers and terminal tasks
archived to a local journal.

Core capabilities:
- Detects intent signals and flags ambiguous requests
- Decomposes work into a dependency graph with a critical path
- Classifies risk, grants permissions, and estimates cost before any work runs
- Routes each step to the right capability owner by keyword
- Tracks task lifecycle with ordered events and TTL eviction`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtime bundles the wired engine for the run/tasks/watch commands.
type runtime struct {
	cfg        *config.Config
	builder    *packet.Builder
	dispatcher *dispatch.Dispatcher
	journal    *state.Journal
	ledger     *audit.Ledger
	logger     *dispatch.DebugLogger
}

// newRuntime loads configuration and wires the registry, pipeline runner,
// journal, and dispatcher together.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := dispatch.NewDebugLogger(cfg.Debug.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}

	ledger := audit.NewLedger()

	registry := executor.NewRegistry()
	for _, owner := range executor.BuiltinOwners() {
		registry.Register(owner)
	}
	if cfg.Anthropic.APIKey != "" {
		provider, err := executor.NewAnthropicExecutor(executor.AnthropicConfig{
			APIKey: cfg.Anthropic.APIKey,
			Model:  anthropic.Model(cfg.Anthropic.Model),
		})
		if err == nil {
			registry.Register(provider)
		}
	}

	routes := pipeline.DefaultRoutes()
	if cfg.Routing.RulesPath != "" {
		loaded, err := pipeline.LoadRoutes(cfg.Routing.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load routing rules: %w", err)
		}
		routes = loaded
	}
	registry.Register(pipeline.NewRunner(pipeline.RunnerConfig{
		Registry: registry,
		Routes:   routes,
		MaxSteps: cfg.Dispatch.MaxSteps,
		Ledger:   ledger,
		Logger:   logger,
	}))

	var journal *state.Journal
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = state.DefaultJournalPath()
		}
		journal, err = state.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	dispatcherCfg := dispatch.Config{
		Registry: registry,
		TTL:      cfg.Dispatch.TaskTTL,
		Logger:   logger,
		Ledger:   ledger,
	}
	if journal != nil {
		dispatcherCfg.Journal = journal
	}

	return &runtime{
		cfg:        cfg,
		builder:    packet.NewBuilderWith(nil, cfg.Cost.USDPerToken),
		dispatcher: dispatch.NewDispatcher(dispatcherCfg),
		journal:    journal,
		ledger:     ledger,
		logger:     logger,
	}, nil
}

// close releases the runtime's resources.
func (r *runtime) close() {
	if r.journal != nil {
		r.journal.Close()
	}
	r.logger.Close()
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
