package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/metalake-labs/mdlh/internal/adapter"
	"github.com/metalake-labs/mdlh/internal/config"
	"github.com/metalake-labs/mdlh/internal/refresh"
	"github.com/metalake-labs/mdlh/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Store  *state.SQLiteStore
}

// NewCommandContext opens and migrates the snapshot store. Returns the
// context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig(cmd)
	logger := config.GetLogger(cmd.Context())

	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Store:  store,
	}, cleanup, nil
}

// getConfig returns the loaded configuration from the command context.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	// Commands are always run under the root's PersistentPreRunE; a bare
	// default keeps direct test invocations working.
	return &config.Config{
		StatePath: config.DefaultStateFile,
		Output:    config.DefaultOutput,
	}
}

// connectSource connects the configured source adapter.
func (c *CommandContext) connectSource(ctx context.Context) (adapter.Adapter, error) {
	src, err := adapter.NewAdapter(c.Cfg.Source.AdapterConfig())
	if err != nil {
		return nil, err
	}
	if err := src.Connect(ctx, c.Cfg.Source.AdapterConfig()); err != nil {
		return nil, fmt.Errorf("failed to connect to source: %w", err)
	}
	return src, nil
}

// newRunner builds a refresh runner over a connected source.
func (c *CommandContext) newRunner(source adapter.Adapter) *refresh.Runner {
	return refresh.NewRunner(c.Store, source, refresh.Options{
		EntityTables:  c.Cfg.Source.EntityTables,
		EdgeTables:    c.Cfg.Source.EdgeTables,
		KeepSnapshots: c.Cfg.Refresh.KeepSnapshots,
	}, c.Logger)
}

// outputFormat resolves the effective output format for a command.
func (c *CommandContext) outputFormat() string {
	if c.Cfg.Output != "" {
		return c.Cfg.Output
	}
	return config.DefaultOutput
}
