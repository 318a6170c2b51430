package commands

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/healthdw/internal/cli/config"
	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/internal/state"
	"github.com/leapstack-labs/healthdw/pkg/adapter"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd.
func NewCommandContext(cmd *cobra.Command, mode output.OutputMode) *CommandContext {
	return &CommandContext{
		Cfg:      getConfig(),
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// getConfig returns the loaded configuration, or the defaults when the
// command runs without the root command's pre-run hook.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := config.Default()
	config.ApplyTargetDefaults(cfg.Target)
	return cfg
}

// OpenWarehouse connects to the configured warehouse target.
func (c *CommandContext) OpenWarehouse(ctx context.Context) (core.Adapter, error) {
	return c.connect(ctx, c.Cfg.Target.AdapterConfig())
}

// OpenQueryWarehouse connects for running user queries. A DuckDB file is
// opened read-only; Postgres queries already run in read-only transactions.
func (c *CommandContext) OpenQueryWarehouse(ctx context.Context) (core.Adapter, error) {
	cfg := c.Cfg.Target.AdapterConfig()
	if strings.EqualFold(cfg.Type, "duckdb") {
		params := maps.Clone(cfg.Params)
		if params == nil {
			params = make(map[string]any, 1)
		}
		params["read_only"] = true
		cfg.Params = params
	}
	return c.connect(ctx, cfg)
}

func (c *CommandContext) connect(ctx context.Context, cfg core.AdapterConfig) (core.Adapter, error) {
	adp, err := adapter.NewAdapter(cfg, c.Logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s warehouse: %w", c.Cfg.Target.Type, err)
	}
	return adp, nil
}

// OpenStore opens the run ledger, creating its directory and schema as needed.
func (c *CommandContext) OpenStore() (core.Store, error) {
	if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
