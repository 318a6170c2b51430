package commands

import (
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/internal/ui"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Open bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API",
		Long: `Start the dashboard HTTP API over the warehouse.

Endpoints:
  POST /api/query/execute           run a read-only query, with a chart descriptor
  GET  /api/query/templates         canned analyses
  GET  /api/query/templates/events  template reloads (server-sent events)
  GET  /api/schema                  warehouse tables and columns
  GET  /api/runs                    recent ETL runs
  GET  /healthz                     liveness`,
		Example: `  # Serve on the default port (5000)
  healthdw serve

  # Serve on all interfaces with custom templates
  healthdw serve --host 0.0.0.0 --port 8080 --templates analyses.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().String("host", "", "Interface to listen on (default 127.0.0.1)")
	cmd.Flags().Int("port", 0, "Port to serve on (default 5000)")
	cmd.Flags().Int("max-rows", 0, "Maximum rows returned per query (default 1000)")
	cmd.Flags().Duration("query-timeout", 0, "Per-query timeout (default 30s)")
	cmd.Flags().String("templates", "", "YAML file overriding the canned analyses; reloaded on change")
	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the dashboard API in a browser")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx := cmd.Context()
	cc := NewCommandContext(cmd, output.ModeAuto)
	cfg := cc.Cfg

	adp, err := cc.OpenQueryWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()

	store, err := cc.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	server, err := ui.NewServer(ui.Config{
		Warehouse:     adp,
		Store:         store,
		Host:          cfg.Serve.Host,
		Port:          cfg.Serve.Port,
		TemplatesFile: cfg.Serve.TemplatesFile,
		MaxRows:       cfg.Serve.MaxRows,
		QueryTimeout:  cfg.Serve.QueryTimeout,
		Logger:        cc.Logger,
	})
	if err != nil {
		return err
	}

	url := "http://" + net.JoinHostPort(cfg.Serve.Host, strconv.Itoa(cfg.Serve.Port))
	r := cc.Renderer
	r.Success("Dashboard API on " + url)
	r.Muted("Press Ctrl+C to stop")

	if opts.Open {
		go openBrowser(url + "/api")
	}

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
