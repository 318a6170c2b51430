package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/internal/ui/features/query"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run read-only SQL against the warehouse",
		Long: `Query the healthcare warehouse directly.

Only a single read-only statement (SELECT, WITH, EXPLAIN, SHOW, DESCRIBE,
VALUES, TABLE) is accepted. Supports multiple output formats for scripting.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  healthdw query "SELECT medical_condition, COUNT(*) FROM fact_admissions f JOIN dim_disease d USING (disease_id) GROUP BY 1"

  # List warehouse tables
  healthdw query tables

  # Show schema for a table
  healthdw query schema dim_patient

  # Run a canned analysis
  healthdw query template hospital_revenue --format csv

  # Interactive mode
  healthdw query`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))
	cmd.AddCommand(newQueryTemplatesCommand(opts))
	cmd.AddCommand(newQueryTemplateCommand(opts))

	return cmd
}

// withWarehouse connects to the warehouse for the duration of fn.
func withWarehouse(cmd *cobra.Command, fn func(cc *CommandContext, adp core.Adapter) error) error {
	cc := NewCommandContext(cmd, output.ModeAuto)
	adp, err := cc.OpenQueryWarehouse(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()
	return fn(cc, adp)
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var sqlQuery string

	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !output.IsTerminal(os.Stdin):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		return withWarehouse(cmd, func(cc *CommandContext, adp core.Adapter) error {
			return runQueryREPL(cmd, cc, adp, opts)
		})
	}

	return withWarehouse(cmd, func(_ *CommandContext, adp core.Adapter) error {
		return executeAndRender(cmd.Context(), cmd.OutOrStdout(), adp, sqlQuery, opts.Format)
	})
}

// executeAndRender vets sqlQuery as read-only, runs it and renders the rows.
func executeAndRender(ctx context.Context, w io.Writer, q query.Querier, sqlQuery, format string) error {
	stmt, err := query.CheckReadOnly(sqlQuery)
	if err != nil {
		return err
	}
	err = q.QueryReadOnly(ctx, stmt, func(rows *core.Rows) error {
		return renderResults(w, rows.Rows, format)
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return nil
}

func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List warehouse tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWarehouse(cmd, func(_ *CommandContext, adp core.Adapter) error {
				return listTables(cmd.Context(), cmd.OutOrStdout(), adp, opts.Format)
			})
		},
	}
}

func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a warehouse table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWarehouse(cmd, func(_ *CommandContext, adp core.Adapter) error {
				return showSchema(cmd.Context(), cmd.OutOrStdout(), adp, args[0], opts.Format)
			})
		},
	}
}

func newQueryTemplatesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the canned analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := query.NewLibrary(getConfig().Serve.TemplatesFile)
			if err != nil {
				return err
			}
			return listTemplates(cmd.OutOrStdout(), lib, opts.Format)
		},
	}
}

func newQueryTemplateCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "template <key>",
		Short: "Run a canned analysis",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			lib, err := query.NewLibrary(getConfig().Serve.TemplatesFile)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			var keys []string
			for _, t := range lib.All() {
				keys = append(keys, t.Key+"\t"+t.Name)
			}
			return keys, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWarehouse(cmd, func(cc *CommandContext, adp core.Adapter) error {
				lib, err := query.NewLibrary(cc.Cfg.Serve.TemplatesFile)
				if err != nil {
					return err
				}
				return runTemplate(cmd.Context(), cmd.OutOrStdout(), adp, lib, args[0], opts.Format)
			})
		},
	}
}

// runTemplate runs the canned analysis named key.
func runTemplate(ctx context.Context, w io.Writer, q query.Querier, lib *query.Library, key, format string) error {
	t, ok := lib.Get(key)
	if !ok {
		return fmt.Errorf("unknown template %q (see 'healthdw query templates')", key)
	}
	return executeAndRender(ctx, w, q, t.SQL, format)
}
