package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/spf13/cobra"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit  int
	Output string
}

// runDetail is the JSON shape of a single run with its steps.
type runDetail struct {
	*core.Run
	Steps []*core.RunStep `json:"steps"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show the ETL run ledger",
		Long: `List recent ETL runs, newest first, or show one run with its steps.

Use "latest" as the run id to show the most recent run.`,
		Example: `  # Recent runs
  healthdw runs

  # Steps of the latest run as JSON
  healthdw runs latest --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output format (auto|text|markdown|json)")

	return cmd
}

func runRuns(cmd *cobra.Command, args []string, opts *RunsOptions) error {
	cc := NewCommandContext(cmd, output.Mode(opts.Output))

	store, err := cc.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	if len(args) == 0 {
		runs, err := store.ListRuns(opts.Limit)
		if err != nil {
			return err
		}
		return renderRunList(cc.Renderer, runs)
	}

	var run *core.Run
	if args[0] == "latest" {
		run, err = store.GetLatestRun()
	} else {
		run, err = store.GetRun(args[0])
	}
	if errors.Is(err, core.ErrRunNotFound) || (err == nil && run == nil) {
		return fmt.Errorf("run %q not found", args[0])
	}
	if err != nil {
		return err
	}

	steps, err := store.GetStepsForRun(run.ID)
	if err != nil {
		return err
	}
	return renderRunDetail(cc.Renderer, run, steps)
}

func renderRunList(r *output.Renderer, runs []*core.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*core.Run{}
		}
		return r.JSON(runs)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded yet. Run `healthdw etl` first.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	if r.EffectiveMode() == output.ModeMarkdown {
		defer t.RenderMarkdown()
	} else {
		t.SetStyle(table.StyleLight)
		defer t.Render()
	}

	t.AppendHeader(table.Row{"", "Run", "Status", "Started", "Duration", "Source rows", "Fact rows", "Target"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			output.StatusIcon(string(run.Status)),
			run.ID,
			run.Status,
			run.StartedAt.Local().Format(time.DateTime),
			runDuration(run),
			run.SourceRows,
			run.FactRows,
			run.TargetType,
		})
	}
	return nil
}

func renderRunDetail(r *output.Renderer, run *core.Run, steps []*core.RunStep) error {
	if r.EffectiveMode() == output.ModeJSON {
		if steps == nil {
			steps = []*core.RunStep{}
		}
		return r.JSON(runDetail{Run: run, Steps: steps})
	}

	r.Header(1, "Run "+run.ID)
	r.KeyValue("Status", string(run.Status))
	r.KeyValue("Source", run.SourcePath)
	r.KeyValue("Target", run.TargetType)
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	r.KeyValue("Duration", runDuration(run))
	r.KeyValue("Source rows", fmt.Sprintf("%d", run.SourceRows))
	r.KeyValue("Fact rows", fmt.Sprintf("%d", run.FactRows))
	if run.PatientCollisions > 0 {
		r.KeyValue("Collisions", fmt.Sprintf("%d", run.PatientCollisions))
	}
	if run.Error != "" {
		r.KeyValue("Error", run.Error)
	}
	r.Println()

	r.Header(2, "Steps")
	for _, step := range steps {
		detail := fmt.Sprintf("%d rows, %dms", step.Rows, step.ExecutionMS)
		if step.Error != "" {
			detail += ": " + firstLine(step.Error)
		}
		r.StatusLine(step.Name, string(step.Status), detail)
	}
	return nil
}

func runDuration(run *core.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
