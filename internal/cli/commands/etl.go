package commands

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/internal/etl"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/spf13/cobra"
)

const bannerWidth = 60

// ETLOptions holds options for the etl command.
type ETLOptions struct {
	JSONOutput bool
	NoLedger   bool
}

// NewETLCommand creates the etl command.
func NewETLCommand() *cobra.Command {
	opts := &ETLOptions{}

	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Load the admissions CSV into the warehouse",
		Long: `Run a full refresh of the healthcare star schema.

The seven warehouse tables are emptied, the source CSV is read and
transformed, the six dimensions are loaded concurrently and the
fact_admissions table is assembled from their keys. Any error stops the
run and exits non-zero. Each run is recorded in the run ledger.`,
		Example: `  # Load the configured source into the configured target
  healthdw etl

  # Load a specific file sequentially into a local DuckDB file
  healthdw etl --source admissions.csv --parallelism 1 --target-type duckdb --database dw.duckdb

  # Emit JSON lines for CI
  healthdw etl --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runETL(cmd, opts)
		},
	}

	cmd.Flags().String("source", "", "Path to the admissions CSV")
	cmd.Flags().Int("parallelism", 0, "Concurrent dimension loads (1 = sequential)")
	cmd.Flags().Int("batch-size", 0, "Rows per insert batch")
	cmd.Flags().Int("retries", 0, "Retries of a failed clear or load phase")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output progress as JSON lines")
	cmd.Flags().BoolVar(&opts.NoLedger, "no-ledger", false, "Do not record the run in the run ledger")

	return cmd
}

func runETL(cmd *cobra.Command, opts *ETLOptions) error {
	ctx := cmd.Context()
	mode := output.ModeAuto
	if opts.JSONOutput {
		mode = output.ModeJSON
	}
	cc := NewCommandContext(cmd, mode)
	cfg := cc.Cfg

	adp, err := cc.OpenWarehouse(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()

	var store core.Store
	if !opts.NoLedger {
		store, err = cc.OpenStore()
		if err != nil {
			return fmt.Errorf("failed to open run ledger: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	var rep etlReporter
	if opts.JSONOutput {
		rep = newJSONReporter(cc.Renderer)
	} else {
		rep = newTextReporter(cc.Renderer)
	}

	pipeline := etl.New(adp, store, etl.Options{
		SourcePath:  cfg.Source,
		TargetType:  cfg.Target.Type,
		Parallelism: cfg.ETL.Parallelism,
		BatchSize:   cfg.ETL.BatchSize,
		Retries:     cfg.ETL.Retries,
		DateLayouts: cfg.ETL.DateLayouts,
		Progress:    rep.Step,
	}, cc.Logger)

	rep.Start(cfg.Source, cfg.Target.Type)
	res, err := pipeline.Run(ctx)
	rep.Finish(res, err)
	if err != nil {
		return reportedError{err}
	}
	return nil
}

// reportedError marks an error the command has already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// IsReported reports whether err was already printed by the command.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

type etlReporter interface {
	Start(source, target string)
	Step(ev etl.StepEvent)
	Finish(res *etl.Result, err error)
}

// stepNouns names what each load step counts.
var stepNouns = map[string]string{
	"load_" + etl.TablePatient:   "patients",
	"load_" + etl.TableDisease:   "medical conditions",
	"load_" + etl.TableTime:      "time records",
	"load_" + etl.TableDoctor:    "doctors",
	"load_" + etl.TableHospital:  "hospitals",
	"load_" + etl.TableInsurance: "insurance providers",
	string(etl.StageLoadFact):    "admission records",
}

// startMessage describes a step that has just started.
func startMessage(step, source string) string {
	switch step {
	case string(etl.StageClear):
		return "Clearing existing data..."
	case string(etl.StageExtract):
		return fmt.Sprintf("Extracting data from %s...", source)
	case string(etl.StageTransform):
		return "Transforming data..."
	case string(etl.StageLoadFact):
		return fmt.Sprintf("Loading %s...", etl.TableFact)
	default:
		return fmt.Sprintf("Loading %s...", strings.TrimPrefix(step, "load_"))
	}
}

// doneMessage describes a step that finished successfully.
func doneMessage(ev etl.StepEvent) string {
	switch ev.Step {
	case string(etl.StageClear):
		return "Database cleared"
	case string(etl.StageExtract):
		return fmt.Sprintf("Extracted %d records", ev.Rows)
	case string(etl.StageTransform):
		return "Data transformation completed"
	}
	if noun, ok := stepNouns[ev.Step]; ok {
		return fmt.Sprintf("Loaded %d %s", ev.Rows, noun)
	}
	return fmt.Sprintf("%s: %d rows", ev.Step, ev.Rows)
}

// textReporter prints the progress lines, with a spinner on terminals.
// Dimension steps run concurrently, so every method holds mu.
type textReporter struct {
	mu      sync.Mutex
	r       *output.Renderer
	spinner *output.Spinner
	source  string
}

func newTextReporter(r *output.Renderer) *textReporter {
	return &textReporter{r: r}
}

func (t *textReporter) Start(source, target string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.source = source
	rule := strings.Repeat("=", bannerWidth)
	t.r.Println(rule)
	t.r.Println(t.r.Styles().Bold.Render("HEALTHCARE DATA WAREHOUSE ETL PIPELINE"))
	t.r.Println(rule)
	t.r.KeyValue("Source", source)
	t.r.KeyValue("Target", target)
	t.r.Println("")

	if t.r.IsTTY() {
		t.spinner = t.r.NewSpinner("Starting...")
		t.spinner.Start()
	}
}

func (t *textReporter) Step(ev etl.StepEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	styles := t.r.Styles()
	var line string
	switch ev.Status {
	case core.StepStatusRunning:
		if t.spinner != nil {
			t.spinner.Update(startMessage(ev.Step, t.source))
			return
		}
		line = styles.Muted.Render(startMessage(ev.Step, t.source))
	case core.StepStatusSuccess:
		line = styles.Success.Render(output.StatusIcon("success")) + " " + doneMessage(ev) +
			" " + styles.Muted.Render(fmt.Sprintf("(%s)", ev.Duration.Round(time.Millisecond)))
	default:
		line = styles.Error.Render(output.StatusIcon("failed")) + " " + ev.Step + " failed"
	}

	if t.spinner != nil {
		t.spinner.Println(line)
		return
	}
	t.r.Println(line)
}

func (t *textReporter) Finish(res *etl.Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rule := strings.Repeat("=", bannerWidth)
	if err != nil {
		if t.spinner != nil {
			t.spinner.Fail("ETL failed")
		}
		t.r.Error("ETL Error: " + err.Error())
		return
	}
	if t.spinner != nil {
		t.spinner.Success("Done")
	}

	t.r.Println("")
	t.r.Println(rule)
	t.r.Success("ETL PROCESS COMPLETED SUCCESSFULLY!")
	t.r.Println(rule)
	if res.RunID != "" {
		t.r.KeyValue("Run", res.RunID)
	}
	t.r.KeyValue("Source rows", fmt.Sprint(res.SourceRows))
	t.r.KeyValue("Fact rows", fmt.Sprint(res.FactRows))
	t.r.KeyValue("Duration", res.Duration.Round(time.Millisecond).String())
	if n := len(res.Collisions); n > 0 {
		t.r.Warning(fmt.Sprintf("%d patient id collisions; the first record of each id was kept", n))
	}
}

// jsonReporter emits one JSON line per event.
type jsonReporter struct {
	events *output.EventWriter
}

func newJSONReporter(r *output.Renderer) *jsonReporter {
	return &jsonReporter{events: output.NewEventWriter(r.Writer())}
}

func (j *jsonReporter) Start(_, _ string) {
	j.events.Emit(output.RunEvent{Event: "run_start"})
}

func (j *jsonReporter) Step(ev etl.StepEvent) {
	out := output.RunEvent{
		Event:  "step_end",
		Step:   ev.Step,
		Status: string(ev.Status),
		Rows:   ev.Rows,
	}
	if ev.Status == core.StepStatusRunning {
		out.Event = "step_start"
	} else {
		out.DurationMS = ev.Duration.Milliseconds()
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	j.events.Emit(out)
}

func (j *jsonReporter) Finish(res *etl.Result, err error) {
	out := output.RunEvent{Event: "run_end", Status: string(core.RunStatusCompleted)}
	if res != nil {
		out.RunID = res.RunID
		out.Rows = res.FactRows
		out.DurationMS = res.Duration.Milliseconds()
	}
	if err != nil {
		out.Status = string(core.RunStatusFailed)
		out.Error = err.Error()
	}
	j.events.Emit(out)
}
