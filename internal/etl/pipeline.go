// Package etl loads the healthcare admissions CSV into the warehouse star
// schema: six dimension tables and the fact_admissions table.
//
// A run moves through Clear, Extract, Transform, LoadDimensions and LoadFact.
// Any error moves it to Failed and skips the remaining stages.
package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"golang.org/x/sync/errgroup"
)

// Stage is a state of the pipeline state machine.
type Stage string

// Pipeline stages.
const (
	StageClear          Stage = "clear"
	StageExtract        Stage = "extract"
	StageTransform      Stage = "transform"
	StageLoadDimensions Stage = "load_dimensions"
	StageLoadFact       Stage = "load_fact"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// Default pipeline options.
const (
	DefaultParallelism = 6
	DefaultBatchSize   = 1000
)

// Options configures a pipeline run.
type Options struct {
	SourcePath  string
	TargetType  string
	Parallelism int
	BatchSize   int
	// Retries is how many times a failed clear or load phase is re-run.
	Retries     int
	DateLayouts []string
	// Progress, when set, receives an event as each step starts and ends.
	// Dimension steps report from concurrent goroutines.
	Progress func(StepEvent)
}

// StepEvent reports a step transition to Options.Progress.
type StepEvent struct {
	Step     string
	Status   core.StepStatus
	Rows     int64
	Duration time.Duration
	Err      error
}

// Result summarizes a run.
type Result struct {
	RunID      string
	Stage      Stage
	Tables     map[string]int64
	Collisions []Collision
	Duration   time.Duration
	core.RunCounts
}

// Pipeline runs the ETL against one warehouse adapter. The run ledger is optional.
type Pipeline struct {
	sink       *Sink
	store      core.Store
	dimensions []DimensionBuilder
	opts       Options
	logger     *slog.Logger
	newBackOff func() backoff.BackOff

	runID string
	mu    sync.Mutex
}

// New creates a pipeline writing through adp.
func New(adp core.Adapter, store core.Store, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Pipeline{
		sink:       NewSink(adp, opts.BatchSize, logger),
		store:      store,
		dimensions: DefaultDimensions(),
		opts:       opts,
		logger:     logger,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// Run executes one full refresh of the warehouse.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Stage: StageClear, Tables: make(map[string]int64)}

	p.logger.Info("starting etl run", "source", p.opts.SourcePath, "target", p.opts.TargetType)
	if p.store != nil {
		run, err := p.store.CreateRun(p.opts.SourcePath, p.opts.TargetType)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		p.runID = run.ID
		res.RunID = run.ID
		p.logger.Debug("created run", "run_id", run.ID)
	}

	err := p.run(ctx, res)
	res.Duration = time.Since(start)

	if err != nil {
		failed := res.Stage
		res.Stage = StageFailed
		p.logger.Error("etl run failed", "run_id", res.RunID, "stage", failed, "error", err)
		p.completeRun(ctx, res, err)
		return res, err
	}

	res.Stage = StageDone
	p.logger.Info("etl run completed", "run_id", res.RunID,
		"source_rows", res.SourceRows, "fact_rows", res.FactRows, "duration", res.Duration)
	p.completeRun(ctx, res, nil)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	// Clear phase
	res.Stage = StageClear
	if err := p.step(string(StageClear), func() (int64, error) {
		return 0, p.retry(ctx, "clear", func() error { return p.sink.Clear(ctx) })
	}); err != nil {
		return err
	}
	p.logger.Info("warehouse cleared")

	res.Stage = StageExtract
	var frame *Frame
	if err := p.step(string(StageExtract), func() (int64, error) {
		var err error
		frame, err = ReadSource(ctx, p.opts.SourcePath)
		if err != nil {
			return 0, err
		}
		return int64(frame.Len()), nil
	}); err != nil {
		return err
	}
	res.SourceRows = int64(frame.Len())
	p.logger.Info("extracted records", "rows", res.SourceRows)

	res.Stage = StageTransform
	var ds *Dataset
	if err := p.step(string(StageTransform), func() (int64, error) {
		t := &Transformer{DateLayouts: p.opts.DateLayouts}
		var err error
		ds, err = t.Transform(frame)
		if err != nil {
			return 0, err
		}
		return int64(len(ds.Admissions)), nil
	}); err != nil {
		return err
	}
	res.Collisions = ds.Collisions
	res.PatientCollisions = int64(len(ds.Collisions))
	for _, c := range ds.Collisions {
		p.logger.Warn("patient id collision, keeping first record",
			"patient_id", c.ID, "kept", c.First, "merged", c.Other, "row", c.Row)
	}

	// Load phase. A retry starts again from empty tables.
	attempt := 0
	return p.retry(ctx, "load", func() error {
		attempt++
		if attempt > 1 {
			if err := p.sink.Clear(ctx); err != nil {
				return err
			}
		}

		res.Stage = StageLoadDimensions
		if err := p.loadDimensions(ctx, ds.Admissions, res); err != nil {
			return err
		}

		res.Stage = StageLoadFact
		return p.step(string(StageLoadFact), func() (int64, error) {
			n, err := p.loadFact(ctx, ds.Admissions)
			res.FactRows = n
			p.setTable(res, TableFact, n)
			return n, err
		})
	})
}

// loadDimensions loads the six dimensions concurrently; the first failure
// cancels the others.
func (p *Pipeline) loadDimensions(ctx context.Context, admissions []Admission, res *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallelism)

	for _, d := range p.dimensions {
		g.Go(func() error {
			return p.step("load_"+d.Table(), func() (int64, error) {
				n, err := p.sink.Append(gctx, d.Table(), d.Columns(), d.Rows(admissions))
				if err != nil {
					return n, err
				}
				p.setTable(res, d.Table(), n)
				p.logger.Info("loaded dimension", "dimension", d.Name(), "table", d.Table(), "rows", n)
				return n, nil
			})
		})
	}
	return g.Wait()
}

func (p *Pipeline) loadFact(ctx context.Context, admissions []Admission) (int64, error) {
	fa := &FactAssembler{Keys: p.sink}
	rows, err := fa.Assemble(ctx, admissions)
	if err != nil {
		return 0, err
	}
	n, err := p.sink.Append(ctx, TableFact, FactColumns, rows)
	if err != nil {
		return n, err
	}
	p.logger.Info("loaded fact table", "table", TableFact, "rows", n)
	return n, nil
}

func (p *Pipeline) setTable(res *Result, table string, n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res.Tables[table] = n
}

// retry runs op, re-running it up to Retries times with exponential backoff.
// Source errors are never retried.
func (p *Pipeline) retry(ctx context.Context, phase string, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.opts.Retries)), ctx) //nolint:gosec // Retries is clamped to >= 0

	return backoff.RetryNotify(func() error {
		err := op()
		var srcErr *SourceError
		if errors.As(err, &srcErr) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		p.logger.Warn("phase failed, retrying", "phase", phase, "wait", wait, "error", err)
	})
}

// step runs fn as a named step, records it in the run ledger and wraps any
// error with the step name.
func (p *Pipeline) step(name string, fn func() (int64, error)) error {
	var rs *core.RunStep
	if p.store != nil {
		rs = &core.RunStep{RunID: p.runID, Name: name, Status: core.StepStatusRunning}
		if err := p.store.RecordStep(rs); err != nil {
			p.logger.Warn("failed to record step", "step", name, "error", err)
			rs = nil
		}
	}

	p.progress(StepEvent{Step: name, Status: core.StepStatusRunning})
	start := time.Now()
	rows, err := fn()

	ev := StepEvent{Step: name, Status: core.StepStatusSuccess, Rows: rows, Duration: time.Since(start), Err: err}
	if err != nil {
		ev.Status = core.StepStatusFailed
	}
	p.progress(ev)

	if rs != nil {
		status, msg := core.StepStatusSuccess, ""
		if err != nil {
			status, msg = core.StepStatusFailed, err.Error()
		}
		if uerr := p.store.UpdateStep(rs.ID, status, rows, msg); uerr != nil {
			p.logger.Warn("failed to update step", "step", name, "error", uerr)
		}
	}

	if err != nil {
		var se *StepError
		if errors.As(err, &se) {
			return err
		}
		return &StepError{Step: name, Err: err}
	}
	return nil
}

func (p *Pipeline) progress(ev StepEvent) {
	if p.opts.Progress != nil {
		p.opts.Progress(ev)
	}
}

func (p *Pipeline) completeRun(ctx context.Context, res *Result, runErr error) {
	if p.store == nil || p.runID == "" {
		return
	}

	status, msg := core.RunStatusCompleted, ""
	switch {
	case runErr != nil && ctx.Err() != nil:
		status, msg = core.RunStatusCancelled, runErr.Error()
	case runErr != nil:
		status, msg = core.RunStatusFailed, runErr.Error()
	}

	if err := p.store.CompleteRun(p.runID, status, res.RunCounts, msg); err != nil {
		p.logger.Warn("failed to complete run", "run_id", p.runID, "error", err)
	}
}
