package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/leapstack-labs/healthdw/internal/cli/config"
	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/internal/cli/testutil"
	"github.com/leapstack-labs/healthdw/internal/etl"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/healthdw/pkg/adapters/duckdb"
)

// loadProject sets up a DuckDB-backed project and loads its configuration.
func loadProject(t *testing.T) string {
	t.Helper()
	dir := testutil.SetupWarehouseProject(t)
	_, err := config.LoadConfig(filepath.Join(dir, "healthdw.yaml"), nil)
	require.NoError(t, err)
	t.Cleanup(config.ResetConfig)
	return dir
}

func executeETL(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewETLCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestETLCommand_Text(t *testing.T) {
	loadProject(t)

	stdout, stderr, err := executeETL(t)
	require.NoError(t, err, stderr)

	for _, want := range []string{
		"HEALTHCARE DATA WAREHOUSE ETL PIPELINE",
		"Database cleared",
		"Extracted 4 records",
		"Data transformation completed",
		"Loaded 3 patients",
		"Loaded 3 medical conditions",
		"Loaded 3 time records",
		"Loaded 2 doctors",
		"Loaded 2 hospitals",
		"Loaded 3 insurance providers",
		"Loaded 4 admission records",
		"ETL PROCESS COMPLETED SUCCESSFULLY!",
	} {
		assert.Contains(t, stdout, want)
	}
	testutil.AssertNoANSI(t, stdout)
}

func TestETLCommand_JSON(t *testing.T) {
	loadProject(t)

	stdout, _, err := executeETL(t, "--json")
	require.NoError(t, err)

	var events []output.RunEvent
	sc := bufio.NewScanner(bytes.NewBufferString(stdout))
	for sc.Scan() {
		var ev output.RunEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), sc.Text())
		events = append(events, ev)
	}
	require.NotEmpty(t, events)

	assert.Equal(t, "run_start", events[0].Event)
	last := events[len(events)-1]
	assert.Equal(t, "run_end", last.Event)
	assert.Equal(t, string(core.RunStatusCompleted), last.Status)
	assert.Equal(t, int64(4), last.Rows)
	assert.NotEmpty(t, last.RunID)

	ended := map[string]int64{}
	for _, ev := range events {
		if ev.Event == "step_end" {
			assert.Equal(t, string(core.StepStatusSuccess), ev.Status, ev.Step)
			ended[ev.Step] = ev.Rows
		}
	}
	assert.Equal(t, int64(4), ended[string(etl.StageExtract)])
	assert.Equal(t, int64(4), ended[string(etl.StageLoadFact)])
	assert.Equal(t, int64(3), ended["load_"+etl.TablePatient])
}

func TestETLCommand_RecordsRun(t *testing.T) {
	loadProject(t)

	_, _, err := executeETL(t)
	require.NoError(t, err)

	cmd := NewRunsCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"latest", "--output", "json"})
	require.NoError(t, cmd.Execute())

	var detail struct {
		Status   string `json:"status"`
		FactRows int64  `json:"fact_rows"`
		Steps    []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &detail))
	assert.Equal(t, string(core.RunStatusCompleted), detail.Status)
	assert.Equal(t, int64(4), detail.FactRows)
	assert.NotEmpty(t, detail.Steps)
}

func TestETLCommand_NoLedger(t *testing.T) {
	dir := loadProject(t)

	_, _, err := executeETL(t, "--no-ledger")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".healthdw", "state.db"))
	assert.True(t, os.IsNotExist(err), "ledger should not be created")
}

func TestETLCommand_Failure(t *testing.T) {
	dir := loadProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "admissions.csv"), []byte("Name,Age\nBob,45\n"), 0o600))

	stdout, stderr, err := executeETL(t)
	require.Error(t, err)
	assert.True(t, IsReported(err))
	assert.True(t, errors.Is(err, etl.ErrMissingColumn))
	assert.Contains(t, stderr, "ETL Error:")
	assert.NotContains(t, stdout, "COMPLETED SUCCESSFULLY")
}

func TestStepMessages(t *testing.T) {
	tests := []struct {
		ev   etl.StepEvent
		want string
	}{
		{etl.StepEvent{Step: string(etl.StageClear)}, "Database cleared"},
		{etl.StepEvent{Step: string(etl.StageExtract), Rows: 55500}, "Extracted 55500 records"},
		{etl.StepEvent{Step: string(etl.StageTransform)}, "Data transformation completed"},
		{etl.StepEvent{Step: "load_" + etl.TableDoctor, Rows: 40341}, "Loaded 40341 doctors"},
		{etl.StepEvent{Step: string(etl.StageLoadFact), Rows: 12}, "Loaded 12 admission records"},
		{etl.StepEvent{Step: "other", Rows: 1}, "other: 1 rows"},
	}
	for _, tt := range tests {
		t.Run(tt.ev.Step, func(t *testing.T) {
			assert.Equal(t, tt.want, doneMessage(tt.ev))
		})
	}

	assert.Equal(t, "Extracting data from a.csv...", startMessage(string(etl.StageExtract), "a.csv"))
	assert.Equal(t, "Loading dim_time...", startMessage("load_dim_time", "a.csv"))
}

func TestTextReporter_ConcurrentSteps(t *testing.T) {
	var out bytes.Buffer
	rep := newTextReporter(output.NewRendererWithTTY(&out, &out, false, output.ModeText))

	tables := []string{etl.TablePatient, etl.TableDisease, etl.TableTime, etl.TableDoctor, etl.TableHospital, etl.TableInsurance}
	var wg sync.WaitGroup
	for _, table := range tables {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				rep.Step(etl.StepEvent{Step: "load_" + table, Status: core.StepStatusRunning})
				rep.Step(etl.StepEvent{Step: "load_" + table, Status: core.StepStatusSuccess, Rows: 3})
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Len(t, lines, len(tables)*20*2)
	for _, line := range lines {
		assert.True(t, strings.Contains(line, "Loading ") || strings.Contains(line, "Loaded 3 "), line)
	}
}
