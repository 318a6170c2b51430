package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/healthdw/internal/cli/config"
	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/internal/etl"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, markdown, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration, source file, warehouse and run ledger",
		Long: `Check that an ETL run can succeed before starting one.

The doctor command verifies:
- the configuration file in use
- that the source CSV is readable and carries every required column
- that the warehouse is reachable and holds the seven star schema tables
- the outcome of the last recorded run

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  healthdw doctor

  # Output as JSON
  healthdw doctor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         DoctorSummary `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// DoctorSummary contains what the checks learned about the project.
type DoctorSummary struct {
	ConfigFile string `json:"config_file,omitempty"`
	Source     string `json:"source"`
	SourceRows int    `json:"source_rows"`
	Target     string `json:"target"`
	Tables     int    `json:"tables"`
	FactRows   int64  `json:"fact_rows"`
	LastRun    string `json:"last_run,omitempty"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

// Check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cc := NewCommandContext(cmd, output.Mode(opts.Format))

	out := diagnose(cmd.Context(), cc)

	switch cc.Renderer.EffectiveMode() {
	case output.ModeJSON:
		return cc.Renderer.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(cc.Renderer, out)
	default:
		return renderDoctorText(cc.Renderer, out)
	}
}

// diagnose runs every check. A failing check never stops the others, except
// that warehouse table checks need a connection.
func diagnose(ctx context.Context, cc *CommandContext) *DoctorOutput {
	cfg := cc.Cfg
	summary := DoctorSummary{
		ConfigFile: config.GetConfigFileUsed(),
		Source:     cfg.Source,
		Target:     cfg.Target.Type,
	}
	var checks []HealthCheck

	// Configuration
	cf := HealthCheck{ID: "CF01", Name: "Configuration file", Group: "configuration", Status: checkPass}
	if summary.ConfigFile == "" {
		cf.Status = checkWarn
		cf.Details = []string{"no healthdw.yaml found, using defaults"}
	}
	checks = append(checks, cf)

	// Source
	checks = append(checks, checkSource(ctx, cfg.Source, &summary)...)

	// Warehouse
	checks = append(checks, checkWarehouse(ctx, cc, &summary)...)

	// Ledger
	checks = append(checks, checkLedger(cc, &summary))

	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].Group < checks[j].Group
	})

	issues := 0
	for _, c := range checks {
		if c.Status != checkPass {
			issues++
		}
	}

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

func checkSource(ctx context.Context, path string, summary *DoctorSummary) []HealthCheck {
	readable := HealthCheck{ID: "SR01", Name: "Source file readable", Group: "source", Status: checkPass}
	header := HealthCheck{ID: "SR02", Name: "Required columns present", Group: "source", Status: checkPass}
	rows := HealthCheck{ID: "SR03", Name: "Source has admissions", Group: "source", Status: checkPass}

	frame, err := etl.ReadSource(ctx, path)
	if err != nil {
		readable.Status = checkError
		readable.Details = []string{err.Error()}
		header.Status = checkWarn
		header.Details = []string{"skipped: source not readable"}
		rows.Status = checkWarn
		rows.Details = []string{"skipped: source not readable"}
		return []HealthCheck{readable, header, rows}
	}

	summary.SourceRows = frame.Len()
	if err := etl.CheckHeader(frame.Names()); err != nil {
		header.Status = checkError
		header.Details = joinedMessages(err)
	}
	if frame.Len() == 0 {
		rows.Status = checkWarn
		rows.Details = []string{"the file has no data rows; a run would leave the warehouse empty"}
	}
	return []HealthCheck{readable, header, rows}
}

func checkWarehouse(ctx context.Context, cc *CommandContext, summary *DoctorSummary) []HealthCheck {
	reach := HealthCheck{ID: "WH01", Name: "Warehouse reachable", Group: "warehouse", Status: checkPass}
	tables := HealthCheck{ID: "WH02", Name: "Star schema tables present", Group: "warehouse", Status: checkPass}
	loaded := HealthCheck{ID: "WH03", Name: "Fact table loaded", Group: "warehouse", Status: checkPass}

	adp, err := cc.OpenWarehouse(ctx)
	if err != nil {
		reach.Status = checkError
		reach.Details = []string{err.Error()}
		tables.Status = checkWarn
		tables.Details = []string{"skipped: warehouse not reachable"}
		loaded.Status = checkWarn
		loaded.Details = []string{"skipped: warehouse not reachable"}
		return []HealthCheck{reach, tables, loaded}
	}
	defer func() { _ = adp.Close() }()

	for _, table := range etl.ClearOrder {
		meta, err := adp.GetTableMetadata(ctx, table)
		if err != nil {
			tables.Status = checkError
			tables.Details = append(tables.Details, "missing table "+table)
			continue
		}
		summary.Tables++
		if table == etl.TableFact {
			summary.FactRows = meta.RowCount
		}
	}

	if summary.FactRows == 0 {
		loaded.Status = checkWarn
		loaded.Details = []string{etl.TableFact + " is empty"}
	}
	return []HealthCheck{reach, tables, loaded}
}

func checkLedger(cc *CommandContext, summary *DoctorSummary) HealthCheck {
	check := HealthCheck{ID: "LG01", Name: "Last run succeeded", Group: "ledger", Status: checkPass}

	store, err := cc.OpenStore()
	if err != nil {
		check.Status = checkError
		check.Details = []string{err.Error()}
		return check
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetLatestRun()
	switch {
	case err != nil:
		check.Status = checkError
		check.Details = []string{err.Error()}
	case run == nil:
		check.Status = checkWarn
		check.Details = []string{"no runs recorded"}
	default:
		summary.LastRun = fmt.Sprintf("%s (%s)", run.ID, run.Status)
		if run.Status != core.RunStatusCompleted {
			check.Status = checkWarn
			detail := fmt.Sprintf("run %s is %s", run.ID, run.Status)
			if run.Error != "" {
				detail += ": " + firstLine(run.Error)
			}
			check.Details = []string{detail}
		}
	}
	return check
}

// joinedMessages splits an errors.Join result into one message per error.
func joinedMessages(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

// calculateHealthScore computes a health score from 0-100.
// Errors cost twice as much as warnings.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case checkError:
			score -= 20
		case checkWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.Status == checkPass {
			continue
		}
		rec := getRecommendation(check.ID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(id string) string {
	switch id {
	case "CF01":
		return "Create a healthdw.yaml next to your data to pin the source and target"
	case "SR01":
		return "Point source (or --source) at the admissions CSV export"
	case "SR02":
		return "Export the admissions file with its full header row"
	case "WH01":
		return "Check the target host, credentials and that the warehouse is running"
	case "WH02":
		return "Create the star schema tables before loading"
	case "WH03", "LG01":
		return "Run `healthdw etl` to load the warehouse"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render("healthdw Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Bold.Render("Summary"))
	if out.Summary.ConfigFile != "" {
		r.Printf("   Config: %s\n", out.Summary.ConfigFile)
	}
	r.Printf("   Source: %s (%d rows)\n", out.Summary.Source, out.Summary.SourceRows)
	r.Printf("   Target: %s | Tables: %d/%d | Fact rows: %d\n",
		out.Summary.Target, out.Summary.Tables, len(etl.ClearOrder), out.Summary.FactRows)
	if out.Summary.LastRun != "" {
		r.Printf("   Last run: %s\n", out.Summary.LastRun)
	}
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.Render("✓")
		switch check.Status {
		case checkWarn:
			icon = styles.Warning.Render("!")
		case checkError:
			icon = styles.StatusFailed.Render("✗")
		}
		r.Printf("   %s %s: %s\n", icon, check.ID, check.Name)
		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Bold.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# healthdw Health Report")
	r.Println("")

	r.Println("## Summary")
	r.Println("")
	if out.Summary.ConfigFile != "" {
		r.Printf("- **Config**: %s\n", out.Summary.ConfigFile)
	}
	r.Printf("- **Source**: %s\n", out.Summary.Source)
	r.Printf("- **Source rows**: %d\n", out.Summary.SourceRows)
	r.Printf("- **Target**: %s\n", out.Summary.Target)
	r.Printf("- **Tables**: %d/%d\n", out.Summary.Tables, len(etl.ClearOrder))
	r.Printf("- **Fact rows**: %d\n", out.Summary.FactRows)
	if out.Summary.LastRun != "" {
		r.Printf("- **Last run**: %s\n", out.Summary.LastRun)
	}
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s\n", strings.ToUpper(check.Status), check.ID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
