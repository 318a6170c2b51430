package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/healthdw/internal/cli/output"
	"github.com/leapstack-labs/healthdw/internal/ui/features/query"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new healthdw project",
		Long: `Initialize a new healthdw project.

This creates:
  - healthdw.yaml with the source, target, etl and serve settings
  - analyses.yaml, an editable copy of the canned dashboard analyses
  - .gitignore for the run ledger and local DuckDB files`,
		Example: `  # Initialize in current directory
  healthdw init

  # Initialize in a new directory
  healthdw init my-warehouse

  # Force overwrite existing files
  healthdw init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "healthdw.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("healthdw.yaml already exists. Use --force to overwrite")
	}

	files, err := copyScaffold(dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	ok, err := writeProjectFile(filepath.Join(dir, "analyses.yaml"), force, func() ([]byte, error) {
		return query.DefaultTemplatesYAML(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to write analyses.yaml: %w", err)
	}
	if ok {
		files = append(files, "analyses.yaml")
	}

	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("healthdw project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point source at your admissions CSV in healthdw.yaml")
	r.Println("  2. Run 'healthdw doctor' to check the setup")
	r.Println("  3. Run 'healthdw etl' to load the warehouse")
	r.Println("  4. Run 'healthdw serve' to start the dashboard API")

	return nil
}
