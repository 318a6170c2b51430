package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/healthdw/internal/ui/features/query"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = "healthdw> "
	replContinuePrompt = "     ...> "
)

// replSession holds what the dot-commands operate on.
type replSession struct {
	warehouse core.Adapter
	library   *query.Library
	format    string
	out       io.Writer
	errOut    io.Writer
}

func runQueryREPL(cmd *cobra.Command, cc *CommandContext, adp core.Adapter, opts *QueryOptions) error {
	ctx := cmd.Context()

	lib, err := query.NewLibrary(cc.Cfg.Serve.TemplatesFile)
	if err != nil {
		return err
	}

	s := &replSession{
		warehouse: adp,
		library:   lib,
		format:    opts.Format,
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
	}

	// History lives next to the run ledger
	historyFile := filepath.Join(filepath.Dir(cc.Cfg.StatePath), "query_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    s.completer(ctx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(s.out, "healthdw query REPL (%s warehouse)\n", adp.DialectConfig().Name)
	_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(s.out)

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if multiLineBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := s.handleDotCommand(ctx, line); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt(replContinuePrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		sqlQuery := multiLineBuffer.String()
		multiLineBuffer.Reset()

		s.report(executeAndRender(ctx, s.out, s.warehouse, sqlQuery, s.format))
		_, _ = fmt.Fprintln(s.out)
	}

	return nil
}

func (s *replSession) report(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
}

// handleDotCommand runs a dot-command and reports whether the REPL should exit.
func (s *replSession) handleDotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".tables":
		s.report(listTables(ctx, s.out, s.warehouse, s.format))

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .schema <table>")
			break
		}
		s.report(showSchema(ctx, s.out, s.warehouse, parts[1], s.format))

	case ".templates":
		s.report(listTemplates(s.out, s.library, s.format))

	case ".run":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .run <template>")
			break
		}
		s.report(runTemplate(ctx, s.out, s.warehouse, s.library, parts[1], s.format))

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(s.out, "Output format: %s\n", s.format)
			break
		}
		switch parts[1] {
		case "table", "json", "csv", "md":
			s.format = parts[1]
		default:
			_, _ = fmt.Fprintf(s.errOut, "Unknown format: %s (table, json, csv, md)\n", parts[1])
		}

	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .tables           List warehouse tables
  .schema <table>   Show the columns of a table
  .templates        List the canned analyses
  .run <template>   Run a canned analysis
  .format [name]    Show or set the output format (table, json, csv, md)
  .clear            Clear the screen
  .quit / .exit     Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Only read-only statements are accepted
  - Use arrow keys to navigate history
  - Tab completion works for table names and templates
`
	_, _ = fmt.Fprintln(w, help)
}

// completer builds a readline completer for dot-commands, tables and templates.
func (s *replSession) completer(ctx context.Context) *readline.PrefixCompleter {
	var tables []readline.PrefixCompleterInterface
	if columns, err := s.warehouse.ListColumns(ctx); err == nil {
		seen := map[string]bool{}
		var names []string
		for _, c := range columns {
			if !seen[c.Table] {
				seen[c.Table] = true
				names = append(names, c.Table)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			tables = append(tables, readline.PcItem(name))
		}
	}

	var templates []readline.PrefixCompleterInterface
	for _, t := range s.library.All() {
		templates = append(templates, readline.PcItem(t.Key))
	}

	items := append([]readline.PrefixCompleterInterface{}, tables...)
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", tables...),
		readline.PcItem(".templates"),
		readline.PcItem(".run", templates...),
		readline.PcItem(".format",
			readline.PcItem("table"), readline.PcItem("json"), readline.PcItem("csv"), readline.PcItem("md")),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
