package commands

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/quarry/cli/internal/config"
	"github.com/satishbabariya/quarry/cli/internal/ui"
	"github.com/satishbabariya/quarry/internal/debug"
	"github.com/satishbabariya/quarry/query/executor"
	"github.com/satishbabariya/quarry/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compile a query file and execute it against the database",
	Long: `Compile a JSON query file and execute it against the database named
by DATABASE_URL, printing the result rows as a table.`,
	RunE: runRun,
}

var (
	runFile      string
	runWorkspace string
	runSchema    string
	runTimeout   time.Duration
)

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "query.json", "Path to query file (use - for stdin)")
	runCmd.Flags().StringVarP(&runWorkspace, "workspace", "w", "", "Workspace id to scope the query to")
	runCmd.Flags().StringVarP(&runSchema, "schema", "s", "", "Path to catalog schema file")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Second, "Query timeout")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set: export it or add it to .env")
	}

	workspace, err := resolveWorkspace(runWorkspace, cfg)
	if err != nil {
		return err
	}

	reg, _, err := loadRegistry(runSchema, cfg)
	if err != nil {
		return err
	}

	payload, err := readPayload(runFile)
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := service.NewQueryService(reg, db, service.WithLogger(debug.Logger()))

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	spinner, _ := ui.PrintSpinner("Running query...")

	start := time.Now()
	rows, err := svc.Run(ctx, workspace, payload)
	if err != nil {
		spinner.Fail("Query failed")
		return err
	}
	spinner.Success(fmt.Sprintf("Query returned %d row(s) in %s", len(rows), time.Since(start).Round(time.Millisecond)))

	if len(rows) == 0 {
		ui.PrintWarning("No rows matched")
		return nil
	}

	printRows(rows, cfg.MaxRows)
	return nil
}

// printRows renders result rows as a table. Column order follows the map
// keys sorted alphabetically, which keeps output stable across runs.
func printRows(rows []executor.Row, maxRows int) {
	headers := make([]string, 0, len(rows[0]))
	for name := range rows[0] {
		headers = append(headers, name)
	}
	sort.Strings(headers)

	truncated := false
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
		truncated = true
	}

	data := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(headers))
		for j, name := range headers {
			cells[j] = formatCell(row[name])
		}
		data[i] = cells
	}

	ui.PrintTable(headers, data)
	if truncated {
		ui.PrintInfo("Output truncated to %d rows (set max_rows in .quarry.yaml to change)", maxRows)
	}
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
