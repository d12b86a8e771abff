package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/quarry/cli/internal/config"
	"github.com/satishbabariya/quarry/cli/internal/ui"
	"github.com/satishbabariya/quarry/cli/internal/watch"
	"github.com/satishbabariya/quarry/internal/debug"
	"github.com/satishbabariya/quarry/service"
	"github.com/satishbabariya/quarry/telemetry"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a query file to SQL without executing it",
	Long: `Compile a JSON query file into a parameterized PostgreSQL statement.

The statement and its bind arguments are printed without touching a
database, which makes this the fastest way to inspect what a query will
run.`,
	RunE: runCompile,
}

var (
	compileFile      string
	compileWorkspace string
	compileSchema    string
	compileWatch     bool
)

func init() {
	compileCmd.Flags().StringVarP(&compileFile, "file", "f", "query.json", "Path to query file (use - for stdin)")
	compileCmd.Flags().StringVarP(&compileWorkspace, "workspace", "w", "", "Workspace id to scope the query to")
	compileCmd.Flags().StringVarP(&compileSchema, "schema", "s", "", "Path to catalog schema file")
	compileCmd.Flags().BoolVar(&compileWatch, "watch", false, "Recompile when the query or schema file changes")

	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	workspace, err := resolveWorkspace(compileWorkspace, cfg)
	if err != nil {
		return err
	}

	compileOnce := func() error {
		reg, _, err := loadRegistry(compileSchema, cfg)
		if err != nil {
			return err
		}

		payload, err := readPayload(compileFile)
		if err != nil {
			return err
		}

		svc := service.NewQueryService(reg, nil)

		start := time.Now()
		stmt, err := svc.Compile(workspace, payload)
		if err != nil {
			return err
		}
		debug.Debug().Dur("elapsed", time.Since(start)).Msg("query compiled")
		telemetry.RecordPerformance("compile", time.Since(start))

		ui.PrintSection("Compiled SQL")
		ui.PrintCodeBlock(stmt.SQL, "sql")

		if len(stmt.Args) > 0 {
			fmt.Println()
			rows := make([][]string, len(stmt.Args))
			for i, arg := range stmt.Args {
				rows[i] = []string{fmt.Sprintf("$%d", i+1), formatArg(arg)}
			}
			ui.PrintTable([]string{"Placeholder", "Value"}, rows)
		}
		return nil
	}

	if !compileWatch {
		return compileOnce()
	}

	if compileFile == "-" {
		return fmt.Errorf("--watch cannot be combined with reading from stdin")
	}

	// Watch the query file, and the schema file when one is configured
	watched := []string{compileFile}
	schemaPath := compileSchema
	if schemaPath == "" {
		schemaPath = cfg.SchemaPath
	}
	if schemaPath != "" {
		watched = append(watched, schemaPath)
	}

	w, err := watch.NewWatcher(func() error {
		if err := compileOnce(); err != nil {
			ui.PrintError("%v", err)
		}
		ui.PrintInfo("Watching for changes... (ctrl-c to stop)")
		return nil
	}, watched...)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println()
	return nil
}
