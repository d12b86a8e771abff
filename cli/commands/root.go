package commands

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/quarry/cli/internal/ui"
	"github.com/satishbabariya/quarry/cli/internal/version"
	"github.com/satishbabariya/quarry/internal/debug"
	"github.com/satishbabariya/quarry/query/qerr"
	"github.com/satishbabariya/quarry/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "quarry",
	Short: "Workspace-scoped analytics query compiler for PostgreSQL",
	Long: `Quarry compiles JSON analytics queries into parameterized PostgreSQL.

Queries are constrained to a declared catalog of tables and columns, and
every compiled statement is scoped to a single workspace.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.Init(debugEnabled || os.Getenv("QUARRY_DEBUG") != "")
	},
}

var debugEnabled bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugEnabled, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("no-telemetry", false, "Disable usage telemetry")
}

// Execute is the main entry point for the CLI
func Execute() error {
	telemetry.Init(version.Version, true)
	defer telemetry.Shutdown()

	start := time.Now()
	cmd, err := rootCmd.ExecuteC()

	name := ""
	if cmd != nil {
		name = cmd.Name()
	}
	telemetry.RecordCommand(name, time.Since(start), errorCode(err))

	if err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}

// errorCode extracts the stable error code for telemetry, never the message.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var qe *qerr.Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return "unknown"
}
