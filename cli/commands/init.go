package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/cli/internal/config"
	"github.com/satishbabariya/quarry/cli/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a quarry project in the current directory",
	Long: `Scaffold a quarry project: a catalog schema, a sample query, a .env
file for the database connection and a .quarry.yaml config.`,
	RunE: runInit,
}

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")

	rootCmd.AddCommand(initCmd)
}

const sampleQuery = `{
  "table": "payments",
  "select": [
    {"column": "amount", "aggregation": "sum"}
  ],
  "filters": [
    {"column": "created_at", "operator": "gte", "kind": "datetime", "value": "2026-01-01T00:00:00Z"},
    {"column": "created_at", "operator": "lt", "kind": "datetime", "value": "2026-02-01T00:00:00Z"}
  ],
  "groupBy": [
    {"column": "created_at", "kind": "datetime", "temporalUnit": "day"}
  ]
}
`

func runInit(cmd *cobra.Command, args []string) error {
	ui.PrintHeader("Quarry", "Project Setup")

	var workspace string
	if err := survey.AskOne(&survey.Input{
		Message: "Default workspace id:",
		Help:    "Every query is scoped to one workspace; commands use this id unless --workspace overrides it",
	}, &workspace, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	databaseURL := ""
	if err := survey.AskOne(&survey.Input{
		Message: "PostgreSQL connection string:",
		Default: "postgres://localhost:5432/quarry?sslmode=disable",
	}, &databaseURL); err != nil {
		return err
	}

	ui.PrintStep(1, 3, "Writing quarry.schema")
	if err := writeProjectFile("quarry.schema", catalog.DefaultSchema()); err != nil {
		return err
	}

	ui.PrintStep(2, 3, "Writing query.json")
	if err := writeProjectFile("query.json", sampleQuery); err != nil {
		return err
	}

	ui.PrintStep(3, 3, "Writing .env and .quarry.yaml")
	if err := writeProjectFile(".env", fmt.Sprintf("DATABASE_URL=%s\n", databaseURL)); err != nil {
		return err
	}
	quarryYAML := fmt.Sprintf("schema_path: quarry.schema\nworkspace: %s\nmax_rows: 100\n", workspace)
	if err := writeProjectFile(".quarry.yaml", quarryYAML); err != nil {
		return err
	}

	fmt.Println()
	ui.PrintSuccess("Project ready")
	fmt.Println()
	ui.PrintList([]string{
		"quarry compile          compile query.json and inspect the SQL",
		"quarry run              execute query.json against DATABASE_URL",
		"quarry tables           browse the catalog",
	})
	return nil
}

func writeProjectFile(path, content string) error {
	if !initForce {
		if _, err := config.AppFs.Stat(path); err == nil {
			ui.PrintWarning("%s already exists, skipping (use --force to overwrite)", path)
			return nil
		}
	}
	if err := afero.WriteFile(config.AppFs, path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
