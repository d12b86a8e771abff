package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/cli/internal/ui"
	"github.com/satishbabariya/quarry/service"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema-path]",
	Short: "Validate a catalog schema file",
	Long: `Validate a catalog schema file for syntax and semantic errors.

With --file, additionally dry-run compiles the given query against the
catalog to confirm that it resolves.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

var (
	validateSchemaPath string
	validateQueryFile  string
)

func init() {
	validateCmd.Flags().StringVarP(&validateSchemaPath, "schema", "s", "", "Path to catalog schema file")
	validateCmd.Flags().StringVarP(&validateQueryFile, "file", "f", "", "Query file to dry-run compile against the catalog")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	schemaPath := validateSchemaPath
	if schemaPath == "" && len(args) > 0 {
		schemaPath = args[0]
	}

	ui.PrintHeader("Quarry", "Validate Catalog")

	var reg *catalog.Registry
	if schemaPath == "" {
		reg = catalog.Default()
		ui.PrintInfo("No schema file given, validating the builtin catalog")
	} else {
		// Check if file exists
		if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", schemaPath)
		}

		content, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}

		reg, err = catalog.Parse(schemaPath, string(content))
		if err != nil {
			ui.PrintError("Catalog parsing failed:")
			fmt.Fprintln(os.Stderr)
			if !catalog.PrettyPrintError(os.Stderr, string(content), err) {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
			return fmt.Errorf("catalog schema has errors")
		}

		absPath, _ := filepath.Abs(schemaPath)
		ui.PrintSuccess("Catalog is valid: %s", absPath)
	}

	tables := reg.Tables()
	columnCount := 0
	joinedCount := 0
	for _, t := range tables {
		columnCount += len(t.Columns)
		if t.Joined() {
			joinedCount++
		}
	}

	fmt.Println()
	ui.PrintSection("Catalog Summary")
	summary := []string{
		fmt.Sprintf("%d table(s)", len(tables)),
		fmt.Sprintf("%d column(s)", columnCount),
		fmt.Sprintf("%d joined view(s)", joinedCount),
	}
	ui.PrintList(summary)

	if len(tables) > 0 {
		fmt.Println()
		ui.PrintSection("Tables")
		for _, t := range tables {
			ui.PrintInfo("%s (%d columns)", t.Name, len(t.Columns))
		}
	}

	if validateQueryFile != "" {
		fmt.Println()
		payload, err := readPayload(validateQueryFile)
		if err != nil {
			return err
		}

		// The workspace id is a placeholder; the statement is never executed
		svc := service.NewQueryService(reg, nil)
		if _, err := svc.Compile("validate", payload); err != nil {
			return fmt.Errorf("query validation failed: %w", err)
		}
		ui.PrintSuccess("Query %s compiles against the catalog", validateQueryFile)
	}

	return nil
}
