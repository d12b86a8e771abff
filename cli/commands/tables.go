package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/cli/internal/config"
	"github.com/satishbabariya/quarry/cli/internal/ui"
)

var tablesCmd = &cobra.Command{
	Use:   "tables [table-name]",
	Short: "List queryable tables or describe one in detail",
	Long: `List the logical tables exposed by the catalog.

With a table name, prints the table's documentation and full column
reference instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTables,
}

var tablesSchemaPath string

func init() {
	tablesCmd.Flags().StringVarP(&tablesSchemaPath, "schema", "s", "", "Path to catalog schema file")

	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reg, _, err := loadRegistry(tablesSchemaPath, cfg)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return describeTable(reg, args[0])
	}

	rows := make([][]string, 0, len(reg.Tables()))
	for _, t := range reg.Tables() {
		kind := "table"
		if t.Joined() {
			kind = "view"
		}
		rows = append(rows, []string{
			t.Name,
			kind,
			fmt.Sprintf("%d", len(t.Columns)),
			fmt.Sprintf("%d", len(t.TenantKeys)),
		})
	}
	ui.PrintTable([]string{"Table", "Kind", "Columns", "Tenant keys"}, rows)

	fmt.Println()
	ui.PrintInfo("Run 'quarry tables <name>' for the column reference")
	return nil
}

func describeTable(reg *catalog.Registry, name string) error {
	t, ok := reg.Table(name)
	if !ok {
		return fmt.Errorf("unknown table %q: run 'quarry tables' to list them", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Name)
	if t.Doc != "" {
		fmt.Fprintf(&b, "%s\n\n", t.Doc)
	}
	fmt.Fprintf(&b, "Source: `%s`\n\n", t.Source)

	b.WriteString("| Column | Kind | Expression | Cast |\n")
	b.WriteString("|--------|------|------------|------|\n")
	for _, c := range t.Columns {
		cast := ""
		if c.Cast != "" {
			cast = "`::" + c.Cast + "`"
		}
		fmt.Fprintf(&b, "| %s | %s | `%s` | %s |\n", c.Name, c.Kind, c.Expr, cast)
	}

	docs := make([]string, 0)
	for _, c := range t.Columns {
		if c.Doc != "" {
			docs = append(docs, fmt.Sprintf("- **%s**: %s", c.Name, c.Doc))
		}
	}
	if len(docs) > 0 {
		b.WriteString("\n## Column notes\n\n")
		b.WriteString(strings.Join(docs, "\n"))
		b.WriteString("\n")
	}

	return ui.PrintMarkdown(b.String())
}
