package catalog_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/query/ast"
	"github.com/satishbabariya/quarry/query/sqlgen"
)

const sampleSchema = `// Fixture catalog for parser tests.

/// Payment events, one row per charge attempt.
table payments {
	source "payments"
	tenant "workspace_id"

	column id string "id"
	/// Amount in minor units.
	/// Includes fees.
	column amount number "amount"
	column status string "status" @cast("text")
	column created_at datetime "created_at"
}

/// One row per payment joined with its customer.
view customer_payments {
	source "payments p JOIN customers c ON c.id = p.customer_id"
	tenant "p.workspace_id"
	tenant "c.workspace_id"

	column payment_id string "p.id"
	column plan string "c.plan" @cast("text")
}
`

func TestParse(t *testing.T) {
	reg, err := catalog.Parse("sample.schema", sampleSchema)
	require.NoError(t, err)

	tables := reg.Tables()
	require.Len(t, tables, 2)

	payments := tables[0]
	assert.Equal(t, "payments", payments.Name)
	assert.Equal(t, "Payment events, one row per charge attempt.", payments.Doc)
	assert.Equal(t, sqlgen.Fragment("payments"), payments.Source)
	assert.Equal(t, []sqlgen.Fragment{"workspace_id"}, payments.TenantKeys)
	require.Len(t, payments.Columns, 4)

	amount, ok := payments.Column("amount")
	require.True(t, ok)
	assert.Equal(t, ast.KindNumber, amount.Kind)
	assert.Equal(t, "Amount in minor units. Includes fees.", amount.Doc, "doc lines should join with a space")
	assert.Empty(t, amount.Cast)

	status, ok := payments.Column("status")
	require.True(t, ok)
	assert.Equal(t, "text", status.Cast)

	createdAt, ok := payments.Column("created_at")
	require.True(t, ok)
	assert.Equal(t, ast.KindDatetime, createdAt.Kind)

	view := tables[1]
	assert.Equal(t, "customer_payments", view.Name)
	assert.True(t, view.Joined())
	assert.Equal(t, []sqlgen.Fragment{"p.workspace_id", "c.workspace_id"}, view.TenantKeys)

	plan, ok := view.Column("plan")
	require.True(t, ok)
	assert.Equal(t, sqlgen.Fragment("c.plan"), plan.Expr)
	assert.Equal(t, "text", plan.Cast)
}

func TestParse_DuplicateSource(t *testing.T) {
	const schema = `table payments {
	source "payments"
	source "payments_v2"
	tenant "workspace_id"

	column id string "id"
}
`
	_, err := catalog.Parse("schema.quarry", schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "payments": source declared twice`)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := catalog.Parse("schema.quarry", `table payments source "payments"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse catalog schema")
}

func TestParse_InvalidRegistry(t *testing.T) {
	const schema = `table payments {
	source "payments"

	column id string "id"
}
`
	_, err := catalog.Parse("schema.quarry", schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid catalog schema")
	assert.Contains(t, err.Error(), "at least one tenant key is required")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.schema")
	require.NoError(t, os.WriteFile(path, []byte(sampleSchema), 0644))

	reg, err := catalog.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, reg.Tables(), 2)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := catalog.ParseFile(filepath.Join(t.TempDir(), "absent.schema"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog schema")
}

func TestDefault(t *testing.T) {
	reg := catalog.Default()
	require.NotNil(t, reg)
	assert.Same(t, reg, catalog.Default(), "builtin catalog should be parsed once")

	for _, name := range []string{"payments", "refunds", "customer_payments"} {
		_, ok := reg.Table(name)
		assert.True(t, ok, "builtin catalog should declare %s", name)
	}

	view, ok := reg.Table("customer_payments")
	require.True(t, ok)
	assert.True(t, view.Joined())
	assert.Len(t, view.TenantKeys, 2)

	assert.Contains(t, catalog.DefaultSchema(), "table payments")
}

func TestPrettyPrintError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	const schema = `table payments {
	source "payments"
	source "payments_v2"
	tenant "workspace_id"

	column id string "id"
}
`
	_, err := catalog.Parse("schema.quarry", schema)
	require.Error(t, err)

	var buf bytes.Buffer
	require.True(t, catalog.PrettyPrintError(&buf, schema, err), "parse errors should carry a position")

	out := buf.String()
	assert.Contains(t, out, "error: ")
	assert.Contains(t, out, "source declared twice")
	assert.Contains(t, out, "schema.quarry:3")
	assert.Contains(t, out, `source "payments_v2"`)
	assert.Contains(t, out, "^")
}

func TestPrettyPrintError_PlainError(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, catalog.PrettyPrintError(&buf, "", errors.New("boom")))
	assert.Empty(t, buf.String())
}
