package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/quarry/query/ast"
	"github.com/satishbabariya/quarry/query/sqlgen"
)

// rawSchema is the raw parse tree structure that matches the grammar.
// It is converted to a Registry after parsing.
type rawSchema struct {
	Pos    lexer.Position
	Tables []*rawTable `@@*`
}

type rawTable struct {
	Pos     lexer.Position
	Docs    []string    `@DocComment*`
	Keyword string      `@('table' | 'view')`
	Name    string      `@Ident`
	Entries []*rawEntry `'{' @@* '}'`
}

// rawEntry is a union of the declarations allowed inside a table block.
type rawEntry struct {
	Pos    lexer.Position
	Source *string    `'source' @String`
	Tenant *string    `| 'tenant' @String`
	Column *rawColumn `| @@`
}

type rawColumn struct {
	Pos  lexer.Position
	Docs []string `@DocComment*`
	Name string   `'column' @Ident`
	Kind string   `@('string' | 'number' | 'datetime')`
	Expr string   `@String`
	Cast *string  `('@' 'cast' '(' @String ')')?`
}

// parser is the Participle parser instance.
var parser = participle.MustBuild[rawSchema](
	participle.Lexer(schemaLexer),
	participle.Elide("Whitespace", "Newline", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Parse parses catalog schema text into a Registry. The filename is used
// in error positions only.
func Parse(filename, input string) (*Registry, error) {
	raw, err := parser.ParseString(filename, input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog schema: %w", err)
	}
	return convertRawSchema(raw)
}

// ParseFile parses a catalog schema file into a Registry.
func ParseFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog schema: %w", err)
	}
	return Parse(path, string(data))
}

// convertRawSchema converts the raw parse tree to a validated Registry.
func convertRawSchema(raw *rawSchema) (*Registry, error) {
	tables := make([]Table, 0, len(raw.Tables))
	for _, rt := range raw.Tables {
		t := Table{Name: rt.Name, Doc: joinDocs(rt.Docs)}
		for _, e := range rt.Entries {
			switch {
			case e.Source != nil:
				if t.Source != "" {
					return nil, participle.Errorf(e.Pos, "table %q: source declared twice", rt.Name)
				}
				t.Source = sqlgen.Fragment(*e.Source)
			case e.Tenant != nil:
				t.TenantKeys = append(t.TenantKeys, sqlgen.Fragment(*e.Tenant))
			case e.Column != nil:
				c := Column{
					Name: e.Column.Name,
					Kind: ast.ValueKind(e.Column.Kind),
					Expr: sqlgen.Fragment(e.Column.Expr),
					Doc:  joinDocs(e.Column.Docs),
				}
				if e.Column.Cast != nil {
					c.Cast = *e.Column.Cast
				}
				t.Columns = append(t.Columns, c)
			}
		}
		tables = append(tables, t)
	}
	reg, err := NewRegistry(tables...)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog schema: %w", err)
	}
	return reg, nil
}

func joinDocs(docs []string) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = strings.TrimSpace(strings.TrimPrefix(d, "///"))
	}
	return strings.Join(parts, " ")
}
