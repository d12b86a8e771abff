package catalog

import (
	_ "embed"
	"fmt"
	"sync"
)

//go:embed builtin.schema
var builtinSchema string

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the builtin payments catalog. The embedded schema is
// parsed once; a parse failure there is a programmer error and panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse("builtin.schema", builtinSchema)
		if err != nil {
			panic(fmt.Sprintf("catalog: builtin schema: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// DefaultSchema returns the builtin schema text, used by project scaffolding.
func DefaultSchema() string {
	return builtinSchema
}
