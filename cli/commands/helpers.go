package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/cli/internal/config"
)

// loadRegistry resolves the catalog for a command invocation. An explicit
// --schema flag wins, then the configured schema_path, then the builtin
// catalog.
func loadRegistry(flagValue string, cfg *config.Config) (*catalog.Registry, string, error) {
	path := flagValue
	if path == "" && cfg != nil {
		path = cfg.SchemaPath
	}
	if path == "" {
		return catalog.Default(), "", nil
	}

	reg, err := catalog.ParseFile(path)
	if err != nil {
		// Pretty print parse errors with source context when possible
		if data, readErr := os.ReadFile(path); readErr == nil {
			if catalog.PrettyPrintError(os.Stderr, string(data), err) {
				return nil, path, fmt.Errorf("catalog schema has errors")
			}
		}
		return nil, path, err
	}
	return reg, path, nil
}

// readPayload reads a query payload from the given file, or from stdin
// when path is "-".
func readPayload(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read query from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return data, nil
}

// resolveWorkspace returns the workspace id from the flag or the config.
func resolveWorkspace(flagValue string, cfg *config.Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg != nil && cfg.Workspace != "" {
		return cfg.Workspace, nil
	}
	return "", fmt.Errorf("no workspace id: pass --workspace or set workspace in .quarry.yaml")
}

// formatArg renders a bind argument for display.
func formatArg(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
