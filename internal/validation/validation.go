// Package validation checks user-supplied paths, formats and file modes
// before the CLI acts on them.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Output formats accepted by the listing commands.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// ResolveInputPath makes path absolute and checks that it names an existing
// file or directory.
func ResolveInputPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("error resolving path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("error checking path %s: %w", path, err)
	}

	if !info.IsDir() && !info.Mode().IsRegular() {
		return "", fmt.Errorf("path %s is neither a file nor a directory", path)
	}
	return abs, nil
}

// IsValidOutputFormat checks if the given format is supported.
func IsValidOutputFormat(format string) error {
	switch format {
	case FormatTable, FormatCSV, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s. Supported formats are 'table', 'csv', 'json'", format)
	}
}

// IsValidFilePermissions rejects modes that grant any access to others.
// Config files can hold the store passphrase.
func IsValidFilePermissions(mode os.FileMode) error {
	if mode&0007 != 0 {
		return fmt.Errorf("file permissions are too permissive: %s. Recommended 0600 or 0640", mode.String())
	}
	return nil
}
