package validation_test

import (
	"os"
	"path/filepath"
	"testing"

	"fjacquet/kakeibo/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInputPath(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "export.csv")
	require.NoError(t, os.WriteFile(testFile, []byte("id\n"), 0600))

	tests := []struct {
		name        string
		path        string
		expectError bool
		errContains string
	}{
		{name: "absolute file", path: testFile},
		{name: "directory", path: tmpDir},
		{name: "missing", path: filepath.Join(tmpDir, "nope.csv"), expectError: true, errContains: "path does not exist"},
		{name: "empty", path: "  ", expectError: true, errContains: "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validation.ResolveInputPath(tt.path)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestResolveInputPath_Relative(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.csv"), []byte("id\n"), 0600))
	t.Chdir(dir)

	got, err := validation.ResolveInputPath("in.csv")
	require.NoError(t, err)
	assert.Equal(t, "in.csv", filepath.Base(got))
	assert.True(t, filepath.IsAbs(got))
}

func TestIsValidOutputFormat(t *testing.T) {
	for _, f := range []string{"table", "csv", "json"} {
		assert.NoError(t, validation.IsValidOutputFormat(f), f)
	}
	err := validation.IsValidOutputFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: xml")
}

func TestIsValidFilePermissions(t *testing.T) {
	assert.NoError(t, validation.IsValidFilePermissions(0600))
	assert.NoError(t, validation.IsValidFilePermissions(0640))
	assert.Error(t, validation.IsValidFilePermissions(0644))
	assert.Error(t, validation.IsValidFilePermissions(0777))
}
