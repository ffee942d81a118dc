package fragments

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/pkg/models"
)

func TestExportWritesFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := models.FileMap{
		"app/page.tsx":       "export default Page",
		"app/globals.css":    "body {}",
		"lib/utils/index.ts": "export {}",
	}

	require.NoError(t, Export(fs, "/out", files))

	for path, want := range map[string]string{
		"/out/app/page.tsx":       "export default Page",
		"/out/app/globals.css":    "body {}",
		"/out/lib/utils/index.ts": "export {}",
	} {
		content, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		assert.Equal(t, want, string(content))
	}
}

func TestExportEmptyMap(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, Export(fs, "/out", nil))
}

func TestExportRejectsEscapingPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"absolute", "/etc/passwd"},
		{"parent", "../outside.txt"},
		{"nested parent", "app/../../outside.txt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			err := Export(fs, "/out", models.FileMap{tt.path: "x"})
			require.Error(t, err)

			// Nothing gets written when any path is invalid.
			entries, readErr := afero.ReadDir(fs, "/out")
			if readErr == nil {
				assert.Empty(t, entries)
			}
		})
	}
}

func TestExportAllowsDotSegmentsThatStayInside(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, Export(fs, "/out", models.FileMap{"app/sub/../page.tsx": "x"}))

	content, err := afero.ReadFile(fs, "/out/app/page.tsx")
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))
}
