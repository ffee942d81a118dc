// Package fragments materializes a fragment's file map onto a filesystem.
package fragments

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"forge/pkg/models"
)

// Export writes every file of the map under dir, creating parent directories
// as needed. Paths escaping dir are rejected before anything is written.
func Export(fs afero.Fs, dir string, files models.FileMap) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		if err := validatePath(p); err != nil {
			return err
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		target := filepath.Join(dir, filepath.FromSlash(p))
		if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
		if err := afero.WriteFile(fs, target, []byte(files[p]), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
	}
	return nil
}

func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty file path")
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) {
		return fmt.Errorf("absolute file path not allowed: %s", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("file path escapes export directory: %s", p)
	}
	return nil
}
