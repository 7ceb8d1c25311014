package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// List returns the committed files in a session's upload directory,
// sorted by name. Temporary files still in flight are excluded.
func List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name: entry.Name(),
			Size: info.Size(),
			Path: entry.Name(),
		})
	}
	return files, nil
}

// Delete removes one committed file from the directory. The name is
// validated for containment before touching the filesystem.
func Delete(dir, name string) error {
	path, err := securePath(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// DeleteAll removes every file in the directory, committed or not, and
// then the emptied directory itself.
func DeleteAll(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
		removed++
	}

	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return removed, fmt.Errorf("failed to remove upload directory: %w", err)
	}
	return removed, nil
}
