package syncengine

import (
	"bytes"
	"os"
	"path/filepath"
)

// copyIfDifferent reads src, and only writes dst if it is missing or
// byte-different. This is what stops preview/agent propagation from
// looping forever.
func copyIfDifferent(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if existing, err := os.ReadFile(dst); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	info, err := os.Stat(src)
	mode := os.FileMode(0o644)
	if err == nil {
		mode = info.Mode()
	}
	return os.WriteFile(dst, data, mode)
}

// deleteIfExists removes path, treating "already gone" as success.
func deleteIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
