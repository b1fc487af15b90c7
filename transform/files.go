package transform

import (
	"os"
	"path/filepath"

	"github.com/flanksource/brandify/errs"
)

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "failed to read %s", filepath.Base(path))
	}
	return data, nil
}

// WriteAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.IOError, err, "failed to create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.IOError, err, "failed to write %s", filepath.Base(path))
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return errs.Wrap(errs.IOError, err, "failed to write %s", filepath.Base(path))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return errs.Wrap(errs.IOError, err, "failed to write %s", filepath.Base(path))
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return errs.Wrap(errs.IOError, err, "failed to write %s", filepath.Base(path))
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return errs.Wrap(errs.IOError, err, "failed to write %s", filepath.Base(path))
	}
	return nil
}
