// internal/generate/writer.go
package generate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer delivers a plan to disk.
type Writer struct {
	// Backup copies an existing file to <path>.backup.<epoch-ms> before overwriting it.
	Backup bool
	// DryRun reports what would be written without touching the filesystem.
	DryRun bool
	// Now stamps backup names. Defaults to time.Now.
	Now func() time.Time
}

// BackupPath is the name an existing file is copied to before being replaced.
func BackupPath(path string, at time.Time) string {
	return fmt.Sprintf("%s.backup.%d", path, at.UnixMilli())
}

// Write writes every artifact in plan order.
// A failing artifact does not stop the others; all failures are returned together.
func (w *Writer) Write(plan Plan) ([]Result, error) {
	now := w.Now
	if now == nil {
		now = time.Now
	}

	var (
		results []Result
		errs    []string
	)

	for _, a := range plan.Artifacts {
		res := Result{Path: a.Path, Bytes: len(a.Content)}

		if w.DryRun {
			res.Skipped = true
			results = append(results, res)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
			errs = append(errs, fmt.Sprintf("%s: mkdir: %v", a.Path, err))
			continue
		}

		if w.Backup {
			bp, err := backupExisting(a.Path, now())
			if err != nil {
				// Never overwrite a file we failed to preserve.
				errs = append(errs, fmt.Sprintf("%s: backup: %v", a.Path, err))
				continue
			}
			res.BackupPath = bp
		}

		if err := writeFileAtomic(a.Path, a.Content); err != nil {
			errs = append(errs, fmt.Sprintf("%s: write: %v", a.Path, err))
			continue
		}

		results = append(results, res)
	}

	if len(errs) > 0 {
		return results, errors.New("generate: " + strings.Join(errs, " | "))
	}
	return results, nil
}

// backupExisting copies path aside. Returns "" when there is nothing to back up.
func backupExisting(path string, at time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	bp := BackupPath(path, at)
	if err := os.WriteFile(bp, data, 0o644); err != nil {
		return "", err
	}
	return bp, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
