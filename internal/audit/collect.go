// internal/audit/collect.go
package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tamzrod/reader-provisioner/internal/header"
)

// File is one parsed generation of a header artifact.
type File struct {
	// Path is where the file was read from.
	Path string
	// Artifact is the path the generation belongs to (backup suffix stripped).
	Artifact string
	// Backup is the epoch-ms stamp of a backup generation; 0 for the live file.
	Backup int64

	Doc *header.Document
}

// Current reports whether this is the live file rather than a backup.
func (f File) Current() bool {
	return f.Backup == 0
}

var backupSuffix = regexp.MustCompile(`^(.*)\.backup\.(\d+)$`)

// SplitBackup returns the artifact path and backup stamp of path.
func SplitBackup(path string) (string, int64) {
	m := backupSuffix.FindStringSubmatch(path)
	if m == nil {
		return path, 0
	}
	stamp, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return path, 0
	}
	return m[1], stamp
}

func isHeaderPath(path string) bool {
	artifact, _ := SplitBackup(path)
	return strings.HasSuffix(artifact, ".h")
}

// Collect reads header files from the given files and directories.
// Directories are walked recursively. Files without the generator banner
// are returned in skipped rather than as errors. A file reached through
// several arguments is collected once.
func Collect(paths ...string) (files []File, skipped []string, err error) {
	var errs []string

	visited := make(map[string]bool)
	first := func(p string) bool {
		key, absErr := filepath.Abs(p)
		if absErr != nil {
			key = filepath.Clean(p)
		}
		if visited[key] {
			return false
		}
		visited[key] = true
		return true
	}

	for _, root := range paths {
		info, statErr := os.Stat(root)
		if statErr != nil {
			errs = append(errs, statErr.Error())
			continue
		}

		if !info.IsDir() {
			if !first(root) {
				continue
			}
			f, skip, readErr := readFile(root)
			switch {
			case readErr != nil:
				errs = append(errs, readErr.Error())
			case skip:
				skipped = append(skipped, root)
			default:
				files = append(files, f)
			}
			continue
		}

		walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isHeaderPath(p) || !first(p) {
				return nil
			}
			f, skip, readErr := readFile(p)
			switch {
			case readErr != nil:
				errs = append(errs, readErr.Error())
			case skip:
				skipped = append(skipped, p)
			default:
				files = append(files, f)
			}
			return nil
		})
		if walkErr != nil {
			errs = append(errs, walkErr.Error())
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Artifact != files[j].Artifact {
			return files[i].Artifact < files[j].Artifact
		}
		return generationLess(files[i], files[j])
	})

	if len(errs) > 0 {
		return files, skipped, errors.New("audit: " + strings.Join(errs, " | "))
	}
	return files, skipped, nil
}

func readFile(path string) (File, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, false, err
	}

	doc, err := header.Parse(data)
	if errors.Is(err, header.ErrNotGenerated) {
		return File{}, true, nil
	}
	if err != nil {
		return File{}, false, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path

	artifact, stamp := SplitBackup(path)
	return File{Path: path, Artifact: artifact, Backup: stamp, Doc: doc}, false, nil
}

// generationLess orders backups oldest first and the live file last.
func generationLess(a, b File) bool {
	if a.Current() != b.Current() {
		return b.Current()
	}
	return a.Backup < b.Backup
}
