// internal/generate/writer_test.go
package generate

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriter_CreatesDirectoriesAndFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "firmware", "config", "reader-1-config.h")

	w := &Writer{Backup: true}
	res, err := w.Write(Plan{Artifacts: []Artifact{{Path: path, Content: []byte("v1")}}})
	if err != nil {
		t.Fatalf("Write err=%v", err)
	}

	if len(res) != 1 || res[0].BackupPath != "" {
		t.Fatalf("first write must not back up: %+v", res)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "v1" {
		t.Fatalf("file content: %q err=%v", got, err)
	}
}

func TestWriter_BacksUpExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.h")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	at := time.UnixMilli(1761887589268)
	w := &Writer{Backup: true, Now: func() time.Time { return at }}

	res, err := w.Write(Plan{Artifacts: []Artifact{{Path: path, Content: []byte("new")}}})
	if err != nil {
		t.Fatalf("Write err=%v", err)
	}

	wantBackup := path + ".backup.1761887589268"
	if res[0].BackupPath != wantBackup {
		t.Fatalf("backup path: got %q want %q", res[0].BackupPath, wantBackup)
	}
	old, err := os.ReadFile(wantBackup)
	if err != nil || string(old) != "old" {
		t.Fatalf("backup content: %q err=%v", old, err)
	}
	cur, _ := os.ReadFile(path)
	if string(cur) != "new" {
		t.Fatalf("current content: %q", cur)
	}
}

func TestWriter_NoBackupOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := &Writer{}
	if _, err := w.Write(Plan{Artifacts: []Artifact{{Path: path, Content: []byte("new")}}}); err != nil {
		t.Fatalf("Write err=%v", err)
	}

	matches, _ := filepath.Glob(path + ".backup.*")
	if len(matches) != 0 {
		t.Fatalf("unexpected backups: %v", matches)
	}
}

func TestWriter_DryRunTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "x.h")

	w := &Writer{Backup: true, DryRun: true}
	res, err := w.Write(Plan{Artifacts: []Artifact{{Path: path, Content: []byte("x")}}})
	if err != nil {
		t.Fatalf("Write err=%v", err)
	}
	if !res[0].Skipped {
		t.Fatalf("dry run result should be skipped")
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); !os.IsNotExist(err) {
		t.Fatalf("dry run created directories: %v", err)
	}
}

func TestWriter_ContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("file, not dir"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	good := filepath.Join(dir, "ok.h")

	w := &Writer{}
	res, err := w.Write(Plan{Artifacts: []Artifact{
		{Path: filepath.Join(blocker, "x.h"), Content: []byte("x")},
		{Path: good, Content: []byte("ok")},
	}})
	if err == nil {
		t.Fatalf("expected error for blocked path")
	}
	if len(res) != 1 || res[0].Path != good {
		t.Fatalf("second artifact should still be written: %+v", res)
	}
}
