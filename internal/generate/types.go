// internal/generate/types.go
package generate

import (
	"time"

	"github.com/tamzrod/reader-provisioner/internal/record"
)

// ArtifactKind names what an artifact is for.
type ArtifactKind string

const (
	KindBackendEnv     ArtifactKind = "backend-env"
	KindBackendModule  ArtifactKind = "backend-module"
	KindFrontendEnv    ArtifactKind = "frontend-env"
	KindFrontendModule ArtifactKind = "frontend-module"
	KindReaderHeader   ArtifactKind = "reader-header"
	KindMainHeader     ArtifactKind = "main-header"
)

// Artifact is one file the generator produces.
type Artifact struct {
	Kind    ArtifactKind
	Path    string
	Content []byte

	// Identity is set for header artifacts.
	Identity *record.Identity
}

// Plan is the fully-built set of artifacts for one environment.
type Plan struct {
	ID          string
	Environment string
	GeneratedAt time.Time
	Artifacts   []Artifact

	// Warnings are provisioning problems found while planning.
	// They are reported, never corrected.
	Warnings []string
}

// Result describes what Write did with one artifact.
type Result struct {
	Path       string
	BackupPath string // empty when no previous file existed or backups are off
	Bytes      int
	Skipped    bool // dry run
}
