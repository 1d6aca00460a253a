// internal/generate/builder.go
package generate

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	cfg "github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/header"
)

// BuildPlan converts a normalized master config into a generation plan.
// Assumes config has already passed Validate and Normalize.
func BuildPlan(c *cfg.Config, now time.Time) (Plan, error) {
	if c == nil {
		return Plan{}, errors.New("generate: config required")
	}
	if c.Environment == "" {
		return Plan{}, errors.New("generate: environment required")
	}

	plan := Plan{
		ID:          uuid.NewString(),
		Environment: c.Environment,
		GeneratedAt: now.UTC(),
	}

	banner := header.Banner{
		Source:      sourceName(c),
		Environment: c.Environment,
		Generated:   plan.GeneratedAt,
	}
	out := c.Outputs

	// ---- backend ----

	backend := BackendEnv(c)
	plan.Artifacts = append(plan.Artifacts,
		Artifact{Kind: KindBackendEnv, Path: out.Resolve(out.BackendEnv), Content: backend.Encode()},
		Artifact{Kind: KindBackendModule, Path: out.Resolve(out.BackendModule), Content: BackendModule(banner, backend)},
	)

	// ---- frontend ----

	frontend := FrontendEnv(c)
	plan.Artifacts = append(plan.Artifacts,
		Artifact{Kind: KindFrontendEnv, Path: out.Resolve(out.FrontendEnv), Content: frontend.Encode()},
		Artifact{Kind: KindFrontendModule, Path: out.Resolve(out.FrontendModule), Content: FrontendModule(banner, c)},
	)

	// ---- firmware: one header per reader, master order ----

	firmwareDir := out.Resolve(out.FirmwareDir)
	for _, id := range c.Identities() {
		id := id // per-iteration copy; go.mod targets go1.21 loop semantics
		plan.Artifacts = append(plan.Artifacts, Artifact{
			Kind:     KindReaderHeader,
			Path:     filepath.Join(firmwareDir, ReaderHeaderName(id.Index)),
			Content:  header.RenderReader(banner, c.RecordFor(id)),
			Identity: &id,
		})
	}

	// ---- firmware: main header ----

	mainID, found := c.IdentityFor(c.MainReaderIndex())
	if !found {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"main header index %d has no master reader entry; compiled fallback identity %s",
			mainID.Index,
			mainID.Assignment(),
		))
	}
	topics := header.Topics{
		Base:   c.Network.MQTT.Topics.RFIDBase,
		Health: c.Network.MQTT.Topics.Health,
		Config: c.Network.MQTT.Topics.Config,
	}
	plan.Artifacts = append(plan.Artifacts, Artifact{
		Kind:     KindMainHeader,
		Path:     out.Resolve(out.MainHeader),
		Content:  header.RenderMain(banner, c.RecordFor(mainID), topics),
		Identity: &mainID,
	})

	return plan, nil
}

// ReaderHeaderName is the file name of the per-reader header.
func ReaderHeaderName(index int) string {
	return fmt.Sprintf("reader-%d-config.h", index)
}

func sourceName(c *cfg.Config) string {
	if c.Source != "" {
		return c.Source
	}
	return "master config"
}
