// internal/generate/builder_test.go
package generate

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfg "github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/header"
)

const master = `
environment: development
network:
  backend: {host: localhost, port: 4000}
  frontend: {host: localhost, port: 5173}
  database: {host: localhost, port: 5432, name: rfid, username: postgres, password: pw}
  mqtt: {host: localhost, port: 1883}
hardware:
  wifi: {ssid: UoP_Dev, password: s6RBwfAB7H, timeout_ms: 20000}
  readers:
    - {index: 1, id: register, portal: portal1}
    - {index: 2, id: ENTEROUT, portal: portal2}
    - {index: 8, id: CLUSTER1, portal: reader1}
security:
  game_lite_admin_key: dev-admin-key-2024
  jwt_secret: jwt
outputs:
  root: /out
`

func loadConfig(t *testing.T, doc string) *cfg.Config {
	t.Helper()
	c, err := cfg.Parse([]byte(doc), "")
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	c.Source = "master.yaml"
	if err := cfg.Validate(c); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
	cfg.Normalize(c)
	return c
}

var fixedNow = time.Date(2025, 10, 31, 5, 13, 9, 268_000_000, time.UTC)

func artifactsOf(p Plan, kind ArtifactKind) []Artifact {
	var out []Artifact
	for _, a := range p.Artifacts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// ---- tests ----

func TestBuildPlan_ArtifactSetAndOrder(t *testing.T) {
	plan, err := BuildPlan(loadConfig(t, master), fixedNow)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}

	wantKinds := []ArtifactKind{
		KindBackendEnv, KindBackendModule,
		KindFrontendEnv, KindFrontendModule,
		KindReaderHeader, KindReaderHeader, KindReaderHeader,
		KindMainHeader,
	}
	if len(plan.Artifacts) != len(wantKinds) {
		t.Fatalf("expected %d artifacts, got %d", len(wantKinds), len(plan.Artifacts))
	}
	for i, k := range wantKinds {
		if plan.Artifacts[i].Kind != k {
			t.Fatalf("artifact %d: got kind %s want %s", i, plan.Artifacts[i].Kind, k)
		}
	}

	readers := artifactsOf(plan, KindReaderHeader)
	wantPaths := []string{
		filepath.Join("/out", "firmware/config", "reader-1-config.h"),
		filepath.Join("/out", "firmware/config", "reader-2-config.h"),
		filepath.Join("/out", "firmware/config", "reader-8-config.h"),
	}
	for i, a := range readers {
		if a.Path != wantPaths[i] {
			t.Fatalf("reader header %d path: got %s want %s", i, a.Path, wantPaths[i])
		}
	}

	if len(plan.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", plan.Warnings)
	}
}

func TestBuildPlan_ReaderHeadersParseBackToMasterIdentity(t *testing.T) {
	plan, err := BuildPlan(loadConfig(t, master), fixedNow)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}

	for _, a := range artifactsOf(plan, KindReaderHeader) {
		doc, err := header.Parse(a.Content)
		if err != nil {
			t.Fatalf("%s: parse err=%v", a.Path, err)
		}
		if missing := doc.Missing(); len(missing) != 0 {
			t.Fatalf("%s: missing %v", a.Path, missing)
		}
		if doc.Record.Identity() != *a.Identity {
			t.Fatalf("%s: identity got %v want %v", a.Path, doc.Record.Identity(), *a.Identity)
		}
		if doc.Banner.Source != "master.yaml" || !doc.Banner.Generated.Equal(fixedNow) {
			t.Fatalf("%s: banner %+v", a.Path, doc.Banner)
		}
	}

	// reader IDs are normalized before rendering
	first := artifactsOf(plan, KindReaderHeader)[0]
	if !bytes.Contains(first.Content, []byte(`String readerID = "REGISTER";`)) {
		t.Fatalf("reader id not upper-cased:\n%s", first.Content)
	}
}

func TestBuildPlan_MainHeaderUsesMasterEntry(t *testing.T) {
	plan, err := BuildPlan(loadConfig(t, master), fixedNow)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}

	main := artifactsOf(plan, KindMainHeader)[0]
	if main.Identity.ReaderID != "CLUSTER1" || main.Identity.Portal != "reader1" {
		t.Fatalf("main header identity: %+v", *main.Identity)
	}
}

func TestBuildPlan_MainHeaderFallbackIsReported(t *testing.T) {
	doc := strings.Replace(master, "    - {index: 8, id: CLUSTER1, portal: reader1}\n", "", 1)
	plan, err := BuildPlan(loadConfig(t, doc), fixedNow)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}

	main := artifactsOf(plan, KindMainHeader)[0]
	if main.Identity.ReaderID != "REGISTER" || main.Identity.Portal != "portal1" || main.Identity.Index != 8 {
		t.Fatalf("fallback identity: %+v", *main.Identity)
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "index 8") {
		t.Fatalf("expected one fallback warning, got %v", plan.Warnings)
	}
}

func TestBuildPlan_DeterministicForFixedClock(t *testing.T) {
	c := loadConfig(t, master)

	a, err := BuildPlan(c, fixedNow)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}
	b, err := BuildPlan(c, fixedNow)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}

	for i := range a.Artifacts {
		if !bytes.Equal(a.Artifacts[i].Content, b.Artifacts[i].Content) {
			t.Fatalf("artifact %s differs between runs", a.Artifacts[i].Path)
		}
	}
}

func TestBackendEnv_KeyOrderAndValues(t *testing.T) {
	env := BackendEnv(loadConfig(t, master))

	want := "NODE_ENV=development\n" +
		"PORT=4000\n" +
		"DATABASE_URL=postgresql://postgres:pw@localhost:5432/rfid\n" +
		"PG_SSL=false\n" +
		"MQTT_URL=mqtt://localhost:1883\n" +
		"GAMELITE_ADMIN_KEY=dev-admin-key-2024\n" +
		"JWT_SECRET=jwt\n" +
		"LOG_LEVEL=debug\n"

	if got := string(env.Encode()); got != want {
		t.Fatalf("backend env\n got=%q\nwant=%q", got, want)
	}
}

func TestFrontendModule_EscapesQuotes(t *testing.T) {
	c := loadConfig(t, master)
	c.Security.GameLiteAdminKey = `it's`

	out := string(FrontendModule(header.Banner{Source: "m", Environment: "dev", Generated: fixedNow}, c))
	if !strings.Contains(out, `export const GAMELITE_KEY = 'it\'s';`) {
		t.Fatalf("quote not escaped:\n%s", out)
	}
	if !strings.Contains(out, "export const WS_URL = 'ws://localhost:4000';") {
		t.Fatalf("ws url wrong:\n%s", out)
	}
}

func TestEnvFile_QuotesValuesWithSpaces(t *testing.T) {
	env := EnvFile{{"A", "two words"}, {"B", "plain"}}
	if got := string(env.Encode()); got != "A=\"two words\"\nB=plain\n" {
		t.Fatalf("encode: got %q", got)
	}
}
