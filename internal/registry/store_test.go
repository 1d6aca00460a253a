// internal/registry/store_test.go
package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/record"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite://"+filepath.Join(t.TempDir(), "registry.db"), logger.Nop())
	if err != nil {
		t.Fatalf("Open err=%v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strp(s string) *string { return &s }

// ---- tests ----

func TestOpen_EmptyDSNRejected(t *testing.T) {
	if _, err := Open("  ", nil); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestResolve_DefaultsWhenMissing(t *testing.T) {
	s := openStore(t)

	id, found, err := s.Resolve(context.Background(), 999)
	if err != nil {
		t.Fatalf("Resolve err=%v", err)
	}
	if found {
		t.Fatalf("index 999 should not be found")
	}
	if id != record.Default(999) {
		t.Fatalf("default identity: got %+v", id)
	}
}

func TestUpsert_UppercasesAndReplaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	row, err := s.Upsert(ctx, 2, " enterout ", " portal2 ")
	if err != nil {
		t.Fatalf("Upsert err=%v", err)
	}
	if row.ReaderID != "ENTEROUT" || row.Portal != "portal2" {
		t.Fatalf("row not normalized: %+v", row)
	}
	if row.UpdatedAt.IsZero() {
		t.Fatalf("updated_at not set")
	}

	if _, err := s.Upsert(ctx, 2, "exit", "portal3"); err != nil {
		t.Fatalf("second Upsert err=%v", err)
	}

	rows, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List err=%v", err)
	}
	if len(rows) != 1 || rows[0].ReaderID != "EXIT" || rows[0].Portal != "portal3" {
		t.Fatalf("upsert should replace, got %+v", rows)
	}
}

func TestUpsert_BlankIdentityRejected(t *testing.T) {
	s := openStore(t)

	_, err := s.Upsert(context.Background(), 1, "  ", "portal1")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	_, err = s.Upsert(context.Background(), -1, "A", "p")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for negative index, got %v", err)
	}
}

func TestUpdate_Partial(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, 8, "CLUSTER1", "reader1"); err != nil {
		t.Fatalf("Upsert err=%v", err)
	}

	row, err := s.Update(ctx, 8, Patch{Portal: strp("reader2")})
	if err != nil {
		t.Fatalf("Update err=%v", err)
	}
	if row.ReaderID != "CLUSTER1" || row.Portal != "reader2" {
		t.Fatalf("partial update wrong: %+v", row)
	}

	row, err = s.Update(ctx, 8, Patch{ReaderID: strp("cluster2")})
	if err != nil {
		t.Fatalf("Update err=%v", err)
	}
	if row.ReaderID != "CLUSTER2" || row.Portal != "reader2" {
		t.Fatalf("reader id update wrong: %+v", row)
	}
}

func TestUpdate_Errors(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.Update(ctx, 3, Patch{}); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
	if _, err := s.Update(ctx, 3, Patch{ReaderID: strp("  ")}); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("blank patch must be a no-op, got %v", err)
	}
	if _, err := s.Update(ctx, 3, Patch{Portal: strp("p")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, 4, "GATE", "portal4"); err != nil {
		t.Fatalf("Upsert err=%v", err)
	}
	if err := s.Delete(ctx, 4); err != nil {
		t.Fatalf("Delete err=%v", err)
	}
	if _, err := s.Get(ctx, 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, 4); err != nil {
		t.Fatalf("deleting a missing row should succeed, got %v", err)
	}
}

func TestSeed_InsertsMissingOnly(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	// runtime edit made before the seed
	if _, err := s.Upsert(ctx, 2, "EXIT", "portal3"); err != nil {
		t.Fatalf("Upsert err=%v", err)
	}

	n, err := s.Seed(ctx, []record.Identity{
		{Index: 1, ReaderID: "register", Portal: "portal1"},
		{Index: 2, ReaderID: "ENTEROUT", Portal: "portal2"},
		{Index: 8, ReaderID: "CLUSTER1", Portal: "reader1"},
	})
	if err != nil {
		t.Fatalf("Seed err=%v", err)
	}
	if n != 2 {
		t.Fatalf("inserted: got %d want 2", n)
	}

	rows, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List err=%v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d", len(rows))
	}
	if rows[0].RIndex != 1 || rows[0].ReaderID != "REGISTER" {
		t.Fatalf("seeded row wrong: %+v", rows[0])
	}
	if rows[1].ReaderID != "EXIT" || rows[1].Portal != "portal3" {
		t.Fatalf("runtime edit overwritten: %+v", rows[1])
	}
	if rows[2].RIndex != 8 {
		t.Fatalf("list not ordered: %+v", rows)
	}
}
