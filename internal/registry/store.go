// internal/registry/store.go
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/record"
)

var (
	// ErrNotFound is returned when no row exists for a reader index.
	ErrNotFound = errors.New("registry: reader config not found")
	// ErrNothingToUpdate is returned by Update when the patch changes nothing.
	ErrNothingToUpdate = errors.New("registry: nothing to update")
	// ErrInvalid is returned for rows with a negative index or blank identity.
	ErrInvalid = errors.New("registry: r_index must be >= 0 and reader_id and portal are required")
)

// Store is the reader identity registry.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to dsn and migrates the reader_config table.
// postgres:// and postgresql:// DSNs use PostgreSQL; anything else is a SQLite path
// (an optional sqlite:// prefix is stripped).
func Open(dsn string, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("registry: dsn required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var (
		dialector gorm.Dialector
		driver    string
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector, driver = postgres.Open(dsn), "postgres"
	default:
		dialector, driver = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), "sqlite"
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("registry: connect %s: %w", driver, err)
	}

	return New(db, logg.With("service", "Registry", "driver", driver))
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB, logg *logger.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("registry: db required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if err := db.AutoMigrate(&ReaderConfig{}); err != nil {
		return nil, fmt.Errorf("registry: migrate: %w", err)
	}
	return &Store{db: db, log: logg}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the row for index or ErrNotFound.
func (s *Store) Get(ctx context.Context, index int) (ReaderConfig, error) {
	var row ReaderConfig
	err := s.db.WithContext(ctx).Where("r_index = ?", index).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ReaderConfig{}, ErrNotFound
	}
	if err != nil {
		return ReaderConfig{}, err
	}
	return row, nil
}

// List returns every row ordered by index.
func (s *Store) List(ctx context.Context) ([]ReaderConfig, error) {
	var rows []ReaderConfig
	if err := s.db.WithContext(ctx).Order("r_index").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Resolve returns the stored identity for index, or the fallback identity with found=false.
func (s *Store) Resolve(ctx context.Context, index int) (record.Identity, bool, error) {
	row, err := s.Get(ctx, index)
	if errors.Is(err, ErrNotFound) {
		return record.Default(index), false, nil
	}
	if err != nil {
		return record.Identity{}, false, err
	}
	return row.Identity(), true, nil
}

// Upsert inserts or replaces the assignment of one index.
// Reader IDs are stored trimmed and upper-cased.
func (s *Store) Upsert(ctx context.Context, index int, readerID, portal string) (ReaderConfig, error) {
	row := ReaderConfig{
		RIndex:   index,
		ReaderID: normalizeID(readerID),
		Portal:   strings.TrimSpace(portal),
	}
	if row.RIndex < 0 || row.ReaderID == "" || row.Portal == "" {
		return ReaderConfig{}, ErrInvalid
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "r_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"reader_id", "portal", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return ReaderConfig{}, err
	}

	s.log.Info("reader config upserted", "r_index", row.RIndex, "reader_id", row.ReaderID, "portal", row.Portal)
	return s.Get(ctx, index)
}

// Update applies a partial change to an existing row.
func (s *Store) Update(ctx context.Context, index int, p Patch) (ReaderConfig, error) {
	updates := make(map[string]any, 3)
	if p.ReaderID != nil {
		if id := normalizeID(*p.ReaderID); id != "" {
			updates["reader_id"] = id
		}
	}
	if p.Portal != nil {
		if portal := strings.TrimSpace(*p.Portal); portal != "" {
			updates["portal"] = portal
		}
	}
	if len(updates) == 0 {
		return ReaderConfig{}, ErrNothingToUpdate
	}
	updates["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).
		Model(&ReaderConfig{}).
		Where("r_index = ?", index).
		Updates(updates)
	if res.Error != nil {
		return ReaderConfig{}, res.Error
	}
	if res.RowsAffected == 0 {
		return ReaderConfig{}, ErrNotFound
	}

	s.log.Info("reader config updated", "r_index", index)
	return s.Get(ctx, index)
}

// Delete removes the row for index. Deleting a missing row is not an error.
func (s *Store) Delete(ctx context.Context, index int) error {
	err := s.db.WithContext(ctx).
		Where("r_index = ?", index).
		Delete(&ReaderConfig{}).Error
	if err != nil {
		return err
	}
	s.log.Info("reader config deleted", "r_index", index)
	return nil
}

// Seed inserts master assignments for indices that have no row yet.
// Existing rows are runtime edits and are never overwritten.
// Returns the number of rows inserted.
func (s *Store) Seed(ctx context.Context, ids []record.Identity) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	rows := make([]ReaderConfig, 0, len(ids))
	for _, id := range ids {
		row := ReaderConfig{RIndex: id.Index, ReaderID: normalizeID(id.ReaderID), Portal: strings.TrimSpace(id.Portal)}
		if row.RIndex < 0 || row.ReaderID == "" || row.Portal == "" {
			return 0, fmt.Errorf("seed index %d: %w", id.Index, ErrInvalid)
		}
		rows = append(rows, row)
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}

	s.log.Info("registry seeded", "offered", len(rows), "inserted", res.RowsAffected)
	return int(res.RowsAffected), nil
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
